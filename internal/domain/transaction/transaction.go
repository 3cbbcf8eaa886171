package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("transaction amount must be positive")
)

// Type defines the direction and nature of a balance mutation. Amounts are
// always positive; the type carries the direction.
type Type string

const (
	TypeCredit      Type = "credit"
	TypeDebit       Type = "debit"
	TypeRefund      Type = "refund"
	TypeWithdrawal  Type = "withdrawal"
	TypeTransferIn  Type = "transfer_in"
	TypeTransferOut Type = "transfer_out"
)

// Status defines transaction processing states
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusReversed   Status = "reversed"
)

// Transaction is an append-only ledger row, one per balance-affecting event.
// Rows are never updated after insert except for status transitions, the
// completion timestamp, and the gateway reference attached at payout time.
type Transaction struct {
	ID                     uuid.UUID       `json:"id"`
	WalletID               uuid.UUID       `json:"wallet_id"`
	UserID                 uuid.UUID       `json:"user_id"`
	Type                   Type            `json:"type"`
	Amount                 decimal.Decimal `json:"amount"`
	BalanceBefore          decimal.Decimal `json:"balance_before"`
	BalanceAfter           decimal.Decimal `json:"balance_after"`
	AvailableBalanceBefore decimal.Decimal `json:"available_balance_before"`
	AvailableBalanceAfter  decimal.Decimal `json:"available_balance_after"`
	PendingBalanceBefore   decimal.Decimal `json:"pending_balance_before"`
	PendingBalanceAfter    decimal.Decimal `json:"pending_balance_after"`
	ReleaseDate            *time.Time      `json:"release_date,omitempty"`
	Reference              string          `json:"reference"`
	Status                 Status          `json:"status"`
	RelatedTransactionID   *uuid.UUID      `json:"related_transaction_id,omitempty"`
	BookingID              *uuid.UUID      `json:"booking_id,omitempty"`
	GatewayReference       string          `json:"gateway_reference,omitempty"`
	Metadata               map[string]any  `json:"metadata,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	CompletedAt            *time.Time      `json:"completed_at,omitempty"`
}

// SignedAmount returns the amount with the sign implied by the type: positive
// for money entering the wallet, negative for money leaving it.
func (t *Transaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case TypeDebit, TypeWithdrawal, TypeTransferOut:
		return t.Amount.Neg()
	default:
		return t.Amount
	}
}

// IsHold reports whether this row recorded funds entering the pending balance.
func (t *Transaction) IsHold() bool {
	return t.PendingBalanceAfter.GreaterThan(t.PendingBalanceBefore)
}

// withdrawal state machine: every legal transition, nothing else
var legalTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a withdrawal may move between the two states.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
