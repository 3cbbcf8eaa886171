package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrEmptyOwnerName        = errors.New("owner name cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Status defines the lifecycle state of a wallet. Wallets are never
// hard-deleted; a closed wallet stays on record with its history intact.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// Wallet holds a user's internal funds, split between the spendable available
// balance and the pending balance held against booking risk. The wallet row is
// a materialized snapshot of the latest completed transaction; the transaction
// table is the source of truth.
type Wallet struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              uuid.UUID       `json:"user_id"`
	GatewayCustomerID   string          `json:"gateway_customer_id,omitempty"`
	GatewayCustomerCode string          `json:"gateway_customer_code,omitempty"`
	AccountNumber       string          `json:"account_number,omitempty"`
	AccountName         string          `json:"account_name,omitempty"`
	BankName            string          `json:"bank_name,omitempty"`
	BankCode            string          `json:"bank_code,omitempty"`
	WalletAddress       string          `json:"wallet_address"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	PendingBalance      decimal.Decimal `json:"pending_balance"`
	Currency            string          `json:"currency"`
	Status              Status          `json:"status"`
	LastTransactionAt   *time.Time      `json:"last_transaction_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// New creates a wallet for the given user with zero balances and a derived
// wallet address. The address is assigned once and never changes.
func New(userID uuid.UUID, ownerName string, currency string) (*Wallet, error) {
	if strings.TrimSpace(ownerName) == "" {
		return nil, ErrEmptyOwnerName
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	id := uuid.New()
	now := time.Now()

	return &Wallet{
		ID:               id,
		UserID:           userID,
		WalletAddress:    DeriveAddress(ownerName, id),
		AvailableBalance: decimal.Zero,
		PendingBalance:   decimal.Zero,
		Currency:         strings.ToUpper(currency),
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// DeriveAddress builds the human-readable transfer handle from the owner's
// name plus a short hash of the wallet id, e.g. "ada-okafor-3f2a91bc".
func DeriveAddress(ownerName string, id uuid.UUID) string {
	slug := strings.ToLower(strings.TrimSpace(ownerName))
	slug = strings.Join(strings.Fields(slug), "-")

	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	slug = strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "wallet"
	}

	sum := sha256.Sum256(id[:])
	return slug + "-" + hex.EncodeToString(sum[:4])
}

// Active reports whether the wallet accepts balance mutations.
func (w *Wallet) Active() bool {
	return w.Status == StatusActive
}

// TotalBalance returns available + pending, the figure snapshotted as
// balance_before/balance_after on every transaction.
func (w *Wallet) TotalBalance() decimal.Decimal {
	return w.AvailableBalance.Add(w.PendingBalance)
}

// CanDebit checks that the available balance covers the amount. Pending funds
// are never directly spendable.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.AvailableBalance.GreaterThanOrEqual(amount)
}
