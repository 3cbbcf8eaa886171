package statement

import (
	"time"

	"github.com/google/uuid"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
)

// Entry is a denormalized copy of a committed ledger transaction, held in the
// statement archive for history and statement reads. The relational ledger
// stays the source of truth; the archive only ever lags it.
type Entry struct {
	TransactionID    uuid.UUID        `json:"transaction_id" bson:"transaction_id"`
	WalletID         uuid.UUID        `json:"wallet_id" bson:"wallet_id"`
	UserID           uuid.UUID        `json:"user_id" bson:"user_id"`
	Type             transaction.Type `json:"type" bson:"type"`
	Amount           string           `json:"amount" bson:"amount"`
	BalanceAfter     string           `json:"balance_after" bson:"balance_after"`
	AvailableAfter   string           `json:"available_after" bson:"available_after"`
	PendingAfter     string           `json:"pending_after" bson:"pending_after"`
	Reference        string           `json:"reference" bson:"reference"`
	Status           string           `json:"status" bson:"status"`
	BookingID        *uuid.UUID       `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	GatewayReference string           `json:"gateway_reference,omitempty" bson:"gateway_reference,omitempty"`
	CreatedAt        time.Time        `json:"created_at" bson:"created_at"`
	ArchivedAt       time.Time        `json:"archived_at" bson:"archived_at"`
}

// FromTransaction maps a ledger transaction to its archive form. Monetary
// figures are archived as strings so the archive never rounds them.
func FromTransaction(txn *transaction.Transaction) *Entry {
	return &Entry{
		TransactionID:    txn.ID,
		WalletID:         txn.WalletID,
		UserID:           txn.UserID,
		Type:             txn.Type,
		Amount:           txn.Amount.StringFixed(2),
		BalanceAfter:     txn.BalanceAfter.StringFixed(2),
		AvailableAfter:   txn.AvailableBalanceAfter.StringFixed(2),
		PendingAfter:     txn.PendingBalanceAfter.StringFixed(2),
		Reference:        txn.Reference,
		Status:           string(txn.Status),
		BookingID:        txn.BookingID,
		GatewayReference: txn.GatewayReference,
		CreatedAt:        txn.CreatedAt,
		ArchivedAt:       time.Now(),
	}
}
