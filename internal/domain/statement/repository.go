package statement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages statement archive persistence
type Repository interface {
	// Archive upserts an entry keyed by transaction id, so re-archiving a
	// redelivered outbox message is a no-op.
	Archive(ctx context.Context, entry *Entry) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Entry, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, from, to time.Time, limit, offset int) ([]*Entry, error)
	CountByWallet(ctx context.Context, walletID uuid.UUID, from, to time.Time) (int64, error)
}

// ErrEntryNotFound indicates a missing archive entry
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "statement entry not found: " + e.TransactionID.String()
}

// Is matches any ErrEntryNotFound when the target carries no id.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
