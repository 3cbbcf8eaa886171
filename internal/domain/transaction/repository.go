package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows history queries. Nil fields are ignored.
type Filter struct {
	Type   *Type
	Status *Status
	From   *time.Time
	To     *time.Time
}

// Repository manages ledger row persistence with pagination support
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByReference is the idempotency lookup. Returns nil, nil when no
	// transaction carries the reference.
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	GetByGatewayReference(ctx context.Context, gatewayReference string) (*Transaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, filter Filter, limit, offset int) ([]*Transaction, error)
	CountByWallet(ctx context.Context, walletID uuid.UUID, filter Filter) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, gatewayReference string) error
	LinkRelated(ctx context.Context, id uuid.UUID, relatedID uuid.UUID) error

	// DueForRelease finds completed hold rows whose release date has passed
	// and that have not yet been released under the release reference scheme.
	DueForRelease(ctx context.Context, asOf time.Time, limit int) ([]*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing ledger row
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries no id.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateReference indicates the idempotency key is already taken. The
// mutator resolves this by returning the prior transaction, so callers rarely
// see it surface.
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate transaction reference: " + e.Reference
}

// Is matches any ErrDuplicateReference when the target carries no reference.
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrInvalidTransition indicates an illegal withdrawal state change
type ErrInvalidTransition struct {
	TransactionID uuid.UUID
	From          Status
	To            Status
}

func (e ErrInvalidTransition) Error() string {
	return "illegal transition for transaction " + e.TransactionID.String() +
		": " + string(e.From) + " -> " + string(e.To)
}

// Is matches any ErrInvalidTransition when the target carries no id.
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID && e.From == t.From && e.To == t.To
}

// ErrMutationFailed wraps unexpected storage failures during a balance
// mutation. Retryable with the same reference.
type ErrMutationFailed struct {
	Reference string
	Err       error
}

func (e ErrMutationFailed) Error() string {
	return "mutation failed for reference " + e.Reference + ": " + e.Err.Error()
}

func (e ErrMutationFailed) Unwrap() error {
	return e.Err
}

// Is matches any ErrMutationFailed regardless of reference.
func (e ErrMutationFailed) Is(target error) bool {
	_, ok := target.(ErrMutationFailed)
	return ok
}
