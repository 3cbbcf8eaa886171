package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines wallet persistence operations
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	GetByAddress(ctx context.Context, address string) (*Wallet, error)
	GetByCustomerCode(ctx context.Context, customerCode string) (*Wallet, error)
	Update(ctx context.Context, w *Wallet) error

	// LockForUpdate acquires an exclusive row lock on the wallet. Must be
	// called within a transaction; the lock is held until commit or rollback.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Wallet, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrWalletNotFound indicates a missing wallet
type ErrWalletNotFound struct {
	WalletID uuid.UUID
	UserID   uuid.UUID
	Address  string
}

func (e ErrWalletNotFound) Error() string {
	switch {
	case e.Address != "":
		return "wallet not found for address: " + e.Address
	case e.UserID != uuid.Nil:
		return "wallet not found for user: " + e.UserID.String()
	default:
		return "wallet not found: " + e.WalletID.String()
	}
}

// Is matches any ErrWalletNotFound when the target carries no identifiers.
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.WalletID == uuid.Nil && t.UserID == uuid.Nil && t.Address == "" {
		return true
	}
	return e.WalletID == t.WalletID && e.UserID == t.UserID && e.Address == t.Address
}

// ErrWalletInactive indicates a mutation attempt on a suspended or closed wallet
type ErrWalletInactive struct {
	WalletID uuid.UUID
	Status   Status
}

func (e ErrWalletInactive) Error() string {
	return "wallet " + e.WalletID.String() + " is not active: " + string(e.Status)
}

// Is matches any ErrWalletInactive when the target carries no wallet id.
func (e ErrWalletInactive) Is(target error) bool {
	t, ok := target.(ErrWalletInactive)
	if !ok {
		return false
	}
	if t.WalletID == uuid.Nil {
		return true
	}
	return e.WalletID == t.WalletID
}

// ErrInsufficientFunds indicates a debit that would drive a balance negative
type ErrInsufficientFunds struct {
	WalletID  uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e ErrInsufficientFunds) Error() string {
	return "insufficient funds on wallet " + e.WalletID.String() +
		": requested " + e.Requested.String() + ", available " + e.Available.String()
}

// Is matches any ErrInsufficientFunds when the target carries no wallet id.
func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	if t.WalletID == uuid.Nil {
		return true
	}
	return e.WalletID == t.WalletID
}

// ErrLockTimeout indicates the wallet row lock could not be acquired in time.
// Callers should retry with the same reference; idempotency makes that safe.
type ErrLockTimeout struct {
	WalletID uuid.UUID
}

func (e ErrLockTimeout) Error() string {
	return "timed out waiting for lock on wallet: " + e.WalletID.String()
}

// Is matches any ErrLockTimeout when the target carries no wallet id.
func (e ErrLockTimeout) Is(target error) bool {
	t, ok := target.(ErrLockTimeout)
	if !ok {
		return false
	}
	if t.WalletID == uuid.Nil {
		return true
	}
	return e.WalletID == t.WalletID
}

// ErrDuplicateAddress indicates wallet address uniqueness violation
type ErrDuplicateAddress struct {
	Address string
}

func (e ErrDuplicateAddress) Error() string {
	return "wallet address already exists: " + e.Address
}

// Is matches any ErrDuplicateAddress when the target carries no address.
func (e ErrDuplicateAddress) Is(target error) bool {
	t, ok := target.(ErrDuplicateAddress)
	if !ok {
		return false
	}
	if t.Address == "" {
		return true
	}
	return e.Address == t.Address
}

// ErrDuplicateUser indicates the user already owns a wallet. Surfaces when
// two first-access requests race to create the same user's wallet.
type ErrDuplicateUser struct {
	UserID uuid.UUID
}

func (e ErrDuplicateUser) Error() string {
	return "wallet already exists for user: " + e.UserID.String()
}

// Is matches any ErrDuplicateUser when the target carries no user id.
func (e ErrDuplicateUser) Is(target error) bool {
	t, ok := target.(ErrDuplicateUser)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}
