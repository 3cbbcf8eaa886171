// Package ledger implements the balance mutator, the single code path allowed
// to change a wallet's balances. Every funding, payment, refund, transfer,
// withdrawal, hold, and release terminates here; webhook processing and
// user-initiated API calls share this exact path.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/outbox"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
)

// TxRunner executes a function within a database transaction, committing on
// nil return and rolling back otherwise. Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var (
	// ErrEmptyReference rejects mutations without an idempotency reference
	ErrEmptyReference = errors.New("mutation reference cannot be empty")
	// ErrSelfTransfer rejects transfers where source and destination match
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")
)

// Op identifies the balance effect of a mutation. Each op maps to a ledger
// transaction type plus a direction on the available and pending balances.
type Op string

const (
	OpCredit      Op = "credit"       // available += amount
	OpDebit       Op = "debit"        // available -= amount
	OpRefund      Op = "refund"       // available += amount, recorded as refund
	OpWithdraw    Op = "withdraw"     // available -= amount, recorded as withdrawal
	OpTransferIn  Op = "transfer_in"  // available += amount
	OpTransferOut Op = "transfer_out" // available -= amount
	OpHold        Op = "hold"         // pending += amount, scheduled for release
	OpRelease     Op = "release"      // pending -= amount, available += amount
	OpReverseHold Op = "reverse_hold" // pending -= amount, recorded as refund
)

// effect describes how an op moves money between the two balances
type effect struct {
	txnType      transaction.Type
	availDelta   int // -1, 0, +1 multiplier on amount
	pendingDelta int
}

var opEffects = map[Op]effect{
	OpCredit:      {transaction.TypeCredit, +1, 0},
	OpDebit:       {transaction.TypeDebit, -1, 0},
	OpRefund:      {transaction.TypeRefund, +1, 0},
	OpWithdraw:    {transaction.TypeWithdrawal, -1, 0},
	OpTransferIn:  {transaction.TypeTransferIn, +1, 0},
	OpTransferOut: {transaction.TypeTransferOut, -1, 0},
	OpHold:        {transaction.TypeCredit, 0, +1},
	OpRelease:     {transaction.TypeCredit, +1, -1},
	OpReverseHold: {transaction.TypeRefund, 0, -1},
}

// Mutation describes one requested balance change
type Mutation struct {
	WalletID             uuid.UUID
	Op                   Op
	Amount               decimal.Decimal
	Reference            string
	Status               transaction.Status // defaults to completed
	ReleaseDate          *time.Time         // required for OpHold
	BookingID            *uuid.UUID
	GatewayReference     string
	RelatedTransactionID *uuid.UUID
	Metadata             map[string]any
}

func (m Mutation) validate() error {
	if m.Reference == "" {
		return ErrEmptyReference
	}
	if _, ok := opEffects[m.Op]; !ok {
		return transaction.ErrInvalidType
	}
	if !m.Amount.IsPositive() {
		return transaction.ErrInvalidAmount
	}
	if m.Op == OpHold && m.ReleaseDate == nil {
		return errors.New("hold mutation requires a release date")
	}
	return nil
}

// Result carries the outcome of a mutation. Replayed is set when the
// reference had already been applied and the prior transaction is returned
// unchanged.
type Result struct {
	Transaction *transaction.Transaction
	Wallet      *wallet.Wallet
	Replayed    bool
}

// Mutator is the single choke point for wallet balance changes. It serializes
// concurrent mutations through wallet row locks, detects replays by reference
// inside the lock, and snapshots before/after balances atomically with the
// wallet update.
type Mutator struct {
	db           TxRunner
	wallets      wallet.Repository
	transactions transaction.Repository
	outbox       outbox.Repository
	lockTimeout  time.Duration
	logger       *slog.Logger
}

// NewMutator creates a balance mutator
func NewMutator(
	db TxRunner,
	wallets wallet.Repository,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	lockTimeout time.Duration,
	logger *slog.Logger,
) *Mutator {
	return &Mutator{
		db:           db,
		wallets:      wallets,
		transactions: transactions,
		outbox:       outboxRepo,
		lockTimeout:  lockTimeout,
		logger:       logger,
	}
}

// Apply performs one balance mutation in its own database transaction.
// On any precondition failure the transaction rolls back before write effects;
// no partial state is ever visible. Unexpected storage failures surface as
// ErrMutationFailed and are safe to retry with the same reference.
func (m *Mutator) Apply(ctx context.Context, mut Mutation) (*Result, error) {
	if err := mut.validate(); err != nil {
		return nil, err
	}

	var res *Result
	err := m.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := m.setLockTimeout(ctx, tx); err != nil {
			return err
		}
		r, err := m.applyInTx(ctx, tx, mut)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, m.classify(err, mut)
	}

	m.logger.Info("Balance mutation applied",
		"wallet_id", mut.WalletID.String(),
		"op", string(mut.Op),
		"amount", mut.Amount.String(),
		"reference", mut.Reference,
		"replayed", res.Replayed,
	)
	return res, nil
}

// applyInTx runs the mutation inside an existing database transaction. The
// transfer and refund paths call it twice to mutate two wallets atomically.
func (m *Mutator) applyInTx(ctx context.Context, tx pgx.Tx, mut Mutation) (*Result, error) {
	walletsTx := m.wallets.WithTx(tx)
	txnsTx := m.transactions.WithTx(tx)

	w, err := walletsTx.LockForUpdate(ctx, mut.WalletID)
	if err != nil {
		return nil, err
	}

	eff := opEffects[mut.Op]

	// Re-check the reference inside the lock. Webhook redelivery and client
	// retries land here and get the prior result instead of new money movement.
	existing, err := txnsTx.GetByReference(ctx, mut.Reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// A replay must describe the same mutation. A reference consumed by a
		// different wallet, type, or amount is a collision, not a retry.
		if existing.WalletID != mut.WalletID || existing.Type != eff.txnType || !existing.Amount.Equal(mut.Amount) {
			return nil, transaction.ErrDuplicateReference{Reference: mut.Reference}
		}
		return &Result{Transaction: existing, Wallet: w, Replayed: true}, nil
	}

	if !w.Active() {
		return nil, wallet.ErrWalletInactive{WalletID: w.ID, Status: w.Status}
	}
	if eff.availDelta < 0 && !w.CanDebit(mut.Amount) {
		return nil, wallet.ErrInsufficientFunds{
			WalletID:  w.ID,
			Requested: mut.Amount,
			Available: w.AvailableBalance,
		}
	}
	if eff.pendingDelta < 0 && w.PendingBalance.LessThan(mut.Amount) {
		return nil, wallet.ErrInsufficientFunds{
			WalletID:  w.ID,
			Requested: mut.Amount,
			Available: w.PendingBalance,
		}
	}

	availBefore := w.AvailableBalance
	pendingBefore := w.PendingBalance
	totalBefore := w.TotalBalance()

	w.AvailableBalance = w.AvailableBalance.Add(mut.Amount.Mul(decimal.NewFromInt(int64(eff.availDelta))))
	w.PendingBalance = w.PendingBalance.Add(mut.Amount.Mul(decimal.NewFromInt(int64(eff.pendingDelta))))

	now := time.Now()
	w.LastTransactionAt = &now
	w.UpdatedAt = now

	status := mut.Status
	if status == "" {
		status = transaction.StatusCompleted
	}
	var completedAt *time.Time
	if status == transaction.StatusCompleted {
		completedAt = &now
	}

	txn := &transaction.Transaction{
		ID:                     uuid.New(),
		WalletID:               w.ID,
		UserID:                 w.UserID,
		Type:                   eff.txnType,
		Amount:                 mut.Amount,
		BalanceBefore:          totalBefore,
		BalanceAfter:           w.TotalBalance(),
		AvailableBalanceBefore: availBefore,
		AvailableBalanceAfter:  w.AvailableBalance,
		PendingBalanceBefore:   pendingBefore,
		PendingBalanceAfter:    w.PendingBalance,
		ReleaseDate:            mut.ReleaseDate,
		Reference:              mut.Reference,
		Status:                 status,
		RelatedTransactionID:   mut.RelatedTransactionID,
		BookingID:              mut.BookingID,
		GatewayReference:       mut.GatewayReference,
		Metadata:               mut.Metadata,
		CreatedAt:              now,
		CompletedAt:            completedAt,
	}

	if err := walletsTx.Update(ctx, w); err != nil {
		return nil, err
	}

	// A reference race lost against a concurrent writer on another wallet
	// slips past the in-lock check; the unique constraint still catches it
	// and the caller retries, landing on the replay branch.
	if err := txnsTx.Create(ctx, txn); err != nil {
		return nil, err
	}

	msg, err := outbox.NewMessage(txn)
	if err != nil {
		return nil, err
	}
	if err := m.outbox.WithTx(tx).Create(ctx, msg); err != nil {
		return nil, err
	}

	return &Result{Transaction: txn, Wallet: w}, nil
}

// setLockTimeout bounds wallet lock waits so contended callers fail fast with
// a retryable error instead of queueing indefinitely.
func (m *Mutator) setLockTimeout(ctx context.Context, tx pgx.Tx) error {
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}

// classify maps storage-level failures onto the error taxonomy. Typed domain
// errors pass through untouched; everything unexpected becomes a retryable
// ErrMutationFailed.
func (m *Mutator) classify(err error, mut Mutation) error {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound{}),
		errors.Is(err, wallet.ErrWalletInactive{}),
		errors.Is(err, wallet.ErrInsufficientFunds{}),
		errors.Is(err, wallet.ErrLockTimeout{}),
		errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrInvalidType),
		errors.Is(err, transaction.ErrDuplicateReference{}),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrEmptyReference),
		errors.Is(err, ErrHoldReversed):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return wallet.ErrLockTimeout{WalletID: mut.WalletID}
	}

	m.logger.Error("Balance mutation failed",
		"wallet_id", mut.WalletID.String(),
		"op", string(mut.Op),
		"reference", mut.Reference,
		"error", err,
	)
	return transaction.ErrMutationFailed{Reference: mut.Reference, Err: err}
}
