package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/platform/persistence"
)

const transactionColumns = `id, wallet_id, user_id, type, amount,
		balance_before, balance_after, available_balance_before, available_balance_after,
		pending_balance_before, pending_balance_after, release_date, reference, status,
		related_transaction_id, booking_id, gateway_reference, metadata, created_at, completed_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a new ledger row. The unique index on reference turns a
// replayed insert into ErrDuplicateReference, which the mutator resolves by
// returning the prior transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, user_id, type, amount,
			balance_before, balance_after, available_balance_before, available_balance_after,
			pending_balance_before, pending_balance_after, release_date, reference, status,
			related_transaction_id, booking_id, gateway_reference, metadata, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.WalletID,
		txn.UserID,
		txn.Type,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.AvailableBalanceBefore,
		txn.AvailableBalanceAfter,
		txn.PendingBalanceBefore,
		txn.PendingBalanceAfter,
		txn.ReleaseDate,
		txn.Reference,
		txn.Status,
		txn.RelatedTransactionID,
		txn.BookingID,
		txn.GatewayReference,
		txn.Metadata,
		txn.CreatedAt,
		txn.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "wallet_transactions_reference_key" {
			return transaction.ErrDuplicateReference{Reference: txn.Reference}
		}
		r.logger.Error("Failed to create transaction", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByReference looks a transaction up by its idempotency reference.
// Returns nil, nil when no transaction carries the reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	if reference == "" {
		return nil, errors.New("reference cannot be empty")
	}

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE reference = $1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return txn, nil
}

// GetByGatewayReference finds the transaction carrying the given payout
// reference. Returns nil, nil when no transaction matches.
func (r *TransactionRepository) GetByGatewayReference(ctx context.Context, gatewayReference string) (*transaction.Transaction, error) {
	if gatewayReference == "" {
		return nil, errors.New("gateway reference cannot be empty")
	}

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE gateway_reference = $1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, gatewayReference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by gateway reference", "gateway_reference", gatewayReference, "error", err)
		return nil, fmt.Errorf("failed to get transaction by gateway reference: %w", err)
	}

	return txn, nil
}

// ListByWallet retrieves paginated ledger rows for a wallet, newest first,
// optionally narrowed by type, status, and date range.
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, filter transaction.Filter, limit, offset int) ([]*transaction.Transaction, error) {
	where, args := buildWalletFilter(walletID, filter)
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txns, nil
}

// CountByWallet counts ledger rows matching the filter for pagination metadata
func (r *TransactionRepository) CountByWallet(ctx context.Context, walletID uuid.UUID, filter transaction.Filter) (int64, error) {
	where, args := buildWalletFilter(walletID, filter)
	query := `SELECT COUNT(*) FROM wallet_transactions ` + where

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "wallet_id", walletID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// UpdateStatus moves a transaction between states, stamping completed_at on
// terminal success and attaching the gateway payout reference when provided.
// The balance snapshot columns are never touched after insert.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status, gatewayReference string) error {
	query := `
		UPDATE wallet_transactions
		SET status = $1,
			gateway_reference = CASE WHEN $2 <> '' THEN $2 ELSE gateway_reference END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, gatewayReference, id)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "transaction_id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// LinkRelated cross-links paired rows (transfer_out/transfer_in, withdrawal/refund)
func (r *TransactionRepository) LinkRelated(ctx context.Context, id uuid.UUID, relatedID uuid.UUID) error {
	query := `UPDATE wallet_transactions SET related_transaction_id = $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, relatedID, id)
	if err != nil {
		r.logger.Error("Failed to link related transaction", "transaction_id", id.String(), "error", err)
		return fmt.Errorf("failed to link related transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// DueForRelease finds completed hold rows whose release date has passed and
// that are still unsettled. A hold settles under exactly one derived row: the
// REL- release or the RVSL- reversal. Excluding both makes the sweep
// idempotent by construction and keeps it off holds that were refunded.
func (r *TransactionRepository) DueForRelease(ctx context.Context, asOf time.Time, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions t
		WHERE t.status = 'completed'
		  AND t.release_date IS NOT NULL
		  AND t.release_date <= $1
		  AND t.pending_balance_after > t.pending_balance_before
		  AND NOT EXISTS (
			SELECT 1 FROM wallet_transactions r
			WHERE r.reference = 'REL-' || t.reference
			   OR r.reference = 'RVSL-' || t.reference
		  )
		ORDER BY t.release_date ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, asOf, limit)
	if err != nil {
		r.logger.Error("Failed to find holds due for release", "error", err)
		return nil, fmt.Errorf("failed to find holds due for release: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hold transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over hold transactions: %w", err)
	}

	return txns, nil
}

// buildWalletFilter assembles the WHERE clause shared by list and count
func buildWalletFilter(walletID uuid.UUID, filter transaction.Filter) (string, []interface{}) {
	where := `WHERE wallet_id = $1`
	args := []interface{}{walletID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		where += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	return where, args
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.WalletID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&txn.AvailableBalanceBefore,
		&txn.AvailableBalanceAfter,
		&txn.PendingBalanceBefore,
		&txn.PendingBalanceAfter,
		&txn.ReleaseDate,
		&txn.Reference,
		&txn.Status,
		&txn.RelatedTransactionID,
		&txn.BookingID,
		&txn.GatewayReference,
		&txn.Metadata,
		&txn.CreatedAt,
		&txn.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
