// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the wallet ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/platform/persistence"
)

const walletColumns = `id, user_id, gateway_customer_id, gateway_customer_code,
		account_number, account_name, bank_name, bank_code, wallet_address,
		available_balance, pending_balance, currency, status,
		last_transaction_at, created_at, updated_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet. Returns ErrDuplicateUser when the user already
// owns a wallet and ErrDuplicateAddress when the derived address is taken.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, gateway_customer_id, gateway_customer_code,
			account_number, account_name, bank_name, bank_code, wallet_address,
			available_balance, pending_balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.UserID,
		w.GatewayCustomerID,
		w.GatewayCustomerCode,
		w.AccountNumber,
		w.AccountName,
		w.BankName,
		w.BankCode,
		w.WalletAddress,
		w.AvailableBalance,
		w.PendingBalance,
		w.Currency,
		w.Status,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "wallets_user_id_key":
				return wallet.ErrDuplicateUser{UserID: w.UserID}
			case "wallets_wallet_address_key":
				return wallet.ErrDuplicateAddress{Address: w.WalletAddress}
			}
		}
		r.logger.Error("Failed to create wallet", "wallet_id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByID retrieves a wallet by its ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := r.scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to get wallet", "wallet_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// GetByUserID retrieves the wallet owned by the given user
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	w, err := r.scanWallet(r.querier.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to get wallet by user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet by user: %w", err)
	}

	return w, nil
}

// GetByAddress resolves a wallet by its human-readable transfer handle
func (r *WalletRepository) GetByAddress(ctx context.Context, address string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE wallet_address = $1`

	w, err := r.scanWallet(r.querier.QueryRow(ctx, query, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{Address: address}
		}
		r.logger.Error("Failed to get wallet by address", "address", address, "error", err)
		return nil, fmt.Errorf("failed to get wallet by address: %w", err)
	}

	return w, nil
}

// GetByCustomerCode resolves a wallet by the gateway customer code attached to
// its dedicated funding account. Returns nil, nil when no wallet matches.
func (r *WalletRepository) GetByCustomerCode(ctx context.Context, customerCode string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE gateway_customer_code = $1`

	w, err := r.scanWallet(r.querier.QueryRow(ctx, query, customerCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get wallet by customer code", "customer_code", customerCode, "error", err)
		return nil, fmt.Errorf("failed to get wallet by customer code: %w", err)
	}

	return w, nil
}

// Update persists balances, gateway linkage, status, and timestamps. The
// wallet address is immutable and deliberately excluded.
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET gateway_customer_id = $1, gateway_customer_code = $2,
			account_number = $3, account_name = $4, bank_name = $5, bank_code = $6,
			available_balance = $7, pending_balance = $8, status = $9,
			last_transaction_at = $10, updated_at = NOW()
		WHERE id = $11
	`

	result, err := r.querier.Exec(ctx, query,
		w.GatewayCustomerID,
		w.GatewayCustomerCode,
		w.AccountNumber,
		w.AccountName,
		w.BankName,
		w.BankCode,
		w.AvailableBalance,
		w.PendingBalance,
		w.Status,
		w.LastTransactionAt,
		w.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "wallet_id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrWalletNotFound{WalletID: w.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the wallet row and returns its
// current state. Must be used within a transaction; a lock_timeout set on the
// transaction turns unbounded waits into wallet.ErrLockTimeout at the caller.
func (r *WalletRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := r.scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return nil, wallet.ErrLockTimeout{WalletID: id}
		}
		r.logger.Error("Failed to lock wallet for update", "wallet_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}

	return w, nil
}

func (r *WalletRepository) scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.GatewayCustomerID,
		&w.GatewayCustomerCode,
		&w.AccountNumber,
		&w.AccountName,
		&w.BankName,
		&w.BankCode,
		&w.WalletAddress,
		&w.AvailableBalance,
		&w.PendingBalance,
		&w.Currency,
		&w.Status,
		&w.LastTransactionAt,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
