package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
)

var transactionColumnNames = []string{
	"id", "wallet_id", "user_id", "type", "amount",
	"balance_before", "balance_after", "available_balance_before", "available_balance_after",
	"pending_balance_before", "pending_balance_after", "release_date", "reference", "status",
	"related_transaction_id", "booking_id", "gateway_reference", "metadata", "created_at", "completed_at",
}

func testTransaction() *transaction.Transaction {
	now := time.Now()
	return &transaction.Transaction{
		ID:                     uuid.New(),
		WalletID:               uuid.New(),
		UserID:                 uuid.New(),
		Type:                   transaction.TypeCredit,
		Amount:                 decimal.NewFromInt(500),
		BalanceBefore:          decimal.NewFromInt(100),
		BalanceAfter:           decimal.NewFromInt(600),
		AvailableBalanceBefore: decimal.NewFromInt(100),
		AvailableBalanceAfter:  decimal.NewFromInt(600),
		PendingBalanceBefore:   decimal.Zero,
		PendingBalanceAfter:    decimal.Zero,
		Reference:              "FUND-" + uuid.NewString(),
		Status:                 transaction.StatusCompleted,
		CreatedAt:              now,
		CompletedAt:            &now,
	}
}

func transactionRows(txn *transaction.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(transactionColumnNames).AddRow(
		txn.ID, txn.WalletID, txn.UserID, txn.Type, txn.Amount,
		txn.BalanceBefore, txn.BalanceAfter, txn.AvailableBalanceBefore, txn.AvailableBalanceAfter,
		txn.PendingBalanceBefore, txn.PendingBalanceAfter, txn.ReleaseDate, txn.Reference, txn.Status,
		txn.RelatedTransactionID, txn.BookingID, txn.GatewayReference, txn.Metadata, txn.CreatedAt, txn.CompletedAt,
	)
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := testTransaction()

	query := `INSERT INTO wallet_transactions`

	createArgs := func(txn *transaction.Transaction) []any {
		return []any{
			txn.ID, txn.WalletID, txn.UserID, txn.Type, txn.Amount,
			txn.BalanceBefore, txn.BalanceAfter, txn.AvailableBalanceBefore, txn.AvailableBalanceAfter,
			txn.PendingBalanceBefore, txn.PendingBalanceAfter, txn.ReleaseDate, txn.Reference, txn.Status,
			txn.RelatedTransactionID, txn.BookingID, txn.GatewayReference, txn.Metadata, txn.CreatedAt, txn.CompletedAt,
		}
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(createArgs(txn)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, txn)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "wallet_transactions_reference_key"}
		mock.ExpectExec(query).
			WithArgs(createArgs(txn)...).
			WillReturnError(pgErr)

		err := repo.Create(ctx, txn)
		assert.ErrorIs(t, err, transaction.ErrDuplicateReference{})

		var dupErr transaction.ErrDuplicateReference
		assert.ErrorAs(t, err, &dupErr)
		assert.Equal(t, txn.Reference, dupErr.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByReference(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := testTransaction()

	query := `FROM wallet_transactions WHERE reference = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(txn.Reference).WillReturnRows(transactionRows(txn))

		got, err := repo.GetByReference(ctx, txn.Reference)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, txn.ID, got.ID)
		assert.True(t, got.Amount.Equal(txn.Amount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown reference returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("FUND-missing").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByReference(ctx, "FUND-missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty reference rejected", func(t *testing.T) {
		_, err := repo.GetByReference(ctx, "")
		assert.Error(t, err)
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := testTransaction()

	query := `FROM wallet_transactions WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(txn.ID).WillReturnRows(transactionRows(txn))

		got, err := repo.GetByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, txn.Reference, got.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(txn.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, txn.ID)
		assert.Nil(t, got)

		var notFound transaction.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, txn.ID, notFound.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()

	query := `UPDATE wallet_transactions`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(transaction.StatusProcessing, "TRF_abc", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, id, transaction.StatusProcessing, "TRF_abc")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(transaction.StatusCompleted, "", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, id, transaction.StatusCompleted, "")
		assert.ErrorIs(t, err, transaction.ErrTransactionNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_ListByWallet(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := testTransaction()

	t.Run("no filter", func(t *testing.T) {
		mock.ExpectQuery(`FROM wallet_transactions WHERE wallet_id = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
			WithArgs(txn.WalletID, 20, 0).
			WillReturnRows(transactionRows(txn))

		got, err := repo.ListByWallet(ctx, txn.WalletID, transaction.Filter{}, 20, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, txn.ID, got[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("type and status filter", func(t *testing.T) {
		typ := transaction.TypeWithdrawal
		status := transaction.StatusPending
		mock.ExpectQuery(`WHERE wallet_id = \$1 AND type = \$2 AND status = \$3 ORDER BY created_at DESC LIMIT \$4 OFFSET \$5`).
			WithArgs(txn.WalletID, typ, status, 10, 10).
			WillReturnRows(pgxmock.NewRows(transactionColumnNames))

		got, err := repo.ListByWallet(ctx, txn.WalletID, transaction.Filter{Type: &typ, Status: &status}, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_CountByWallet(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	walletID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM wallet_transactions WHERE wallet_id = \$1`).
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.CountByWallet(ctx, walletID, transaction.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_DueForRelease(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}

	hold := testTransaction()
	releaseDate := time.Now().Add(-time.Hour)
	hold.ReleaseDate = &releaseDate
	hold.PendingBalanceBefore = decimal.Zero
	hold.PendingBalanceAfter = hold.Amount

	asOf := time.Now()
	// a hold is due only while neither its release nor its reversal row exists
	query := `FROM wallet_transactions t\s+WHERE t\.status = 'completed'[\s\S]*r\.reference = 'REL-' \|\| t\.reference\s+OR r\.reference = 'RVSL-' \|\| t\.reference`

	mock.ExpectQuery(query).
		WithArgs(asOf, 100).
		WillReturnRows(transactionRows(hold))

	got, err := repo.DueForRelease(ctx, asOf, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsHold())
	assert.NoError(t, mock.ExpectationsWereMet())
}
