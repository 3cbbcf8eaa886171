package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/outbox"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/statement"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/gateway"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

// Mock implementations of the dependencies shared by the service tests

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) Create(ctx context.Context, w *wallet.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) GetByAddress(ctx context.Context, address string) (*wallet.Wallet, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) GetByCustomerCode(ctx context.Context, customerCode string) (*wallet.Wallet, error) {
	args := m.Called(ctx, customerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Update(ctx context.Context, w *wallet.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) WithTx(tx pgx.Tx) wallet.Repository {
	return m
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) GetByGatewayReference(ctx context.Context, gatewayReference string) (*transaction.Transaction, error) {
	args := m.Called(ctx, gatewayReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, filter transaction.Filter, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, walletID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) CountByWallet(ctx context.Context, walletID uuid.UUID, filter transaction.Filter) (int64, error) {
	args := m.Called(ctx, walletID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status, gatewayReference string) error {
	args := m.Called(ctx, id, status, gatewayReference)
	return args.Error(0)
}

func (m *MockTransactionRepo) LinkRelated(ctx context.Context, id uuid.UUID, relatedID uuid.UUID) error {
	args := m.Called(ctx, id, relatedID)
	return args.Error(0)
}

func (m *MockTransactionRepo) DueForRelease(ctx context.Context, asOf time.Time, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockStatementRepo struct {
	mock.Mock
}

func (m *MockStatementRepo) Archive(ctx context.Context, entry *statement.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStatementRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Entry), args.Error(1)
}

func (m *MockStatementRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, from, to time.Time, limit, offset int) ([]*statement.Entry, error) {
	args := m.Called(ctx, walletID, from, to, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Entry), args.Error(1)
}

func (m *MockStatementRepo) CountByWallet(ctx context.Context, walletID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, walletID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateCustomer(ctx context.Context, email, firstName, lastName string) (*gateway.Customer, error) {
	args := m.Called(ctx, email, firstName, lastName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Customer), args.Error(1)
}

func (m *MockGatewayClient) CreateDedicatedAccount(ctx context.Context, customerCode string) (*gateway.DedicatedAccount, error) {
	args := m.Called(ctx, customerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.DedicatedAccount), args.Error(1)
}

func (m *MockGatewayClient) InitializeFunding(ctx context.Context, email string, amount decimal.Decimal, reference string) (*gateway.Checkout, error) {
	args := m.Called(ctx, email, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Checkout), args.Error(1)
}

func (m *MockGatewayClient) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	args := m.Called(ctx, name, accountNumber, bankCode)
	return args.String(0), args.Error(1)
}

func (m *MockGatewayClient) InitiatePayout(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*gateway.Payout, error) {
	args := m.Called(ctx, recipientCode, amount, reference, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payout), args.Error(1)
}

// stubTx implements the pgx.Tx interface for testing

type stubTx struct{}

func (stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit(ctx context.Context) error          { return nil }
func (stubTx) Rollback(ctx context.Context) error        { return nil }

func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}

func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                                { return pgx.LargeObjects{} }
func (stubTx) Conn() *pgx.Conn                                               { return nil }

type fakeTxRunner struct{}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(stubTx{})
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type serviceFixture struct {
	wallets    *MockWalletRepo
	txns       *MockTransactionRepo
	outbox     *MockOutboxRepo
	statements *MockStatementRepo
	gateway    *MockGatewayClient
	mutator    *ledger.Mutator
	workflow   *withdrawal.Workflow
}

func newServiceFixture() *serviceFixture {
	wallets := new(MockWalletRepo)
	txns := new(MockTransactionRepo)
	outboxRepo := new(MockOutboxRepo)
	statements := new(MockStatementRepo)
	gatewayClient := new(MockGatewayClient)
	logger := newTestLogger()

	mutator := ledger.NewMutator(&fakeTxRunner{}, wallets, txns, outboxRepo, 3*time.Second, logger)
	workflow := withdrawal.NewWorkflow(mutator, txns, gatewayClient, logger)

	return &serviceFixture{
		wallets:    wallets,
		txns:       txns,
		outbox:     outboxRepo,
		statements: statements,
		gateway:    gatewayClient,
		mutator:    mutator,
		workflow:   workflow,
	}
}

func (f *serviceFixture) walletService() WalletService {
	return NewWalletService(f.wallets, f.txns, f.statements, f.mutator, f.workflow, f.gateway, "NGN", newTestLogger())
}

func (f *serviceFixture) webhookService(secretKey string) WebhookService {
	return NewWebhookService(secretKey, f.wallets, f.mutator, f.workflow, newTestLogger())
}
