package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/statement"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/gateway"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

func testOwner() Owner {
	return Owner{
		UserID: uuid.New(),
		Email:  "ada@example.com",
		Name:   "Ada Okafor",
	}
}

func ownedWallet(owner Owner, available int64) *wallet.Wallet {
	w := activeWallet(available, 0)
	w.UserID = owner.UserID
	return w
}

func TestWalletService_GetWallet(t *testing.T) {
	t.Run("existing provisioned wallet returned as is", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		w := ownedWallet(owner, 1000)

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)

		got, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, w, got)
		f.gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("first access creates and provisions the wallet", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(nil, wallet.ErrWalletNotFound{})

		var created *wallet.Wallet
		f.wallets.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*wallet.Wallet)
		}).Return(nil)

		f.gateway.On("CreateCustomer", mock.Anything, owner.Email, owner.Name, "").
			Return(&gateway.Customer{ID: 42, CustomerCode: "CUS_new", Email: owner.Email}, nil)
		f.gateway.On("CreateDedicatedAccount", mock.Anything, "CUS_new").
			Return(&gateway.DedicatedAccount{
				AccountNumber: "9912345678",
				AccountName:   "Ada Okafor",
				BankName:      "Wema Bank",
				BankSlug:      "wema-bank",
			}, nil)
		f.wallets.On("Update", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Equal(t, owner.UserID, created.UserID)
		assert.Equal(t, "NGN", created.Currency)
		assert.True(t, strings.HasPrefix(created.WalletAddress, "ada-okafor-"))
		assert.Equal(t, "CUS_new", got.GatewayCustomerCode)
		assert.Equal(t, "42", got.GatewayCustomerID)
		assert.Equal(t, "9912345678", got.AccountNumber)
		assert.Equal(t, "wema-bank", got.BankCode)
		f.wallets.AssertExpectations(t)
		f.gateway.AssertExpectations(t)
	})

	t.Run("loses creation race and adopts the winner", func(t *testing.T) {
		// Concurrent first accesses collide on the user_id constraint, since
		// each attempt derives its own address from a fresh wallet id.
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		winner := ownedWallet(owner, 0)

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(nil, wallet.ErrWalletNotFound{}).Once()
		f.wallets.On("Create", mock.Anything, mock.Anything).Return(wallet.ErrDuplicateUser{UserID: owner.UserID})
		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(winner, nil).Once()

		got, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, winner, got)
	})

	t.Run("duplicate address race also adopts the winner", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		winner := ownedWallet(owner, 0)

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(nil, wallet.ErrWalletNotFound{}).Once()
		f.wallets.On("Create", mock.Anything, mock.Anything).Return(wallet.ErrDuplicateAddress{Address: winner.WalletAddress})
		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(winner, nil).Once()

		got, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, winner, got)
	})

	t.Run("provisioning outage does not block the read", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		w := ownedWallet(owner, 1000)
		w.GatewayCustomerCode = ""

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)
		f.gateway.On("CreateCustomer", mock.Anything, owner.Email, owner.Name, "").Return(nil, assert.AnError)

		got, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)
		assert.Empty(t, got.GatewayCustomerCode)
		f.wallets.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("no email skips provisioning", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := Owner{UserID: uuid.New(), Name: "Ada Okafor"}
		w := ownedWallet(owner, 0)
		w.GatewayCustomerCode = ""

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)

		_, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)
		f.gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dedicated account failure keeps the customer linkage", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		w := ownedWallet(owner, 0)
		w.GatewayCustomerCode = ""

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)
		f.gateway.On("CreateCustomer", mock.Anything, owner.Email, owner.Name, "").
			Return(&gateway.Customer{ID: 42, CustomerCode: "CUS_new"}, nil)
		f.gateway.On("CreateDedicatedAccount", mock.Anything, "CUS_new").Return(nil, assert.AnError)
		f.wallets.On("Update", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.GetWallet(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, "CUS_new", got.GatewayCustomerCode)
		assert.Empty(t, got.AccountNumber)
	})
}

func TestWalletService_InitiateFunding(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		w := ownedWallet(owner, 0)

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)

		var fundingRef string
		f.gateway.On("InitializeFunding", mock.Anything, owner.Email, decimal.NewFromInt(5000),
			mock.MatchedBy(func(ref string) bool { return strings.HasPrefix(ref, "FUND-") }),
		).Run(func(args mock.Arguments) {
			fundingRef = args.String(3)
		}).Return(&gateway.Checkout{
			AuthorizationURL: "https://checkout.example.com/abc",
			AccessCode:       "abc",
		}, nil)

		checkout, err := svc.InitiateFunding(context.Background(), owner, decimal.NewFromInt(5000))
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example.com/abc", checkout.AuthorizationURL)
		assert.NotEmpty(t, fundingRef)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()

		_, err := svc.InitiateFunding(context.Background(), testOwner(), decimal.Zero)
		assert.ErrorIs(t, err, transaction.ErrInvalidAmount)
		f.gateway.AssertNotCalled(t, "InitializeFunding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway failure propagated", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(ownedWallet(owner, 0), nil)
		f.gateway.On("InitializeFunding", mock.Anything, owner.Email, mock.Anything, mock.Anything).
			Return(nil, assert.AnError)

		_, err := svc.InitiateFunding(context.Background(), owner, decimal.NewFromInt(100))
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestWalletService_Pay(t *testing.T) {
	t.Run("debits the available balance", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()
		w := ownedWallet(owner, 1000)
		bookingID := uuid.New()

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)
		f.wallets.On("LockForUpdate", mock.Anything, w.ID).Return(w, nil)
		f.txns.On("GetByReference", mock.Anything, "PAY-1").Return(nil, nil)
		f.wallets.On("Update", mock.Anything, mock.Anything).Return(nil)
		f.txns.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

		result, err := svc.Pay(context.Background(), owner, decimal.NewFromInt(400), "PAY-1", &bookingID)
		require.NoError(t, err)

		assert.Equal(t, transaction.TypeDebit, result.Transaction.Type)
		require.NotNil(t, result.Transaction.BookingID)
		assert.Equal(t, bookingID, *result.Transaction.BookingID)
		assert.True(t, w.AvailableBalance.Equal(decimal.NewFromInt(600)))
	})

	t.Run("wallet resolution failure stops the payment", func(t *testing.T) {
		f := newServiceFixture()
		svc := f.walletService()
		owner := testOwner()

		f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(nil, wallet.ErrWalletNotFound{})

		_, err := svc.Pay(context.Background(), owner, decimal.NewFromInt(400), "PAY-1", nil)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{})
		f.wallets.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	})
}

func TestWalletService_Withdraw(t *testing.T) {
	f := newServiceFixture()
	svc := f.walletService()
	owner := testOwner()
	w := ownedWallet(owner, 5000)
	account := withdrawal.BankAccount{
		AccountNumber: "0123456789",
		AccountName:   "Ada Okafor",
		BankCode:      "058",
	}

	f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)
	f.wallets.On("LockForUpdate", mock.Anything, w.ID).Return(w, nil)
	f.txns.On("GetByReference", mock.Anything, "WD-1").Return(nil, nil)
	f.wallets.On("Update", mock.Anything, mock.Anything).Return(nil)

	var created *transaction.Transaction
	f.txns.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*transaction.Transaction)
	}).Return(nil)
	f.outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Withdraw(context.Background(), owner, decimal.NewFromInt(2000), "WD-1", account)
	require.NoError(t, err)

	assert.Equal(t, transaction.TypeWithdrawal, result.Transaction.Type)
	assert.Equal(t, transaction.StatusPending, result.Transaction.Status)
	require.NotNil(t, created)
	assert.Equal(t, "0123456789", created.Metadata["account_number"])
	assert.Equal(t, "058", created.Metadata["bank_code"])
	assert.True(t, w.AvailableBalance.Equal(decimal.NewFromInt(3000)))
}

func TestWalletService_ListTransactions(t *testing.T) {
	f := newServiceFixture()
	svc := f.walletService()
	owner := testOwner()
	w := ownedWallet(owner, 1000)
	creditType := transaction.TypeCredit
	filter := transaction.Filter{Type: &creditType}

	listed := []*transaction.Transaction{
		{ID: uuid.New(), WalletID: w.ID, Type: transaction.TypeCredit, Amount: decimal.NewFromInt(100)},
	}

	f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)
	f.txns.On("ListByWallet", mock.Anything, w.ID, filter, 20, 20).Return(listed, nil)
	f.txns.On("CountByWallet", mock.Anything, w.ID, filter).Return(int64(45), nil)

	txns, total, err := svc.ListTransactions(context.Background(), owner, filter, 2, 20)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, int64(45), total)
	f.txns.AssertExpectations(t)
}

func TestWalletService_GetStatement(t *testing.T) {
	f := newServiceFixture()
	svc := f.walletService()
	owner := testOwner()
	w := ownedWallet(owner, 1000)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	entries := []*statement.Entry{
		{TransactionID: uuid.New(), WalletID: w.ID, Type: transaction.TypeCredit, Amount: "100.00"},
	}

	f.wallets.On("GetByUserID", mock.Anything, owner.UserID).Return(w, nil)
	f.statements.On("ListByWallet", mock.Anything, w.ID, from, to, 10, 0).Return(entries, nil)
	f.statements.On("CountByWallet", mock.Anything, w.ID, from, to).Return(int64(1), nil)

	got, total, err := svc.GetStatement(context.Background(), owner, from, to, 1, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(1), total)
	f.statements.AssertExpectations(t)
}
