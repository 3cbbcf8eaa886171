package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/statement"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/gateway"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

// walletService implements WalletService
type walletService struct {
	wallets      wallet.Repository
	transactions transaction.Repository
	statements   statement.Repository
	mutator      *ledger.Mutator
	workflow     *withdrawal.Workflow
	gateway      gateway.Client
	currency     string
	logger       *slog.Logger
}

// NewWalletService creates a wallet service
func NewWalletService(
	wallets wallet.Repository,
	transactions transaction.Repository,
	statements statement.Repository,
	mutator *ledger.Mutator,
	workflow *withdrawal.Workflow,
	gatewayClient gateway.Client,
	currency string,
	logger *slog.Logger,
) WalletService {
	return &walletService{
		wallets:      wallets,
		transactions: transactions,
		statements:   statements,
		mutator:      mutator,
		workflow:     workflow,
		gateway:      gatewayClient,
		currency:     currency,
		logger:       logger,
	}
}

// GetWallet returns the owner's wallet, creating it lazily on first access.
// Gateway provisioning is best effort: a provisioning outage must not block
// wallet reads, and the missing linkage is retried on the next access.
func (s *walletService) GetWallet(ctx context.Context, owner Owner) (*wallet.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, owner.UserID)
	if err != nil {
		if !errors.Is(err, wallet.ErrWalletNotFound{}) {
			return nil, err
		}
		w, err = s.createWallet(ctx, owner)
		if err != nil {
			return nil, err
		}
	}

	if w.GatewayCustomerCode == "" {
		s.provision(ctx, owner, w)
	}
	return w, nil
}

func (s *walletService) createWallet(ctx context.Context, owner Owner) (*wallet.Wallet, error) {
	ownerName := owner.Name
	if ownerName == "" {
		ownerName = owner.Email
	}

	w, err := wallet.New(owner.UserID, ownerName, s.currency)
	if err != nil {
		return nil, err
	}

	if err := s.wallets.Create(ctx, w); err != nil {
		// A concurrent first access may have won the race; use its wallet.
		// The user_id constraint is what actually fires, since each attempt
		// derives a distinct address from its own wallet id.
		if errors.Is(err, wallet.ErrDuplicateUser{}) || errors.Is(err, wallet.ErrDuplicateAddress{}) {
			return s.wallets.GetByUserID(ctx, owner.UserID)
		}
		return nil, err
	}

	s.logger.Info("Wallet created",
		"wallet_id", w.ID.String(),
		"user_id", owner.UserID.String(),
		"wallet_address", w.WalletAddress,
	)
	return w, nil
}

// provision links the wallet to a gateway customer and dedicated funding
// account. Failures are logged and retried on the next wallet access.
func (s *walletService) provision(ctx context.Context, owner Owner, w *wallet.Wallet) {
	if owner.Email == "" {
		return
	}

	customer, err := s.gateway.CreateCustomer(ctx, owner.Email, owner.Name, "")
	if err != nil {
		s.logger.Warn("Failed to provision gateway customer",
			"wallet_id", w.ID.String(),
			"error", err,
		)
		return
	}

	w.GatewayCustomerID = fmt.Sprintf("%d", customer.ID)
	w.GatewayCustomerCode = customer.CustomerCode

	account, err := s.gateway.CreateDedicatedAccount(ctx, customer.CustomerCode)
	if err != nil {
		s.logger.Warn("Failed to provision dedicated funding account",
			"wallet_id", w.ID.String(),
			"customer_code", customer.CustomerCode,
			"error", err,
		)
	} else {
		w.AccountNumber = account.AccountNumber
		w.AccountName = account.AccountName
		w.BankName = account.BankName
		w.BankCode = account.BankSlug
	}

	if err := s.wallets.Update(ctx, w); err != nil {
		s.logger.Error("Failed to persist gateway linkage",
			"wallet_id", w.ID.String(),
			"error", err,
		)
	}
}

// InitiateFunding opens a hosted checkout for the given amount. The returned
// reference ties the charge webhook back to this funding attempt.
func (s *walletService) InitiateFunding(ctx context.Context, owner Owner, amount decimal.Decimal) (*gateway.Checkout, error) {
	if !amount.IsPositive() {
		return nil, transaction.ErrInvalidAmount
	}

	w, err := s.GetWallet(ctx, owner)
	if err != nil {
		return nil, err
	}

	reference := "FUND-" + uuid.New().String()
	checkout, err := s.gateway.InitializeFunding(ctx, owner.Email, amount, reference)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Funding checkout initiated",
		"wallet_id", w.ID.String(),
		"amount", amount.String(),
		"reference", reference,
	)
	return checkout, nil
}

// Pay debits the owner's available balance for a booking payment
func (s *walletService) Pay(ctx context.Context, owner Owner, amount decimal.Decimal, reference string, bookingID *uuid.UUID) (*ledger.Result, error) {
	w, err := s.wallets.GetByUserID(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}

	return s.mutator.Apply(ctx, ledger.Mutation{
		WalletID:  w.ID,
		Op:        ledger.OpDebit,
		Amount:    amount,
		Reference: reference,
		BookingID: bookingID,
	})
}

// Transfer moves funds to the wallet behind the destination address
func (s *walletService) Transfer(ctx context.Context, owner Owner, destAddress string, amount decimal.Decimal, reference string) (*ledger.TransferResult, error) {
	w, err := s.wallets.GetByUserID(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}

	return s.mutator.Transfer(ctx, w.ID, destAddress, amount, reference, nil)
}

// Withdraw debits the wallet and queues the payout for admin review
func (s *walletService) Withdraw(ctx context.Context, owner Owner, amount decimal.Decimal, reference string, account withdrawal.BankAccount) (*ledger.Result, error) {
	w, err := s.wallets.GetByUserID(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}

	return s.workflow.Request(ctx, w.ID, amount, reference, account)
}

// ListTransactions reads the owner's ledger history from the source of truth
func (s *walletService) ListTransactions(ctx context.Context, owner Owner, filter transaction.Filter, page, perPage int) ([]*transaction.Transaction, int64, error) {
	w, err := s.wallets.GetByUserID(ctx, owner.UserID)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	txns, err := s.transactions.ListByWallet(ctx, w.ID, filter, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.CountByWallet(ctx, w.ID, filter)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// GetStatement reads the owner's statement from the archive read model
func (s *walletService) GetStatement(ctx context.Context, owner Owner, from, to time.Time, page, perPage int) ([]*statement.Entry, int64, error) {
	w, err := s.wallets.GetByUserID(ctx, owner.UserID)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	entries, err := s.statements.ListByWallet(ctx, w.ID, from, to, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.statements.CountByWallet(ctx, w.ID, from, to)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
