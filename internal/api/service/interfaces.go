// Package service implements the API-facing use cases over the ledger engine:
// wallet provisioning, funding, payment, transfer, withdrawal, history reads,
// and gateway webhook processing.
package service

import (
	"context"
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

// Owner identifies the wallet owner behind an API call
type Owner struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// WalletService defines wallet operations available through the API
type WalletService interface {
	// GetWallet returns the owner's wallet, creating and provisioning it on
	// first access.
	GetWallet(ctx context.Context, owner Owner) (*wallet.Wallet, error)

	// InitiateFunding opens a hosted checkout; the wallet is credited when
	// the gateway confirms the charge via webhook.
	InitiateFunding(ctx context.Context, owner Owner, amount decimal.Decimal) (*gateway.Checkout, error)

	// Pay debits the owner's available balance for a booking payment
	Pay(ctx context.Context, owner Owner, amount decimal.Decimal, reference string, bookingID *uuid.UUID) (*ledger.Result, error)

	// Transfer moves funds to another wallet addressed by its wallet address
	Transfer(ctx context.Context, owner Owner, destAddress string, amount decimal.Decimal, reference string) (*ledger.TransferResult, error)

	// Withdraw debits the wallet and queues a payout pending admin review
	Withdraw(ctx context.Context, owner Owner, amount decimal.Decimal, reference string, account withdrawal.BankAccount) (*ledger.Result, error)

	ListTransactions(ctx context.Context, owner Owner, filter transaction.Filter, page, perPage int) ([]*transaction.Transaction, int64, error)
	GetStatement(ctx context.Context, owner Owner, from, to time.Time, page, perPage int) ([]*statement.Entry, int64, error)
}

// WithdrawalAdminService defines the admin decisions on queued withdrawals.
// Satisfied by the withdrawal workflow.
type WithdrawalAdminService interface {
	Approve(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error)
	Reject(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error)
}

// WebhookService processes verified gateway webhook deliveries
type WebhookService interface {
	Process(ctx context.Context, body []byte, signature string) error
}
