// Package withdrawal implements the withdrawal lifecycle: a user request
// debits available funds immediately, an admin decision moves the request to
// payout or reverses it, and the gateway webhook settles the terminal state.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/gateway"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
)

// ErrNotWithdrawal indicates an admin decision targeted a non-withdrawal row
var ErrNotWithdrawal = errors.New("transaction is not a withdrawal")

// Metadata keys recorded on withdrawal transactions
const (
	metaAccountNumber = "account_number"
	metaAccountName   = "account_name"
	metaBankCode      = "bank_code"
)

// BankAccount is the payout destination supplied with a withdrawal request
type BankAccount struct {
	AccountNumber string
	AccountName   string
	BankCode      string
}

// Workflow drives withdrawal state transitions. Money movement goes through
// the balance mutator; payouts go through the gateway client.
type Workflow struct {
	mutator      *ledger.Mutator
	transactions transaction.Repository
	gateway      gateway.Client
	logger       *slog.Logger
}

// NewWorkflow creates a withdrawal workflow
func NewWorkflow(mutator *ledger.Mutator, transactions transaction.Repository, gatewayClient gateway.Client, logger *slog.Logger) *Workflow {
	return &Workflow{
		mutator:      mutator,
		transactions: transactions,
		gateway:      gatewayClient,
		logger:       logger,
	}
}

// Request debits the wallet and records a pending withdrawal awaiting admin
// review. The debit happens up front so approved funds cannot be spent twice
// while the request sits in the queue.
func (w *Workflow) Request(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, reference string, account BankAccount) (*ledger.Result, error) {
	if account.AccountNumber == "" || account.BankCode == "" {
		return nil, fmt.Errorf("withdrawal requires a destination account number and bank code")
	}

	return w.mutator.Apply(ctx, ledger.Mutation{
		WalletID:  walletID,
		Op:        ledger.OpWithdraw,
		Amount:    amount,
		Reference: reference,
		Status:    transaction.StatusPending,
		Metadata: map[string]any{
			metaAccountNumber: account.AccountNumber,
			metaAccountName:   account.AccountName,
			metaBankCode:      account.BankCode,
		},
	})
}

// Approve moves a pending withdrawal to processing and initiates the gateway
// payout. If payout initiation fails the request stays pending, so the admin
// can retry the approval or reject it.
func (w *Workflow) Approve(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	txn, err := w.loadForDecision(ctx, transactionID, transaction.StatusProcessing)
	if err != nil {
		return nil, err
	}

	account, err := payoutAccount(txn)
	if err != nil {
		return nil, err
	}

	recipientCode, err := w.gateway.CreateTransferRecipient(ctx, account.AccountName, account.AccountNumber, account.BankCode)
	if err != nil {
		return nil, fmt.Errorf("failed to register payout recipient: %w", err)
	}

	payout, err := w.gateway.InitiatePayout(ctx, recipientCode, txn.Amount, txn.Reference, "wallet withdrawal")
	if err != nil {
		return nil, fmt.Errorf("failed to initiate payout: %w", err)
	}

	if err := w.transactions.UpdateStatus(ctx, txn.ID, transaction.StatusProcessing, payout.TransferCode); err != nil {
		return nil, err
	}

	txn.Status = transaction.StatusProcessing
	txn.GatewayReference = payout.TransferCode

	w.logger.Info("Withdrawal approved",
		"transaction_id", txn.ID.String(),
		"wallet_id", txn.WalletID.String(),
		"amount", txn.Amount.String(),
		"gateway_reference", payout.TransferCode,
	)
	return txn, nil
}

// Reject cancels a pending withdrawal and returns the debited funds. The
// refund reference derives from the withdrawal, so repeated rejection of the
// same request replays instead of double-crediting.
func (w *Workflow) Reject(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	txn, err := w.loadForDecision(ctx, transactionID, transaction.StatusCancelled)
	if err != nil {
		return nil, err
	}

	if err := w.reverse(ctx, txn); err != nil {
		return nil, err
	}
	if err := w.transactions.UpdateStatus(ctx, txn.ID, transaction.StatusCancelled, ""); err != nil {
		return nil, err
	}

	txn.Status = transaction.StatusCancelled

	w.logger.Info("Withdrawal rejected",
		"transaction_id", txn.ID.String(),
		"wallet_id", txn.WalletID.String(),
		"amount", txn.Amount.String(),
	)
	return txn, nil
}

// Complete settles a processing withdrawal after the gateway confirms the
// transfer. Keyed by the gateway's transfer reference from the webhook.
func (w *Workflow) Complete(ctx context.Context, gatewayReference string) (*transaction.Transaction, error) {
	txn, err := w.loadByGatewayReference(ctx, gatewayReference, transaction.StatusCompleted)
	if err != nil {
		return nil, err
	}

	if err := w.transactions.UpdateStatus(ctx, txn.ID, transaction.StatusCompleted, gatewayReference); err != nil {
		return nil, err
	}
	txn.Status = transaction.StatusCompleted

	w.logger.Info("Withdrawal completed",
		"transaction_id", txn.ID.String(),
		"gateway_reference", gatewayReference,
	)
	return txn, nil
}

// Fail settles a processing withdrawal whose gateway transfer failed or was
// reversed, returning the debited funds to the wallet.
func (w *Workflow) Fail(ctx context.Context, gatewayReference string) (*transaction.Transaction, error) {
	txn, err := w.loadByGatewayReference(ctx, gatewayReference, transaction.StatusFailed)
	if err != nil {
		return nil, err
	}

	if err := w.reverse(ctx, txn); err != nil {
		return nil, err
	}
	if err := w.transactions.UpdateStatus(ctx, txn.ID, transaction.StatusFailed, gatewayReference); err != nil {
		return nil, err
	}
	txn.Status = transaction.StatusFailed

	w.logger.Info("Withdrawal failed and reversed",
		"transaction_id", txn.ID.String(),
		"gateway_reference", gatewayReference,
	)
	return txn, nil
}

// reverse credits the withdrawal amount back to the wallet. Applied before the
// status flip so a crash between the two leaves a replayable refund, not a
// lost one.
func (w *Workflow) reverse(ctx context.Context, txn *transaction.Transaction) error {
	_, err := w.mutator.Apply(ctx, ledger.Mutation{
		WalletID:             txn.WalletID,
		Op:                   ledger.OpRefund,
		Amount:               txn.Amount,
		Reference:            ledger.ReversalReference(txn.Reference),
		RelatedTransactionID: &txn.ID,
	})
	return err
}

func (w *Workflow) loadForDecision(ctx context.Context, transactionID uuid.UUID, to transaction.Status) (*transaction.Transaction, error) {
	txn, err := w.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return w.guard(txn, to)
}

func (w *Workflow) loadByGatewayReference(ctx context.Context, gatewayReference string, to transaction.Status) (*transaction.Transaction, error) {
	txn, err := w.transactions.GetByGatewayReference(ctx, gatewayReference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, fmt.Errorf("no withdrawal carries gateway reference %s: %w",
			gatewayReference, transaction.ErrTransactionNotFound{})
	}
	return w.guard(txn, to)
}

func (w *Workflow) guard(txn *transaction.Transaction, to transaction.Status) (*transaction.Transaction, error) {
	if txn.Type != transaction.TypeWithdrawal {
		return nil, ErrNotWithdrawal
	}
	if !transaction.CanTransition(txn.Status, to) {
		return nil, transaction.ErrInvalidTransition{TransactionID: txn.ID, From: txn.Status, To: to}
	}
	return txn, nil
}

func payoutAccount(txn *transaction.Transaction) (BankAccount, error) {
	account := BankAccount{
		AccountNumber: metadataString(txn.Metadata, metaAccountNumber),
		AccountName:   metadataString(txn.Metadata, metaAccountName),
		BankCode:      metadataString(txn.Metadata, metaBankCode),
	}
	if account.AccountNumber == "" || account.BankCode == "" {
		return BankAccount{}, fmt.Errorf("withdrawal %s is missing payout account details", txn.ID)
	}
	return account, nil
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	s, _ := metadata[key].(string)
	return s
}
