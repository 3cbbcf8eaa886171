package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/wallet"
	"github.com/Sahar009/awari-backend-sub002/internal/gateway"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
	"github.com/Sahar009/awari-backend-sub002/internal/withdrawal"
)

// ErrInvalidSignature indicates a webhook delivery that failed HMAC
// verification. The handler maps it to 401 so the gateway retries nothing.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// webhookService implements WebhookService
type webhookService struct {
	secretKey string
	wallets   wallet.Repository
	mutator   *ledger.Mutator
	workflow  *withdrawal.Workflow
	logger    *slog.Logger
}

// NewWebhookService creates a webhook processor
func NewWebhookService(secretKey string, wallets wallet.Repository, mutator *ledger.Mutator, workflow *withdrawal.Workflow, logger *slog.Logger) WebhookService {
	return &webhookService{
		secretKey: secretKey,
		wallets:   wallets,
		mutator:   mutator,
		workflow:  workflow,
		logger:    logger,
	}
}

// Process verifies and applies one webhook delivery. Unknown event types are
// acknowledged without effect; redelivered events replay through the ledger's
// reference idempotency.
func (s *webhookService) Process(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifySignature(s.secretKey, body, signature) {
		return ErrInvalidSignature
	}

	event, err := gateway.ParseEvent(body)
	if err != nil {
		return err
	}

	logger := s.logger.With(
		"event", event.Type,
		"gateway_reference", event.Data.Reference,
	)

	switch event.Type {
	case gateway.EventChargeSuccess:
		return s.creditFunding(ctx, event, logger)
	case gateway.EventTransferSuccess:
		return s.settleWithdrawal(ctx, event, logger, true)
	case gateway.EventTransferFailed, gateway.EventTransferReversed:
		return s.settleWithdrawal(ctx, event, logger, false)
	default:
		logger.Debug("Ignoring unhandled webhook event")
		return nil
	}
}

// creditFunding credits a wallet for a confirmed charge: a card checkout or a
// bank transfer into the wallet's dedicated funding account.
func (s *webhookService) creditFunding(ctx context.Context, event *gateway.Event, logger *slog.Logger) error {
	w, err := s.wallets.GetByCustomerCode(ctx, event.Data.Customer.CustomerCode)
	if err != nil {
		return err
	}
	if w == nil {
		// Charge for a customer this service never provisioned; acknowledge
		// so the gateway stops redelivering.
		logger.Warn("Charge for unknown gateway customer",
			"customer_code", event.Data.Customer.CustomerCode,
		)
		return nil
	}

	amount := gateway.FromMinorUnits(event.Data.Amount)
	result, err := s.mutator.Apply(ctx, ledger.Mutation{
		WalletID:         w.ID,
		Op:               ledger.OpCredit,
		Amount:           amount,
		Reference:        event.Data.Reference,
		GatewayReference: event.Data.Reference,
		Metadata: map[string]any{
			"channel": event.Data.Channel,
		},
	})
	if err != nil {
		return err
	}

	logger.Info("Funding credited",
		"wallet_id", w.ID.String(),
		"amount", amount.String(),
		"replayed", result.Replayed,
	)
	return nil
}

// settleWithdrawal closes out a processing withdrawal from a transfer event
func (s *webhookService) settleWithdrawal(ctx context.Context, event *gateway.Event, logger *slog.Logger, success bool) error {
	var err error
	if success {
		_, err = s.workflow.Complete(ctx, event.Data.Reference)
	} else {
		_, err = s.workflow.Fail(ctx, event.Data.Reference)
	}
	if err != nil {
		// A redelivered terminal event finds the withdrawal already settled.
		if errors.Is(err, transaction.ErrInvalidTransition{}) {
			logger.Info("Withdrawal already settled, ignoring redelivery")
			return nil
		}
		// A transfer this service never initiated; acknowledge so the
		// gateway stops redelivering.
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			logger.Warn("Transfer event for unknown withdrawal")
			return nil
		}
		return err
	}

	logger.Info("Withdrawal settled from webhook", "success", success)
	return nil
}
