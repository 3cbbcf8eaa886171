// Package archiver moves committed ledger rows into the statement archive.
// It drains the transactional outbox written by the balance mutator, so every
// balance change eventually appears in the archive even across crashes.
package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sahar009/awari-backend-sub002/internal/config"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/outbox"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/statement"
)

// Poller processes pending outbox messages into the statement archive
type Poller struct {
	outboxRepo       outbox.Repository
	statements       statement.Repository
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// NewPoller creates a statement archive poller
func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	statements statement.Repository,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		statements:       statements,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting statement archiver",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Statement archiver stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch archiving of outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.archive(ctx, msg); err != nil {
			p.logger.Error("Failed to archive outbox message",
				"outbox_id", msg.ID,
				"transaction_id", msg.TransactionID.String(),
				"current_attempts", msg.Attempts,
				"error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				p.logger.Warn("Max retry attempts reached for outbox message",
					"outbox_id", msg.ID,
					"transaction_id", msg.TransactionID.String(),
					"attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToArchive); errUpdate != nil {
					p.logger.Error("Failed to mark outbox message as failed", "outbox_id", msg.ID, "error", errUpdate)
				}
			}
			continue
		}

		// Archived entries are keyed by transaction id, so a crash between
		// archive and delete only produces a harmless re-upsert.
		if err := p.outboxRepo.Delete(ctx, msg.ID); err != nil {
			p.logger.Error("Failed to delete archived outbox message", "outbox_id", msg.ID, "error", err)
			continue
		}

		p.logger.Debug("Archived outbox message",
			"outbox_id", msg.ID,
			"transaction_id", msg.TransactionID.String(),
		)
	}
	return nil
}

func (p *Poller) archive(ctx context.Context, msg *outbox.Message) error {
	txn, err := msg.GetTransaction()
	if err != nil {
		return fmt.Errorf("failed to decode outbox payload: %w", err)
	}

	entry := statement.FromTransaction(txn)
	if err := p.statements.Archive(ctx, entry); err != nil {
		return err
	}
	return nil
}
