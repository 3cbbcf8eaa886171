// Package release runs the scheduled sweep that moves matured holds from
// pending to available balance. The sweep is the safety net behind explicit
// release events: any hold whose release date has passed is released even if
// the booking system never sends a release command.
package release

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Sahar009/awari-backend-sub002/internal/config"
	"github.com/Sahar009/awari-backend-sub002/internal/domain/transaction"
	"github.com/Sahar009/awari-backend-sub002/internal/ledger"
)

// Sweeper periodically finds due holds and releases them through a bounded
// worker pool. Releases are idempotent through the derived release reference,
// so overlapping sweeps and crash-retry both converge.
type Sweeper struct {
	mutator      *ledger.Mutator
	transactions transaction.Repository
	pool         *ants.Pool
	interval     time.Duration
	batchSize    int
	logger       *slog.Logger
}

// NewSweeper creates a release sweeper with its worker pool
func NewSweeper(cfg *config.ReleaseConfig, mutator *ledger.Mutator, transactions transaction.Repository, logger *slog.Logger) (*Sweeper, error) {
	pool, err := ants.NewPool(cfg.WorkerPool)
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		mutator:      mutator,
		transactions: transactions,
		pool:         pool,
		interval:     cfg.SweepInterval,
		batchSize:    cfg.BatchSize,
		logger:       logger,
	}, nil
}

// Start runs the sweep loop until the context is canceled. One sweep runs
// immediately on startup to catch holds that matured while the service was
// down.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting release sweeper",
		"sweep_interval", s.interval.String(),
		"batch_size", s.batchSize,
		"worker_pool", s.pool.Cap(),
	)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Release sweeper stopping due to context cancellation")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep releases every hold due as of now, fanning the batch out across the
// worker pool and waiting for all releases to finish.
func (s *Sweeper) Sweep(ctx context.Context) {
	holds, err := s.transactions.DueForRelease(ctx, time.Now(), s.batchSize)
	if err != nil {
		s.logger.Error("Failed to query holds due for release", "error", err)
		return
	}
	if len(holds) == 0 {
		s.logger.Debug("No holds due for release")
		return
	}

	s.logger.Info("Releasing due holds", "count", len(holds))

	var wg sync.WaitGroup
	for _, hold := range holds {
		hold := hold
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if _, err := s.mutator.ReleaseHold(ctx, hold); err != nil {
				// A refund that landed after this batch was queried settles
				// the hold; the sweep has nothing left to do.
				if errors.Is(err, ledger.ErrHoldReversed) {
					s.logger.Info("Skipping refunded hold",
						"transaction_id", hold.ID.String(),
						"reference", hold.Reference,
					)
					return
				}
				// Left in place for the next sweep to retry.
				s.logger.Error("Failed to release hold",
					"transaction_id", hold.ID.String(),
					"wallet_id", hold.WalletID.String(),
					"reference", hold.Reference,
					"error", err,
				)
			}
		})
		if err != nil {
			wg.Done()
			s.logger.Error("Failed to submit hold release to worker pool",
				"transaction_id", hold.ID.String(),
				"error", err,
			)
		}
	}
	wg.Wait()
}

// Shutdown releases the worker pool
func (s *Sweeper) Shutdown() {
	s.logger.Info("Shutting down release sweeper", "running_workers", s.pool.Running())
	s.pool.Release()
}
