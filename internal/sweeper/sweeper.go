// Package sweeper expires stale deposit intents on a schedule.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/platform/metrics"
)

// Sweeper flips pending transactions past their deadline to expired. The
// UPDATE is guarded on status, so a sweep racing a settlement can never undo
// a credit; an expired row a later Success callback hits is failed closed by
// settlement.
type Sweeper struct {
	depositRepo deposit.Repository
	metrics     *metrics.Metrics
	logger      *slog.Logger
	interval    time.Duration
}

func New(depositRepo deposit.Repository, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		depositRepo: depositRepo,
		metrics:     m,
		logger:      logger,
		interval:    interval,
	}
}

// Start runs the sweep loop until the context is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting expiry sweeper", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

// Sweep expires all overdue pending transactions and returns the count.
// Idempotent; a rerun over the same rows changes nothing.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	count, err := s.depositRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.metrics.DepositsExpired(count)
		s.logger.Info("Expired stale deposit transactions", "count", count)
	}

	return count, nil
}
