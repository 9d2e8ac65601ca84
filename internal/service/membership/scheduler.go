package membership

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper is a periodic cleanup hook run alongside reconciliation
// (the admin service's potential-admin expiry).
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler drives periodic reconciliation (and optional sweeps) via cron.
type Scheduler struct {
	cron    *cron.Cron
	rec     *Reconciler
	sweeper Sweeper // nil disables the sweep entry
	logger  *slog.Logger
}

// NewScheduler creates a scheduler around the reconciler. sweeper may be nil.
func NewScheduler(rec *Reconciler, sweeper Sweeper, logger *slog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), rec: rec, sweeper: sweeper, logger: logger}
}

// Start registers the cron entries and starts the scheduler.
// syncSchedule and sweepSchedule are standard cron expressions.
func (s *Scheduler) Start(syncSchedule, sweepSchedule string) error {
	if _, err := s.cron.AddFunc(syncSchedule, func() {
		if err := s.rec.SyncAll(context.Background()); err != nil {
			s.logger.Warn("scheduled reconciliation failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(sweepSchedule, func() {
			n, err := s.sweeper.SweepExpired(context.Background())
			if err != nil {
				s.logger.Warn("scheduled sweep failed", "error", err)
				return
			}
			if n > 0 {
				s.logger.Info("expired potential admins swept", "count", n)
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "sync_schedule", syncSchedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}
