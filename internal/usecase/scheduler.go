package usecase

import (
	"context"
	"time"

	"feedranker/internal/ports"
)

// Scheduler wires the cron driver to the weight backfill use case.
type Scheduler struct {
	driver   ports.Scheduler
	backfill *BackfillService
}

// NewScheduler returns a helper to start/stop the recurring backfill.
func NewScheduler(driver ports.Scheduler, backfill *BackfillService) *Scheduler {
	return &Scheduler{driver: driver, backfill: backfill}
}

// Start registers the backfill with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.backfill == nil {
		return nil
	}

	job := func(time.Time) {
		_ = s.backfill.ReplayAll(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
