// Package scheduler drives recurring jobs with cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"feedranker/internal/ports"
)

// CronScheduler runs a single job on a cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	cron     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start registers the job and begins the cron loop.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.location))
	_, err := runner.AddFunc(c.spec, func() {
		select {
		case <-ctx.Done():
		default:
			job(time.Now().In(c.location))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}

	c.cron = runner
	runner.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}

	done := c.cron.Stop()
	c.cron = nil
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
