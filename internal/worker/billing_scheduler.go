package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billing-service/internal/config"
	"billing-service/internal/services"
)

// BatchLocker guards the monthly batch so concurrent service instances run
// it once per window. The invoice uniqueness constraint remains the hard
// duplicate guard; the lock just avoids wasted work.
type BatchLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// BillingScheduler fires the monthly billing batch at a configured day of
// month and time of day (UTC), submitting the run to the worker pool.
type BillingScheduler struct {
	pipeline   services.BillingPipeline
	pool       *WorkingPool
	locker     BatchLocker
	dayOfMonth int
	hourUTC    int
	minuteUTC  int
	lockTTL    time.Duration
	clock      func() time.Time
}

func NewBillingScheduler(pipeline services.BillingPipeline, pool *WorkingPool, locker BatchLocker, cfg config.BillingConfig) *BillingScheduler {
	return &BillingScheduler{
		pipeline:   pipeline,
		pool:       pool,
		locker:     locker,
		dayOfMonth: cfg.ScheduleDayOfMonth,
		hourUTC:    cfg.ScheduleHourUTC,
		minuteUTC:  cfg.ScheduleMinuteUTC,
		lockTTL:    cfg.BatchLockTTL,
		clock:      time.Now,
	}
}

// Run blocks until the context is cancelled, submitting one batch job per
// scheduled fire.
func (s *BillingScheduler) Run(ctx context.Context) {
	slog.Info("Billing scheduler running",
		"day_of_month", s.dayOfMonth,
		"hour_utc", s.hourUTC,
		"minute_utc", s.minuteUTC,
	)

	for {
		now := s.clock().UTC()
		next := nextRunTime(now, s.dayOfMonth, s.hourUTC, s.minuteUTC)
		timer := time.NewTimer(next.Sub(now))
		slog.Info("Next billing batch scheduled", "run_at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Billing scheduler shutting down")
			return
		case <-timer.C:
			s.pool.SubmitJob(func(jobCtx context.Context) error {
				return s.runBatch(jobCtx)
			})
		}
	}
}

// runBatch takes the month lock and drives the pipeline. The lock is released
// only when the batch fails, so a healthy run holds it for the rest of the
// TTL and repeated triggers in the same window no-op.
func (s *BillingScheduler) runBatch(ctx context.Context) error {
	key := batchLockKey(s.clock().UTC())

	acquired, lockErr := s.locker.TryLock(ctx, key, s.lockTTL)
	if lockErr != nil {
		slog.Warn("batch lock unavailable, relying on invoice uniqueness",
			"key", key, "error", lockErr)
	} else if !acquired {
		slog.Info("Monthly batch already ran for this window, skipping", "key", key)
		return nil
	}

	result, err := s.pipeline.RunMonthlyBatch(ctx)
	if err != nil {
		if lockErr == nil {
			if unlockErr := s.locker.Unlock(ctx, key); unlockErr != nil {
				slog.Warn("failed to release batch lock", "key", key, "error", unlockErr)
			}
		}
		return fmt.Errorf("monthly billing batch failed: %w", err)
	}

	slog.Info("Scheduled billing batch completed",
		"window_start", result.WindowStart.Format(time.DateOnly),
		"invoiced", result.Invoiced,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return nil
}

// batchLockKey names the lock after the window being billed, which is the
// month after the trigger time.
func batchLockKey(now time.Time) string {
	window := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return "billing:monthly-batch:" + window.Format("2006-01")
}

// nextRunTime finds the next scheduled fire strictly after now, clamping the
// configured day to months that are shorter than it.
func nextRunTime(now time.Time, dayOfMonth, hour, minute int) time.Time {
	candidate := runTimeInMonth(now.Year(), now.Month(), dayOfMonth, hour, minute)
	if candidate.After(now) {
		return candidate
	}
	return runTimeInMonth(now.Year(), now.Month()+1, dayOfMonth, hour, minute)
}

func runTimeInMonth(year int, month time.Month, day, hour, minute int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}
