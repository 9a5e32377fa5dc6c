package schedulerimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepCompleted deletes delivered one-shot posts. Queued and failed rows
// are never touched: failed posts stay around for inspection.
func (s *SchedulerImpl) SweepCompleted(ctx context.Context) (int64, error) {
	deleted, err := s.PostRepo.DeleteCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep completed posts: %w", err)
	}
	if deleted > 0 {
		s.Logger.Info("Retention sweep removed completed posts", "rows_deleted", deleted)
	}
	return deleted, nil
}

// ScheduleRetentionSweep sets up the periodic cleanup job. Completed rows
// are usually gone already via the eager sweep on delivery; this catches
// anything that slipped through a crash between the two steps.
func (s *SchedulerImpl) ScheduleRetentionSweep(ctx context.Context) error {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.Local
		s.Logger.Warn("Failed to load Asia/Ho_Chi_Minh timezone, using local timezone", "error", err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("failed to create sweep scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(
			s.Config.Scheduler.SweepCron,
			false,
		),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.Logger.Info("Context cancelled, stopping retention sweep job")
				return
			}

			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			if _, err := s.SweepCompleted(sweepCtx); err != nil {
				s.Logger.Error("Retention sweep failed", "error", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping retention sweep scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down sweep scheduler", "error", err)
		}
	}()

	return nil
}
