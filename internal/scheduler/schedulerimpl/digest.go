package schedulerimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/formatter"
)

// ScheduleQueueDigest sets up a daily summary of the queue state for the
// operator.
func (s *SchedulerImpl) ScheduleQueueDigest(ctx context.Context) error {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.Local
		s.Logger.Warn("Failed to load Asia/Ho_Chi_Minh timezone, using local timezone", "error", err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("failed to create digest scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(
			s.Config.Scheduler.DigestCron,
			false,
		),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.Logger.Info("Context cancelled, stopping queue digest job")
				return
			}

			digestCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()

			s.sendQueueDigest(digestCtx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule queue digest: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping queue digest scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down digest scheduler", "error", err)
		}
	}()

	return nil
}

func (s *SchedulerImpl) sendQueueDigest(ctx context.Context) {
	queued, err := s.PostRepo.CountByStatus(ctx, domain.StatusQueued)
	if err != nil {
		s.Logger.Error("Failed to count queued posts", "error", err)
		return
	}
	completed, err := s.PostRepo.CountByStatus(ctx, domain.StatusCompleted)
	if err != nil {
		s.Logger.Error("Failed to count completed posts", "error", err)
		return
	}
	failed, err := s.PostRepo.CountByStatus(ctx, domain.StatusFailed)
	if err != nil {
		s.Logger.Error("Failed to count failed posts", "error", err)
		return
	}

	s.Logger.Info("Queue digest", "queued", queued, "completed", completed, "failed", failed)
	s.Telegram.SendMessageToOperator(fmt.Sprintf(
		"📊 Queue digest\nQueued: %s\nCompleted: %s\nFailed: %s",
		formatter.FormatNumber(queued), formatter.FormatNumber(completed), formatter.FormatNumber(failed),
	))
}
