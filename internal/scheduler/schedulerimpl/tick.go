package schedulerimpl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
	"github.com/orgball2608/social-poster-telegram-bot/internal/vault"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/formatter"
	"github.com/panjf2000/ants/v2"
)

// ScheduleDeliveries sets up the fixed-interval delivery tick. Singleton
// mode keeps a slow tick from overlapping with the next one.
func (s *SchedulerImpl) ScheduleDeliveries(ctx context.Context) error {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.Local
		s.Logger.Warn("Failed to load Asia/Ho_Chi_Minh timezone, using local timezone", "error", err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("failed to create delivery scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.Config.Scheduler.Tick),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.Logger.Info("Context cancelled, stopping delivery ticks")
				return
			}
			if err := s.RunTick(ctx); err != nil {
				s.Logger.Error("Delivery tick failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule delivery ticks: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping delivery scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down delivery scheduler", "error", err)
		}
	}()

	return nil
}

// RunTick claims the due queue and walks each post through one delivery
// attempt. One post's failure never aborts the tick.
func (s *SchedulerImpl) RunTick(ctx context.Context) error {
	now := time.Now()
	due, err := s.PostRepo.FetchDue(ctx, now, s.Config.Scheduler.ClaimLease)
	if err != nil {
		return fmt.Errorf("failed to fetch due posts: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.Logger.Info("Processing due posts", "count", len(due))
	s.runDeliveriesWithAnts(ctx, due)
	return nil
}

func (s *SchedulerImpl) runDeliveriesWithAnts(ctx context.Context, due []*domain.Post) {
	var wg sync.WaitGroup
	// A single worker: deliveries stay oldest-first and the browser drives
	// one account at a time.
	pool, _ := ants.NewPool(1, ants.WithPreAlloc(true))
	defer pool.Release()

	for i, post := range due {
		wg.Add(1)
		postToProcess := post
		pauseAfter := i < len(due)-1

		err := pool.Submit(func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				s.Logger.Info("Skipping delivery due to context cancellation", "post_id", postToProcess.ID)
				return
			default:
				s.processDuePost(ctx, postToProcess)
				if pauseAfter {
					time.Sleep(time.Duration(1+rand.Intn(3)) * time.Second)
				}
			}
		})
		if err != nil {
			wg.Done()
			s.Logger.Error("Failed to submit delivery to worker pool", "post_id", postToProcess.ID, "error", err)
		}
	}

	wg.Wait()
}

func (s *SchedulerImpl) processDuePost(ctx context.Context, post *domain.Post) {
	s.Logger.Info("Delivering post", "post_id", post.ID, "platform", post.Platform, "retry", post.RetryCount)

	if err := s.deliverPost(ctx, post); err != nil {
		s.handleFailure(ctx, post, err)
		return
	}
	s.handleSuccess(ctx, post)
}

// deliverPost runs one delivery attempt against every target the post has
// a bound account for. A target without a binding is skipped, not failed.
func (s *SchedulerImpl) deliverPost(ctx context.Context, post *domain.Post) error {
	caption := formatter.ComposeCaption(post.Caption, post.Hashtags)

	var errs []error
	delivered := 0
	for _, platform := range post.Platform.Expand() {
		nickname, ok := s.resolveNickname(ctx, post, platform)
		if !ok {
			s.Logger.Warn("No account bound for platform, skipping", "post_id", post.ID, "platform", platform)
			continue
		}

		// Hard deadline per platform attempt so a hung browser cannot
		// stall the queue past the claim lease.
		attemptCtx, cancel := context.WithTimeout(ctx, s.Config.Scheduler.AttemptTimeout)
		result, err := s.Publisher.Publish(attemptCtx, publisher.Request{
			Platform: platform,
			UserID:   post.UserID,
			Nickname: nickname,
			MediaRef: post.MediaRef,
			Caption:  caption,
		})
		cancel()
		if err != nil {
			s.Logger.Error("Delivery failed", "post_id", post.ID, "platform", platform, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", platform, err))
			continue
		}

		delivered++
		if result.PostURL != "" {
			s.Logger.Info("Delivered", "post_id", post.ID, "platform", platform, "url", result.PostURL)
		} else {
			s.Logger.Info("Delivered", "post_id", post.ID, "platform", platform)
		}
	}

	if len(errs) > 0 {
		// One failed target fails the whole attempt; the business retry
		// re-runs every target.
		return fmt.Errorf("encountered %d delivery errors, first error: %w", len(errs), errs[0])
	}
	if delivered == 0 {
		s.Logger.Warn("Post had no deliverable targets", "post_id", post.ID)
	}
	return nil
}

// resolveNickname picks the account to publish as: the post's explicit
// nickname, or the owner's only binding on that platform.
func (s *SchedulerImpl) resolveNickname(ctx context.Context, post *domain.Post, platform domain.Platform) (string, bool) {
	if nick := post.Nickname(platform); nick != "" {
		return nick, true
	}

	accounts, err := s.AccountRepo.ListByUserAndPlatform(ctx, post.UserID, platform)
	if err != nil {
		s.Logger.Error("Failed to list accounts", "post_id", post.ID, "platform", platform, "error", err)
		return "", false
	}
	if len(accounts) == 1 {
		return accounts[0].Nickname, true
	}
	if len(accounts) > 1 {
		s.Logger.Warn("Multiple accounts bound and no nickname on the post", "post_id", post.ID, "platform", platform)
	}
	return "", false
}

func (s *SchedulerImpl) handleSuccess(ctx context.Context, post *domain.Post) {
	if post.ScheduleKind == domain.ScheduleRecurring && post.EveryHours > 0 {
		// Next slot is computed from the previous scheduled time, not the
		// wall clock, so the cadence never drifts.
		next := post.NextRecurrence()
		if err := s.PostRepo.RescheduleAt(ctx, post.ID, next); err != nil {
			s.Logger.Error("Failed to requeue recurring post", "post_id", post.ID, "error", err)
			return
		}
		s.Logger.Info("Recurring post requeued", "post_id", post.ID, "next_at", next)
		s.notifyOwner(post, successMessage(post))
		return
	}

	if err := s.PostRepo.MarkStatus(ctx, post.ID, domain.StatusCompleted); err != nil {
		s.Logger.Error("Failed to mark post completed", "post_id", post.ID, "error", err)
		return
	}
	s.Logger.Info("Post completed", "post_id", post.ID)
	s.notifyOwner(post, successMessage(post))

	// Eager sweep so completed rows do not linger until the next cron run.
	if _, err := s.SweepCompleted(ctx); err != nil {
		s.Logger.Error("Eager retention sweep failed", "error", err)
	}
}

func (s *SchedulerImpl) handleFailure(ctx context.Context, post *domain.Post, deliverErr error) {
	if post.RetryCount >= domain.MaxRetries {
		if err := s.PostRepo.MarkStatus(ctx, post.ID, domain.StatusFailed); err != nil {
			s.Logger.Error("Failed to mark post failed", "post_id", post.ID, "error", err)
			return
		}
		s.Logger.Error("Post failed terminally", "post_id", post.ID, "retries", post.RetryCount, "error", deliverErr)
		msg := terminalFailureMessage(post, deliverErr)
		s.Telegram.SendMessageToOperator(msg)
		s.notifyOwner(post, msg)
		return
	}

	count, err := s.PostRepo.IncrementRetry(ctx, post.ID)
	if err != nil {
		s.Logger.Error("Failed to increment retry count", "post_id", post.ID, "error", err)
		return
	}

	delay := backoffDelay(count)
	next := time.Now().Add(delay)
	if err := s.PostRepo.RescheduleAt(ctx, post.ID, next); err != nil {
		s.Logger.Error("Failed to reschedule post", "post_id", post.ID, "error", err)
		return
	}

	s.Logger.Warn("Delivery attempt failed, post rescheduled",
		"post_id", post.ID, "retry", count, "delay", delay, "error", deliverErr)
	s.Telegram.SendMessageToOperator(retryFailureMessage(post, deliverErr, count, delay))
}

// backoffDelay is the business-level wait before retry n: 30, 60, 90
// minutes, never more than two hours.
func backoffDelay(retry int) time.Duration {
	d := time.Duration(retry) * 30 * time.Minute
	if d > 2*time.Hour {
		d = 2 * time.Hour
	}
	return d
}

// notifyOwner reports a delivery outcome to the user who queued the post.
// The Telegram user id doubles as the direct chat id.
func (s *SchedulerImpl) notifyOwner(post *domain.Post, text string) {
	if _, err := s.Telegram.SendMessage(post.UserID, text); err != nil {
		s.Logger.Warn("Failed to notify post owner", "post_id", post.ID, "error", err)
	}
}

func successMessage(post *domain.Post) string {
	if post.ScheduleKind == domain.ScheduleRecurring && post.EveryHours > 0 {
		return fmt.Sprintf("✅ Post %s delivered, next run at %s.",
			post.ID, post.NextRecurrence().Format(time.RFC1123))
	}
	return fmt.Sprintf("✅ Post %s delivered.", post.ID)
}

func retryFailureMessage(post *domain.Post, err error, retry int, delay time.Duration) string {
	return fmt.Sprintf("⚠️ Delivery failed for post %s (retry %d/%d), next attempt in %s.\nError: %v",
		post.ID, retry, domain.MaxRetries, delay, err)
}

func terminalFailureMessage(post *domain.Post, err error) string {
	msg := fmt.Sprintf("❌ Post %s failed permanently after %d retries.\nTargets: %s\nLast error: %v",
		post.ID, domain.MaxRetries, post.Platform, err)

	var credErr *vault.CredentialError
	if errors.As(err, &credErr) {
		msg += "\nThe stored session is unusable, re-link the account."
	}
	return msg
}
