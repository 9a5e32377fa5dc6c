package post

import (
	"context"
	"errors"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
)

var (
	ErrAlreadyExists = errors.New("scheduled post already exists")
	ErrNotFound      = errors.New("scheduled post not found")
)

type Repository interface {
	// Create adds a new scheduled post
	Create(ctx context.Context, post domain.Post) error

	// GetByID returns a single post by its id
	GetByID(ctx context.Context, id string) (*domain.Post, error)

	// FetchDue returns queued posts whose schedule time has passed, oldest
	// first (insertion order breaks ties), and extends each returned row's
	// claim lease so a second scheduler instance skips them until the
	// lease expires.
	FetchDue(ctx context.Context, now time.Time, lease time.Duration) ([]*domain.Post, error)

	// MarkStatus moves a post to the given lifecycle status and releases
	// its claim
	MarkStatus(ctx context.Context, id string, status domain.PostStatus) error

	// IncrementRetry bumps the business retry counter and returns the new
	// count
	IncrementRetry(ctx context.Context, id string) (int, error)

	// RescheduleAt moves the post's schedule time and releases its claim;
	// the post stays queued
	RescheduleAt(ctx context.Context, id string, at time.Time) error

	// DeleteCompleted removes all completed posts and reports how many
	DeleteCompleted(ctx context.Context) (int64, error)

	// CountByStatus counts posts in the given lifecycle status
	CountByStatus(ctx context.Context, status domain.PostStatus) (int, error)
}
