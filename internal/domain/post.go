package domain

import (
	"time"

	"github.com/google/uuid"
)

// Platform selects the delivery target(s) of a post.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTiktok    Platform = "tiktok"
	PlatformBoth      Platform = "both"
)

// Expand resolves the selector to the concrete platforms it covers.
func (p Platform) Expand() []Platform {
	if p == PlatformBoth {
		return []Platform{PlatformInstagram, PlatformTiktok}
	}
	return []Platform{p}
}

// ScheduleKind distinguishes one-shot posts from self-requeueing ones.
type ScheduleKind string

const (
	ScheduleOnce      ScheduleKind = "once"
	ScheduleRecurring ScheduleKind = "recurring"
)

// PostStatus is the lifecycle state of a scheduled post.
type PostStatus string

const (
	StatusQueued    PostStatus = "queued"
	StatusCompleted PostStatus = "completed"
	StatusFailed    PostStatus = "failed"
)

// MaxRetries is the business-level retry budget for a post. Once a post has
// failed this many rescheduled attempts it becomes terminally failed.
const MaxRetries = 3

// Post is one unit of scheduled publish work.
type Post struct {
	ID     string
	UserID int64

	Platform   Platform
	IgNickname string
	TtNickname string

	MediaRef string
	Caption  string
	Hashtags []string

	ScheduleKind ScheduleKind
	ScheduleAt   time.Time
	EveryHours   int

	Status     PostStatus
	RetryCount int

	// ClaimedUntil is a delivery lease: while set and in the future, the
	// row belongs to the scheduler instance that claimed it.
	ClaimedUntil *time.Time

	CreatedAt time.Time
}

// NewPost builds a queued one-shot post with a fresh id.
func NewPost(userID int64, platform Platform, mediaRef, caption string, hashtags []string, at time.Time) Post {
	return Post{
		ID:           uuid.NewString(),
		UserID:       userID,
		Platform:     platform,
		MediaRef:     mediaRef,
		Caption:      caption,
		Hashtags:     hashtags,
		ScheduleKind: ScheduleOnce,
		ScheduleAt:   at,
		Status:       StatusQueued,
	}
}

// Nickname returns the account nickname bound for the given platform.
func (p *Post) Nickname(platform Platform) string {
	switch platform {
	case PlatformInstagram:
		return p.IgNickname
	case PlatformTiktok:
		return p.TtNickname
	}
	return ""
}

// NextRecurrence computes the follow-up slot for a recurring post from the
// previous scheduled time, not from the wall clock, so the cadence never
// drifts.
func (p *Post) NextRecurrence() time.Time {
	return p.ScheduleAt.Add(time.Duration(p.EveryHours) * time.Hour)
}
