package publisher

import (
	"context"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
)

// Client delivers one post to one account on one platform. The scheduler
// expands a "both" post into two separate requests and aggregates the
// outcomes.
type Client interface {
	Publish(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Platform domain.Platform
	UserID   int64
	Nickname string
	MediaRef string
	Caption  string
}

type Result struct {
	Platform domain.Platform
	// PostURL is best effort: the API engine can build it from the media
	// code, the browser flows usually cannot.
	PostURL string
}
