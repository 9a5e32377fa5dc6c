package account

import (
	"context"
	"errors"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
)

var ErrNotFound = errors.New("social account not found")

type Repository interface {
	// Upsert creates the binding or refreshes its username when the owner
	// re-links the same (platform, nickname) pair
	Upsert(ctx context.Context, account domain.Account) error

	// Delete removes one binding
	Delete(ctx context.Context, userID int64, platform domain.Platform, nickname string) error

	// GetByOwner returns the binding for one (user, platform, nickname) key
	GetByOwner(ctx context.Context, userID int64, platform domain.Platform, nickname string) (*domain.Account, error)

	// ListByUserAndPlatform returns all of a user's bindings on a platform
	ListByUserAndPlatform(ctx context.Context, userID int64, platform domain.Platform) ([]*domain.Account, error)
}
