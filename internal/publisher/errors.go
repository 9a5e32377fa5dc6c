package publisher

import (
	"errors"
	"fmt"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/vault"
)

// BotDetectionError aborts a flow the moment the page shows an
// anti-automation challenge. Pressing on would burn the account, so this
// is never retried at the transport level.
type BotDetectionError struct {
	Platform domain.Platform
	Marker   string
}

func (e *BotDetectionError) Error() string {
	return fmt.Sprintf("bot detection on %s: %s", e.Platform, e.Marker)
}

// SessionExpiredError means the platform bounced the flow to its login
// page: the stored session is no longer honored and the account needs a
// fresh login.
type SessionExpiredError struct {
	Platform domain.Platform
	Location string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session for %s expired: redirected to %s", e.Platform, e.Location)
}

// IsPermanent reports whether retrying the delivery right now is
// pointless: broken credentials, a dead session, or an anti-bot
// challenge. Everything else, selector exhaustion included, is treated
// as transient transport trouble: a slow page or an experiment cohort
// often renders the missing element on a fresh attempt.
func IsPermanent(err error) bool {
	var credErr *vault.CredentialError
	var botErr *BotDetectionError
	var expiredErr *SessionExpiredError
	return errors.As(err, &credErr) ||
		errors.As(err, &botErr) ||
		errors.As(err, &expiredErr)
}
