package domain

import "time"

// Account binds a platform login to its owner. The session material itself
// is never stored here; it lives encrypted in the credential vault under the
// same (platform, user, nickname) key.
type Account struct {
	ID       int
	UserID   int64
	Platform Platform
	Nickname string
	Username string

	CreatedAt time.Time
	UpdatedAt time.Time
}
