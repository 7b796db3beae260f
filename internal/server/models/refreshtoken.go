package models

import "time"

// RefreshToken is a server-side session handle. Email is the owner's email,
// filled by store operations that join the users table.
type RefreshToken struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
