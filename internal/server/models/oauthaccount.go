package models

import "time"

// OAuthAccount links an external provider identity to a local user.
// (Provider, ProviderAccountID) is globally unique.
type OAuthAccount struct {
	ID                string
	Provider          string
	ProviderAccountID string
	UserID            string
	CreatedAt         time.Time
}
