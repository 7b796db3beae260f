// Package models defines server-side data models persisted in the database.
package models

import "time"

// Credentials describes how a user proves their identity locally.
// It is either PasswordCredentials or ExternalOnly.
type Credentials interface {
	isCredentials()
}

// PasswordCredentials holds a self-contained password hash (PHC string).
type PasswordCredentials struct {
	Hash string
}

// ExternalOnly marks accounts created through an OAuth provider that have no
// local password.
type ExternalOnly struct{}

func (PasswordCredentials) isCredentials() {}
func (ExternalOnly) isCredentials()        {}

// User is the identity record.
type User struct {
	ID            string
	Email         string
	Credentials   Credentials
	EmailVerified bool

	// VerificationToken is set until the email is verified.
	VerificationToken *string

	ResetToken          *string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
}

// PasswordHash returns the stored hash and true for password-based accounts.
func (u *User) PasswordHash() (string, bool) {
	if pc, ok := u.Credentials.(PasswordCredentials); ok && pc.Hash != "" {
		return pc.Hash, true
	}
	return "", false
}
