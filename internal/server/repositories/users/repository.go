// Package users declares the server-side repository contract for user
// identity records and provides its PostgreSQL implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores users. Lookups return common.ErrNotFound when nothing
// matches; Create returns common.ErrAlreadyExists when the email is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)

	// MarkEmailVerified flips the verified flag of the user holding
	// verificationToken and clears the token in one statement, returning the
	// user id. A token can only be consumed once.
	MarkEmailVerified(ctx context.Context, verificationToken string) (string, error)

	// SetResetToken stores a password reset token and its expiry.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// ResetPassword stores passwordHash and clears the reset token, but only
	// while the user still holds resetToken.
	ResetPassword(ctx context.Context, userID, resetToken, passwordHash string) error
}
