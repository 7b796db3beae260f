// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for issuing and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Consume deletes the token and returns it together with its owner's
	// email. Of several concurrent calls for the same token at most one gets
	// the row; the others see common.ErrNotFound. Expiry is not checked.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByUser removes every token of userID and reports how many went.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
