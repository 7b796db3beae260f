// Package oauthaccounts stores links between external provider identities
// and local users.
package oauthaccounts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts a link. A second link for the same (provider,
	// provider account id) fails with common.ErrAlreadyExists.
	Create(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error)

	// FindUser returns the local user linked to the external identity, or
	// common.ErrNotFound.
	FindUser(ctx context.Context, provider, providerAccountID string) (*models.User, error)
}
