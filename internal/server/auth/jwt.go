// Package auth holds the credential primitives of the server: the signed
// access token codec and the password hasher.
package auth

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity of the token holder next to the registered
// claims. The JSON names are part of the token contract.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// TokenCodec issues and verifies HS256 access tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secretKey string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secretKey), ttl: ttl, now: time.Now}
}

// Issue signs a token for id that expires after the codec's ttl.
func (c *TokenCodec) Issue(id models.Identity) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UserID: id.UserID,
		Email:  id.Email,
	})

	return token.SignedString(c.secret)
}

// Verify checks signature, algorithm and expiry. Every failure is reported
// as common.ErrInvalidAccessToken.
func (c *TokenCodec) Verify(tokenString string) (*models.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidAccessToken
	}
	if claims.UserID == "" {
		return nil, common.ErrInvalidAccessToken
	}

	return &models.Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
