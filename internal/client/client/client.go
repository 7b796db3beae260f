// Package client talks to the gophauth server over gRPC. GRPCClient keeps the
// current session in memory, attaches the access token to protected calls and
// rotates the session once when the server rejects an expired access token.
package client

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// Profile is the signed-in user as reported by the server.
type Profile struct {
	ID            string
	Email         string
	EmailVerified bool
	HasPassword   bool
	CreatedAt     time.Time
}

type AuditEntry struct {
	Action    string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

type Client interface {
	Close() error
	LoggedIn() bool

	Register(ctx context.Context, email string, password []byte) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email string, password []byte) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword []byte) error
	GoogleAuthURL(ctx context.Context) (string, error)
	GoogleLogin(ctx context.Context, code, state string) error
	Me(ctx context.Context) (*Profile, error)
	AuditLogs(ctx context.Context, limit int) ([]AuditEntry, error)
}

var _ Client = (*GRPCClient)(nil)

func toProfile(u *api.UserResponse) *Profile {
	return &Profile{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		HasPassword:   u.HasPassword,
		CreatedAt:     u.CreatedAt,
	}
}
