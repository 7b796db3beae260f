package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authed(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestRegister_ReturnsUserID(t *testing.T) {
	users := &fakeUsers{}
	c := startServer(t, users)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-forwarded-for", "203.0.113.7, 10.0.0.1")
	resp, err := c.Register(ctx, &api.RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	assert.Equal(t, "user-1", resp.UserID)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, []string{"alice@example.com", "password123"}, users.lastArgs)
	assert.Equal(t, "203.0.113.7", users.lastMeta.IPAddress)
	assert.NotEmpty(t, users.lastMeta.UserAgent)
}

func TestRegister_Duplicate(t *testing.T) {
	c := startServer(t, &fakeUsers{err: common.ErrAlreadyExists})

	_, err := c.Register(context.Background(), &api.RegisterRequest{Email: "a@b.c", Password: "password123"})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.AlreadyExists, st.Code())
	assert.Equal(t, "email already registered", st.Message())
}

func TestAlreadyExists_OutsideRegisterKeepsGenericMessage(t *testing.T) {
	c := startServer(t, &fakeUsers{err: common.ErrAlreadyExists})

	_, err := c.Login(context.Background(), &api.LoginRequest{Email: "a@b.c", Password: "pw"})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.AlreadyExists, st.Code())
	assert.Equal(t, common.ErrAlreadyExists.Error(), st.Message())
}

func TestHandlers_RejectMissingFields(t *testing.T) {
	users := &fakeUsers{}
	c := startServer(t, users)
	ctx := context.Background()

	calls := map[string]func() error{
		"Register": func() error {
			_, err := c.Register(ctx, &api.RegisterRequest{Email: "a@b.c"})
			return err
		},
		"VerifyEmail": func() error {
			_, err := c.VerifyEmail(ctx, &api.VerifyEmailRequest{})
			return err
		},
		"Login": func() error {
			_, err := c.Login(ctx, &api.LoginRequest{Password: "x"})
			return err
		},
		"Refresh": func() error {
			_, err := c.Refresh(ctx, &api.RefreshRequest{})
			return err
		},
		"Logout": func() error {
			_, err := c.Logout(ctx, &api.LogoutRequest{})
			return err
		},
		"ForgotPassword": func() error {
			_, err := c.ForgotPassword(ctx, &api.ForgotPasswordRequest{})
			return err
		},
		"ResetPassword": func() error {
			_, err := c.ResetPassword(ctx, &api.ResetPasswordRequest{Token: "t"})
			return err
		},
		"GoogleLogin": func() error {
			_, err := c.GoogleLogin(ctx, &api.GoogleLoginRequest{State: "s"})
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, codes.InvalidArgument, status.Code(call()))
		})
	}
	assert.Nil(t, users.lastArgs, "service must not be called")
}

func TestLogin_ReturnsPair(t *testing.T) {
	c := startServer(t, &fakeUsers{pair: &services.TokenPair{AccessToken: "a1", RefreshToken: "r1"}})

	resp, err := c.Login(context.Background(), &api.LoginRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.AccessToken)
	assert.Equal(t, "r1", resp.RefreshToken)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{common.ErrEmailNotVerified, codes.PermissionDenied},
		{common.ErrInvalidRefreshToken, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{common.ErrInvalidToken, codes.Unauthenticated},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrOAuthExchangeFailed, codes.Unauthenticated},
		{common.ErrOAuthNotConfigured, codes.FailedPrecondition},
		{common.ErrNotFound, codes.NotFound},
		{errors.New("connection reset"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			c := startServer(t, &fakeUsers{err: tt.err})
			_, err := c.Login(context.Background(), &api.LoginRequest{Email: "a@b.c", Password: "pw"})
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestErrorMapping_HidesInternalDetails(t *testing.T) {
	c := startServer(t, &fakeUsers{err: errors.New("pq: password authentication failed")})

	_, err := c.ResetPassword(context.Background(), &api.ResetPasswordRequest{Token: "t", NewPassword: "password123"})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal error", st.Message())
}

func TestLogoutAll_UsesTokenIdentity(t *testing.T) {
	users := &fakeUsers{}
	c := startServer(t, users)

	_, err := c.LogoutAll(authed("good"), &api.LogoutAllRequest{})
	require.NoError(t, err)
	assert.Equal(t, testIdentity, users.lastIdentity)
}

func TestProtectedMethods_RequireToken(t *testing.T) {
	c := startServer(t, &fakeUsers{})

	_, err := c.Me(context.Background(), &api.MeRequest{})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, "missing token", st.Message())

	_, err = c.ListAuditLogs(authed("forged"), &api.ListAuditLogsRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = c.LogoutAll(authed("forged"), &api.LogoutAllRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMe_ReturnsProfile(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	users := &fakeUsers{user: &models.User{
		ID:            "user-1",
		Email:         "alice@example.com",
		Credentials:   models.ExternalOnly{},
		EmailVerified: true,
		CreatedAt:     created,
	}}
	c := startServer(t, users)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "access_token", "good")
	resp, err := c.Me(ctx, &api.MeRequest{})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", resp.Email)
	assert.True(t, resp.EmailVerified)
	assert.False(t, resp.HasPassword)
	assert.True(t, created.Equal(resp.CreatedAt))
}

func TestListAuditLogs_ConvertsEntries(t *testing.T) {
	ip := "198.51.100.1"
	users := &fakeUsers{logs: []models.AuditLogEntry{
		{ID: "01B", Action: models.AuditLogin, IPAddress: &ip},
		{ID: "01A", Action: models.AuditRegister},
	}}
	c := startServer(t, users)

	resp, err := c.ListAuditLogs(authed("good"), &api.ListAuditLogsRequest{Limit: 5})
	require.NoError(t, err)

	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "LOGIN", resp.Entries[0].Action)
	assert.Equal(t, ip, resp.Entries[0].IPAddress)
	assert.Empty(t, resp.Entries[1].IPAddress)
	assert.Equal(t, 5, users.lastLimit)
}

func TestGoogleAuthURL_NotConfigured(t *testing.T) {
	c := startServer(t, &fakeUsers{err: common.ErrOAuthNotConfigured})

	_, err := c.GoogleAuthURL(context.Background(), &api.GoogleAuthURLRequest{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGoogleLogin_PassesCodeAndState(t *testing.T) {
	users := &fakeUsers{pair: &services.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	c := startServer(t, users)

	_, err := c.GoogleLogin(context.Background(), &api.GoogleLoginRequest{Code: "c1", State: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "s1"}, users.lastArgs)
}
