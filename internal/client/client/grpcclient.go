package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn   *grpc.ClientConn
	client *api.AuthServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AuthorizationHeaderName, "Bearer "+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// accessTokenInterceptor attaches the current access token. When the server
// reports it invalid and a refresh token is held, the session is rotated and
// the call retried once.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()
	if access == "" {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || refresh == "" {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrInvalidAccessToken.Error() {
		return err
	}

	if rerr := s.Refresh(ctx); rerr != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// NewGRPCClient connects to endpoint. Extra dial options are appended after
// the defaults, so tests can swap the dialer.
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewAuthServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) LoggedIn() bool {
	access, _ := s.tokens()
	return access != ""
}

func (s *GRPCClient) Register(ctx context.Context, email string, password []byte) (string, error) {
	resp, err := s.client.Register(ctx, &api.RegisterRequest{Email: email, Password: string(password)})
	if err != nil {
		return "", mapError(err)
	}
	return resp.UserID, nil
}

func (s *GRPCClient) VerifyEmail(ctx context.Context, token string) error {
	_, err := s.client.VerifyEmail(ctx, &api.VerifyEmailRequest{Token: token})
	return mapError(err)
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) error {
	resp, err := s.client.Login(ctx, &api.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// Refresh rotates the held refresh token. A rejected token ends the local
// session.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	resp, err := s.client.Refresh(ctx, &api.RefreshRequest{RefreshToken: refresh})
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			s.setTokens("", "")
		}
		return mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Logout(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	_, err := s.client.Logout(ctx, &api.LogoutRequest{RefreshToken: refresh})
	s.setTokens("", "")
	return mapError(err)
}

func (s *GRPCClient) LogoutAll(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	if _, err := s.client.LogoutAll(ctx, &api.LogoutAllRequest{}); err != nil {
		return mapError(err)
	}
	s.setTokens("", "")
	return nil
}

func (s *GRPCClient) ForgotPassword(ctx context.Context, email string) error {
	_, err := s.client.ForgotPassword(ctx, &api.ForgotPasswordRequest{Email: email})
	return mapError(err)
}

func (s *GRPCClient) ResetPassword(ctx context.Context, token string, newPassword []byte) error {
	_, err := s.client.ResetPassword(ctx, &api.ResetPasswordRequest{Token: token, NewPassword: string(newPassword)})
	return mapError(err)
}

func (s *GRPCClient) GoogleAuthURL(ctx context.Context) (string, error) {
	resp, err := s.client.GoogleAuthURL(ctx, &api.GoogleAuthURLRequest{})
	if err != nil {
		return "", mapError(err)
	}
	return resp.URL, nil
}

func (s *GRPCClient) GoogleLogin(ctx context.Context, code, state string) error {
	resp, err := s.client.GoogleLogin(ctx, &api.GoogleLoginRequest{Code: code, State: state})
	if err != nil {
		return mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Me(ctx context.Context) (*Profile, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	resp, err := s.client.Me(ctx, &api.MeRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return toProfile(resp), nil
}

func (s *GRPCClient) AuditLogs(ctx context.Context, limit int) ([]AuditEntry, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	resp, err := s.client.ListAuditLogs(ctx, &api.ListAuditLogsRequest{Limit: limit})
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]AuditEntry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		out = append(out, AuditEntry{Action: e.Action, IPAddress: e.IPAddress, UserAgent: e.UserAgent, CreatedAt: e.CreatedAt})
	}
	return out, nil
}

// mapError turns transport failures into the package sentinels. Other
// statuses keep the server's message.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return errors.New(st.Message())
	}
}
