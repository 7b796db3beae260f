package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type handler struct {
	s *GRPCServer
}

var _ api.AuthServiceServer = (*handler)(nil)

func required(fields ...string) error {
	for _, f := range fields {
		if f == "" {
			return status.Error(codes.InvalidArgument, "missing required field")
		}
	}
	return nil
}

func tokenPair(p *services.TokenPair) *api.TokenPairResponse {
	return &api.TokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func ok(msg string) *api.MessageResponse {
	return &api.MessageResponse{Message: msg}
}

func (h *handler) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	if err := required(req.Email, req.Password); err != nil {
		return nil, err
	}

	id, err := h.s.users.Register(ctx, requestMeta(ctx), req.Email, req.Password)
	if err != nil {
		return nil, h.s.toStatus(ctx, "Register", err)
	}

	h.s.logger.Info(ctx, "Registered", "user_id", id)
	return &api.RegisterResponse{UserID: id, Message: "Registration successful. Please check your email to verify your account."}, nil
}

func (h *handler) VerifyEmail(ctx context.Context, req *api.VerifyEmailRequest) (*api.MessageResponse, error) {
	if err := required(req.Token); err != nil {
		return nil, err
	}
	if err := h.s.users.VerifyEmail(ctx, requestMeta(ctx), req.Token); err != nil {
		return nil, h.s.toStatus(ctx, "VerifyEmail", err)
	}
	return ok("Email verified successfully"), nil
}

func (h *handler) Login(ctx context.Context, req *api.LoginRequest) (*api.TokenPairResponse, error) {
	if err := required(req.Email, req.Password); err != nil {
		return nil, err
	}
	pair, err := h.s.users.Login(ctx, requestMeta(ctx), req.Email, req.Password)
	if err != nil {
		return nil, h.s.toStatus(ctx, "Login", err)
	}
	return tokenPair(pair), nil
}

func (h *handler) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.TokenPairResponse, error) {
	if err := required(req.RefreshToken); err != nil {
		return nil, err
	}
	pair, err := h.s.users.RefreshToken(ctx, requestMeta(ctx), req.RefreshToken)
	if err != nil {
		return nil, h.s.toStatus(ctx, "Refresh", err)
	}
	return tokenPair(pair), nil
}

func (h *handler) Logout(ctx context.Context, req *api.LogoutRequest) (*api.MessageResponse, error) {
	if err := required(req.RefreshToken); err != nil {
		return nil, err
	}
	if err := h.s.users.Logout(ctx, requestMeta(ctx), req.RefreshToken); err != nil {
		return nil, h.s.toStatus(ctx, "Logout", err)
	}
	return ok("Logged out successfully"), nil
}

func (h *handler) LogoutAll(ctx context.Context, _ *api.LogoutAllRequest) (*api.MessageResponse, error) {
	id, found := identityFromContext(ctx)
	if !found {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := h.s.users.LogoutAll(ctx, requestMeta(ctx), id); err != nil {
		return nil, h.s.toStatus(ctx, "LogoutAll", err)
	}
	return ok("Logged out from all devices"), nil
}

func (h *handler) ForgotPassword(ctx context.Context, req *api.ForgotPasswordRequest) (*api.MessageResponse, error) {
	if err := required(req.Email); err != nil {
		return nil, err
	}
	if err := h.s.users.ForgotPassword(ctx, requestMeta(ctx), req.Email); err != nil {
		return nil, h.s.toStatus(ctx, "ForgotPassword", err)
	}
	return ok("If the email exists, a reset link has been sent"), nil
}

func (h *handler) ResetPassword(ctx context.Context, req *api.ResetPasswordRequest) (*api.MessageResponse, error) {
	if err := required(req.Token, req.NewPassword); err != nil {
		return nil, err
	}
	if err := h.s.users.ResetPassword(ctx, requestMeta(ctx), req.Token, req.NewPassword); err != nil {
		return nil, h.s.toStatus(ctx, "ResetPassword", err)
	}
	return ok("Password reset successfully"), nil
}

func (h *handler) GoogleAuthURL(ctx context.Context, _ *api.GoogleAuthURLRequest) (*api.GoogleAuthURLResponse, error) {
	url, err := h.s.users.GoogleAuthURL(ctx)
	if err != nil {
		return nil, h.s.toStatus(ctx, "GoogleAuthURL", err)
	}
	return &api.GoogleAuthURLResponse{URL: url}, nil
}

func (h *handler) GoogleLogin(ctx context.Context, req *api.GoogleLoginRequest) (*api.TokenPairResponse, error) {
	if err := required(req.Code); err != nil {
		return nil, err
	}
	pair, err := h.s.users.GoogleLogin(ctx, requestMeta(ctx), req.Code, req.State)
	if err != nil {
		return nil, h.s.toStatus(ctx, "GoogleLogin", err)
	}
	return tokenPair(pair), nil
}

func (h *handler) Me(ctx context.Context, _ *api.MeRequest) (*api.UserResponse, error) {
	id, found := identityFromContext(ctx)
	if !found {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	u, err := h.s.users.Me(ctx, id)
	if err != nil {
		return nil, h.s.toStatus(ctx, "Me", err)
	}
	_, hasPassword := u.PasswordHash()
	return &api.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		HasPassword:   hasPassword,
		CreatedAt:     u.CreatedAt,
	}, nil
}

func (h *handler) ListAuditLogs(ctx context.Context, req *api.ListAuditLogsRequest) (*api.ListAuditLogsResponse, error) {
	id, found := identityFromContext(ctx)
	if !found {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	entries, err := h.s.users.ListAuditLogs(ctx, id, req.Limit)
	if err != nil {
		return nil, h.s.toStatus(ctx, "ListAuditLogs", err)
	}

	resp := &api.ListAuditLogsResponse{Entries: make([]api.AuditLogEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, api.AuditLogEntry{
			ID:        e.ID,
			Action:    string(e.Action),
			IPAddress: deref(e.IPAddress),
			UserAgent: deref(e.UserAgent),
			CreatedAt: e.CreatedAt,
		})
	}
	return resp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

