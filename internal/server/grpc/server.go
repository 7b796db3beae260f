// Package grpc serves gophauth.v1.AuthService over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// UserService is the part of services.UserService the transport needs.
type UserService interface {
	Register(ctx context.Context, meta models.RequestMeta, email, password string) (string, error)
	VerifyEmail(ctx context.Context, meta models.RequestMeta, token string) error
	Login(ctx context.Context, meta models.RequestMeta, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, meta models.RequestMeta, token string) (*services.TokenPair, error)
	Logout(ctx context.Context, meta models.RequestMeta, token string) error
	LogoutAll(ctx context.Context, meta models.RequestMeta, id models.Identity) error
	ForgotPassword(ctx context.Context, meta models.RequestMeta, email string) error
	ResetPassword(ctx context.Context, meta models.RequestMeta, token, newPassword string) error
	GoogleAuthURL(ctx context.Context) (string, error)
	GoogleLogin(ctx context.Context, meta models.RequestMeta, code, state string) (*services.TokenPair, error)
	Me(ctx context.Context, id models.Identity) (*models.User, error)
	ListAuditLogs(ctx context.Context, id models.Identity, limit int) ([]models.AuditLogEntry, error)
}

// TokenVerifier resolves an access token to the caller's identity.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

type GRPCServer struct {
	address      string
	users        UserService
	tokens       TokenVerifier
	logger       logging.Logger
	interceptors []grpc.UnaryServerInterceptor
	health       *health.Server
}

// NewGRPCServer builds the server. extra interceptors run before the access
// token check, in the given order.
func NewGRPCServer(address string, l logging.Logger, users UserService, tokens TokenVerifier, extra ...grpc.UnaryServerInterceptor) *GRPCServer {
	return &GRPCServer{
		address:      address,
		users:        users,
		tokens:       tokens,
		logger:       l.With("module", "grpc_server"),
		interceptors: extra,
		health:       health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	chain := append(append([]grpc.UnaryServerInterceptor{}, s.interceptors...), s.accessTokenInterceptor)

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)

	api.RegisterAuthServiceServer(srv, &handler{s: s})
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
