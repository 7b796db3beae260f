package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// fakeUsers records the arguments of the last call and returns canned results.
type fakeUsers struct {
	err  error
	pair *services.TokenPair
	user *models.User
	logs []models.AuditLogEntry

	lastMeta     models.RequestMeta
	lastIdentity models.Identity
	lastArgs     []string
	lastLimit    int
}

func (f *fakeUsers) record(meta models.RequestMeta, args ...string) {
	f.lastMeta = meta
	f.lastArgs = args
}

func (f *fakeUsers) Register(_ context.Context, meta models.RequestMeta, email, password string) (string, error) {
	f.record(meta, email, password)
	if f.err != nil {
		return "", f.err
	}
	return "user-1", nil
}

func (f *fakeUsers) VerifyEmail(_ context.Context, meta models.RequestMeta, token string) error {
	f.record(meta, token)
	return f.err
}

func (f *fakeUsers) Login(_ context.Context, meta models.RequestMeta, email, password string) (*services.TokenPair, error) {
	f.record(meta, email, password)
	return f.pair, f.err
}

func (f *fakeUsers) RefreshToken(_ context.Context, meta models.RequestMeta, token string) (*services.TokenPair, error) {
	f.record(meta, token)
	return f.pair, f.err
}

func (f *fakeUsers) Logout(_ context.Context, meta models.RequestMeta, token string) error {
	f.record(meta, token)
	return f.err
}

func (f *fakeUsers) LogoutAll(_ context.Context, meta models.RequestMeta, id models.Identity) error {
	f.record(meta)
	f.lastIdentity = id
	return f.err
}

func (f *fakeUsers) ForgotPassword(_ context.Context, meta models.RequestMeta, email string) error {
	f.record(meta, email)
	return f.err
}

func (f *fakeUsers) ResetPassword(_ context.Context, meta models.RequestMeta, token, newPassword string) error {
	f.record(meta, token, newPassword)
	return f.err
}

func (f *fakeUsers) GoogleAuthURL(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://accounts.example.com/auth?state=s1", nil
}

func (f *fakeUsers) GoogleLogin(_ context.Context, meta models.RequestMeta, code, state string) (*services.TokenPair, error) {
	f.record(meta, code, state)
	return f.pair, f.err
}

func (f *fakeUsers) Me(_ context.Context, id models.Identity) (*models.User, error) {
	f.lastIdentity = id
	return f.user, f.err
}

func (f *fakeUsers) ListAuditLogs(_ context.Context, id models.Identity, limit int) ([]models.AuditLogEntry, error) {
	f.lastIdentity = id
	f.lastLimit = limit
	return f.logs, f.err
}

// fakeVerifier accepts exactly one token.
type fakeVerifier struct {
	token string
	id    models.Identity
}

func (v fakeVerifier) Verify(token string) (*models.Identity, error) {
	if token != v.token {
		return nil, common.ErrInvalidAccessToken
	}
	id := v.id
	return &id, nil
}

var testIdentity = models.Identity{UserID: "user-1", Email: "alice@example.com"}

// startServer runs a GRPCServer over bufconn and returns a connected client.
func startServer(t *testing.T, users UserService) *api.AuthServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logging.Nop{}, users, fakeVerifier{token: "good", id: testIdentity})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("server did not stop")
		}
	})

	return api.NewAuthServiceClient(conn)
}
