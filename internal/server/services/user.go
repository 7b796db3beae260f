// Package services contains server-side business logic. UserService owns the
// whole identity lifecycle: registration and email verification, password
// login, refresh token rotation, logout, password reset and Google sign-in.
//
// Correctness under concurrency rests on the store: unique constraints and
// single-statement consume operations. The service keeps no shared mutable
// state of its own.
package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/audit"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/oauth"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, password string) (bool, error)
}

type TokenIssuer interface {
	Issue(id models.Identity) (string, error)
	Verify(token string) (*models.Identity, error)
}

// Mailer enqueues a message without waiting for delivery.
type Mailer interface {
	Dispatch(ctx context.Context, msg mailer.Message) bool
}

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.UserInfo, error)
}

type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, userID string, action models.AuditAction, meta models.RequestMeta)
	List(ctx context.Context, userID string, limit int) ([]models.AuditLogEntry, error)
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	hasher   PasswordHasher
	tokens   TokenIssuer
	newToken func(size int) (string, error)
	mail     Mailer
	audit    AuditRecorder
	google   OAuthProvider
	states   StateStore
	logger   logging.Logger
	now      func() time.Time

	appURL                       string
	refreshTokenValidityDuration time.Duration
	resetTokenValidityDuration   time.Duration

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*UserService)

func WithHasher(h PasswordHasher) Option       { return func(s *UserService) { s.hasher = h } }
func WithTokenIssuer(t TokenIssuer) Option     { return func(s *UserService) { s.tokens = t } }
func WithMailer(m Mailer) Option               { return func(s *UserService) { s.mail = m } }
func WithAuditRecorder(a AuditRecorder) Option { return func(s *UserService) { s.audit = a } }
func WithLogger(l logging.Logger) Option       { return func(s *UserService) { s.logger = l } }
func WithClock(now func() time.Time) Option    { return func(s *UserService) { s.now = now } }

// WithTokenGenerator replaces the source of opaque tokens (refresh,
// verification and reset).
func WithTokenGenerator(gen func(size int) (string, error)) Option {
	return func(s *UserService) { s.newToken = gen }
}

// WithGoogle enables Google sign-in. states may be nil, in which case the
// state parameter is not checked.
func WithGoogle(p OAuthProvider, states StateStore) Option {
	return func(s *UserService) {
		s.google = p
		s.states = states
	}
}

// NewUserService wires a UserService from server config. Collaborators not
// supplied through opts get defaults: argon2id hashing, an HS256 token codec
// keyed by cfg.SecretKey and an audit recorder over the database.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *UserService {
	s := &UserService{
		db:                           db,
		repomanager:                  m,
		newToken:                     common.MakeRandHexString,
		logger:                       logging.Nop{},
		now:                          time.Now,
		appURL:                       cfg.AppURL,
		refreshTokenValidityDuration: cfg.RefreshTokenValidity(),
		resetTokenValidityDuration:   config.PasswordResetValidity,
	}
	for _, o := range opts {
		o(s)
	}

	if s.hasher == nil {
		s.hasher = auth.NewArgon2Hasher(auth.DefaultArgon2Params)
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenCodec(cfg.SecretKey, cfg.AccessTokenValidityDuration)
	}
	if s.audit == nil {
		s.audit = audit.NewRecorder(m.AuditLogs(db), s.logger)
	}
	s.logger = s.logger.With("module", "users")

	return s
}

// issueSession mints an access token for id and stores a fresh refresh token
// through db, which may be a transaction.
func (s *UserService) issueSession(ctx context.Context, db dbx.DBTX, id models.Identity) (*TokenPair, error) {
	access, err := s.tokens.Issue(id)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.newToken(common.DefaultTokenSize)
	if err != nil {
		return nil, common.ErrInternal
	}

	expiresAt := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, id.UserID, refresh, expiresAt); err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// sendMail hands msg to the mailer. Delivery problems never fail the caller.
func (s *UserService) sendMail(ctx context.Context, msg mailer.Message) {
	if s.mail == nil {
		s.logger.Warn(ctx, "no mailer configured, email skipped", "to", msg.To, "subject", msg.Subject)
		return
	}
	if !s.mail.Dispatch(ctx, msg) {
		s.logger.Error(ctx, "email not queued", "to", msg.To, "subject", msg.Subject)
	}
}

// burnPasswordCheck spends roughly the time of a real password check so that
// a login for an unknown account is not noticeably faster.
func (s *UserService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		seed, err := s.newToken(common.DefaultTokenSize)
		if err != nil {
			return
		}
		s.dummyHash, _ = s.hasher.Hash(seed)
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(s.dummyHash, password)
	}
}
