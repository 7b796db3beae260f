package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/oauth"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/oauthaccounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// memStore is an in-memory identity store. Every operation holds the mutex,
// which gives the same single-winner behaviour the Postgres repositories get
// from constraints and row locks.
//
// A password-less user stays pending until its first link is inserted, the
// way the OAuth sign-up transaction commits both rows together. Pending users
// are invisible to lookups, and a Create for the same email waits for the
// pending one to be linked or rolled back, like an insert blocked on a unique
// index.
type memStore struct {
	mu      sync.Mutex
	cond    *sync.Cond
	users   map[string]*models.User
	pending map[string]bool
	refresh map[string]models.RefreshToken
	links   map[string]string
	audit   []models.AuditLogEntry

	// One-shot hooks, run outside the lock before a user or link is inserted.
	beforeUserCreate func()
	beforeLinkCreate func()
}

func newMemStore() *memStore {
	m := &memStore{
		users:   map[string]*models.User{},
		pending: map[string]bool{},
		refresh: map[string]models.RefreshToken{},
		links:   map[string]string{},
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *memStore) Users(dbx.DBTX) users.Repository                 { return memUsers{m} }
func (m *memStore) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memRefresh{m} }
func (m *memStore) OAuthAccounts(dbx.DBTX) oauthaccounts.Repository { return memLinks{m} }
func (m *memStore) AuditLogs(dbx.DBTX) auditlogs.Repository         { return memAudit{m} }

// takeHook clears *hook and returns its previous value.
func (m *memStore) takeHook(hook *func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := *hook
	*hook = nil
	return h
}

func (m *memStore) userByEmail(email string) *models.User {
	if u := m.anyUserByEmail(email); u != nil && !m.pending[u.ID] {
		return u
	}
	return nil
}

func (m *memStore) anyUserByEmail(email string) *models.User {
	for _, u := range m.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (m *memStore) tokensOf(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.refresh {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memStore) hasRefresh(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.refresh[token]
	return ok
}

func (m *memStore) user(t *testing.T, email string) models.User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userByEmail(email)
	require.NotNil(t, u, "user %s not found", email)
	return *u
}

func (m *memStore) actions(userID string) []models.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditAction
	for _, e := range m.audit {
		if e.UserID == userID {
			out = append(out, e.Action)
		}
	}
	return out
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if hook := r.m.takeHook(&r.m.beforeUserCreate); hook != nil {
		hook()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for {
		existing := r.m.anyUserByEmail(u.Email)
		if existing == nil {
			break
		}
		if !r.m.pending[existing.ID] {
			return nil, common.ErrAlreadyExists
		}
		r.m.cond.Wait()
	}
	c := *u
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()
	r.m.users[c.ID] = &c
	if _, ok := c.Credentials.(models.ExternalOnly); ok {
		r.m.pending[c.ID] = true
	}
	out := c
	return &out, nil
}

func (r memUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if !r.m.pending[u.ID] && match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) GetByResetToken(_ context.Context, token string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (r memUsers) MarkEmailVerified(_ context.Context, token string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.EmailVerified = true
			u.VerificationToken = nil
			return u.ID, nil
		}
	}
	return "", common.ErrNotFound
}

func (r memUsers) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (r memUsers) ResetPassword(_ context.Context, userID, token, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok || u.ResetToken == nil || *u.ResetToken != token {
		return common.ErrNotFound
	}
	u.Credentials = models.PasswordCredentials{Hash: hash}
	u.ResetToken = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

type memRefresh struct{ m *memStore }

func (r memRefresh) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[userID]; !ok {
		return common.ErrNotFound
	}
	r.m.refresh[token] = models.RefreshToken{Token: token, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (r memRefresh) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.refresh[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.m.refresh, token)
	t.Email = r.m.users[t.UserID].Email
	return &t, nil
}

func (r memRefresh) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for k, t := range r.m.refresh {
		if t.UserID == userID {
			delete(r.m.refresh, k)
			n++
		}
	}
	return n, nil
}

type memLinks struct{ m *memStore }

func (r memLinks) Create(_ context.Context, a *models.OAuthAccount) (*models.OAuthAccount, error) {
	if hook := r.m.takeHook(&r.m.beforeLinkCreate); hook != nil {
		hook()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := a.Provider + "|" + a.ProviderAccountID
	if _, ok := r.m.links[key]; ok {
		if r.m.pending[a.UserID] {
			// the sign-up transaction rolls back
			delete(r.m.users, a.UserID)
			delete(r.m.pending, a.UserID)
			r.m.cond.Broadcast()
		}
		return nil, common.ErrAlreadyExists
	}
	r.m.links[key] = a.UserID
	if r.m.pending[a.UserID] {
		delete(r.m.pending, a.UserID)
		r.m.cond.Broadcast()
	}
	return a, nil
}

func (r memLinks) FindUser(_ context.Context, provider, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	userID, ok := r.m.links[provider+"|"+id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *r.m.users[userID]
	return &c, nil
}

type memAudit struct{ m *memStore }

func (r memAudit) Create(_ context.Context, e *models.AuditLogEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	r.m.audit = append(r.m.audit, *e)
	return nil
}

func (r memAudit) ListByUser(_ context.Context, userID string, limit int) ([]models.AuditLogEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.AuditLogEntry
	for i := len(r.m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if r.m.audit[i].UserID == userID {
			out = append(out, r.m.audit[i])
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	reject bool
}

func (f *fakeMailer) Dispatch(_ context.Context, msg mailer.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeMailer) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

type fakeProvider struct {
	info *oauth.UserInfo
	err  error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (f *fakeProvider) Exchange(context.Context, string) (*oauth.UserInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.info
	return &c, nil
}

// testClock is a settable clock shared with the service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc    *UserService
	store  *memStore
	mail   *fakeMailer
	clock  *testClock
	google *fakeProvider
	states *oauth.MemoryStateStore
}

var testHasherParams = auth.Argon2Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// newTxDB opens an in-memory sqlite database. The fakes ignore the handle;
// it only gives dbx.WithTx real transactions to begin and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newFixture(t *testing.T, extra ...Option) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.AppURL = "https://app.example"

	f := &fixture{
		store:  newMemStore(),
		mail:   &fakeMailer{},
		clock:  &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		google: &fakeProvider{info: &oauth.UserInfo{ProviderAccountID: "g-1", Email: "gina@example.com"}},
		states: oauth.NewMemoryStateStore(10 * time.Minute),
	}

	codec := auth.NewTokenCodec(cfg.SecretKey, cfg.AccessTokenValidityDuration)

	opts := []Option{
		WithHasher(auth.NewArgon2Hasher(testHasherParams)),
		WithTokenIssuer(codec),
		WithMailer(f.mail),
		WithClock(f.clock.Now),
		WithLogger(logging.Nop{}),
		WithGoogle(f.google, f.states),
	}
	opts = append(opts, extra...)

	f.svc = NewUserService(newTxDB(t), f.store, cfg, opts...)
	return f
}

// registerVerified registers email/password and verifies it.
func (f *fixture) registerVerified(t *testing.T, email, password string) string {
	t.Helper()
	ctx := context.Background()

	id, err := f.svc.Register(ctx, models.RequestMeta{}, email, password)
	require.NoError(t, err)

	u := f.store.user(t, email)
	require.NotNil(t, u.VerificationToken)
	require.NoError(t, f.svc.VerifyEmail(ctx, models.RequestMeta{}, *u.VerificationToken))
	return id
}

func sortedActions(a []models.AuditAction) []string {
	out := make([]string, len(a))
	for i, x := range a {
		out[i] = string(x)
	}
	sort.Strings(out)
	return out
}
