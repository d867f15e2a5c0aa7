// Package session owns the client-side authentication state: which actor is
// signed in and the access/refresh tokens persisted for them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/ferretcontrol-console/api"
	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"github.com/jrsteele09/ferretcontrol-console/metrics"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
	"github.com/rs/zerolog/log"
)

// AuthAPI is the subset of the backend client the Manager needs.
type AuthAPI interface {
	ObtainToken(ctx context.Context, creds api.Credentials) (*api.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// Observer is told about every committed identity transition.
// identity is nil when the session ended.
type Observer interface {
	IdentityChanged(identity *Identity)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(identity *Identity)

func (f ObserverFunc) IdentityChanged(identity *Identity) { f(identity) }

// Manager is the single source of truth for "is there an authenticated actor, and who".
// It is the only writer of the token store.
//
// Login and Logout are not meant to race each other; the UI prevents a second
// submission while one is in flight. The Manager still serialises its own state
// changes and never holds its lock across a network call.
type Manager struct {
	auth    AuthAPI
	store   tokenstore.Store
	metrics metrics.Recorder

	mu            sync.Mutex // guards identity, observers, the session context and token store writes
	identity      *Identity
	observers     []Observer
	sessionCtx    context.Context // cancelled when the session ends
	sessionCancel context.CancelFunc

	refreshMu       sync.Mutex // one refresh in flight at a time
	refreshOnExpiry bool
	refreshTimeout  time.Duration
	expiryCheck     bool
	leeway          time.Duration
	nowFunc         func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRefreshOnExpiry makes Token exchange the refresh token when the access token is about to expire.
func WithRefreshOnExpiry(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.refreshOnExpiry = enabled
	}
}

// WithExpiryLeeway treats tokens expiring within d as already expired.
func WithExpiryLeeway(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.leeway = d
	}
}

// WithExpiryCheck makes IsAuthenticated also reject a stored access token whose exp claim has passed.
func WithExpiryCheck() ManagerOption {
	return func(m *Manager) {
		m.expiryCheck = true
	}
}

// WithRefreshTimeout bounds the refresh call made from Token.
func WithRefreshTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

func WithMetrics(r metrics.Recorder) ManagerOption {
	return func(m *Manager) {
		m.metrics = r
	}
}

// NewManager builds a Manager over store. The initial state is derived from the
// tokens already persisted there, so a session survives a process restart.
func NewManager(auth AuthAPI, store tokenstore.Store, options ...ManagerOption) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("[NewManager] auth API is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] token store is required")
	}

	m := &Manager{
		auth:           auth,
		store:          store,
		metrics:        metrics.Nop{},
		refreshTimeout: 10 * time.Second,
		nowFunc:        time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	access, ok, err := tokenstore.Lookup(store, tokenstore.AccessTokenKey)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewManager] read persisted session")
	}
	if ok {
		id := identityFromToken(access)
		m.identity = &id
		m.beginSession()
		log.Info().Str("username", id.Username).Msg("Restored persisted session")
	}

	return m, nil
}

// AddObserver registers o. If a session is already active, o is told about it
// straight away so late subscribers start in the right state.
func (m *Manager) AddObserver(o Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, o)
	current := m.identityCopy()
	m.mu.Unlock()

	if current != nil {
		o.IdentityChanged(current)
	}
}

// Login exchanges credentials for tokens. On success both tokens are persisted,
// the identity is set and observers are notified. On failure nothing changes and
// an *AuthError is returned.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return &AuthError{Username: username, Err: errors.ErrInvalidRequest}
	}

	pair, err := m.auth.ObtainToken(ctx, api.Credentials{Username: username, Password: password})
	if err != nil {
		m.metrics.RecordLogin(false)
		log.Warn().Err(err).Str("username", username).Msg("Login rejected")
		return &AuthError{Username: username, Err: err}
	}

	m.mu.Lock()
	if err := m.commitTokens(pair.Access, pair.Refresh); err != nil {
		m.mu.Unlock()
		m.metrics.RecordLogin(false)
		log.Err(err).Str("username", username).Msg("Login: failed to persist tokens")
		return &AuthError{Username: username, Err: err}
	}
	id := identityFromToken(pair.Access)
	id.Username = username
	m.identity = &id
	m.beginSession()
	observers, current := m.snapshot()
	m.mu.Unlock()

	m.metrics.RecordLogin(true)
	log.Info().Str("username", username).Msg("Login succeeded")
	notify(observers, current)
	return nil
}

// Logout ends the session. The backend is told on a best-effort basis; the local
// tokens are cleared whatever it answers. Calling Logout while anonymous does nothing.
func (m *Manager) Logout(ctx context.Context) {
	access, hasToken, err := tokenstore.Lookup(m.store, tokenstore.AccessTokenKey)
	if err != nil {
		log.Err(err).Msg("Logout: failed to read access token")
	}

	m.mu.Lock()
	active := m.identity != nil
	if hasToken || active {
		// abandon any refresh still running for this session
		m.endSession()
	}
	m.mu.Unlock()
	if !hasToken && !active {
		return
	}

	acknowledged := false
	if hasToken {
		if err := m.auth.Logout(ctx, access); err != nil {
			log.Err(err).Msg("Logout: backend notification failed")
		} else {
			acknowledged = true
		}
	}

	m.mu.Lock()
	m.clearTokens()
	m.identity = nil
	observers, _ := m.snapshot()
	m.mu.Unlock()

	m.metrics.RecordLogout(acknowledged)
	log.Info().Bool("backend_acknowledged", acknowledged).Msg("Logged out")
	notify(observers, nil)
}

// IsAuthenticated reports whether an access token is persisted. It does not
// validate the token unless the Manager was built WithExpiryCheck.
func (m *Manager) IsAuthenticated() bool {
	access, ok, err := tokenstore.Lookup(m.store, tokenstore.AccessTokenKey)
	if err != nil {
		log.Err(err).Msg("IsAuthenticated: failed to read access token")
		return false
	}
	if !ok {
		return false
	}
	if m.expiryCheck {
		if exp, hasExp := tokenExpiry(access); hasExp && !m.nowFunc().Before(exp) {
			return false
		}
	}
	return true
}

// Identity returns the current actor, ok is false when anonymous.
func (m *Manager) Identity() (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return Identity{}, false
	}
	return *m.identity, true
}

func (m *Manager) State() State {
	if _, ok := m.Identity(); ok {
		return Authenticated
	}
	return Anonymous
}

// commitTokens persists both tokens or neither. Caller holds m.mu.
func (m *Manager) commitTokens(access, refresh string) error {
	prevAccess, hadAccess, err := tokenstore.Lookup(m.store, tokenstore.AccessTokenKey)
	if err != nil {
		return err
	}

	if err := m.store.Set(tokenstore.AccessTokenKey, access); err != nil {
		return errors.Wrapf(err, "store access token")
	}
	if err := m.store.Set(tokenstore.RefreshTokenKey, refresh); err != nil {
		var rollback error
		if hadAccess {
			rollback = m.store.Set(tokenstore.AccessTokenKey, prevAccess)
		} else {
			rollback = m.store.Delete(tokenstore.AccessTokenKey)
		}
		return errors.Join(errors.Wrapf(err, "store refresh token"), rollback)
	}
	return nil
}

// beginSession replaces the session context. Caller holds m.mu.
func (m *Manager) beginSession() {
	m.endSession()
	m.sessionCtx, m.sessionCancel = context.WithCancel(context.Background())
}

// endSession cancels the session context. Caller holds m.mu.
func (m *Manager) endSession() {
	if m.sessionCancel != nil {
		m.sessionCancel()
	}
}

// session returns the current session context, nil when none was started.
func (m *Manager) session() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionCtx
}

// clearTokens removes both tokens. Caller holds m.mu.
func (m *Manager) clearTokens() {
	if err := m.store.Delete(tokenstore.AccessTokenKey); err != nil {
		log.Err(err).Msg("Failed to clear access token")
	}
	if err := m.store.Delete(tokenstore.RefreshTokenKey); err != nil {
		log.Err(err).Msg("Failed to clear refresh token")
	}
}

// snapshot copies the observer list and identity. Caller holds m.mu.
func (m *Manager) snapshot() ([]Observer, *Identity) {
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	return observers, m.identityCopy()
}

func (m *Manager) identityCopy() *Identity {
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

func notify(observers []Observer, identity *Identity) {
	for _, o := range observers {
		var id *Identity
		if identity != nil {
			cp := *identity
			id = &cp
		}
		o.IdentityChanged(id)
	}
}
