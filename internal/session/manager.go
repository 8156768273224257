package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"backend/internal/model"
)

// State is the explicit session lifecycle. The manager starts in
// StateRestoring so that no access decision can be made against an
// absence of user before restoration has completed.
type State int

const (
	StateRestoring State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// LoginResult is what the authentication service returns on success.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Session      model.Session
}

// Authenticator is the client side of the external authentication
// service plus local validation of the access tokens it issues.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	Validate(token string) (*model.Session, error)
}

// Manager holds at most one active session for a connected shell (one
// browser tab). Mutations are serialized; a login overlapping a pending
// one is rejected rather than interleaved.
type Manager struct {
	auth   Authenticator
	store  TokenStore
	ttl    time.Duration
	logger *zap.Logger

	mu            sync.Mutex
	state         State
	current       *model.Session
	accessToken   string
	refreshToken  string
	durableToken  string
	loginInFlight bool
}

// NewManager builds a manager in the restoring state.
func NewManager(auth Authenticator, store TokenStore, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{auth: auth, store: store, ttl: ttl, logger: logger, state: StateRestoring}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session, or nil. Synchronous, no network.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	sess := *m.current
	return &sess
}

// AccessToken returns the access token of the active session, if any.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// RefreshToken returns the refresh token issued at login, if any.
// Restored sessions carry none; they renew through the durable token.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}

// Login delegates credential verification to the authentication
// service and, on success, stores the session and persists a durable
// token for reload survival. On failure state is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.Session, string, error) {
	m.mu.Lock()
	if m.loginInFlight {
		m.mu.Unlock()
		return nil, "", ErrLoginInProgress
	}
	m.loginInFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loginInFlight = false
		m.mu.Unlock()
	}()

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	durable, rec, secret, err := MintToken(res.Session, m.ttl)
	if err != nil {
		return nil, "", err
	}
	if err := m.store.Save(ctx, rec, secret); err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	sess := res.Session
	m.current = &sess
	m.accessToken = res.AccessToken
	m.refreshToken = res.RefreshToken
	m.durableToken = durable
	m.mu.Unlock()

	m.logger.Info("session established",
		zap.String("user_id", res.Session.UserID.String()),
		zap.String("role", string(res.Session.Role)))

	out := res.Session
	return &out, durable, nil
}

// Logout clears the session and the persisted token. Idempotent:
// calling it twice leaves the same absent state with no error.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.accessToken
	durable := m.durableToken
	m.state = StateAnonymous
	m.current = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.durableToken = ""
	m.mu.Unlock()

	if durable != "" {
		if err := m.store.Clear(ctx, durable); err != nil {
			m.logger.Warn("clear persisted token", zap.Error(err))
		}
	}
	if token != "" {
		if err := m.auth.Logout(ctx, token); err != nil {
			m.logger.Warn("auth service logout", zap.Error(err))
		}
	}
	return nil
}

// RestoreAccess rehydrates the session from a presented access token.
// Any failure degrades to the anonymous state; callers never see an
// error, only the resulting state.
func (m *Manager) RestoreAccess(token string) State {
	if token == "" {
		return m.finishRestore(nil, "", "")
	}
	sess, err := m.auth.Validate(token)
	if err != nil {
		m.logger.Debug("session restore", zap.Error((&RestoreError{Cause: err})))
		return m.finishRestore(nil, "", "")
	}
	return m.finishRestore(sess, token, "")
}

// RestoreDurable rehydrates from the persisted token store, used when
// no bearer token accompanies the request (page reload).
func (m *Manager) RestoreDurable(ctx context.Context, durable string) State {
	if durable == "" {
		return m.finishRestore(nil, "", "")
	}
	rec, err := m.store.Load(ctx, durable)
	if err != nil {
		m.logger.Debug("session restore", zap.Error((&RestoreError{Cause: err})))
		return m.finishRestore(nil, "", "")
	}
	sess := rec.Session()
	return m.finishRestore(&sess, "", durable)
}

func (m *Manager) finishRestore(sess *model.Session, access, durable string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess == nil || sess.Expired(time.Now()) {
		m.state = StateAnonymous
		m.current = nil
		m.accessToken = ""
		m.refreshToken = ""
		m.durableToken = ""
		return m.state
	}
	m.state = StateAuthenticated
	m.current = sess
	m.accessToken = access
	m.durableToken = durable
	return m.state
}
