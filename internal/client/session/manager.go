// Package session owns the client's notion of who is logged in. It keeps the
// credential and the user profile together, persists them through a
// store.Store, and is the credential source the gateway consults on every
// request.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/client/gateway"
	"github.com/atinyakov/ProjectMarket/internal/client/store"
	"github.com/atinyakov/ProjectMarket/internal/models"
)

// logoutTimeout bounds the best-effort remote logout.
const logoutTimeout = 5 * time.Second

// ErrSessionChanged means the session was changed by another operation while
// a login was in flight; the login result was discarded.
var ErrSessionChanged = errors.New("session changed during login")

// API is the part of the gateway the manager delegates to.
type API interface {
	Login(ctx context.Context, email, password string) (json.RawMessage, error)
	Register(ctx context.Context, r gateway.RegisterRequest) (gateway.Document, error)
	Logout(ctx context.Context) error
}

// State is a snapshot of the session.
type State struct {
	// Profile is the logged-in user, zero when anonymous.
	Profile models.UserProfile
	// Authenticated is true when a credential is held.
	Authenticated bool
	// Loading is true until Restore has run.
	Loading bool
}

// Manager is the single source of truth for the current session. It is safe
// for concurrent use. Network calls are never made while holding the lock.
type Manager struct {
	store store.Store
	api   API
	log   *zap.Logger

	mu      sync.Mutex
	token   string
	profile models.UserProfile
	loading bool
	// epoch increases on every transition; an in-flight login started in an
	// older epoch is discarded.
	epoch  uint64
	nextID int
	subs   map[int]func(State)
}

// NewManager returns a Manager in the loading state. Call Restore once
// before use.
func NewManager(st store.Store, api API, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:   st,
		api:     api,
		log:     log,
		loading: true,
		subs:    make(map[int]func(State)),
	}
}

// Restore loads the persisted session. A missing, partial or unreadable
// record leaves the manager anonymous with the store cleared. Only the first
// call has any effect.
func (m *Manager) Restore() {
	m.mu.Lock()
	if !m.loading {
		m.mu.Unlock()
		return
	}

	rec, err := m.store.Load()
	switch {
	case err == nil:
		m.token, m.profile = rec.Token, rec.Profile
		m.log.Debug("session restored", zap.String("email", rec.Profile.Email))
	case errors.Is(err, store.ErrNoRecord):
	default:
		m.log.Warn("discarding stored session", zap.Error(err))
		if err := m.clearLocked(); err != nil {
			m.log.Warn("failed to clear stored session", zap.Error(err))
		}
	}
	m.loading = false
	m.epoch++
	st := m.stateLocked()
	m.mu.Unlock()

	m.notify(st)
}

// Login exchanges credentials for a session and persists it. It returns the
// backend's raw reply. On any failure the previous session is kept.
func (m *Manager) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	raw, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	rec, err := normalizeLogin(raw)
	if err != nil {
		m.log.Warn("unusable login response", zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.log.Info("discarding login result, session changed meanwhile")
		return nil, ErrSessionChanged
	}
	if err := m.store.Save(rec); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.token, m.profile = rec.Token, rec.Profile
	m.epoch++
	st := m.stateLocked()
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("email", rec.Profile.Email), zap.String("role", string(rec.Profile.Role)))
	m.notify(st)
	return raw, nil
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, name, email, password string, role models.Role) (gateway.Document, error) {
	return m.api.Register(ctx, gateway.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
}

// Logout revokes the token remotely on a best-effort basis, then always
// clears the session. The returned error only reports a failure to clear the
// local store; the in-memory session is anonymous either way.
func (m *Manager) Logout(ctx context.Context) error {
	if m.Token() != "" {
		rctx, cancel := context.WithTimeout(ctx, logoutTimeout)
		if err := m.api.Logout(rctx); err != nil {
			m.log.Warn("remote logout failed", zap.Error(err))
		}
		cancel()
	}

	m.mu.Lock()
	err := m.clearLocked()
	m.epoch++
	st := m.stateLocked()
	m.mu.Unlock()

	m.log.Info("logged out")
	m.notify(st)
	return err
}

// Token returns the current credential, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Invalidate ends the session if token is still the current credential. A
// rejection of an older token does not touch a newer session.
func (m *Manager) Invalidate(token string) {
	m.mu.Lock()
	if token == "" || token != m.token {
		m.mu.Unlock()
		return
	}
	if err := m.clearLocked(); err != nil {
		m.log.Warn("failed to clear stored session", zap.Error(err))
	}
	m.epoch++
	st := m.stateLocked()
	m.mu.Unlock()

	m.log.Info("session invalidated by backend")
	m.notify(st)
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Subscribe registers fn to be called with the new state after every
// transition. It returns a function that removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// clearLocked drops the in-memory session and the stored record.
func (m *Manager) clearLocked() error {
	m.token, m.profile = "", models.UserProfile{}
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Manager) stateLocked() State {
	return State{Profile: m.profile, Authenticated: m.token != "", Loading: m.loading}
}

func (m *Manager) notify(st State) {
	m.mu.Lock()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
