package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/BumpBTC/bumpcore/internal/api"
	"github.com/BumpBTC/bumpcore/internal/keystore"
	"github.com/BumpBTC/bumpcore/internal/models"
)

// AuthAPI is the slice of the gateway the session manager needs.
type AuthAPI interface {
	Login(ctx context.Context, identifier, password string) (*api.LoginResult, error)
	Signup(ctx context.Context, username, email, password string) (*api.SignupResult, error)
}

// Manager owns the authentication token lifecycle. The gateway reads the
// token straight from the keystore on every call and clears it on a 401, so
// an expired session shows up here as Restore returning nil.
type Manager struct {
	api   AuthAPI
	store *keystore.Store
	log   zerolog.Logger
}

// NewManager creates a session manager over the given gateway and keystore.
func NewManager(authAPI AuthAPI, store *keystore.Store, log zerolog.Logger) *Manager {
	return &Manager{
		api:   authAPI,
		store: store,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// Login exchanges credentials for a session and persists its token. The
// returned error carries the backend's user-displayable message when one is
// present.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*models.Session, error) {
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("identifier and password are required")
	}

	result, err := m.api.Login(ctx, identifier, password)
	if err != nil {
		m.log.Warn().Err(err).Msg("Login failed")
		return nil, err
	}

	session := models.Session{
		Token:     result.Token,
		Username:  identifier,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Put(session); err != nil {
		return nil, fmt.Errorf("login succeeded but token could not be persisted: %w", err)
	}

	m.log.Info().Str("identifier", identifier).Msg("Logged in")
	return &session, nil
}

// Signup registers a new account and starts its session.
func (m *Manager) Signup(ctx context.Context, username, email, password string) (*models.Session, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email, and password are required")
	}

	result, err := m.api.Signup(ctx, username, email, password)
	if err != nil {
		m.log.Warn().Err(err).Msg("Signup failed")
		return nil, err
	}

	session := models.Session{
		Token:     result.Token,
		Username:  result.User.Username,
		CreatedAt: time.Now().UTC(),
	}
	if session.Username == "" {
		session.Username = username
	}
	if err := m.store.Put(session); err != nil {
		return nil, fmt.Errorf("signup succeeded but token could not be persisted: %w", err)
	}

	m.log.Info().Str("username", session.Username).Msg("Account created")
	return &session, nil
}

// Restore returns the persisted session, or nil when there is none. Absence
// is the expected logged-out state, not a failure.
func (m *Manager) Restore() *models.Session {
	return m.store.Current()
}

// Logout discards the session. Calling it while logged out is a no-op.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.log.Info().Msg("Logged out")
	return nil
}
