package auth

import (
	"context"
	"errors"
	"time"

	"teamgate.org/internal/directory"
)

// Manager establishes and tears down authenticated identity. Authentication
// always gates on account verification: a valid token held by an unverified
// user is rejected with ErrUnverified.
type Manager struct {
	store  Store
	users  UserSource
	issuer *Issuer
	now    func() time.Time

	sessionTTL time.Duration
}

// ManagerOption configures Manager behavior.
type ManagerOption func(*Manager)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.sessionTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager.
func NewManager(store Store, users UserSource, issuer *Issuer, opts ...ManagerOption) (*Manager, error) {
	if store == nil || users == nil || issuer == nil {
		return nil, errors.New("auth manager requires store, user source and issuer")
	}
	m := &Manager{
		store:      store,
		users:      users,
		issuer:     issuer,
		now:        time.Now,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Authenticate resolves a session token into its user. The session must
// exist and be unexpired, and the user must be verified.
func (m *Manager) Authenticate(ctx context.Context, sessionToken string) (*directory.User, error) {
	if sessionToken == "" {
		return nil, ErrInvalidCredential
	}
	session, err := m.store.Sessions().FindByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !m.now().UTC().Before(session.ExpiresAt) {
		return nil, ErrInvalidCredential
	}
	user, err := m.users.Find(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !user.Verified {
		return nil, ErrUnverified
	}
	return user, nil
}

// AuthenticateLoginToken redeems a passwordless token and resolves the user
// it was issued for. The redemption consumes the token even when the user
// lookup that follows fails.
func (m *Manager) AuthenticateLoginToken(ctx context.Context, token string) (*directory.User, error) {
	email, err := m.issuer.RedeemLoginToken(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !user.Verified {
		return nil, ErrUnverified
	}
	return user, nil
}

// CreateSession mints an opaque session token for the user and returns the
// stored session, including its expiry.
func (m *Manager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	return m.issuer.IssueSessionToken(ctx, userID, m.sessionTTL)
}

// DestroySession deletes the session matching the token. Deleting a
// non-existent token is a no-op.
func (m *Manager) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Sessions().DeleteByToken(ctx, token)
}

// DestroyAllSessions revokes every session of the user. Used on
// account-level security events.
func (m *Manager) DestroyAllSessions(ctx context.Context, userID string) error {
	return m.store.Sessions().DeleteByUser(ctx, userID)
}
