package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const (
	// DefaultLinkTTL bounds how long a passwordless link stays redeemable.
	DefaultLinkTTL = 15 * time.Minute
	// DefaultSessionTTL bounds session lifetime.
	DefaultSessionTTL = 24 * time.Hour

	// tokenBytes yields 192 bits of entropy, above the 160-bit floor, and
	// encodes to a 32-character URL-safe string.
	tokenBytes = 24
)

// NewToken returns a cryptographically random URL-safe token. Generation
// fails only when the platform entropy source does.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issuer creates and redeems passwordless login tokens and mints session
// tokens. All state lives in the backing store.
type Issuer struct {
	store Store
	now   func() time.Time
}

// IssuerOption configures Issuer behavior.
type IssuerOption func(*Issuer)

// WithIssuerClock overrides the time source (useful for tests).
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer.
func NewIssuer(store Store, opts ...IssuerOption) *Issuer {
	i := &Issuer{store: store, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueLoginToken creates a passwordless link for the email and returns its
// token. Multiple outstanding links per email are permitted; prior links are
// not invalidated.
func (i *Issuer) IssueLoginToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	link := &PasswordlessLink{
		Email:     email,
		Token:     token,
		ExpiresAt: i.now().UTC().Add(ttl),
		Used:      false,
	}
	if err := i.store.Links().Create(ctx, link); err != nil {
		return "", err
	}
	return token, nil
}

// RedeemLoginToken consumes a passwordless token and returns the associated
// email. Redemption is a state transition, not a read: a second call with
// the same token fails with ErrInvalidCredential even inside the expiry
// window. Missing, expired and already-used tokens are indistinguishable to
// the caller.
func (i *Issuer) RedeemLoginToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidCredential
	}
	return i.store.Links().Consume(ctx, token, i.now().UTC())
}

// IssueSessionToken creates a session for the user and returns it. The
// returned session carries the expiry actually persisted, so callers never
// have to recompute it from their own clock.
func (i *Issuer) IssueSessionToken(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: i.now().UTC().Add(ttl),
	}
	if err := i.store.Sessions().Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// PurgeExpiredLinks deletes links expired at now. Intended for periodic
// maintenance, never called inline by the login flow.
func (i *Issuer) PurgeExpiredLinks(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = i.now().UTC()
	}
	return i.store.Links().PurgeExpired(ctx, now)
}
