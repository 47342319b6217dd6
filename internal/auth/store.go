package auth

import (
	"context"
	"time"

	"teamgate.org/internal/directory"
)

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	// FindByToken returns directory.ErrNotFound when no row matches.
	// Expiry is checked by the caller against its own clock.
	FindByToken(ctx context.Context, token string) (*Session, error)
	// DeleteByToken is a no-op when the token does not exist.
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// LinkStore persists passwordless links.
type LinkStore interface {
	Create(ctx context.Context, l *PasswordlessLink) error
	// Consume atomically marks the link used and returns its email, but only
	// if the token exists, is unused and unexpired at now. The check and the
	// mark-used write are one transition: of two concurrent redemptions of
	// the same token exactly one succeeds. Any failure surfaces as
	// ErrInvalidCredential.
	Consume(ctx context.Context, token string, now time.Time) (string, error)
	// PurgeExpired deletes links whose expiry is at or before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserSource resolves users for authentication.
type UserSource interface {
	Find(ctx context.Context, id string) (*directory.User, error)
	FindByEmail(ctx context.Context, email string) (*directory.User, error)
}

// Store aggregates the persistence surfaces the auth subsystem needs.
type Store interface {
	Sessions() SessionStore
	Links() LinkStore
}
