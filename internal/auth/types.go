// Package auth establishes and tears down identity: it issues and redeems
// single-use passwordless login tokens and manages the session lifecycle.
package auth

import "time"

// Session is a time-limited credential representing an authenticated,
// verified user. The token is opaque and unguessable; validity requires an
// exact token match and an unexpired row.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordlessLink is a single-use, time-limited login credential delivered
// out of band (email). Once consumed it can never authenticate again, even
// inside its expiry window.
type PasswordlessLink struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}
