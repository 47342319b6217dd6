// Package notify delivers passwordless login links to users. The core only
// produces the token; delivery mechanics live behind the Sender interface.
package notify

import (
	"context"
	"fmt"

	"teamgate.org/internal/obs"
)

// Sender delivers a login link to the given address.
type Sender interface {
	SendLoginLink(ctx context.Context, email, link string) error
}

// LogSender writes the link to the structured log instead of sending mail.
// Used in development and tests.
type LogSender struct {
	// BaseURL prefixes the verification path, e.g. http://localhost:5173.
	BaseURL string
}

// SendLoginLink logs the link. It never fails.
func (s LogSender) SendLoginLink(ctx context.Context, email, link string) error {
	obs.LogRequest(map[string]any{
		"level": "info",
		"msg":   "passwordless login link issued",
		"email": email,
		"link":  link,
	})
	return nil
}

// LoginLink builds the user-facing verification URL for a token.
func LoginLink(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/verify?token=%s", baseURL, token)
}
