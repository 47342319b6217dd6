package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
)

const (
	authHeader    = "Authorization"
	bearer        = "Bearer "
	sessionCookie = "teamgate_session"
)

// Endpoints reachable without a session. Everything else under /v1 requires
// an authenticated, verified user.
var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/verify",
}

// withAuth resolves the session token from the cookie or the Authorization
// header, authenticates it, and stores the user on the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.sessions == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "missing session token")
			return
		}

		user, err := a.sessions.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnverified):
				writeError(w, r, http.StatusForbidden, "account pending verification")
			case errors.Is(err, auth.ErrInvalidCredential):
				writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// requestUser returns the authenticated user or writes a 401.
func requestUser(w http.ResponseWriter, r *http.Request) (*directory.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return user, true
}
