package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"teamgate.org/internal/access"
	"teamgate.org/internal/audit"
	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/notify"
	"teamgate.org/internal/obs"
)

type registerRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	TenantName string `json:"tenant_name"`
	TeamName   string `json:"team_name"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type sessionResponse struct {
	Token       string               `json:"token"`
	ExpiresAt   time.Time            `json:"expires_at"`
	User        *directory.User      `json:"user"`
	Permissions access.PermissionMap `json:"permissions"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.directory.Register(r.Context(), directory.RegisterInput{
		Email:      req.Email,
		Name:       req.Name,
		TenantName: req.TenantName,
		TeamName:   req.TeamName,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin issues a single-use login link. The response is the same
// whether or not the email is registered, so the endpoint cannot be used to
// enumerate accounts.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}

	accepted := func() {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "login link sent if the account exists",
		})
	}

	user, err := a.directory.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			accepted()
			return
		}
		handleServiceError(w, r, err)
		return
	}

	token, err := a.issuer.IssueLoginToken(r.Context(), user.Email, auth.DefaultLinkTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "login link issuance failed")
		return
	}
	obs.ObserveLoginTokenIssued()
	if err := a.sender.SendLoginLink(r.Context(), user.Email, notify.LoginLink(a.baseURL, token)); err != nil {
		writeError(w, r, http.StatusInternalServerError, "login link delivery failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login_link.issued", map[string]any{
		"user_id": user.ID,
	})
	accepted()
}

// handleVerifyToken redeems a login link and opens a session. The link is
// consumed exactly once; retrying the same URL fails with 401.
func (a *API) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	user, err := a.sessions.AuthenticateLoginToken(r.Context(), token)
	if err != nil {
		obs.ObserveLoginTokenRedemption(false)
		handleServiceError(w, r, err)
		return
	}
	obs.ObserveLoginTokenRedemption(true)

	session, err := a.sessions.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session creation failed")
		return
	}
	permissions, err := a.gate.Resolve(r.Context(), user.ID, user.TeamID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "permission resolution failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.session.created", map[string]any{
		"user_id": user.ID,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:       session.Token,
		ExpiresAt:   session.ExpiresAt,
		User:        user,
		Permissions: permissions,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	permissions, err := a.gate.Resolve(r.Context(), user.ID, user.TeamID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "permission resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"permissions": permissions,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromContext(r.Context())
	if err := a.sessions.DestroySession(r.Context(), token); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
