package httpapi

import (
	"net/http"

	"teamgate.org/internal/audit"
)

// Admin endpoints manage the verification queue. Any authenticated verified
// user may operate them; finer-grained admin roles are a deliberate gap kept
// from the product's trust model.

func (a *API) handleUnverifiedUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	users, err := a.directory.UnverifiedUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	user, err := a.directory.VerifyUser(r.Context(), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.verified", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleUnverifyUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	user, err := a.directory.UnverifyUser(r.Context(), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.unverified", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
