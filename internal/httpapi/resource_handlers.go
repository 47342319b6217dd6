package httpapi

import (
	"net/http"
	"strings"

	"teamgate.org/internal/audit"
	"teamgate.org/internal/directory"
)

type secretRequest struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

type transactionRequest struct {
	TeamID      string `json:"team_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type reportRequest struct {
	TeamID  string `json:"team_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// requestTeam picks the team a resource operation targets: the team_id query
// parameter or body field when present, the caller's own team otherwise.
// Permission and ownership checks downstream decide whether the caller may
// actually touch that team.
func requestTeam(r *http.Request, user *directory.User, bodyTeamID string) string {
	if teamID := strings.TrimSpace(bodyTeamID); teamID != "" {
		return teamID
	}
	if teamID := strings.TrimSpace(r.URL.Query().Get("team_id")); teamID != "" {
		return teamID
	}
	return user.TeamID
}

// Vault secrets --------------------------------------------------------------

func (a *API) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	secrets, err := a.resources.ListSecrets(r.Context(), user.ID, requestTeam(r, user, ""))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"secrets": secrets})
}

func (a *API) handleCreateSecret(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req secretRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	secret, err := a.resources.CreateSecret(r.Context(), user.ID, requestTeam(r, user, req.TeamID), req.Name, req.Value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "vault.secret.created", map[string]any{
		"secret_id": secret.ID,
		"team_id":   secret.TeamID,
	})
	writeJSON(w, http.StatusCreated, secret)
}

func (a *API) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	secret, err := a.resources.GetSecret(r.Context(), user.ID, requestTeam(r, user, ""), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, secret)
}

func (a *API) handleUpdateSecret(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req secretRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	secret, err := a.resources.UpdateSecret(r.Context(), user.ID, requestTeam(r, user, req.TeamID), r.PathValue("id"), req.Name, req.Value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "vault.secret.updated", map[string]any{
		"secret_id": secret.ID,
	})
	writeJSON(w, http.StatusOK, secret)
}

func (a *API) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := a.resources.DeleteSecret(r.Context(), user.ID, requestTeam(r, user, ""), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "vault.secret.deleted", map[string]any{
		"secret_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Financial transactions -----------------------------------------------------

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	txns, err := a.resources.ListTransactions(r.Context(), user.ID, requestTeam(r, user, ""))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (a *API) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	txn, err := a.resources.CreateTransaction(r.Context(), user.ID, requestTeam(r, user, req.TeamID), req.Amount, req.Description)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "financials.transaction.created", map[string]any{
		"transaction_id": txn.ID,
		"team_id":        txn.TeamID,
	})
	writeJSON(w, http.StatusCreated, txn)
}

func (a *API) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	txn, err := a.resources.GetTransaction(r.Context(), user.ID, requestTeam(r, user, ""), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (a *API) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	txn, err := a.resources.UpdateTransaction(r.Context(), user.ID, requestTeam(r, user, req.TeamID), r.PathValue("id"), req.Amount, req.Description)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "financials.transaction.updated", map[string]any{
		"transaction_id": txn.ID,
	})
	writeJSON(w, http.StatusOK, txn)
}

func (a *API) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := a.resources.DeleteTransaction(r.Context(), user.ID, requestTeam(r, user, ""), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "financials.transaction.deleted", map[string]any{
		"transaction_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Reports --------------------------------------------------------------------

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	reports, err := a.resources.ListReports(r.Context(), user.ID, requestTeam(r, user, ""))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (a *API) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := a.resources.CreateReport(r.Context(), user.ID, requestTeam(r, user, req.TeamID), req.Title, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "reporting.report.created", map[string]any{
		"report_id": report.ID,
		"team_id":   report.TeamID,
	})
	writeJSON(w, http.StatusCreated, report)
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	report, err := a.resources.GetReport(r.Context(), user.ID, requestTeam(r, user, ""), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := a.resources.UpdateReport(r.Context(), user.ID, requestTeam(r, user, req.TeamID), r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "reporting.report.updated", map[string]any{
		"report_id": report.ID,
	})
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := a.resources.DeleteReport(r.Context(), user.ID, requestTeam(r, user, ""), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "reporting.report.deleted", map[string]any{
		"report_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Permission introspection ----------------------------------------------------

func (a *API) handleResolvePermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	teamID := requestTeam(r, user, "")
	permissions, err := a.gate.Resolve(r.Context(), user.ID, teamID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team_id":     teamID,
		"permissions": permissions,
	})
}
