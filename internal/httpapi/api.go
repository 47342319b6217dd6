// Package httpapi exposes the service over HTTP/JSON.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"teamgate.org/internal/access"
	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/notify"
	"teamgate.org/internal/obs"
	"teamgate.org/internal/resource"
)

// ReadyProbe reports whether the backing database accepts connections.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. It wires the directory, auth and resource services
// behind a ServeMux and owns nothing but transport concerns.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	directory *directory.Service
	sessions  *auth.Manager
	issuer    *auth.Issuer
	resources *resource.Service
	gate      *access.Gate
	sender    notify.Sender
	baseURL   string
}

// Config collects the dependencies New needs.
type Config struct {
	Directory *directory.Service
	Sessions  *auth.Manager
	Issuer    *auth.Issuer
	Resources *resource.Service
	Gate      *access.Gate
	Sender    notify.Sender
	Ready     ReadyProbe
	Version   string
	// BaseURL is the public origin used when rendering login links.
	BaseURL string
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		directory:  cfg.Directory,
		sessions:   cfg.Sessions,
		issuer:     cfg.Issuer,
		resources:  cfg.Resources,
		gate:       cfg.Gate,
		sender:     cfg.Sender,
		baseURL:    cfg.BaseURL,
	}

	m := a.mux

	// health/ready/info
	m.HandleFunc("GET /healthz", a.Healthz)
	m.HandleFunc("GET /readyz", a.Ready)
	m.HandleFunc("GET /v1/info", a.Info)

	// Prometheus metrics
	m.Handle("GET /metrics", obs.Handler())

	// auth
	m.HandleFunc("POST /v1/auth/register", a.handleRegister)
	m.HandleFunc("POST /v1/auth/login", a.handleLogin)
	m.HandleFunc("GET /v1/auth/verify", a.handleVerifyToken)
	m.HandleFunc("GET /v1/auth/me", a.handleMe)
	m.HandleFunc("POST /v1/auth/logout", a.handleLogout)

	// admin: verification queue
	m.HandleFunc("GET /v1/admin/users/unverified", a.handleUnverifiedUsers)
	m.HandleFunc("POST /v1/admin/users/{id}/verify", a.handleVerifyUser)
	m.HandleFunc("POST /v1/admin/users/{id}/unverify", a.handleUnverifyUser)

	// directory
	m.HandleFunc("GET /v1/teams", a.handleListTeams)
	m.HandleFunc("POST /v1/teams", a.handleCreateTeam)
	m.HandleFunc("GET /v1/teams/{id}/members", a.handleTeamMembers)
	m.HandleFunc("GET /v1/users", a.handleListUsers)
	m.HandleFunc("GET /v1/groups", a.handleListGroups)
	m.HandleFunc("POST /v1/groups", a.handleCreateGroup)
	m.HandleFunc("GET /v1/groups/{id}", a.handleGroupDetail)
	m.HandleFunc("DELETE /v1/groups/{id}", a.handleDeleteGroup)
	m.HandleFunc("POST /v1/groups/{id}/members", a.handleAddGroupMember)
	m.HandleFunc("DELETE /v1/groups/{id}/members/{userID}", a.handleRemoveGroupMember)
	m.HandleFunc("POST /v1/groups/{id}/roles", a.handleAssignRole)
	m.HandleFunc("DELETE /v1/groups/{id}/roles/{roleID}", a.handleUnassignRole)
	m.HandleFunc("GET /v1/roles", a.handleListRoles)
	m.HandleFunc("POST /v1/roles", a.handleCreateRole)
	m.HandleFunc("GET /v1/roles/{id}", a.handleGetRole)
	m.HandleFunc("PUT /v1/roles/{id}", a.handleUpdateRole)
	m.HandleFunc("DELETE /v1/roles/{id}", a.handleDeleteRole)

	// permission introspection
	m.HandleFunc("GET /v1/permissions", a.handleResolvePermissions)

	// team-scoped resources
	m.HandleFunc("GET /v1/vault", a.handleListSecrets)
	m.HandleFunc("POST /v1/vault", a.handleCreateSecret)
	m.HandleFunc("GET /v1/vault/{id}", a.handleGetSecret)
	m.HandleFunc("PUT /v1/vault/{id}", a.handleUpdateSecret)
	m.HandleFunc("DELETE /v1/vault/{id}", a.handleDeleteSecret)

	m.HandleFunc("GET /v1/financials", a.handleListTransactions)
	m.HandleFunc("POST /v1/financials", a.handleCreateTransaction)
	m.HandleFunc("GET /v1/financials/{id}", a.handleGetTransaction)
	m.HandleFunc("PUT /v1/financials/{id}", a.handleUpdateTransaction)
	m.HandleFunc("DELETE /v1/financials/{id}", a.handleDeleteTransaction)

	m.HandleFunc("GET /v1/reports", a.handleListReports)
	m.HandleFunc("POST /v1/reports", a.handleCreateReport)
	m.HandleFunc("GET /v1/reports/{id}", a.handleGetReport)
	m.HandleFunc("PUT /v1/reports/{id}", a.handleUpdateReport)
	m.HandleFunc("DELETE /v1/reports/{id}", a.handleDeleteReport)

	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "teamgate-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "teamgate-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
