package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"teamgate.org/internal/access"
	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/resource"
	"teamgate.org/internal/store/mem"
)

type captureSender struct {
	mu    sync.Mutex
	links []string
}

func (c *captureSender) SendLoginLink(_ context.Context, _, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = append(c.links, link)
	return nil
}

func (c *captureSender) lastToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.links) == 0 {
		t.Fatal("no login link was sent")
	}
	link := c.links[len(c.links)-1]
	i := strings.Index(link, "token=")
	if i < 0 {
		t.Fatalf("link has no token: %s", link)
	}
	return link[i+len("token="):]
}

type testEnv struct {
	api    *API
	srv    *httptest.Server
	store  *mem.Store
	dir    *directory.Service
	sender *captureSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mem.New()
	dir, err := directory.NewService(store)
	if err != nil {
		t.Fatalf("directory.NewService: %v", err)
	}
	issuer := auth.NewIssuer(store)
	sessions, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		t.Fatalf("auth.NewManager: %v", err)
	}
	gate := access.NewGate(access.NewResolver(store))
	resources, err := resource.NewService(store, gate)
	if err != nil {
		t.Fatalf("resource.NewService: %v", err)
	}
	sender := &captureSender{}

	api := New(Config{
		Directory: dir,
		Sessions:  sessions,
		Issuer:    issuer,
		Resources: resources,
		Gate:      gate,
		Sender:    sender,
		Version:   "test",
		BaseURL:   "http://localhost:8080",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{api: api, srv: srv, store: store, dir: dir, sender: sender}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// login walks the passwordless flow for an email and returns a session token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/v1/auth/verify?token="+e.sender.lastToken(t), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: status %d", resp.StatusCode)
	}
	session := decodeBody[sessionResponse](t, resp)
	if session.Token == "" {
		t.Fatal("verify returned no session token")
	}
	if session.ExpiresAt.IsZero() {
		t.Fatal("verify returned no session expiry")
	}
	return session.Token
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := e.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRegisterLoginVerifyFlow(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":       "admin@acme.com",
		"name":        "Admin User",
		"tenant_name": "Acme Corporation",
		"team_name":   "Engineering",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	user := decodeBody[directory.User](t, resp)
	if user.Verified {
		t.Fatal("registration must start unverified")
	}

	// a pending account can request a link but cannot open a session
	resp = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "admin@acme.com"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = e.do(t, http.MethodGet, "/v1/auth/verify?token="+e.sender.lastToken(t), "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pending verify: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// admin approval flips the account; the next link works
	if _, err := e.dir.VerifyUser(context.Background(), user.ID); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	token := e.login(t, "admin@acme.com")

	resp = e.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status %d", resp.StatusCode)
	}
	me := decodeBody[struct {
		User        directory.User       `json:"user"`
		Permissions access.PermissionMap `json:"permissions"`
	}](t, resp)
	if me.User.ID != user.ID {
		t.Fatalf("me returned wrong user: %s", me.User.ID)
	}
	if len(me.Permissions) != len(access.Modules) {
		t.Fatalf("permissions missing modules: %v", me.Permissions)
	}

	// replaying the consumed link fails
	resp = e.do(t, http.MethodGet, "/v1/auth/verify?token="+e.sender.lastToken(t), "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed link: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginDoesNotRevealAccounts(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ghost@acme.com"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unknown email login: expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/v1/auth/me", "/v1/teams", "/v1/vault", "/v1/admin/users/unverified"} {
		resp := e.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestAdminVerificationEndpoints(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	admin, err := e.dir.Register(ctx, directory.RegisterInput{
		Email: "admin@acme.com", Name: "Admin", TenantName: "Acme", TeamName: "Engineering",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.dir.VerifyUser(ctx, admin.ID); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	pending, err := e.dir.Register(ctx, directory.RegisterInput{
		Email: "pending@acme.com", Name: "Pending", TenantName: "Beta", TeamName: "Ops",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token := e.login(t, "admin@acme.com")

	resp := e.do(t, http.MethodGet, "/v1/admin/users/unverified", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unverified list: status %d", resp.StatusCode)
	}
	listing := decodeBody[struct {
		Users []directory.User `json:"users"`
	}](t, resp)
	if len(listing.Users) != 1 || listing.Users[0].ID != pending.ID {
		t.Fatalf("unexpected pending listing: %+v", listing.Users)
	}

	resp = e.do(t, http.MethodPost, "/v1/admin/users/"+pending.ID+"/verify", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify user: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/v1/admin/users/"+pending.ID+"/unverify", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unverify user: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/v1/admin/users/no-such-user/verify", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("verify missing user: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestVaultEndToEnd(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	admin, err := e.dir.Register(ctx, directory.RegisterInput{
		Email: "admin@acme.com", Name: "Admin", TenantName: "Acme", TeamName: "Engineering",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.dir.VerifyUser(ctx, admin.ID); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	token := e.login(t, "admin@acme.com")

	// no grants yet: vault is off limits
	resp := e.do(t, http.MethodGet, "/v1/vault", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("ungranted vault list: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// grant the full vault matrix through a group role
	group, err := e.dir.CreateGroup(ctx, admin.TenantID, admin.TeamID, "Vault Admins", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	role, err := e.dir.CreateRole(ctx, "Vault Editor", "", map[string][]string{
		"vault": {"create", "read", "update", "delete"},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := e.dir.AddGroupMember(ctx, group.ID, admin.ID); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}
	if err := e.dir.AssignRoleToGroup(ctx, group.ID, role.ID); err != nil {
		t.Fatalf("AssignRoleToGroup: %v", err)
	}

	// granted but malformed: an empty name is a client error, not a 500
	resp = e.do(t, http.MethodPost, "/v1/vault", token, map[string]string{
		"name":  "",
		"value": "hunter2",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty secret name: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/v1/vault", token, map[string]string{
		"name":  "db-password",
		"value": "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create secret: status %d", resp.StatusCode)
	}
	secret := decodeBody[resource.VaultSecret](t, resp)
	if secret.TeamID != admin.TeamID {
		t.Fatalf("secret landed in wrong team: %s", secret.TeamID)
	}

	resp = e.do(t, http.MethodGet, "/v1/vault/"+secret.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get secret: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodPut, "/v1/vault/"+secret.ID, token, map[string]string{
		"name":  "db-password",
		"value": "rotated",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update secret: status %d", resp.StatusCode)
	}
	updated := decodeBody[resource.VaultSecret](t, resp)
	if updated.Value != "rotated" {
		t.Fatalf("update did not take: %+v", updated)
	}

	resp = e.do(t, http.MethodDelete, "/v1/vault/"+secret.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete secret: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// addressing another team's id is forbidden even with the vault grant
	other, err := e.dir.CreateTeam(ctx, admin.TenantID, "Finance")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	resp = e.do(t, http.MethodGet, "/v1/vault?team_id="+other.ID, token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-team vault list: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDirectoryEndpoints(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	admin, err := e.dir.Register(ctx, directory.RegisterInput{
		Email: "admin@acme.com", Name: "Admin", TenantName: "Acme", TeamName: "Engineering",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.dir.VerifyUser(ctx, admin.ID); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	token := e.login(t, "admin@acme.com")

	resp := e.do(t, http.MethodPost, "/v1/teams", token, map[string]string{"name": "Finance"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create team: status %d", resp.StatusCode)
	}
	team := decodeBody[directory.Team](t, resp)

	resp = e.do(t, http.MethodGet, "/v1/teams", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list teams: status %d", resp.StatusCode)
	}
	teams := decodeBody[struct {
		Teams []directory.TeamSummary `json:"teams"`
	}](t, resp)
	if len(teams.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams.Teams))
	}

	resp = e.do(t, http.MethodPost, "/v1/groups", token, map[string]string{
		"team_id": team.ID,
		"name":    "Finance Viewers",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create group: status %d", resp.StatusCode)
	}
	group := decodeBody[directory.Group](t, resp)

	resp = e.do(t, http.MethodPost, "/v1/roles", token, map[string]any{
		"name":        "Finance Viewer",
		"description": "Read-only",
		"permissions": map[string][]string{"financials": {"read"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create role: status %d", resp.StatusCode)
	}
	role := decodeBody[directory.Role](t, resp)

	resp = e.do(t, http.MethodPost, "/v1/groups/"+group.ID+"/roles", token, map[string]string{
		"role_id": role.ID,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("assign role: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/v1/groups/"+group.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("group detail: status %d", resp.StatusCode)
	}
	detail := decodeBody[directory.GroupDetail](t, resp)
	if len(detail.Roles) != 1 || detail.Roles[0].ID != role.ID {
		t.Fatalf("unexpected group roles: %+v", detail.Roles)
	}

	// a malformed permission matrix is a 400
	resp = e.do(t, http.MethodPost, "/v1/roles", token, map[string]any{
		"name":        "Bad",
		"permissions": map[string][]string{"payroll": {"read"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad role: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// duplicate role names conflict
	resp = e.do(t, http.MethodPost, "/v1/roles", token, map[string]any{
		"name":        "Finance Viewer",
		"permissions": map[string][]string{},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate role: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	admin, err := e.dir.Register(ctx, directory.RegisterInput{
		Email: "admin@acme.com", Name: "Admin", TenantName: "Acme", TeamName: "Engineering",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.dir.VerifyUser(ctx, admin.ID); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	token := e.login(t, "admin@acme.com")

	resp := e.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
