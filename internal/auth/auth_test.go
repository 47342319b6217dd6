package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/store/mem"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := auth.NewToken()
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if len(token) != 32 {
			t.Fatalf("expected 32-character token, got %d: %s", len(token), token)
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token is not URL-safe: %s", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func seedUser(t *testing.T, store *mem.Store, email string, verified bool) *directory.User {
	t.Helper()
	ctx := context.Background()
	tenant := &directory.Tenant{Name: "Acme"}
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	team := &directory.Team{TenantID: tenant.ID, Name: "Engineering"}
	if err := store.Teams().Create(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	user := &directory.User{
		Email:    email,
		Name:     "Test User",
		Verified: verified,
		TenantID: tenant.ID,
		TeamID:   team.ID,
	}
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestLoginTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "admin@acme.com", true)

	issuer := auth.NewIssuer(store)
	mgr, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := issuer.IssueLoginToken(ctx, user.Email, auth.DefaultLinkTTL)
	if err != nil {
		t.Fatalf("IssueLoginToken: %v", err)
	}

	got, err := mgr.AuthenticateLoginToken(ctx, token)
	if err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("redeemed wrong user: %s", got.ID)
	}

	// the winning redemption consumed the link; replaying the URL must fail
	if _, err := mgr.AuthenticateLoginToken(ctx, token); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("second redemption: expected ErrInvalidCredential, got %v", err)
	}
}

func TestLoginTokenExpiry(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "admin@acme.com", true)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := auth.NewIssuer(store, auth.WithIssuerClock(func() time.Time { return now }))

	token, err := issuer.IssueLoginToken(ctx, user.Email, 15*time.Minute)
	if err != nil {
		t.Fatalf("IssueLoginToken: %v", err)
	}

	now = now.Add(16 * time.Minute)
	if _, err := issuer.RedeemLoginToken(ctx, token); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential after expiry, got %v", err)
	}
}

func TestLoginTokenUnverifiedUser(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "pending@acme.com", false)

	issuer := auth.NewIssuer(store)
	mgr, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := issuer.IssueLoginToken(ctx, user.Email, auth.DefaultLinkTTL)
	if err != nil {
		t.Fatalf("IssueLoginToken: %v", err)
	}

	_, err = mgr.AuthenticateLoginToken(ctx, token)
	if !errors.Is(err, auth.ErrUnverified) {
		t.Fatalf("expected ErrUnverified, got %v", err)
	}
	if errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatal("pending account must not be reported as an invalid credential")
	}

	// the failed attempt still consumed the link
	if _, err := issuer.RedeemLoginToken(ctx, token); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected consumed link, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "admin@acme.com", true)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := auth.NewIssuer(store, auth.WithIssuerClock(clock))
	mgr, err := auth.NewManager(store, store.Users(), issuer,
		auth.WithClock(clock), auth.WithSessionTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	session, err := mgr.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	// the returned expiry is the stored one, computed from the configured TTL
	if want := now.Add(time.Hour); !session.ExpiresAt.Equal(want) {
		t.Fatalf("session expiry %v, want %v", session.ExpiresAt, want)
	}
	token := session.Token

	got, err := mgr.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated wrong user: %s", got.ID)
	}

	now = now.Add(61 * time.Minute)
	if _, err := mgr.Authenticate(ctx, token); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected expired session to fail, got %v", err)
	}
}

func TestAuthenticateRejectsUnverified(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "admin@acme.com", true)

	issuer := auth.NewIssuer(store)
	mgr, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	session, err := mgr.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	token := session.Token

	// flipping verified off blocks the existing session on its next use
	if _, err := store.Users().SetVerified(ctx, user.ID, false); err != nil {
		t.Fatalf("SetVerified: %v", err)
	}
	if _, err := mgr.Authenticate(ctx, token); !errors.Is(err, auth.ErrUnverified) {
		t.Fatalf("expected ErrUnverified, got %v", err)
	}
}

func TestDestroySession(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "admin@acme.com", true)

	issuer := auth.NewIssuer(store)
	mgr, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	session, err := mgr.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	token := session.Token
	if err := mgr.DestroySession(ctx, token); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	if _, err := mgr.Authenticate(ctx, token); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected destroyed session to fail, got %v", err)
	}

	// destroying again, or destroying nothing, is a no-op
	if err := mgr.DestroySession(ctx, token); err != nil {
		t.Fatalf("repeat DestroySession: %v", err)
	}
	if err := mgr.DestroySession(ctx, ""); err != nil {
		t.Fatalf("empty DestroySession: %v", err)
	}
}

func TestDestroyAllSessions(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	user := seedUser(t, store, "admin@acme.com", true)

	issuer := auth.NewIssuer(store)
	mgr, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var tokens []string
	for i := 0; i < 3; i++ {
		session, err := mgr.CreateSession(ctx, user.ID)
		if err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		tokens = append(tokens, session.Token)
	}
	if err := mgr.DestroyAllSessions(ctx, user.ID); err != nil {
		t.Fatalf("DestroyAllSessions: %v", err)
	}
	for _, token := range tokens {
		if _, err := mgr.Authenticate(ctx, token); !errors.Is(err, auth.ErrInvalidCredential) {
			t.Fatalf("expected revoked session to fail, got %v", err)
		}
	}
}

func TestPurgeExpiredLinks(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := auth.NewIssuer(store, auth.WithIssuerClock(func() time.Time { return now }))

	if _, err := issuer.IssueLoginToken(ctx, "a@acme.com", 10*time.Minute); err != nil {
		t.Fatalf("IssueLoginToken: %v", err)
	}
	if _, err := issuer.IssueLoginToken(ctx, "b@acme.com", time.Hour); err != nil {
		t.Fatalf("IssueLoginToken: %v", err)
	}

	n, err := issuer.PurgeExpiredLinks(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpiredLinks: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged link, got %d", n)
	}
}
