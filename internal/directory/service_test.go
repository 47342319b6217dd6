package directory_test

import (
	"context"
	"errors"
	"testing"

	"teamgate.org/internal/access"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/store/mem"
)

func newService(t *testing.T) (*directory.Service, *mem.Store) {
	t.Helper()
	store := mem.New()
	svc, err := directory.NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func register(t *testing.T, svc *directory.Service, email string) *directory.User {
	t.Helper()
	user, err := svc.Register(context.Background(), directory.RegisterInput{
		Email:      email,
		Name:       "Test User",
		TenantName: "Acme Corporation",
		TeamName:   "Engineering",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func TestRegisterCreatesTenantTeamAndUser(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	user := register(t, svc, "admin@acme.com")
	if user.Verified {
		t.Fatal("new registrations must start unverified")
	}
	if user.TenantID == "" || user.TeamID == "" {
		t.Fatalf("user missing tenant/team: %+v", user)
	}

	tenant, err := store.Tenants().Find(ctx, user.TenantID)
	if err != nil {
		t.Fatalf("tenant lookup: %v", err)
	}
	if tenant.Name != "Acme Corporation" {
		t.Fatalf("unexpected tenant name %q", tenant.Name)
	}
	team, err := store.Teams().Find(ctx, user.TeamID)
	if err != nil {
		t.Fatalf("team lookup: %v", err)
	}
	if team.TenantID != tenant.ID {
		t.Fatal("team not linked to the new tenant")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "admin@acme.com")

	_, err := svc.Register(context.Background(), directory.RegisterInput{
		Email:      "Admin@Acme.com", // same address, different case
		Name:       "Other",
		TenantName: "Other Corp",
		TeamName:   "Ops",
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterRejectsBadEmail(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), directory.RegisterInput{
		Email:      "not-an-email",
		Name:       "X",
		TenantName: "Acme",
		TeamName:   "Eng",
	})
	if !errors.Is(err, directory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestVerifyUserIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := register(t, svc, "admin@acme.com")

	verified, err := svc.VerifyUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	if !verified.Verified {
		t.Fatal("user not verified")
	}

	again, err := svc.VerifyUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("repeat VerifyUser: %v", err)
	}
	if !again.Verified {
		t.Fatal("repeat verification flipped the flag")
	}

	unverified, err := svc.UnverifyUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("UnverifyUser: %v", err)
	}
	if unverified.Verified {
		t.Fatal("user still verified after unverify")
	}
}

func TestUnverifiedUsersListing(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := register(t, svc, "a@acme.com")
	b := register(t, svc, "b@acme.com")

	if _, err := svc.VerifyUser(ctx, a.ID); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	pending, err := svc.UnverifiedUsers(ctx)
	if err != nil {
		t.Fatalf("UnverifiedUsers: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("expected only %s pending, got %+v", b.ID, pending)
	}
}

func TestAddGroupMemberRejectsCrossTeam(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := register(t, svc, "admin@acme.com")

	other, err := svc.CreateTeam(ctx, user.TenantID, "Finance")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	group, err := svc.CreateGroup(ctx, user.TenantID, other.ID, "Finance Viewers", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	// user belongs to Engineering, the group to Finance
	err = svc.AddGroupMember(ctx, group.ID, user.ID)
	if !errors.Is(err, directory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGroupMembershipAndRoles(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := register(t, svc, "admin@acme.com")

	group, err := svc.CreateGroup(ctx, user.TenantID, user.TeamID, "Engineering Admins", "Full access")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := svc.AddGroupMember(ctx, group.ID, user.ID); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}

	role, err := svc.CreateRole(ctx, "Admin", "Full access", map[string][]string{
		"vault":      {"create", "read", "update", "delete"},
		"financials": {"create", "read", "update", "delete"},
		"reporting":  {"create", "read", "update", "delete"},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := svc.AssignRoleToGroup(ctx, group.ID, role.ID); err != nil {
		t.Fatalf("AssignRoleToGroup: %v", err)
	}

	detail, err := svc.GroupDetail(ctx, group.ID)
	if err != nil {
		t.Fatalf("GroupDetail: %v", err)
	}
	if len(detail.Members) != 1 || detail.Members[0].ID != user.ID {
		t.Fatalf("unexpected members: %+v", detail.Members)
	}
	if len(detail.Roles) != 1 || detail.Roles[0].ID != role.ID {
		t.Fatalf("unexpected roles: %+v", detail.Roles)
	}

	summaries, err := svc.GroupSummaries(ctx, user.TenantID, "")
	if err != nil {
		t.Fatalf("GroupSummaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].MemberCount != 1 || summaries[0].RoleCount != 1 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}

	if err := svc.RemoveGroupMember(ctx, group.ID, user.ID); err != nil {
		t.Fatalf("RemoveGroupMember: %v", err)
	}
	if err := svc.UnassignRoleFromGroup(ctx, group.ID, role.ID); err != nil {
		t.Fatalf("UnassignRoleFromGroup: %v", err)
	}
	detail, err = svc.GroupDetail(ctx, group.ID)
	if err != nil {
		t.Fatalf("GroupDetail: %v", err)
	}
	if len(detail.Members) != 0 || len(detail.Roles) != 0 {
		t.Fatalf("expected empty group, got %+v", detail)
	}
}

func TestCreateRoleValidatesPermissions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "Bad", "", map[string][]string{
		"payroll": {"read"},
	})
	if !errors.Is(err, directory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	_, err = svc.CreateRole(ctx, "AlsoBad", "", map[string][]string{
		"vault": {"approve"},
	})
	if !errors.Is(err, directory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateRoleReplacesMatrix(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Vault Editor", "Can manage vault secrets", map[string][]string{
		"vault": {"create", "read", "update", "delete"},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	updated, err := svc.UpdateRole(ctx, role.ID, "Read-only now", map[string][]string{
		"vault": {"read"},
	})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.Permissions.Grants(access.ModuleVault, access.ActionDelete) {
		t.Fatal("stale delete grant survived the update")
	}
	if !updated.Permissions.Grants(access.ModuleVault, access.ActionRead) {
		t.Fatal("read grant missing after update")
	}
}

func TestDeleteRoleDetachesAssignments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := register(t, svc, "admin@acme.com")

	group, err := svc.CreateGroup(ctx, user.TenantID, user.TeamID, "Admins", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	role, err := svc.CreateRole(ctx, "Admin", "", map[string][]string{"vault": {"read"}})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := svc.AssignRoleToGroup(ctx, group.ID, role.ID); err != nil {
		t.Fatalf("AssignRoleToGroup: %v", err)
	}
	if err := svc.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	detail, err := svc.GroupDetail(ctx, group.ID)
	if err != nil {
		t.Fatalf("GroupDetail: %v", err)
	}
	if len(detail.Roles) != 0 {
		t.Fatalf("deleted role still attached: %+v", detail.Roles)
	}
}

func TestTeamScopedToTenant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := register(t, svc, "a@acme.com")

	b, err := svc.Register(ctx, directory.RegisterInput{
		Email:      "b@other.com",
		Name:       "Other",
		TenantName: "Other Corp",
		TeamName:   "Ops",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// tenant A cannot address tenant B's team
	if _, err := svc.Team(ctx, a.TenantID, b.TeamID); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
