package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"teamgate.org/internal/access"
)

// Service provides validated directory operations over a Store. One Service
// instance is safe for concurrent use.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("directory store is required")
	}
	return &Service{store: store}, nil
}

// RegisterInput carries a self-service registration request. Registration
// creates the tenant, its first team and an unverified user in one shot.
type RegisterInput struct {
	Email      string
	Name       string
	TenantName string
	TeamName   string
}

// Register creates a new tenant, team and unverified user. The user cannot
// authenticate until an administrator verifies the account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	tenantName := strings.TrimSpace(in.TenantName)
	teamName := strings.TrimSpace(in.TeamName)
	if name == "" || tenantName == "" || teamName == "" {
		return nil, fmt.Errorf("%w: name, tenant name and team name are required", ErrInvalidInput)
	}

	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user with email %s", ErrConflict, email)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	tenant := &Tenant{Name: tenantName}
	if err := s.store.Tenants().Create(ctx, tenant); err != nil {
		return nil, err
	}
	team := &Team{TenantID: tenant.ID, Name: teamName}
	if err := s.store.Teams().Create(ctx, team); err != nil {
		return nil, err
	}
	user := &User{
		Email:    email,
		Name:     name,
		Verified: false,
		TenantID: tenant.ID,
		TeamID:   team.ID,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// User returns one user by id.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users().Find(ctx, id)
}

// UserByEmail returns one user by email.
func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.store.Users().FindByEmail(ctx, email)
}

// UsersByTenant lists users in a tenant, optionally narrowed to one team.
func (s *Service) UsersByTenant(ctx context.Context, tenantID, teamID string) ([]*User, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
	}
	users, err := s.store.Users().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if teamID = strings.TrimSpace(teamID); teamID == "" {
		return users, nil
	}
	filtered := users[:0]
	for _, u := range users {
		if u.TeamID == teamID {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// UnverifiedUsers lists users awaiting admin verification.
func (s *Service) UnverifiedUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users().ListUnverified(ctx)
}

// VerifyUser flips the verified flag on. Verifying an already verified user
// is a no-op returning the current record.
func (s *Service) VerifyUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return user, nil
	}
	return s.store.Users().SetVerified(ctx, id, true)
}

// UnverifyUser flips the verified flag off, which immediately blocks new
// authentication. Existing sessions are not revoked here; the session
// manager rejects unverified users on every authentication regardless.
func (s *Service) UnverifyUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users().SetVerified(ctx, id, false)
}

// Team returns one team scoped to the caller's tenant.
func (s *Service) Team(ctx context.Context, tenantID, teamID string) (*Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	team, err := s.store.Teams().Find(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.TenantID != strings.TrimSpace(tenantID) {
		return nil, ErrNotFound
	}
	return team, nil
}

// TeamMembers lists users belonging to the team.
func (s *Service) TeamMembers(ctx context.Context, teamID string) ([]*User, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	return s.store.Users().ListByTeam(ctx, teamID)
}

// TeamSummaries lists teams in the tenant with member counts.
func (s *Service) TeamSummaries(ctx context.Context, tenantID string) ([]TeamSummary, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
	}
	teams, err := s.store.Teams().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	summaries := make([]TeamSummary, 0, len(teams))
	for _, t := range teams {
		count, err := s.store.Teams().CountUsers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TeamSummary{Team: *t, UserCount: count})
	}
	return summaries, nil
}

// CreateTeam adds a team to the tenant.
func (s *Service) CreateTeam(ctx context.Context, tenantID, name string) (*Team, error) {
	tenantID = strings.TrimSpace(tenantID)
	name = strings.TrimSpace(name)
	if tenantID == "" || name == "" {
		return nil, fmt.Errorf("%w: tenant id and team name are required", ErrInvalidInput)
	}
	team := &Team{TenantID: tenantID, Name: name}
	if err := s.store.Teams().Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// CreateGroup adds a group to a team within the caller's tenant.
func (s *Service) CreateGroup(ctx context.Context, tenantID, teamID, name, description string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}
	if _, err := s.Team(ctx, tenantID, teamID); err != nil {
		return nil, err
	}
	group := &Group{TeamID: strings.TrimSpace(teamID), Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.Groups().Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// GroupSummaries lists groups visible to the tenant with usage counts,
// optionally narrowed to one team.
func (s *Service) GroupSummaries(ctx context.Context, tenantID, teamID string) ([]GroupSummary, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
	}
	groups, err := s.store.Groups().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	teamID = strings.TrimSpace(teamID)
	summaries := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		if teamID != "" && g.TeamID != teamID {
			continue
		}
		roles, err := s.store.Groups().RolesForGroup(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		members, err := s.store.Groups().Members(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, GroupSummary{Group: *g, RoleCount: len(roles), MemberCount: len(members)})
	}
	return summaries, nil
}

// GroupDetail returns a group with its resolved roles and members.
func (s *Service) GroupDetail(ctx context.Context, groupID string) (*GroupDetail, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id is required", ErrInvalidInput)
	}
	group, err := s.store.Groups().Find(ctx, groupID)
	if err != nil {
		return nil, err
	}
	roles, err := s.store.Groups().RolesForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Groups().Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	detail := &GroupDetail{Group: *group}
	for _, r := range roles {
		detail.Roles = append(detail.Roles, *r)
	}
	for _, m := range members {
		detail.Members = append(detail.Members, *m)
	}
	return detail, nil
}

// DeleteGroup removes a group; memberships and assignments cascade.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) error {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return fmt.Errorf("%w: group id is required", ErrInvalidInput)
	}
	return s.store.Groups().Delete(ctx, groupID)
}

// AddGroupMember links a user into a group. The user must belong to the
// group's team: cross-team membership would leak permissions across the
// team boundary.
func (s *Service) AddGroupMember(ctx context.Context, groupID, userID string) error {
	groupID = strings.TrimSpace(groupID)
	userID = strings.TrimSpace(userID)
	if groupID == "" || userID == "" {
		return fmt.Errorf("%w: group id and user id are required", ErrInvalidInput)
	}
	group, err := s.store.Groups().Find(ctx, groupID)
	if err != nil {
		return err
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return err
	}
	if user.TeamID != group.TeamID {
		return fmt.Errorf("%w: user belongs to a different team", ErrInvalidInput)
	}
	return s.store.Groups().AddMember(ctx, groupID, userID)
}

// RemoveGroupMember unlinks a user from a group.
func (s *Service) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	groupID = strings.TrimSpace(groupID)
	userID = strings.TrimSpace(userID)
	if groupID == "" || userID == "" {
		return fmt.Errorf("%w: group id and user id are required", ErrInvalidInput)
	}
	return s.store.Groups().RemoveMember(ctx, groupID, userID)
}

// AssignRoleToGroup attaches a role to a group.
func (s *Service) AssignRoleToGroup(ctx context.Context, groupID, roleID string) error {
	groupID = strings.TrimSpace(groupID)
	roleID = strings.TrimSpace(roleID)
	if groupID == "" || roleID == "" {
		return fmt.Errorf("%w: group id and role id are required", ErrInvalidInput)
	}
	if _, err := s.store.Groups().Find(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.store.Roles().Find(ctx, roleID); err != nil {
		return err
	}
	return s.store.Groups().AssignRole(ctx, groupID, roleID)
}

// UnassignRoleFromGroup detaches a role from a group.
func (s *Service) UnassignRoleFromGroup(ctx context.Context, groupID, roleID string) error {
	groupID = strings.TrimSpace(groupID)
	roleID = strings.TrimSpace(roleID)
	if groupID == "" || roleID == "" {
		return fmt.Errorf("%w: group id and role id are required", ErrInvalidInput)
	}
	return s.store.Groups().UnassignRole(ctx, groupID, roleID)
}

// CreateRole adds a role to the catalog. The permission matrix is validated
// against the closed module/action sets before it is persisted; free-form
// input never reaches the resolver.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissions map[string][]string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	matrix, err := access.ParsePermissionMap(permissions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	role := &Role{Name: name, Description: strings.TrimSpace(description), Permissions: matrix}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole replaces a role's description and permission matrix.
func (s *Service) UpdateRole(ctx context.Context, roleID, description string, permissions map[string][]string) (*Role, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	role, err := s.store.Roles().Find(ctx, roleID)
	if err != nil {
		return nil, err
	}
	matrix, err := access.ParsePermissionMap(permissions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	role.Description = strings.TrimSpace(description)
	role.Permissions = matrix
	if err := s.store.Roles().Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Role returns one role with its usage count.
func (s *Service) Role(ctx context.Context, roleID string) (*RoleSummary, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	role, err := s.store.Roles().Find(ctx, roleID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.Roles().GroupCount(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return &RoleSummary{Role: *role, GroupCount: count}, nil
}

// Roles lists the catalog with usage counts.
func (s *Service) Roles(ctx context.Context) ([]RoleSummary, error) {
	roles, err := s.store.Roles().List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]RoleSummary, 0, len(roles))
	for _, r := range roles {
		count, err := s.store.Roles().GroupCount(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, RoleSummary{Role: *r, GroupCount: count})
	}
	return summaries, nil
}

// DeleteRole removes a role from the catalog; assignments cascade.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.Roles().Delete(ctx, roleID)
}

// GroupsForUser lists every group the user is a member of, across teams.
func (s *Service) GroupsForUser(ctx context.Context, userID string) ([]*Group, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Groups().GroupsForUser(ctx, userID)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
