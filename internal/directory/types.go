package directory

import (
	"time"

	"teamgate.org/internal/access"
)

// Tenant is the top-level organizational boundary owning one or more teams.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Team is a sub-organization under a tenant; it owns users, groups and
// team-scoped resources.
type Team struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User belongs to exactly one team and one tenant. Unverified users cannot
// authenticate.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	TenantID  string    `json:"tenant_id"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Group collects users within one team and carries role assignments.
type Group struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role is a reusable permission template. Roles are not team-scoped; the
// team boundary is applied at resolution time through group membership.
type Role struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Permissions access.PermissionMap `json:"permissions"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Membership links a user to a group.
type Membership struct {
	UserID    string    `json:"user_id"`
	GroupID   string    `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleAssignment links a group to a role.
type RoleAssignment struct {
	GroupID   string    `json:"group_id"`
	RoleID    string    `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupDetail is a group together with its resolved roles and members.
type GroupDetail struct {
	Group
	Roles   []Role `json:"roles"`
	Members []User `json:"members"`
}

// GroupSummary is a group with usage counts for listings.
type GroupSummary struct {
	Group
	RoleCount   int `json:"role_count"`
	MemberCount int `json:"member_count"`
}

// RoleSummary is a role with the number of groups referencing it.
type RoleSummary struct {
	Role
	GroupCount int `json:"group_count"`
}

// TeamSummary is a team with its member count.
type TeamSummary struct {
	Team
	UserCount int `json:"user_count"`
}
