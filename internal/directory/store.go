package directory

import "context"

// Store describes persistence operations required by the directory service.
// Implementations return ErrNotFound for missing rows and ErrConflict for
// unique or foreign key violations.
type Store interface {
	Tenants() TenantStore
	Teams() TeamStore
	Users() UserStore
	Groups() GroupStore
	Roles() RoleStore
}

// TenantStore manages tenants. Deleting a tenant cascades to its teams and
// transitively to users at the schema level.
type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	Find(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Delete(ctx context.Context, id string) error
}

// TeamStore manages teams.
type TeamStore interface {
	Create(ctx context.Context, t *Team) error
	Find(ctx context.Context, id string) (*Team, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Team, error)
	CountUsers(ctx context.Context, teamID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// UserStore manages users.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)
	ListByTeam(ctx context.Context, teamID string) ([]*User, error)
	ListUnverified(ctx context.Context) ([]*User, error)
	SetVerified(ctx context.Context, id string, verified bool) (*User, error)
	Delete(ctx context.Context, id string) error
}

// GroupStore manages groups, memberships and role assignments.
type GroupStore interface {
	Create(ctx context.Context, g *Group) error
	Find(ctx context.Context, id string) (*Group, error)
	ListByTeam(ctx context.Context, teamID string) ([]*Group, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Group, error)
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	Members(ctx context.Context, groupID string) ([]*User, error)
	GroupsForUser(ctx context.Context, userID string) ([]*Group, error)

	AssignRole(ctx context.Context, groupID, roleID string) error
	UnassignRole(ctx context.Context, groupID, roleID string) error
	RolesForGroup(ctx context.Context, groupID string) ([]*Role, error)
}

// RoleStore manages the role catalog.
type RoleStore interface {
	Create(ctx context.Context, r *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, r *Role) error
	Delete(ctx context.Context, id string) error
	GroupCount(ctx context.Context, roleID string) (int, error)
}
