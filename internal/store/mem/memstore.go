// Package mem implements the storage interfaces in memory. It backs unit
// tests and local development without PostgreSQL; semantics mirror the pg
// package, including cascade deletes and the single-winner link redemption.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamgate.org/internal/access"
	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/resource"
)

// Store holds every collection behind one mutex. Suitable for tests; not
// meant to be a production store.
type Store struct {
	mu sync.Mutex

	tenants  map[string]directory.Tenant
	teams    map[string]directory.Team
	users    map[string]directory.User
	groups   map[string]directory.Group
	roles    map[string]directory.Role
	members  map[[2]string]time.Time // (userID, groupID)
	assigned map[[2]string]time.Time // (groupID, roleID)

	sessions map[string]auth.Session          // by token
	links    map[string]auth.PasswordlessLink // by token

	secrets map[string]resource.VaultSecret
	txns    map[string]resource.Transaction
	reports map[string]resource.Report
}

var (
	_ directory.Store     = (*Store)(nil)
	_ auth.Store          = (*Store)(nil)
	_ resource.Store      = (*Store)(nil)
	_ access.MatrixSource = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		tenants:  make(map[string]directory.Tenant),
		teams:    make(map[string]directory.Team),
		users:    make(map[string]directory.User),
		groups:   make(map[string]directory.Group),
		roles:    make(map[string]directory.Role),
		members:  make(map[[2]string]time.Time),
		assigned: make(map[[2]string]time.Time),
		sessions: make(map[string]auth.Session),
		links:    make(map[string]auth.PasswordlessLink),
		secrets:  make(map[string]resource.VaultSecret),
		txns:     make(map[string]resource.Transaction),
		reports:  make(map[string]resource.Report),
	}
}

func (s *Store) Tenants() directory.TenantStore { return (*tenantStore)(s) }
func (s *Store) Teams() directory.TeamStore     { return (*teamStore)(s) }
func (s *Store) Users() directory.UserStore     { return (*userStore)(s) }
func (s *Store) Groups() directory.GroupStore   { return (*groupStore)(s) }
func (s *Store) Roles() directory.RoleStore     { return (*roleStore)(s) }

func (s *Store) Sessions() auth.SessionStore { return (*sessionStore)(s) }
func (s *Store) Links() auth.LinkStore       { return (*linkStore)(s) }

// MemberPermissionMatrices mirrors the pg join: roles assigned to groups of
// the target team that the user belongs to.
func (s *Store) MemberPermissionMatrices(_ context.Context, userID, teamID string) ([]access.PermissionMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matrices []access.PermissionMap
	for key := range s.members {
		if key[0] != userID {
			continue
		}
		group, ok := s.groups[key[1]]
		if !ok || group.TeamID != teamID {
			continue
		}
		for assignment := range s.assigned {
			if assignment[0] != group.ID {
				continue
			}
			if role, ok := s.roles[assignment[1]]; ok {
				matrices = append(matrices, cloneMatrix(role.Permissions))
			}
		}
	}
	return matrices, nil
}

// Tenant store ---------------------------------------------------------------

type tenantStore Store

func (s *tenantStore) Create(_ context.Context, t *directory.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := s.tenants[t.ID]; ok {
		return directory.ErrConflict
	}
	t.CreatedAt = time.Now().UTC()
	s.tenants[t.ID] = *t
	return nil
}

func (s *tenantStore) Find(_ context.Context, id string) (*directory.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &t, nil
}

func (s *tenantStore) List(_ context.Context) ([]*directory.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Tenant
	for _, t := range s.tenants {
		tenant := t
		res = append(res, &tenant)
	}
	return res, nil
}

func (s *tenantStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[id]; !ok {
		return directory.ErrNotFound
	}
	delete(s.tenants, id)
	for teamID, team := range s.teams {
		if team.TenantID == id {
			(*Store)(s).deleteTeamLocked(teamID)
		}
	}
	return nil
}

// Team store -----------------------------------------------------------------

type teamStore Store

func (s *teamStore) Create(_ context.Context, t *directory.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.TenantID]; !ok {
		return directory.ErrNotFound
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	s.teams[t.ID] = *t
	return nil
}

func (s *teamStore) Find(_ context.Context, id string) (*directory.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &t, nil
}

func (s *teamStore) ListByTenant(_ context.Context, tenantID string) ([]*directory.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Team
	for _, t := range s.teams {
		if t.TenantID == tenantID {
			team := t
			res = append(res, &team)
		}
	}
	return res, nil
}

func (s *teamStore) CountUsers(_ context.Context, teamID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (s *teamStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return directory.ErrNotFound
	}
	(*Store)(s).deleteTeamLocked(id)
	return nil
}

func (s *Store) deleteTeamLocked(teamID string) {
	delete(s.teams, teamID)
	for userID, u := range s.users {
		if u.TeamID == teamID {
			s.deleteUserLocked(userID)
		}
	}
	for groupID, g := range s.groups {
		if g.TeamID == teamID {
			s.deleteGroupLocked(groupID)
		}
	}
	for id, sec := range s.secrets {
		if sec.TeamID == teamID {
			delete(s.secrets, id)
		}
	}
	for id, t := range s.txns {
		if t.TeamID == teamID {
			delete(s.txns, id)
		}
	}
	for id, r := range s.reports {
		if r.TeamID == teamID {
			delete(s.reports, id)
		}
	}
}

func (s *Store) deleteUserLocked(userID string) {
	delete(s.users, userID)
	for key := range s.members {
		if key[0] == userID {
			delete(s.members, key)
		}
	}
	for token, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, token)
		}
	}
}

func (s *Store) deleteGroupLocked(groupID string) {
	delete(s.groups, groupID)
	for key := range s.members {
		if key[1] == groupID {
			delete(s.members, key)
		}
	}
	for key := range s.assigned {
		if key[0] == groupID {
			delete(s.assigned, key)
		}
	}
}

// User store -----------------------------------------------------------------

type userStore Store

func (s *userStore) Create(_ context.Context, u *directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return directory.ErrConflict
		}
	}
	if _, ok := s.teams[u.TeamID]; !ok {
		return directory.ErrNotFound
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *userStore) Find(_ context.Context, id string) (*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &u, nil
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (s *userStore) ListByTenant(_ context.Context, tenantID string) ([]*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			user := u
			res = append(res, &user)
		}
	}
	return res, nil
}

func (s *userStore) ListByTeam(_ context.Context, teamID string) ([]*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.User
	for _, u := range s.users {
		if u.TeamID == teamID {
			user := u
			res = append(res, &user)
		}
	}
	return res, nil
}

func (s *userStore) ListUnverified(_ context.Context) ([]*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.User
	for _, u := range s.users {
		if !u.Verified {
			user := u
			res = append(res, &user)
		}
	}
	return res, nil
}

func (s *userStore) SetVerified(_ context.Context, id string, verified bool) (*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	u.Verified = verified
	s.users[id] = u
	return &u, nil
}

func (s *userStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return directory.ErrNotFound
	}
	(*Store)(s).deleteUserLocked(id)
	return nil
}

// Group store ----------------------------------------------------------------

type groupStore Store

func (s *groupStore) Create(_ context.Context, g *directory.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[g.TeamID]; !ok {
		return directory.ErrNotFound
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = time.Now().UTC()
	s.groups[g.ID] = *g
	return nil
}

func (s *groupStore) Find(_ context.Context, id string) (*directory.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &g, nil
}

func (s *groupStore) ListByTeam(_ context.Context, teamID string) ([]*directory.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Group
	for _, g := range s.groups {
		if g.TeamID == teamID {
			group := g
			res = append(res, &group)
		}
	}
	return res, nil
}

func (s *groupStore) ListByTenant(_ context.Context, tenantID string) ([]*directory.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Group
	for _, g := range s.groups {
		team, ok := s.teams[g.TeamID]
		if ok && team.TenantID == tenantID {
			group := g
			res = append(res, &group)
		}
	}
	return res, nil
}

func (s *groupStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return directory.ErrNotFound
	}
	(*Store)(s).deleteGroupLocked(id)
	return nil
}

func (s *groupStore) AddMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return directory.ErrNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return directory.ErrNotFound
	}
	s.members[[2]string{userID, groupID}] = time.Now().UTC()
	return nil
}

func (s *groupStore) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, [2]string{userID, groupID})
	return nil
}

func (s *groupStore) Members(_ context.Context, groupID string) ([]*directory.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.User
	for key := range s.members {
		if key[1] != groupID {
			continue
		}
		if u, ok := s.users[key[0]]; ok {
			user := u
			res = append(res, &user)
		}
	}
	return res, nil
}

func (s *groupStore) GroupsForUser(_ context.Context, userID string) ([]*directory.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Group
	for key := range s.members {
		if key[0] != userID {
			continue
		}
		if g, ok := s.groups[key[1]]; ok {
			group := g
			res = append(res, &group)
		}
	}
	return res, nil
}

func (s *groupStore) AssignRole(_ context.Context, groupID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return directory.ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return directory.ErrNotFound
	}
	s.assigned[[2]string{groupID, roleID}] = time.Now().UTC()
	return nil
}

func (s *groupStore) UnassignRole(_ context.Context, groupID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assigned, [2]string{groupID, roleID})
	return nil
}

func (s *groupStore) RolesForGroup(_ context.Context, groupID string) ([]*directory.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Role
	for key := range s.assigned {
		if key[0] != groupID {
			continue
		}
		if r, ok := s.roles[key[1]]; ok {
			role := r
			role.Permissions = cloneMatrix(r.Permissions)
			res = append(res, &role)
		}
	}
	return res, nil
}

// Role store -----------------------------------------------------------------

type roleStore Store

func (s *roleStore) Create(_ context.Context, r *directory.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return directory.ErrConflict
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	stored := *r
	stored.Permissions = cloneMatrix(r.Permissions)
	s.roles[r.ID] = stored
	return nil
}

func (s *roleStore) Find(_ context.Context, id string) (*directory.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	role := r
	role.Permissions = cloneMatrix(r.Permissions)
	return &role, nil
}

func (s *roleStore) List(_ context.Context) ([]*directory.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*directory.Role
	for _, r := range s.roles {
		role := r
		role.Permissions = cloneMatrix(r.Permissions)
		res = append(res, &role)
	}
	return res, nil
}

func (s *roleStore) Update(_ context.Context, r *directory.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.roles[r.ID]
	if !ok {
		return directory.ErrNotFound
	}
	stored.Description = r.Description
	stored.Permissions = cloneMatrix(r.Permissions)
	s.roles[r.ID] = stored
	return nil
}

func (s *roleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return directory.ErrNotFound
	}
	delete(s.roles, id)
	for key := range s.assigned {
		if key[1] == id {
			delete(s.assigned, key)
		}
	}
	return nil
}

func (s *roleStore) GroupCount(_ context.Context, roleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.assigned {
		if key[1] == roleID {
			n++
		}
	}
	return n, nil
}

func cloneMatrix(m access.PermissionMap) access.PermissionMap {
	out := access.NewPermissionMap()
	out.Merge(m)
	return out
}
