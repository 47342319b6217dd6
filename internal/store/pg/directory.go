package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"teamgate.org/internal/access"
	"teamgate.org/internal/directory"
)

// Tenant store ---------------------------------------------------------------

type tenantStore struct{ db *sql.DB }

func (s *tenantStore) Create(ctx context.Context, t *directory.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into tenants(id, name) values($1,$2) returning created_at`,
		t.ID, t.Name,
	)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *tenantStore) Find(ctx context.Context, id string) (*directory.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at from tenants where id=$1`, id)
	var t directory.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *tenantStore) List(ctx context.Context) ([]*directory.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, created_at from tenants order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*directory.Tenant
	for rows.Next() {
		var t directory.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}

func (s *tenantStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from tenants where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// Team store -----------------------------------------------------------------

type teamStore struct{ db *sql.DB }

func (s *teamStore) Create(ctx context.Context, t *directory.Team) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into teams(id, tenant_id, name) values($1,$2,$3) returning created_at`,
		t.ID, t.TenantID, t.Name,
	)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *teamStore) Find(ctx context.Context, id string) (*directory.Team, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, tenant_id, name, created_at from teams where id=$1`, id)
	var t directory.Team
	if err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *teamStore) ListByTenant(ctx context.Context, tenantID string) ([]*directory.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, tenant_id, name, created_at from teams where tenant_id=$1 order by created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*directory.Team
	for rows.Next() {
		var t directory.Team
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}

func (s *teamStore) CountUsers(ctx context.Context, teamID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where team_id=$1`, teamID).Scan(&n)
	return n, err
}

func (s *teamStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from teams where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// User store -----------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, email, name, verified, tenant_id, team_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*directory.User, error) {
	var u directory.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Verified, &u.TenantID, &u.TeamID, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *directory.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, verified, tenant_id, team_id)
		 values($1,$2,$3,$4,$5,$6) returning created_at`,
		u.ID, u.Email, u.Name, u.Verified, u.TenantID, u.TeamID,
	)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*directory.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from users where id=$1`, userColumns), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return u, err
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*directory.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from users where email=$1`, userColumns), email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return u, err
}

func (s *userStore) list(ctx context.Context, query string, args ...any) ([]*directory.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *userStore) ListByTenant(ctx context.Context, tenantID string) ([]*directory.User, error) {
	return s.list(ctx,
		fmt.Sprintf(`select %s from users where tenant_id=$1 order by created_at`, userColumns), tenantID)
}

func (s *userStore) ListByTeam(ctx context.Context, teamID string) ([]*directory.User, error) {
	return s.list(ctx,
		fmt.Sprintf(`select %s from users where team_id=$1 order by created_at`, userColumns), teamID)
}

func (s *userStore) ListUnverified(ctx context.Context) ([]*directory.User, error) {
	return s.list(ctx,
		fmt.Sprintf(`select %s from users where not verified order by created_at`, userColumns))
}

func (s *userStore) SetVerified(ctx context.Context, id string, verified bool) (*directory.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`update users set verified=$2 where id=$1 returning %s`, userColumns),
		id, verified))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return u, err
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// Group store ----------------------------------------------------------------

type groupStore struct{ db *sql.DB }

func (s *groupStore) Create(ctx context.Context, g *directory.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into groups(id, team_id, name, description) values($1,$2,$3,$4) returning created_at`,
		g.ID, g.TeamID, g.Name, g.Description,
	)
	if err := row.Scan(&g.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *groupStore) Find(ctx context.Context, id string) (*directory.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, team_id, name, description, created_at from groups where id=$1`, id)
	var g directory.Group
	if err := row.Scan(&g.ID, &g.TeamID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *groupStore) listGroups(ctx context.Context, query string, args ...any) ([]*directory.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*directory.Group
	for rows.Next() {
		var g directory.Group
		if err := rows.Scan(&g.ID, &g.TeamID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &g)
	}
	return res, rows.Err()
}

func (s *groupStore) ListByTeam(ctx context.Context, teamID string) ([]*directory.Group, error) {
	return s.listGroups(ctx,
		`select id, team_id, name, description, created_at from groups where team_id=$1 order by created_at`, teamID)
}

func (s *groupStore) ListByTenant(ctx context.Context, tenantID string) ([]*directory.Group, error) {
	return s.listGroups(ctx,
		`select g.id, g.team_id, g.name, g.description, g.created_at
		 from groups g join teams t on t.id = g.team_id
		 where t.tenant_id=$1 order by g.created_at`, tenantID)
}

func (s *groupStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from groups where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (s *groupStore) AddMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into user_groups(user_id, group_id) values($1,$2) on conflict do nothing`,
		userID, groupID,
	)
	return mapWriteError(err)
}

func (s *groupStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from user_groups where user_id=$1 and group_id=$2`, userID, groupID)
	return err
}

func (s *groupStore) Members(ctx context.Context, groupID string) ([]*directory.User, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`select %s from users u
		 join user_groups ug on ug.user_id = u.id
		 where ug.group_id=$1 order by u.created_at`,
			prefixColumns("u", userColumns)), groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *groupStore) GroupsForUser(ctx context.Context, userID string) ([]*directory.Group, error) {
	return s.listGroups(ctx,
		`select g.id, g.team_id, g.name, g.description, g.created_at
		 from groups g join user_groups ug on ug.group_id = g.id
		 where ug.user_id=$1 order by g.created_at`, userID)
}

func (s *groupStore) AssignRole(ctx context.Context, groupID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into group_roles(group_id, role_id) values($1,$2) on conflict do nothing`,
		groupID, roleID,
	)
	return mapWriteError(err)
}

func (s *groupStore) UnassignRole(ctx context.Context, groupID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from group_roles where group_id=$1 and role_id=$2`, groupID, roleID)
	return err
}

func (s *groupStore) RolesForGroup(ctx context.Context, groupID string) ([]*directory.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select r.id, r.name, r.description, r.permissions, r.created_at
		 from roles r join group_roles gr on gr.role_id = r.id
		 where gr.group_id=$1 order by r.name`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// Role store -----------------------------------------------------------------

type roleStore struct{ db *sql.DB }

func (s *roleStore) Create(ctx context.Context, r *directory.Role) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	perms, err := json.Marshal(r.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`insert into roles(id, name, description, permissions) values($1,$2,$3,$4) returning created_at`,
		r.ID, r.Name, r.Description, perms,
	)
	if err := row.Scan(&r.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *roleStore) Find(ctx context.Context, id string) (*directory.Role, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, description, permissions, created_at from roles where id=$1`, id)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return role, err
}

func (s *roleStore) List(ctx context.Context) ([]*directory.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description, permissions, created_at from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (s *roleStore) Update(ctx context.Context, r *directory.Role) error {
	perms, err := json.Marshal(r.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`update roles set description=$2, permissions=$3 where id=$1`,
		r.ID, r.Description, perms,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (s *roleStore) GroupCount(ctx context.Context, roleID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from group_roles where role_id=$1`, roleID).Scan(&n)
	return n, err
}

// helpers --------------------------------------------------------------------

func scanRole(row interface{ Scan(...any) error }) (*directory.Role, error) {
	var (
		r   directory.Role
		raw []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &raw, &r.CreatedAt); err != nil {
		return nil, err
	}
	matrix, err := decodePermissions(raw)
	if err != nil {
		return nil, err
	}
	r.Permissions = matrix
	return &r, nil
}

func collectRoles(rows *sql.Rows) ([]*directory.Role, error) {
	var res []*directory.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, role)
	}
	return res, rows.Err()
}

// decodePermissions revalidates the stored matrix against the closed
// module/action sets; a row that fails validation is surfaced as corrupt
// rather than resolved.
func decodePermissions(raw []byte) (access.PermissionMap, error) {
	var stored map[string][]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	matrix, err := access.ParsePermissionMap(stored)
	if err != nil {
		return nil, fmt.Errorf("stored permissions invalid: %w", err)
	}
	return matrix, nil
}

func prefixColumns(alias, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var (
		res []string
		cur []byte
	)
	for i := 0; i < len(columns); i++ {
		switch columns[i] {
		case ',':
			res = append(res, string(cur))
			cur = cur[:0]
		case ' ':
		default:
			cur = append(cur, columns[i])
		}
	}
	if len(cur) > 0 {
		res = append(res, string(cur))
	}
	return res
}
