package pg

import (
	"context"

	"teamgate.org/internal/access"
)

var _ access.MatrixSource = (*Store)(nil)

// MemberPermissionMatrices fetches the permission matrix of every role
// reachable from the user through groups of the target team. One query for
// the whole traversal; the resolver runs on every authorized request and a
// per-group fan-out would turn it into an N+1 hot spot.
func (s *Store) MemberPermissionMatrices(ctx context.Context, userID, teamID string) ([]access.PermissionMap, error) {
	rows, err := s.db.QueryContext(ctx,
		`select r.permissions
		 from user_groups ug
		 join groups g on g.id = ug.group_id
		 join group_roles gr on gr.group_id = g.id
		 join roles r on r.id = gr.role_id
		 where ug.user_id = $1 and g.team_id = $2`,
		userID, teamID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matrices []access.PermissionMap
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		matrix, err := decodePermissions(raw)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, matrix)
	}
	return matrices, rows.Err()
}
