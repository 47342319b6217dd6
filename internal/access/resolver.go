package access

import "context"

// MatrixSource loads the permission matrices of every role reachable from a
// user through group membership within one team. Implementations must fetch
// the whole set in a single batched query: the resolver runs on every
// authorized request and must not fan out per group.
type MatrixSource interface {
	MemberPermissionMatrices(ctx context.Context, userID, teamID string) ([]PermissionMap, error)
}

// Resolver computes effective permission sets. It performs no mutation and
// is safe for concurrent use.
type Resolver struct {
	source MatrixSource
}

// NewResolver constructs a Resolver backed by the given source.
func NewResolver(source MatrixSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the effective permission set for user scoped to team:
// the set union of every matrix granted by roles assigned to groups the user
// belongs to in that team. Groups from other teams never contribute. A user
// with no memberships in the team resolves to the all-empty map.
func (r *Resolver) Resolve(ctx context.Context, userID, teamID string) (PermissionMap, error) {
	matrices, err := r.source.MemberPermissionMatrices(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	merged := NewPermissionMap()
	for _, m := range matrices {
		merged.Merge(m)
	}
	return merged, nil
}
