package access

import "context"

// Gate answers boolean authorization questions on top of the resolver.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// HasPermission reports whether the user holds action on module within the
// team. The check honors union-across-groups semantics: it is always
// consistent with Resolve(userID, teamID).Grants(module, action).
func (g *Gate) HasPermission(ctx context.Context, userID, teamID string, module Module, action Action) (bool, error) {
	if !ValidModule(module) || !ValidAction(action) {
		return false, ErrInvalidInput
	}
	perms, err := g.resolver.Resolve(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	return perms.Grants(module, action), nil
}

// HasModuleAccess reports whether any action is granted on the module.
func (g *Gate) HasModuleAccess(ctx context.Context, userID, teamID string, module Module) (bool, error) {
	if !ValidModule(module) {
		return false, ErrInvalidInput
	}
	perms, err := g.resolver.Resolve(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	return len(perms[module]) > 0, nil
}

// Resolve exposes the full effective permission set for callers that need
// more than a single yes/no answer.
func (g *Gate) Resolve(ctx context.Context, userID, teamID string) (PermissionMap, error) {
	return g.resolver.Resolve(ctx, userID, teamID)
}

// VerifyTeamOwnership fails with ErrForbidden when the resource belongs to a
// different team than the one the caller was authorized against. A permission
// check alone is not sufficient: a caller holding a grant in team A must not
// act on a team B resource by citing team A's id.
func VerifyTeamOwnership(resourceTeamID, requestedTeamID string) error {
	if resourceTeamID != requestedTeamID {
		return ErrForbidden
	}
	return nil
}
