// Package access implements permission resolution and authorization
// decisions for team-scoped resources.
//
// Permissions are expressed as a closed matrix: each role grants a set of
// actions per module, groups carry roles, and users inherit the union of
// every role reachable through their group memberships within one team.
package access

import (
	"fmt"
	"sort"
)

// Module identifies a protected resource category.
type Module string

// Action identifies an operation within a module.
type Action string

const (
	ModuleVault      Module = "vault"
	ModuleFinancials Module = "financials"
	ModuleReporting  Module = "reporting"

	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Modules lists every known module in stable order.
var Modules = []Module{ModuleVault, ModuleFinancials, ModuleReporting}

// Actions lists every known action in stable order.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// PermissionMap maps each module to the set of granted actions. A complete
// map always carries an entry for every module, possibly empty.
type PermissionMap map[Module][]Action

// NewPermissionMap returns a map with an empty action list for every module.
func NewPermissionMap() PermissionMap {
	m := make(PermissionMap, len(Modules))
	for _, mod := range Modules {
		m[mod] = []Action{}
	}
	return m
}

// ValidModule reports whether m belongs to the closed module set.
func ValidModule(m Module) bool {
	switch m {
	case ModuleVault, ModuleFinancials, ModuleReporting:
		return true
	}
	return false
}

// ValidAction reports whether a belongs to the closed action set.
func ValidAction(a Action) bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParsePermissionMap validates a raw module→actions mapping against the
// closed module and action sets and normalizes it into a complete
// PermissionMap. Unknown modules or actions are rejected, never silently
// dropped; duplicate actions collapse.
func ParsePermissionMap(raw map[string][]string) (PermissionMap, error) {
	result := NewPermissionMap()
	for name, actions := range raw {
		mod := Module(name)
		if !ValidModule(mod) {
			return nil, fmt.Errorf("%w: unknown module %q", ErrInvalidInput, name)
		}
		seen := make(map[Action]struct{}, len(actions))
		list := result[mod][:0]
		for _, act := range actions {
			action := Action(act)
			if !ValidAction(action) {
				return nil, fmt.Errorf("%w: unknown action %q for module %q", ErrInvalidInput, act, name)
			}
			if _, ok := seen[action]; ok {
				continue
			}
			seen[action] = struct{}{}
			list = append(list, action)
		}
		sortActions(list)
		result[mod] = list
	}
	return result, nil
}

// Grants reports whether the map grants action within module.
func (p PermissionMap) Grants(module Module, action Action) bool {
	for _, a := range p[module] {
		if a == action {
			return true
		}
	}
	return false
}

// Merge unions other into p. Duplicate actions collapse; neither map is
// treated as authoritative, only additive.
func (p PermissionMap) Merge(other PermissionMap) {
	for _, mod := range Modules {
		if len(other[mod]) == 0 {
			continue
		}
		seen := make(map[Action]struct{}, len(p[mod])+len(other[mod]))
		for _, a := range p[mod] {
			seen[a] = struct{}{}
		}
		merged := p[mod]
		for _, a := range other[mod] {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			merged = append(merged, a)
		}
		sortActions(merged)
		p[mod] = merged
	}
}

func sortActions(list []Action) {
	sort.Slice(list, func(i, j int) bool { return actionRank(list[i]) < actionRank(list[j]) })
}

func actionRank(a Action) int {
	for i, known := range Actions {
		if known == a {
			return i
		}
	}
	return len(Actions)
}
