// Package security provides the security contexts handed to the audit serializer.
package security

import (
	"sort"
	"sync"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/types"
)

type systemContext struct{}

func (systemContext) HasPermission(types.Action) bool { return true }

type noneContext struct{}

func (noneContext) HasPermission(types.Action) bool { return false }

// System returns a context granted every action. It is meant for internal
// callers such as journals, never for end users.
func System() interfaces.SecurityContext {
	return systemContext{}
}

// None returns a context granted nothing
func None() interfaces.SecurityContext {
	return noneContext{}
}

// Static is a fixed set of granted actions
type Static struct {
	actions map[types.Action]struct{}
}

// NewStatic creates a context granting exactly actions
func NewStatic(actions ...types.Action) *Static {
	s := &Static{actions: make(map[types.Action]struct{}, len(actions))}
	for _, a := range actions {
		s.actions[a] = struct{}{}
	}
	return s
}

// HasPermission implements interfaces.SecurityContext
func (s *Static) HasPermission(action types.Action) bool {
	_, ok := s.actions[action]
	return ok
}

// Actions returns the granted actions, sorted
func (s *Static) Actions() []types.Action {
	out := make([]types.Action, 0, len(s.actions))
	for a := range s.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleContext grants the union of the actions of its roles. The role
// table is shared and may be updated while contexts are in use; every
// check reads its current state.
type RoleContext struct {
	roles []string
	table *RoleTable
}

// RoleTable maps role names to granted actions
type RoleTable struct {
	mu     sync.RWMutex
	grants map[string][]types.Action
}

// NewRoleTable creates a role table from a role → actions mapping
func NewRoleTable(grants map[string][]types.Action) *RoleTable {
	t := &RoleTable{grants: make(map[string][]types.Action, len(grants))}
	for role, actions := range grants {
		t.grants[role] = append([]types.Action(nil), actions...)
	}
	return t
}

// Set replaces the actions granted to role
func (t *RoleTable) Set(role string, actions ...types.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grants[role] = append([]types.Action(nil), actions...)
}

// Grants reports whether role grants action
func (t *RoleTable) Grants(role string, action types.Action) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.grants[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Context creates a security context for a caller holding roles
func (t *RoleTable) Context(roles ...string) *RoleContext {
	return &RoleContext{roles: append([]string(nil), roles...), table: t}
}

// HasPermission implements interfaces.SecurityContext
func (c *RoleContext) HasPermission(action types.Action) bool {
	for _, role := range c.roles {
		if c.table.Grants(role, action) {
			return true
		}
	}
	return false
}

var (
	_ interfaces.SecurityContext = systemContext{}
	_ interfaces.SecurityContext = noneContext{}
	_ interfaces.SecurityContext = (*Static)(nil)
	_ interfaces.SecurityContext = (*RoleContext)(nil)
)
