package rbac

import (
	"fmt"
	"sort"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const policyModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	roles    []Role
}

func NewPolicy(defs []RoleDef) (*Policy, error) {
	p := &Policy{}
	if err := p.Replace(defs); err != nil {
		return nil, err
	}
	return p, nil
}

// MustPolicy panics when the built-in definitions cannot be loaded.
func MustPolicy(defs []RoleDef) *Policy {
	p, err := NewPolicy(defs)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) Allowed(role Role, perm Permission) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(string(role), string(perm))
	if err != nil {
		return false
	}
	return ok
}

// RolesWith returns the configured roles holding perm, sorted.
func (p *Policy) RolesWith(perm Permission) []Role {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	known := append([]Role(nil), p.roles...)
	p.mu.RUnlock()
	out := make([]Role, 0, len(known))
	for _, r := range known {
		if p.Allowed(r, perm) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionsFor returns the effective permissions of role, inherited ones
// included.
func (p *Policy) PermissionsFor(role Role) []Permission {
	out := make([]Permission, 0, len(permissions))
	for _, perm := range permissions {
		if p.Allowed(role, perm) {
			out = append(out, perm)
		}
	}
	return out
}

// Replace rebuilds the enforcer from defs and swaps it in atomically.
func (p *Policy) Replace(defs []RoleDef) error {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return fmt.Errorf("rbac enforcer: %w", err)
	}
	names := make([]Role, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
		for _, perm := range def.Permissions {
			if _, err := e.AddPolicy(string(def.Name), string(perm)); err != nil {
				return fmt.Errorf("rbac policy %s/%s: %w", def.Name, perm, err)
			}
		}
		for _, parent := range def.Inherits {
			if _, err := e.AddGroupingPolicy(string(def.Name), string(parent)); err != nil {
				return fmt.Errorf("rbac inherit %s->%s: %w", def.Name, parent, err)
			}
		}
	}
	p.mu.Lock()
	p.enforcer = e
	p.roles = names
	p.mu.Unlock()
	return nil
}
