package rbac

import (
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"workguard360/core/store"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Policy answers capability checks for role names. Role permission sets are
// compiled into an in-memory casbin enforcer; Rebuild swaps the whole set so
// role edits take effect on the next check.
type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

func NewPolicy(roles []store.Role) (*Policy, error) {
	p := &Policy{}
	if err := p.Rebuild(roles); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Rebuild(roles []store.Role) error {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return err
	}
	for _, role := range roles {
		sub := strings.ToLower(strings.TrimSpace(role.Name))
		if sub == "" {
			continue
		}
		for _, name := range role.Permissions {
			c, ok := ParseCapability(name)
			if !ok {
				continue
			}
			if _, err := enforcer.AddPolicy(sub, c.Resource, c.Action); err != nil {
				return err
			}
		}
	}
	p.mu.Lock()
	p.enforcer = enforcer
	p.mu.Unlock()
	return nil
}

func (p *Policy) Allowed(roleName string, c Capability) bool {
	p.mu.RLock()
	enforcer := p.enforcer
	p.mu.RUnlock()
	if enforcer == nil {
		return false
	}
	ok, err := enforcer.Enforce(strings.ToLower(strings.TrimSpace(roleName)), c.Resource, c.Action)
	if err != nil {
		return false
	}
	return ok
}

func (p *Policy) AllowedAny(roleName string, caps ...Capability) bool {
	for _, c := range caps {
		if p.Allowed(roleName, c) {
			return true
		}
	}
	return false
}
