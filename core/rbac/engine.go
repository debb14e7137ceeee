package rbac

import (
	"errors"
	"strings"

	"workguard360/core/auth"
)

var (
	// ErrPrincipalInactive denies a deactivated account regardless of role.
	ErrPrincipalInactive = errors.New("principal inactive")
	// ErrInvalidPrincipal marks a malformed principal (no resolved role);
	// this is a caller bug, not an access decision.
	ErrInvalidPrincipal = errors.New("invalid principal")
	ErrForbidden        = errors.New("forbidden")
)

// Requirement is what an operation demands: any one of the listed
// capabilities, or an access level at or above MinLevel. An empty
// requirement denies.
type Requirement struct {
	AnyOf    []Capability
	MinLevel int
}

func RequireCapability(caps ...Capability) Requirement {
	return Requirement{AnyOf: caps}
}

func RequireLevel(level int) Requirement {
	return Requirement{MinLevel: level}
}

// Engine makes allow/deny decisions. It holds no per-principal state; the
// caller supplies a freshly resolved principal every time.
type Engine struct {
	policy *Policy
}

func NewEngine(policy *Policy) *Engine {
	return &Engine{policy: policy}
}

// Authorize returns nil on allow. Check order is fixed: active flag first,
// then the admin wildcard, then capabilities, then rank.
func (e *Engine) Authorize(p *auth.Principal, req Requirement) error {
	if p == nil || p.Role == nil {
		return ErrInvalidPrincipal
	}
	if !p.Active {
		return ErrPrincipalInactive
	}
	if IsSuperAdmin(p.Role.Name) {
		return nil
	}
	for _, c := range req.AnyOf {
		if e.policy.Allowed(p.Role.Name, c) {
			return nil
		}
	}
	if req.MinLevel > 0 && p.Role.AccessLevel >= req.MinLevel {
		return nil
	}
	return ErrForbidden
}

// IsSuperAdmin implements the wildcard rule: a role literally named
// "admin" or "super admin" bypasses capability checks entirely.
func IsSuperAdmin(roleName string) bool {
	name := strings.ToLower(strings.TrimSpace(roleName))
	return name == "admin" || name == "super admin"
}
