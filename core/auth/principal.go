package auth

import (
	"context"

	"workguard360/core/store"
)

type contextKey string

// PrincipalContextKey carries the resolved principal through a request.
const PrincipalContextKey contextKey = "principal"

// Principal is the resolved identity an operation is authorized as: the
// user plus their role as currently stored, not as it was at token issuance.
type Principal struct {
	UserID string
	Email  string
	Role   *store.Role
	Active bool
}

// Resolver turns a verified user id into a principal with a fresh role
// lookup. Roles are never cached here: an edited role is effective on the
// next request.
type Resolver struct {
	users store.UsersStore
	roles store.RolesStore
}

func NewResolver(users store.UsersStore, roles store.RolesStore) *Resolver {
	return &Resolver{users: users, roles: roles}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) (*Principal, error) {
	user, err := r.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	role, err := r.roles.Get(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	return &Principal{
		UserID: user.ID,
		Email:  user.Email,
		Role:   role,
		Active: user.Active,
	}, nil
}

// SystemPrincipal is the privileged identity used by trusted in-process
// callers such as the sensor ingest feed.
func SystemPrincipal() *Principal {
	return &Principal{
		UserID: "system",
		Email:  "system@workguard360.local",
		Active: true,
		Role: &store.Role{
			Name:        "Super Admin",
			Description: "Internal system principal",
			AccessLevel: 10,
		},
	}
}

// FromContext extracts the request principal, if any.
func FromContext(ctx context.Context) *Principal {
	if v := ctx.Value(PrincipalContextKey); v != nil {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}
