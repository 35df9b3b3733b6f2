package auth

import (
	"context"

	"github.com/dukerupert/eventsphere/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	UserID string
	Name   string
	Email  string
	Role   model.Role
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

func Role(ctx context.Context) model.Role {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Role
}

func IsAdmin(ctx context.Context) bool {
	return Role(ctx) == model.RoleAdmin
}

// HasRole reports whether the authenticated user holds any of the given roles.
func HasRole(ctx context.Context, roles ...model.Role) bool {
	r := Role(ctx)
	if r == "" {
		return false
	}
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}
