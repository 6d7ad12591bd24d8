package middleware

import (
	"context"
	"strings"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/queries"
	"rentcars/internal/domain/auth"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted is implemented by messages reserved to callers holding a role.
type RoleRestricted interface {
	RequiredRole() auth.Role
}

// RoleAuthorizer checks RoleRestricted messages against the principal in ctx.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	role := restricted.RequiredRole()
	if strings.TrimSpace(string(role)) == "" {
		return nil
	}
	p, ok := auth.FromContext(ctx)
	if !ok {
		return auth.ErrUnauthorized
	}
	if !p.HasRole(role) {
		return auth.ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
