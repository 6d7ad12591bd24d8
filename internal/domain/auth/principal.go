package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrTokenRequired = errors.New("auth: token is required")
	ErrTokenInvalid  = errors.New("auth: token is invalid or expired")
	ErrUnauthorized  = errors.New("auth: authentication required")
	ErrForbidden     = errors.New("auth: operation not permitted")
)

type Role string

const (
	RoleRenter Role = "renter"
	RoleAdmin  Role = "admin"
)

// Principal is the caller resolved from a bearer token. Anonymous callers have none.
type Principal struct {
	UserID    string
	Email     string
	Roles     []Role
	ExpiresAt time.Time
}

func (p Principal) HasRole(role Role) bool {
	want := strings.ToLower(strings.TrimSpace(string(role)))
	if want == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(string(r)) == want {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

func (p Principal) Expired(at time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return !p.ExpiresAt.After(at.UTC())
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the authenticated principal, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || strings.TrimSpace(p.UserID) == "" {
		return Principal{}, false
	}
	return p, true
}

// CallerScope names who is calling: the principal's user id, or for anonymous
// callers the contact they supplied. Used to keep idempotency keys per caller.
func CallerScope(ctx context.Context, anonymousContact string) string {
	if p, ok := FromContext(ctx); ok {
		return "user:" + p.UserID
	}
	return "anon:" + strings.ToLower(strings.TrimSpace(anonymousContact))
}
