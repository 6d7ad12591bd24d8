package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rentcars/internal/domain/auth"
)

func TestPrincipalRoles(t *testing.T) {
	p := auth.Principal{UserID: "u1", Roles: []auth.Role{"Admin"}}
	assert.True(t, p.IsAdmin())
	assert.True(t, p.HasRole(" admin "))
	assert.False(t, p.HasRole(auth.RoleRenter))
	assert.False(t, p.HasRole(""))
}

func TestPrincipalExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, auth.Principal{}.Expired(now))
	assert.True(t, auth.Principal{ExpiresAt: now}.Expired(now))
	assert.False(t, auth.Principal{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.FromContext(auth.WithPrincipal(context.Background(), auth.Principal{}))
	assert.False(t, ok, "principal without user id is anonymous")

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "u1", Email: "a@b.c"})
	p, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", p.Email)
}

func TestCallerScope(t *testing.T) {
	ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "u-1"})
	assert.Equal(t, "user:u-1", auth.CallerScope(ctx, "x@example.com"))
	assert.Equal(t, "anon:x@example.com", auth.CallerScope(context.Background(), " X@Example.com "))
	assert.Equal(t, "anon:", auth.CallerScope(context.Background(), ""))
}
