package ginserver

import (
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcars/internal/domain/auth"
)

type TokenResolver interface {
	Resolve(token string) (auth.Principal, error)
}

// AuthMiddleware resolves an optional bearer token into the request principal.
// Requests without a token stay anonymous; a bad token is rejected.
type AuthMiddleware struct {
	Tokens TokenResolver
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Tokens == nil {
		c.Next()
		return
	}
	p, err := m.Tokens.Resolve(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		if !errors.Is(err, auth.ErrTokenInvalid) {
			err = auth.ErrTokenInvalid
		}
		writeError(c, m.Logger, err)
		return
	}
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	return auth.FromContext(c.Request.Context())
}

func requireRole(c *gin.Context, role auth.Role) (auth.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		writeError(c, nil, auth.ErrUnauthorized)
		return auth.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		writeError(c, nil, auth.ErrForbidden)
		return auth.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
