package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rentcars/internal/domain/auth"
)

type claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(strings.TrimSpace(secret)) < 16 {
		return nil, errors.New("security: jwt secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: strings.TrimSpace(issuer), ttl: ttl, now: time.Now}, nil
}

// Issue mints a token for the principal. Used by operators and tests; the
// engine never logs users in itself.
func (s *TokenService) Issue(p auth.Principal) (string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return "", auth.ErrUnauthorized
	}
	now := s.now().UTC()
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	c := claims{
		Email: p.Email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies the token and returns the principal it names.
func (s *TokenService) Resolve(token string) (auth.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Principal{}, auth.ErrTokenRequired
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return auth.Principal{}, fmt.Errorf("%w: %v", auth.ErrTokenInvalid, err)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return auth.Principal{}, auth.ErrTokenInvalid
	}
	p := auth.Principal{UserID: c.Subject, Email: c.Email}
	for _, r := range c.Roles {
		p.Roles = append(p.Roles, auth.Role(strings.ToLower(strings.TrimSpace(r))))
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return p, nil
}
