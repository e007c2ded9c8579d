package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/toyz/mininest/pkg/nest"
)

// APIKey is the key AuthGuard accepts
type APIKey string

// APIKeyHeader carries the caller's key
const APIKeyHeader = "x-api-key"

// AuthGuard rejects requests without a matching x-api-key header
type AuthGuard struct {
	key APIKey
	now func() time.Time
}

func NewAuthGuard(key APIKey) *AuthGuard {
	return &AuthGuard{key: key, now: time.Now}
}

// CanActivate reports whether the request carries the key
func (g *AuthGuard) CanActivate(ctx nest.RequestContext) bool {
	got := ctx.Header(APIKeyHeader)
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(g.key)) == 1
}

func (g *AuthGuard) Use(ctx nest.RequestContext, next nest.NextFunc) error {
	if g.CanActivate(ctx) {
		return next()
	}
	return ctx.Response().JSON(http.StatusUnauthorized, map[string]any{
		"statusCode": http.StatusUnauthorized,
		"message":    "Unauthorized",
		"timestamp":  g.now().UTC().Format(time.RFC3339Nano),
		"path":       ctx.Path(),
	})
}
