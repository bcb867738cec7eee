// Package middleware holds the HTTP cross-cutting layers: bearer
// authentication, role guards, rate limiting and request metrics.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/clients"
)

type contextKey int

const (
	principalKey contextKey = iota
	tokenKey
)

// AuthAPI verifies a bearer token against the auth service.
type AuthAPI interface {
	Me(ctx context.Context, token string) (*clients.Principal, error)
}

// PrincipalFrom returns the authenticated principal stored by Authenticate.
func PrincipalFrom(ctx context.Context) (*clients.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*clients.Principal)
	return p, ok
}

// TokenFrom returns the raw bearer token for forwarding to collaborators.
func TokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// WithPrincipal injects a principal and token; used by handler tests.
func WithPrincipal(ctx context.Context, p *clients.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

// Authenticate resolves the Authorization header to a principal and stores
// it on the request context. Requests without a bearer token are rejected.
func Authenticate(auth AuthAPI) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, apperr.Unauthorized("missing_token"))
				return
			}
			principal, err := auth.Me(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal, token)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeError renders the {"detail": code} error envelope the mobile
// clients parse.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]string{"detail": apperr.CodeOf(err)})
}
