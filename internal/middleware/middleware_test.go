package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/clients"
	"github.com/assettrack/backend/internal/config"
)

func TestRateLimiterAllowWithinWindow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{MaxCallsPerMinute: 3, BurstSize: 5})
	defer rl.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("user:1"), "call %d", i)
	}
	// Between the soft limit and the burst ceiling calls are refused.
	assert.False(t, rl.Allow("user:1"))

	// Another caller has an independent window.
	assert.True(t, rl.Allow("user:2"))
}

func TestRateLimiterMiddlewareRejectsWithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})
	defer rl.Close()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/audit/plans", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientKeyPrefersPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "addr:10.0.0.1", clientKey(req))

	p := &clients.Principal{ID: 42}
	req = req.WithContext(WithPrincipal(req.Context(), p, "tok"))
	assert.Equal(t, "user:42", clientKey(req))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", bearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", bearerToken(req))

	req.Header.Set("Authorization", "Bearer  tok-123 ")
	assert.Equal(t, "tok-123", bearerToken(req))

	req.Header.Set("Authorization", "bearer tok-123")
	assert.Equal(t, "tok-123", bearerToken(req))
}

func TestPrincipalRoundTrip(t *testing.T) {
	p := &clients.Principal{ID: 7, Roles: []string{"inventory_auditor"}}
	ctx := WithPrincipal(httptest.NewRequest(http.MethodGet, "/", nil).Context(), p, "tok")

	got, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "tok", TokenFrom(ctx))
}
