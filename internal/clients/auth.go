package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/circuitbreaker"
)

// Principal is the authenticated caller as reported by the auth service.
type Principal struct {
	ID    int64    `json:"id"`
	Roles []string `json:"roles"`
}

// HasRole reports membership in a single role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthClient validates bearer tokens against the auth collaborator.
type AuthClient struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker
}

func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("auth")),
	}
}

// Me resolves the token to a principal. Any rejection by the auth service
// maps to unauthorized; only transport failures surface as unavailable.
func (c *AuthClient) Me(ctx context.Context, token string) (*Principal, error) {
	var principal *Principal
	var authErr error
	err := execute(ctx, c.breaker, "auth_service_unavailable", func(ctx context.Context) error {
		req, err := newJSONRequest(ctx, http.MethodGet, c.baseURL+"/auth/me", token, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamUnavailable, "auth_service_unavailable", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			authErr = apperr.Unauthorized("invalid_token")
			return nil
		}
		var p Principal
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.ID == 0 {
			authErr = apperr.Unauthorized("invalid_token")
			return nil
		}
		principal = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if authErr != nil {
		return nil, authErr
	}
	return principal, nil
}
