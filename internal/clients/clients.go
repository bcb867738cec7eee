// Package clients holds the bounded HTTP adapters for the collaborator
// services (auth, location, inventory, notifications). Each client carries
// its own fixed timeout and maps transport and status failures to the
// audit core's error kinds; a circuit breaker fails fast when a
// collaborator is persistently down.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/circuitbreaker"
)

// execute runs call under the breaker, translating breaker fail-fast errors
// into the collaborator's unavailable code. By convention the call closure
// returns an error only for transport-level failures; status-level outcomes
// (403/404/5xx) are carried out of the closure by the caller so they never
// trip the breaker.
func execute(ctx context.Context, b *circuitbreaker.Breaker, unavailableCode string, call func(context.Context) error) error {
	err := b.Execute(ctx, call)
	if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, unavailableCode, err)
	}
	return err
}

// newJSONRequest builds a request with an optional JSON body and bearer token.
func newJSONRequest(ctx context.Context, method, url, token string, body interface{}) (*http.Request, error) {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}
	var req *http.Request
	var err error
	if buf != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, buf)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// asInt64 coerces a decoded JSON value to an integer id. Inventory payloads
// are loosely typed; anything that is not an integral number yields nil,
// matching the core's skip-non-integer rule.
func asInt64(v interface{}) *int64 {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		return &i
	case float64:
		i := int64(n)
		if float64(i) != n {
			return nil
		}
		return &i
	}
	return nil
}
