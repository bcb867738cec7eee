package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/circuitbreaker"
)

// LocationClient answers "may this caller act on this room".
type LocationClient struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker
}

func NewLocationClient(baseURL string) *LocationClient {
	return &LocationClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("location")),
	}
}

// AssertRoomAccess returns nil iff the caller may act on the room. Any
// non-200 answer (including 404) is room_forbidden; only transport failures
// surface as unavailable.
func (c *LocationClient) AssertRoomAccess(ctx context.Context, token string, roomID int64) error {
	var accessErr error
	err := execute(ctx, c.breaker, "location_service_unavailable", func(ctx context.Context) error {
		url := fmt.Sprintf("%s/rooms/my/%d", c.baseURL, roomID)
		req, err := newJSONRequest(ctx, http.MethodGet, url, token, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamUnavailable, "location_service_unavailable", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			accessErr = apperr.Forbidden("room_forbidden")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return accessErr
}
