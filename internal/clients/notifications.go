package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notification is one internal fan-out request to the notification service.
type Notification struct {
	UserIDs        []int64                `json:"user_ids"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	SourceService  string                 `json:"source_service,omitempty"`
	SourceEvent    string                 `json:"source_event,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

// NotificationClient posts internal notifications authenticated by a shared
// secret header. Callers treat every failure as ignorable; this client only
// reports them.
type NotificationClient struct {
	baseURL       string
	internalToken string
	http          *http.Client
}

func NewNotificationClient(baseURL, internalToken string) *NotificationClient {
	return &NotificationClient{
		baseURL:       baseURL,
		internalToken: strings.TrimSpace(internalToken),
		http:          &http.Client{Timeout: 5 * time.Second},
	}
}

// Send delivers one notification batch. A blank internal token disables
// delivery entirely.
func (c *NotificationClient) Send(ctx context.Context, n Notification) error {
	if c.internalToken == "" {
		return nil
	}
	req, err := newJSONRequest(ctx, http.MethodPost, c.baseURL+"/internal/notifications", "", n)
	if err != nil {
		return err
	}
	req.Header.Set("X-Internal-Token", c.internalToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
