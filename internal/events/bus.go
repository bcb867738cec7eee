// Package events publishes session-transition events to Redis Pub/Sub for
// dashboards and other pods. Publishing is strictly best-effort and happens
// after the owning transaction commits; a missing or unreachable Redis
// never affects a transition.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is a CloudEvents 1.0 shaped envelope.
type Event struct {
	SpecVersion string                 `json:"specversion"`
	Type        string                 `json:"type"`
	Source      string                 `json:"source"`
	ID          string                 `json:"id"`
	Time        time.Time              `json:"time"`
	Subject     string                 `json:"subject,omitempty"`
	Data        map[string]interface{} `json:"data"`
}

// Publisher is consumed by the audit service; the zero-value NopPublisher
// satisfies it when Redis is not configured.
type Publisher interface {
	Publish(ctx context.Context, eventType, subject string, data map[string]interface{})
}

// Bus publishes events on a single Redis channel.
type Bus struct {
	rdb     *redis.Client
	channel string
}

// NewBus creates a Redis-backed publisher.
func NewBus(rdb *redis.Client, channel string) *Bus {
	if channel == "" {
		channel = "audit:events:session"
	}
	return &Bus{rdb: rdb, channel: channel}
}

// Publish fires one event. Failures are logged and dropped.
func (b *Bus) Publish(ctx context.Context, eventType, subject string, data map[string]interface{}) {
	ev := Event{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      "/audit",
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Subject:     subject,
		Data:        data,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Debug("event marshal failed", "type", eventType, "error", err)
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		slog.Debug("event publish failed", "type", eventType, "error", err)
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, map[string]interface{}) {}
