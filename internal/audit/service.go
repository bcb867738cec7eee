// Package audit implements the inventory-audit core: expected-set
// snapshotting, scan ingestion, discrepancy classification, the session
// state machine, corrective-action building and application, and plan
// reporting.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/clients"
	"github.com/assettrack/backend/internal/events"
	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/monitoring"
	"github.com/assettrack/backend/internal/store"
)

// InventoryAPI is the slice of the inventory collaborator the core uses.
type InventoryAPI interface {
	ResolveByBarcode(ctx context.Context, token, barcodeValue string) (*clients.Item, error)
	ListItemsByRoom(ctx context.Context, token string, roomID int64) ([]clients.Item, error)
	BulkMove(ctx context.Context, token string, itemIDs []int64, locationID int64, responsibleIDIsSet bool, responsibleID *int64) error
}

// LocationAPI answers room-access checks.
type LocationAPI interface {
	AssertRoomAccess(ctx context.Context, token string, roomID int64) error
}

// NotifierAPI is the best-effort notification fan-out.
type NotifierAPI interface {
	Notify(userIDs []int64, typ, title, message string, payload map[string]interface{}, sourceEvent, idempotencyKey string)
}

// Service wires the audit core's persistence and collaborators together.
type Service struct {
	store     store.Store
	inventory InventoryAPI
	location  LocationAPI
	notifier  NotifierAPI
	events    events.Publisher
	metrics   *monitoring.Metrics
	now       func() time.Time
}

// Option tweaks a Service; used by tests to pin the clock.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the audit core service. notifier, bus and metrics may
// be nil; best-effort side effects are skipped and counters dropped.
func NewService(st store.Store, inventory InventoryAPI, location LocationAPI, notifier NotifierAPI, bus events.Publisher, metrics *monitoring.Metrics, opts ...Option) *Service {
	s := &Service{
		store:     st,
		inventory: inventory,
		location:  location,
		notifier:  notifier,
		events:    bus,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	return s
}

// notify fans out a best-effort notification; failures never propagate.
func (s *Service) notify(userIDs []int64, typ, title, message string, payload map[string]interface{}, sourceEvent, idempotencyKey string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userIDs, typ, title, message, payload, sourceEvent, idempotencyKey)
}

// publishTransition emits the post-commit session event and bumps the
// transition counter.
func (s *Service) publishTransition(ctx context.Context, sess *models.Session, transition string) {
	if s.metrics != nil {
		s.metrics.SessionTransitions.WithLabelValues(string(sess.Status)).Inc()
	}
	s.events.Publish(ctx, "audit.session."+transition, fmt.Sprintf("session/%d", sess.ID), sessionPayload(sess))
}

// idemKey builds the notification idempotency key for a session lifecycle
// event; retried transitions collapse into one delivery downstream.
func idemKey(sessionID int64, event string) string {
	return fmt.Sprintf("audit:session:%d:%s", sessionID, event)
}

func sessionPayload(sess *models.Session) map[string]interface{} {
	return map[string]interface{}{
		"session_id":  sess.ID,
		"location_id": sess.LocationID,
		"status":      string(sess.Status),
	}
}

// mapStoreErr converts store sentinels to API error codes.
func mapStoreErr(err error, notFoundCode string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFoundCode)
	}
	return err
}
