// Package notify fans out best-effort user notifications through a
// background worker pool. Deliveries never join the transaction that
// committed the triggering state change, and every failure is swallowed
// after logging.
package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/assettrack/backend/internal/clients"
)

// Sender is what a notifier needs from the notification client.
type Sender interface {
	Send(ctx context.Context, n clients.Notification) error
}

// Notifier queues notification batches for asynchronous delivery.
type Notifier struct {
	sender  Sender
	queue   chan clients.Notification
	wg      sync.WaitGroup
	once    sync.Once
	timeout time.Duration
}

// New starts a notifier with the given number of delivery workers.
func New(sender Sender, workers int) *Notifier {
	if workers <= 0 {
		workers = 2
	}
	n := &Notifier{
		sender:  sender,
		queue:   make(chan clients.Notification, 256),
		timeout: 5 * time.Second,
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	return n
}

// Notify enqueues one batch. Non-positive user ids are dropped, the rest
// deduplicated and sorted; an empty set is a no-op. Never blocks: when the
// queue is full the notification is dropped.
func (n *Notifier) Notify(userIDs []int64, typ, title, message string, payload map[string]interface{}, sourceEvent, idempotencyKey string) {
	ids := dedupePositive(userIDs)
	if len(ids) == 0 {
		return
	}
	batch := clients.Notification{
		UserIDs:        ids,
		Type:           typ,
		Title:          title,
		Message:        message,
		Payload:        payload,
		SourceService:  "audit",
		SourceEvent:    sourceEvent,
		IdempotencyKey: idempotencyKey,
	}
	select {
	case n.queue <- batch:
	default:
		slog.Warn("notification queue full, dropping", "source_event", sourceEvent)
	}
}

// Close stops accepting work and waits for in-flight deliveries.
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.queue) })
	n.wg.Wait()
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for batch := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		if err := n.sender.Send(ctx, batch); err != nil {
			slog.Debug("notification delivery failed",
				"source_event", batch.SourceEvent, "error", err)
		}
		cancel()
	}
}

func dedupePositive(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
