// Package notify delivers ledger notifications in the background. Ledger
// operations hand notifications off without waiting; delivery failures are
// logged and counted, never returned.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/grocerysplit/internal/metrics"
	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

// Options configures a Notifier.
type Options struct {
	QueueSize int
	Timeout   time.Duration
	Metrics   *metrics.Metrics
}

// Notifier persists notifications from a bounded queue on a single worker.
type Notifier struct {
	store   storage.NotificationStore
	queue   chan *models.Notification
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a Notifier writing to store.
func New(store storage.NotificationStore, opts Options) *Notifier {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	n := &Notifier{
		store:   store,
		queue:   make(chan *models.Notification, opts.QueueSize),
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Enqueue queues note for delivery. It drops the notification when the
// queue is full or the notifier is closed.
func (n *Notifier) Enqueue(note *models.Notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		slog.Warn("Notification dropped after shutdown", "user_id", note.UserID, "type", note.Type)
		n.metrics.Notification("dropped")
		return
	}
	select {
	case n.queue <- note:
	default:
		slog.Warn("Notification queue full, dropping", "user_id", note.UserID, "type", note.Type)
		n.metrics.Notification("dropped")
	}
}

// Close stops accepting notifications and waits for queued ones to be
// written.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for note := range n.queue {
		n.deliver(note)
	}
}

func (n *Notifier) deliver(note *models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.store.CreateNotification(ctx, note); err != nil {
		slog.Warn("Failed to deliver notification", "user_id", note.UserID, "type", note.Type, "error", err)
		n.metrics.Notification("failed")
		return
	}
	slog.Debug("Notification delivered", "notification_id", note.ID, "user_id", note.UserID, "type", note.Type)
	n.metrics.Notification("delivered")
}
