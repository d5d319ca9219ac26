package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/grocerysplit/internal/metrics"
	"github.com/mmynk/grocerysplit/internal/models"
)

type memoryStore struct {
	mu      sync.Mutex
	saved   []*models.Notification
	block   chan struct{}
	failFor string
}

func (m *memoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if m.block != nil {
		<-m.block
	}
	if n.UserID == m.failFor {
		return errors.New("store unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, n)
	return nil
}

func (m *memoryStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return nil, nil
}

func (m *memoryStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestNotifier_DeliversAndDrainsOnClose(t *testing.T) {
	store := &memoryStore{failFor: "mallory"}
	n := New(store, Options{QueueSize: 8, Timeout: time.Second})

	for _, user := range []string{"alice", "bob", "mallory", "carol"} {
		n.Enqueue(&models.Notification{UserID: user, Type: models.NotifyExpenseShared})
	}
	n.Close()

	assert.Equal(t, 3, store.count())

	// Enqueue after Close must not panic.
	n.Enqueue(&models.Notification{UserID: "late"})
	n.Close()
	assert.Equal(t, 3, store.count())
}

func TestNotifier_DropsWhenFull(t *testing.T) {
	store := &memoryStore{block: make(chan struct{})}
	m := metrics.New()
	n := New(store, Options{QueueSize: 1, Timeout: time.Second, Metrics: m})

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The worker takes at most one, the queue holds one more; the rest
		// must be dropped without blocking.
		for i := 0; i < 5; i++ {
			n.Enqueue(&models.Notification{UserID: "bob"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	close(store.block)
	n.Close()

	delivered := store.count()
	require.GreaterOrEqual(t, delivered, 1)
	require.LessOrEqual(t, delivered, 2)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var dropped float64
	for _, f := range families {
		if f.GetName() != "grocerysplit_notifications_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == "dropped" {
					dropped = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(5-delivered), dropped)
}
