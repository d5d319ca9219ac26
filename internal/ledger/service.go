// Package ledger orchestrates expense creation, status transitions and
// balance queries on top of a storage.Store.
//
// Writes are applied once; a failed write is reported and never replayed.
// Reads are retried a bounded number of times with exponential backoff.
// Every repository call runs under its own timeout.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/grocerysplit/internal/metrics"
	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

// Notifier accepts notifications for asynchronous delivery. Enqueue must
// not block.
type Notifier interface {
	Enqueue(n *models.Notification)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	RepoTimeout  time.Duration
	ReadAttempts int
	RetryBackoff time.Duration
	// Tolerance is the rounding slack, in minor units, allowed when
	// reconciling shares and items against expense totals.
	Tolerance models.Amount
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RepoTimeout <= 0 {
		o.RepoTimeout = 3 * time.Second
	}
	if o.ReadAttempts <= 0 {
		o.ReadAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 50 * time.Millisecond
	}
	if o.Tolerance < 0 {
		o.Tolerance = 0
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Service implements the ledger operations.
type Service struct {
	store    storage.Store
	notifier Notifier
	opts     Options
}

// New creates a Service. notifier may be nil, in which case notifications
// are discarded.
func New(store storage.Store, notifier Notifier, opts Options) *Service {
	return &Service{store: store, notifier: notifier, opts: opts.withDefaults()}
}

// read runs fn with a per-attempt timeout and retries dependency failures.
func read[T any](ctx context.Context, s *Service, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	backoff := s.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		result, err = withTimeout(ctx, s, fn)
		if err == nil || !retryable(err) || attempt >= s.opts.ReadAttempts {
			return result, err
		}
		slog.Debug("Retrying read", "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// write runs fn exactly once with a timeout.
func write[T any](ctx context.Context, s *Service, fn func(ctx context.Context) (T, error)) (T, error) {
	return withTimeout(ctx, s, fn)
}

func withTimeout[T any](ctx context.Context, s *Service, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RepoTimeout)
	defer cancel()
	return fn(ctx)
}

// retryable reports whether err may be transient. Definitive answers from
// the store are never retried.
func retryable(err error) bool {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, storage.ErrStatusMismatch),
		errors.Is(err, models.ErrInvalidScope),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// done records a successful operation.
func (s *Service) done(op string) {
	s.opts.Metrics.ObserveOperation(op, "ok")
}

// fail classifies err, logs it and records the outcome. Integrity and
// dependency failures get a reference id so the opaque client message can
// be matched to this log line.
func (s *Service) fail(op string, err error) error {
	le := classify(op, err)
	switch le.Kind {
	case KindIntegrity:
		le.Ref = uuid.New().String()
		s.opts.Metrics.IntegrityError()
		slog.Error("Ledger integrity violation", "op", op, "ref", le.Ref, "error", le.Err)
	case KindDependency, KindUnknown:
		le.Ref = uuid.New().String()
		slog.Error("Ledger dependency failure", "op", op, "ref", le.Ref, "error", le.Err)
	default:
		slog.Debug("Ledger operation rejected", "op", op, "kind", le.Kind, "error", le.Err)
	}
	s.opts.Metrics.ObserveOperation(op, le.Kind.String())
	return le
}

// notify hands a notification to the notifier. Failures never reach the
// caller.
func (s *Service) notify(userID string, typ models.NotificationType, title, message string, data map[string]any) {
	if s.notifier == nil || userID == "" {
		return
	}
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: s.opts.Now(),
	}
	if len(data) > 0 {
		payload, err := structpb.NewStruct(data)
		if err != nil {
			slog.Warn("Dropping notification payload", "user_id", userID, "type", typ, "error", err)
		} else {
			n.Data = payload
		}
	}
	s.notifier.Enqueue(n)
}

func requireActor(actor string) error {
	if actor == "" {
		return ErrActorRequired
	}
	return nil
}
