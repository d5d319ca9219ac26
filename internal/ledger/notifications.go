package ledger

import (
	"context"

	"github.com/mmynk/grocerysplit/internal/models"
)

// ListNotifications returns the actor's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, actor string, unreadOnly bool) ([]models.Notification, error) {
	const op = "ListNotifications"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	list, err := read(ctx, s, func(ctx context.Context) ([]models.Notification, error) {
		return s.store.ListNotifications(ctx, actor, unreadOnly)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.done(op)
	return list, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, actor, notificationID string) error {
	const op = "MarkNotificationRead"

	if err := requireActor(actor); err != nil {
		return s.fail(op, err)
	}
	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.MarkNotificationRead(ctx, actor, notificationID)
	}); err != nil {
		return s.fail(op, err)
	}
	s.done(op)
	return nil
}
