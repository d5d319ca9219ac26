package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/grocerysplit/internal/lifecycle"
	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

// SendFriendRequest creates a pending request from one user to another.
// At most one pending request may exist per unordered pair.
func (s *Service) SendFriendRequest(ctx context.Context, from, to, message string) (*models.FriendRequest, error) {
	const op = "SendFriendRequest"

	if err := requireActor(from); err != nil {
		return nil, s.fail(op, err)
	}
	if to == "" {
		return nil, s.fail(op, fmt.Errorf("%w: recipient is required", ErrInvalidInput))
	}
	if from == to {
		return nil, s.fail(op, ErrSelfRequest)
	}

	existing, err := read(ctx, s, func(ctx context.Context) (*models.Friend, error) {
		return s.store.GetFriend(ctx, from, to)
	})
	switch {
	case err == nil && existing.Status == models.FriendAccepted:
		return nil, s.fail(op, ErrAlreadyFriends)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, s.fail(op, err)
	}

	now := s.opts.Now()
	req := &models.FriendRequest{
		FromUserID: from,
		ToUserID:   to,
		Message:    strings.TrimSpace(message),
		Status:     models.RequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.CreateFriendRequest(ctx, req)
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = fmt.Errorf("%w: %w", ErrDuplicateRequest, err)
		}
		return nil, s.fail(op, err)
	}

	s.notify(to, models.NotifyFriendRequest, "New friend request",
		fmt.Sprintf("%s sent you a friend request", from),
		map[string]any{"request_id": req.ID, "from_user_id": from})

	slog.Info("Friend request sent", "request_id", req.ID, "from", from, "to", to)
	s.done(op)
	return req, nil
}

// RespondToFriendRequest applies accept, reject or cancel. Accepting writes
// both mirrored friend rows in the same transaction as the status change.
func (s *Service) RespondToFriendRequest(ctx context.Context, actor, requestID string, action lifecycle.Action) (*models.FriendRequest, error) {
	const op = "RespondToFriendRequest"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	req, err := read(ctx, s, func(ctx context.Context) (*models.FriendRequest, error) {
		return s.store.GetFriendRequest(ctx, requestID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	next, err := lifecycle.FriendRequest(req, actor, action)
	if err != nil {
		return nil, s.fail(op, err)
	}

	now := s.opts.Now()
	var friends []models.Friend
	if next == models.RequestAccepted {
		friends = models.MirroredFriends(req.FromUserID, req.ToUserID, models.FriendAccepted, now)
	}
	updated, err := write(ctx, s, func(ctx context.Context) (*models.FriendRequest, error) {
		return s.store.UpdateFriendRequestStatus(ctx, req.ID, req.Status, next, now, friends...)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	if action != lifecycle.ActionCancel {
		s.notify(req.FromUserID, models.NotifyFriendResponse, "Friend request "+string(next),
			fmt.Sprintf("%s %s your friend request", actor, next),
			map[string]any{"request_id": req.ID, "status": string(next)})
	}

	slog.Info("Friend request resolved", "request_id", req.ID, "actor", actor, "status", next)
	s.done(op)
	return updated, nil
}

// RemoveFriend deletes both directions of a friendship. Shared expenses are
// left untouched.
func (s *Service) RemoveFriend(ctx context.Context, actor, friendID string) error {
	const op = "RemoveFriend"

	if err := requireActor(actor); err != nil {
		return s.fail(op, err)
	}
	if friendID == "" || friendID == actor {
		return s.fail(op, fmt.Errorf("%w: friend id", ErrInvalidInput))
	}
	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.DeleteFriendPair(ctx, actor, friendID)
	}); err != nil {
		return s.fail(op, err)
	}

	slog.Info("Friend removed", "user_id", actor, "friend_id", friendID)
	s.done(op)
	return nil
}
