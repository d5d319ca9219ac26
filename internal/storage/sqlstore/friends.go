package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

// CreateFriendRequest inserts a request. The partial unique index on
// pair_key rejects a second pending request for the same pair.
func (s *Store) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}

	_, err := s.exec(ctx, s.db,
		`INSERT INTO friend_requests (id, from_user_id, to_user_id, pair_key, message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.FromUserID, req.ToUserID, models.PairKey(req.FromUserID, req.ToUserID), req.Message,
		string(req.Status), toMicros(req.CreatedAt), toMicros(req.UpdatedAt),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("friend request %s -> %s: %w", req.FromUserID, req.ToUserID, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert friend request: %w", err)
	}
	return nil
}

// GetFriendRequest retrieves a friend request by ID.
func (s *Store) GetFriendRequest(ctx context.Context, requestID string) (*models.FriendRequest, error) {
	var (
		req                  models.FriendRequest
		status               string
		createdAt, updatedAt int64
	)
	err := s.queryRow(ctx, s.db,
		`SELECT id, from_user_id, to_user_id, message, status, created_at, updated_at
		 FROM friend_requests WHERE id = ?`, requestID,
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Message, &status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query friend request: %w", err)
	}
	req.Status = models.FriendRequestStatus(status)
	req.CreatedAt = fromMicros(createdAt)
	req.UpdatedAt = fromMicros(updatedAt)
	return &req, nil
}

// UpdateFriendRequestStatus moves the request from expected to next and
// upserts the given friend rows in the same transaction.
func (s *Store) UpdateFriendRequestStatus(ctx context.Context, requestID string, expected, next models.FriendRequestStatus, at time.Time, friends ...models.Friend) (*models.FriendRequest, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := s.exec(ctx, tx,
			`UPDATE friend_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(next), toMicros(at), requestID, string(expected))
		if err != nil {
			return fmt.Errorf("failed to update friend request: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			found, err := s.exists(ctx, tx, `SELECT 1 FROM friend_requests WHERE id = ?`, requestID)
			if err != nil {
				return fmt.Errorf("failed to query friend request: %w", err)
			}
			if !found {
				return fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
			}
			return fmt.Errorf("friend request %s: %w", requestID, storage.ErrStatusMismatch)
		}

		for _, f := range friends {
			_, err := s.exec(ctx, tx,
				`INSERT INTO friends (user_id, friend_id, status, created_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT (user_id, friend_id) DO UPDATE SET status = excluded.status`,
				f.UserID, f.FriendID, string(f.Status), toMicros(f.CreatedAt))
			if err != nil {
				return fmt.Errorf("failed to upsert friend: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetFriendRequest(ctx, requestID)
}

// GetFriend returns the directed row userID -> friendID.
func (s *Store) GetFriend(ctx context.Context, userID, friendID string) (*models.Friend, error) {
	var (
		f         models.Friend
		status    string
		createdAt int64
	)
	err := s.queryRow(ctx, s.db,
		`SELECT user_id, friend_id, status, created_at FROM friends WHERE user_id = ? AND friend_id = ?`,
		userID, friendID,
	).Scan(&f.UserID, &f.FriendID, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("friend %s -> %s: %w", userID, friendID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query friend: %w", err)
	}
	f.Status = models.FriendStatus(status)
	f.CreatedAt = fromMicros(createdAt)
	return &f, nil
}

// DeleteFriendPair removes both directions of a friendship.
func (s *Store) DeleteFriendPair(ctx context.Context, a, b string) error {
	result, err := s.exec(ctx, s.db,
		`DELETE FROM friends WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		a, b, b, a)
	if err != nil {
		return fmt.Errorf("failed to delete friend: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("friend %s <-> %s: %w", a, b, storage.ErrNotFound)
	}
	return nil
}
