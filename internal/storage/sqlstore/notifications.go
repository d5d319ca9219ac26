package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

// CreateNotification persists a notification. Data is stored as JSON.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var data sql.NullString
	if n.Data != nil {
		raw, err := protojson.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.exec(ctx, s.db,
		`INSERT INTO notifications (id, user_id, title, message, type, data, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), data, boolToInt(n.IsRead), toMicros(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, user_id, title, message, type, data, is_read, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.query(ctx, s.db, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n         models.Notification
			typ       string
			data      sql.NullString
			isRead    int64
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &data, &isRead, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = models.NotificationType(typ)
		n.IsRead = isRead != 0
		n.CreatedAt = fromMicros(createdAt)
		if data.Valid {
			n.Data = &structpb.Struct{}
			if err := protojson.Unmarshal([]byte(data.String), n.Data); err != nil {
				return nil, fmt.Errorf("failed to decode notification data: %w", err)
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags a notification owned by userID as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	result, err := s.exec(ctx, s.db,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, storage.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
