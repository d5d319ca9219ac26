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

const memberColumns = `group_id, user_id, role, status, joined_at`

// CreateGroup persists a group and its owner's membership together.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group, owner *models.GroupMembership) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx,
			`INSERT INTO groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Description, group.CreatedBy, toMicros(group.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		if owner == nil {
			return nil
		}
		owner.GroupID = group.ID
		if owner.JoinedAt.IsZero() {
			owner.JoinedAt = group.CreatedAt
		}
		return s.insertMembership(ctx, tx, owner)
	})
}

// GetGroup retrieves a group by ID.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var (
		g         models.Group
		createdAt int64
	)
	err := s.queryRow(ctx, s.db,
		`SELECT id, name, description, created_by, created_at FROM groups WHERE id = ?`, groupID,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	g.CreatedAt = fromMicros(createdAt)
	return &g, nil
}

// GetMembership retrieves one user's membership in a group.
func (s *Store) GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMembership, error) {
	m, err := scanMembership(s.queryRow(ctx, s.db,
		`SELECT `+memberColumns+` FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership %s in %s: %w", userID, groupID, storage.ErrNotFound)
	}
	return m, err
}

// ListMembers returns all memberships of a group ordered by user ID.
func (s *Store) ListMembers(ctx context.Context, groupID string) ([]models.GroupMembership, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+memberColumns+` FROM group_members WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// AddMembership inserts a membership row.
func (s *Store) AddMembership(ctx context.Context, m *models.GroupMembership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return s.insertMembership(ctx, s.db, m)
}

func (s *Store) insertMembership(ctx context.Context, q querier, m *models.GroupMembership) error {
	_, err := s.exec(ctx, q,
		`INSERT INTO group_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?)`,
		m.GroupID, m.UserID, string(m.Role), string(m.Status), toMicros(m.JoinedAt))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("membership %s in %s: %w", m.UserID, m.GroupID, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// UpdateMembershipStatus performs a compare-and-set on the membership status.
func (s *Store) UpdateMembershipStatus(ctx context.Context, groupID, userID string, expected, next models.MembershipStatus) (*models.GroupMembership, error) {
	result, err := s.exec(ctx, s.db,
		`UPDATE group_members SET status = ? WHERE group_id = ? AND user_id = ? AND status = ?`,
		string(next), groupID, userID, string(expected))
	if err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetMembership(ctx, groupID, userID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("membership %s in %s: %w", userID, groupID, storage.ErrStatusMismatch)
	}
	return s.GetMembership(ctx, groupID, userID)
}

func scanMembership(row rowScanner) (*models.GroupMembership, error) {
	var (
		m            models.GroupMembership
		role, status string
		joinedAt     int64
	)
	err := row.Scan(&m.GroupID, &m.UserID, &role, &status, &joinedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group member: %w", err)
	}
	m.Role = models.MemberRole(role)
	m.Status = models.MembershipStatus(status)
	m.JoinedAt = fromMicros(joinedAt)
	return &m, nil
}
