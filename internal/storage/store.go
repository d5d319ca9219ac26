// Package storage defines the repository port the ledger core consumes.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/grocerysplit/internal/models"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrStatusMismatch is returned by compare-and-set updates when the row
	// no longer has the expected status.
	ErrStatusMismatch = errors.New("status changed concurrently")

	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Store defines the ledger's persistence operations.
// Implementations must make every multi-row write atomic.
type Store interface {
	ExpenseStore
	FriendStore
	GroupStore
	NotificationStore

	// Close releases any resources held by the store.
	Close() error
}

// ExpenseStore persists expenses together with their items and shares.
type ExpenseStore interface {
	// CreateExpenseBundle writes the expense, its items and its shares in one
	// transaction. IDs and timestamps left empty are assigned by the store.
	CreateExpenseBundle(ctx context.Context, bundle *models.ExpenseBundle) error

	// GetExpense returns ErrNotFound if the expense does not exist.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns matching expenses with their items and shares,
	// newest purchase first.
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.ExpenseBundle, error)

	ListExpenseItems(ctx context.Context, expenseID string) ([]models.ExpenseItem, error)
	ListExpenseShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error)

	// DeleteExpense removes the expense and cascades to items and shares.
	DeleteExpense(ctx context.Context, expenseID string) error

	GetShare(ctx context.Context, shareID string) (*models.ExpenseShare, error)

	// UpdateShareStatus moves a share from expected to next. It returns
	// ErrStatusMismatch if the share is no longer in expected.
	UpdateShareStatus(ctx context.Context, shareID string, expected, next models.ShareStatus, at time.Time) (*models.ExpenseShare, error)

	// ListScopeEntries returns every share of every expense in scope, read
	// in a single statement. For a pair scope these are the expenses where
	// one user is the creator and the other holds a share.
	ListScopeEntries(ctx context.Context, scope models.Scope) ([]models.ShareEntry, error)
}

// FriendStore persists friend requests and the mirrored friend rows.
type FriendStore interface {
	// CreateFriendRequest returns ErrDuplicate if a pending request already
	// exists for the unordered pair.
	CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error

	GetFriendRequest(ctx context.Context, requestID string) (*models.FriendRequest, error)

	// UpdateFriendRequestStatus moves the request from expected to next and
	// upserts friends in the same transaction.
	UpdateFriendRequestStatus(ctx context.Context, requestID string, expected, next models.FriendRequestStatus, at time.Time, friends ...models.Friend) (*models.FriendRequest, error)

	// GetFriend returns the directed row userID -> friendID.
	GetFriend(ctx context.Context, userID, friendID string) (*models.Friend, error)

	// DeleteFriendPair removes both directions of a friendship.
	DeleteFriendPair(ctx context.Context, a, b string) error
}

// GroupStore persists groups and memberships.
type GroupStore interface {
	// CreateGroup writes the group and its owner's membership atomically.
	CreateGroup(ctx context.Context, group *models.Group, owner *models.GroupMembership) error

	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMembership, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMembership, error)

	// AddMembership returns ErrDuplicate if the user already has a membership.
	AddMembership(ctx context.Context, m *models.GroupMembership) error

	UpdateMembershipStatus(ctx context.Context, groupID, userID string, expected, next models.MembershipStatus) (*models.GroupMembership, error)
}

// NotificationStore persists notification side effects.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)

	// MarkNotificationRead returns ErrNotFound unless the notification
	// belongs to userID.
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}
