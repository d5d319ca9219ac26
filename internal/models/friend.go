package models

import "time"

// FriendRequestStatus is the lifecycle state of a FriendRequest.
type FriendRequestStatus string

const (
	RequestPending   FriendRequestStatus = "pending"
	RequestAccepted  FriendRequestStatus = "accepted"
	RequestRejected  FriendRequestStatus = "rejected"
	RequestCancelled FriendRequestStatus = "cancelled"
)

// FriendRequest is a directed proposal from one user to another.
// At most one pending request exists per unordered pair.
type FriendRequest struct {
	ID         string
	FromUserID string
	ToUserID   string
	Message    string
	Status     FriendRequestStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FriendStatus is the state of a materialized friend row.
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
	FriendRejected FriendStatus = "rejected"
	FriendBlocked  FriendStatus = "blocked"
)

// Friend is one direction of a symmetric friendship. Accepted friendships
// are stored as two mirrored rows with the same status.
type Friend struct {
	UserID    string
	FriendID  string
	Status    FriendStatus
	CreatedAt time.Time
}

// MirroredFriends returns both directed rows for a friendship.
func MirroredFriends(a, b string, status FriendStatus, at time.Time) []Friend {
	return []Friend{
		{UserID: a, FriendID: b, Status: status, CreatedAt: at},
		{UserID: b, FriendID: a, Status: status, CreatedAt: at},
	}
}

// PairKey returns the canonical key for an unordered user pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
