package models

import "time"

// Group is a named collection of users owned by its creator.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Weekly Groceries").
	Name string

	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// MemberRole is a member's role within a group.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// MembershipStatus is the state of a group membership.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipAccepted MembershipStatus = "accepted"
	MembershipRejected MembershipStatus = "rejected"
)

// GroupMembership relates a user to a group.
// Only accepted members may scope expenses to the group.
type GroupMembership struct {
	GroupID  string
	UserID   string
	Role     MemberRole
	Status   MembershipStatus
	JoinedAt time.Time
}

// Active reports whether the membership has been accepted.
func (m *GroupMembership) Active() bool {
	return m != nil && m.Status == MembershipAccepted
}
