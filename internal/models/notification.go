package models

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// NotificationType classifies notifications for clients.
type NotificationType string

const (
	NotifyExpenseShared   NotificationType = "expense_shared"
	NotifyShareUpdated    NotificationType = "share_updated"
	NotifyFriendRequest   NotificationType = "friend_request"
	NotifyFriendResponse  NotificationType = "friend_request_response"
	NotifyGroupInvitation NotificationType = "group_invitation"
)

// Notification is a side effect of a state transition. It is not ledger data.
type Notification struct {
	ID      string
	UserID  string
	Title   string
	Message string
	Type    NotificationType

	// Data carries structured references (expense id, share id, ...).
	Data *structpb.Struct

	IsRead    bool
	CreatedAt time.Time
}
