// Package lifecycle holds the transition tables for every status-bearing
// ledger entity. Storage applies a transition only after this package has
// approved it, and then only as a compare-and-set on the prior status.
package lifecycle

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mmynk/grocerysplit/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnknownStatus     = errors.New("unknown share status")

	ErrNotAddressee  = errors.New("only the recipient can accept or reject a friend request")
	ErrNotRequester  = errors.New("only the sender can cancel a friend request")
	ErrNotShareOwner = errors.New("only the share owner can change its status")
	ErrNotInvitee    = errors.New("only the invited user can answer a group invitation")
)

// Action is a user's response to a friend request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
)

var friendRequestTransitions = map[models.FriendRequestStatus][]models.FriendRequestStatus{
	models.RequestPending: {models.RequestAccepted, models.RequestRejected, models.RequestCancelled},
}

var shareTransitions = map[models.ShareStatus][]models.ShareStatus{
	models.SharePending:  {models.ShareAccepted, models.ShareRejected, models.SharePaid, models.ShareCancelled},
	models.ShareAccepted: {models.SharePaid},
}

var membershipTransitions = map[models.MembershipStatus][]models.MembershipStatus{
	models.MembershipPending: {models.MembershipAccepted, models.MembershipRejected},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	return slices.Contains(table[from], to)
}

// IsTerminalShare reports whether no transition leaves s.
func IsTerminalShare(s models.ShareStatus) bool {
	return len(shareTransitions[s]) == 0
}

// IsTerminalRequest reports whether no transition leaves s.
func IsTerminalRequest(s models.FriendRequestStatus) bool {
	return len(friendRequestTransitions[s]) == 0
}

// FriendRequest resolves actor's action on req to the next status. The
// addressee may accept or reject, the requester may cancel, and nothing
// leaves a terminal status.
func FriendRequest(req *models.FriendRequest, actor string, action Action) (models.FriendRequestStatus, error) {
	var next models.FriendRequestStatus
	switch action {
	case ActionAccept, ActionReject:
		if actor != req.ToUserID {
			return "", ErrNotAddressee
		}
		next = models.RequestAccepted
		if action == ActionReject {
			next = models.RequestRejected
		}
	case ActionCancel:
		if actor != req.FromUserID {
			return "", ErrNotRequester
		}
		next = models.RequestCancelled
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if !allowed(friendRequestTransitions, req.Status, next) {
		return "", fmt.Errorf("%w: friend request %s is %s", ErrInvalidTransition, req.ID, req.Status)
	}
	return next, nil
}

// Share checks that actor may move share to next.
func Share(share *models.ExpenseShare, actor string, next models.ShareStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if actor != share.UserID {
		return ErrNotShareOwner
	}
	if !allowed(shareTransitions, share.Status, next) {
		return fmt.Errorf("%w: share %s cannot go from %s to %s", ErrInvalidTransition, share.ID, share.Status, next)
	}
	return nil
}

// Membership resolves the invitee's answer to a pending invitation.
func Membership(m *models.GroupMembership, actor string, accept bool) (models.MembershipStatus, error) {
	if actor != m.UserID {
		return "", ErrNotInvitee
	}
	next := models.MembershipRejected
	if accept {
		next = models.MembershipAccepted
	}
	if !allowed(membershipTransitions, m.Status, next) {
		return "", fmt.Errorf("%w: membership in %s is %s", ErrInvalidTransition, m.GroupID, m.Status)
	}
	return next, nil
}
