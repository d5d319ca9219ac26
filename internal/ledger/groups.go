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

// CreateGroup creates a group with the actor as its accepted admin.
func (s *Service) CreateGroup(ctx context.Context, actor, name, description string) (*models.Group, error) {
	const op = "CreateGroup"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, s.fail(op, fmt.Errorf("%w: group name is required", ErrInvalidInput))
	}

	now := s.opts.Now()
	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   actor,
		CreatedAt:   now,
	}
	owner := &models.GroupMembership{
		UserID:   actor,
		Role:     models.RoleAdmin,
		Status:   models.MembershipAccepted,
		JoinedAt: now,
	}
	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.CreateGroup(ctx, group, owner)
	}); err != nil {
		return nil, s.fail(op, err)
	}

	slog.Info("Group created", "group_id", group.ID, "name", group.Name, "created_by", actor)
	s.done(op)
	return group, nil
}

// InviteMember adds a pending membership for userID. Only accepted admins
// may invite.
func (s *Service) InviteMember(ctx context.Context, actor, groupID, userID string) (*models.GroupMembership, error) {
	const op = "InviteMember"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	if userID == "" {
		return nil, s.fail(op, fmt.Errorf("%w: invitee is required", ErrInvalidInput))
	}

	inviter, err := s.activeMembership(ctx, groupID, actor)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if inviter.Role != models.RoleAdmin {
		return nil, s.fail(op, ErrNotAdmin)
	}
	group, err := read(ctx, s, func(ctx context.Context) (*models.Group, error) {
		return s.store.GetGroup(ctx, groupID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	m := &models.GroupMembership{
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleMember,
		Status:   models.MembershipPending,
		JoinedAt: s.opts.Now(),
	}
	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.AddMembership(ctx, m)
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = fmt.Errorf("%w: %w", ErrAlreadyMember, err)
		}
		return nil, s.fail(op, err)
	}

	s.notify(userID, models.NotifyGroupInvitation, "Group invitation",
		fmt.Sprintf("%s invited you to %s", actor, group.Name),
		map[string]any{"group_id": groupID, "invited_by": actor})

	slog.Info("Group member invited", "group_id", groupID, "user_id", userID, "invited_by", actor)
	s.done(op)
	return m, nil
}

// RespondToInvite accepts or rejects the actor's pending invitation.
func (s *Service) RespondToInvite(ctx context.Context, actor, groupID string, accept bool) (*models.GroupMembership, error) {
	const op = "RespondToInvite"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	m, err := read(ctx, s, func(ctx context.Context) (*models.GroupMembership, error) {
		return s.store.GetMembership(ctx, groupID, actor)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	next, err := lifecycle.Membership(m, actor, accept)
	if err != nil {
		return nil, s.fail(op, err)
	}
	updated, err := write(ctx, s, func(ctx context.Context) (*models.GroupMembership, error) {
		return s.store.UpdateMembershipStatus(ctx, groupID, actor, m.Status, next)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	slog.Info("Group invitation answered", "group_id", groupID, "user_id", actor, "status", next)
	s.done(op)
	return updated, nil
}

// activeMembership returns the user's membership or ErrNotMember if it is
// missing or not accepted.
func (s *Service) activeMembership(ctx context.Context, groupID, userID string) (*models.GroupMembership, error) {
	m, err := read(ctx, s, func(ctx context.Context) (*models.GroupMembership, error) {
		return s.store.GetMembership(ctx, groupID, userID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s in group %s", ErrNotMember, userID, groupID)
	}
	if err != nil {
		return nil, err
	}
	if !m.Active() {
		return nil, fmt.Errorf("%w: %s in group %s is %s", ErrNotMember, userID, groupID, m.Status)
	}
	return m, nil
}

func (s *Service) requireActiveMember(ctx context.Context, groupID, userID string) error {
	_, err := s.activeMembership(ctx, groupID, userID)
	return err
}
