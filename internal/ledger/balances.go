package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/grocerysplit/internal/calculator"
	"github.com/mmynk/grocerysplit/internal/models"
)

// GroupBalances is the netted debt graph of a group plus per-member totals.
type GroupBalances struct {
	GroupID string
	Edges   []calculator.DebtEdge
	Members []calculator.MemberBalance
}

// GetGroupBalances recomputes the group's balances from current share state.
// The actor must be an accepted member.
func (s *Service) GetGroupBalances(ctx context.Context, actor, groupID string) (*GroupBalances, error) {
	const op = "GetGroupBalances"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	if err := s.requireActiveMember(ctx, groupID, actor); err != nil {
		return nil, s.fail(op, err)
	}

	scope := models.GroupScope(groupID)
	entries, err := s.scopeEntries(ctx, scope)
	if err != nil {
		return nil, s.fail(op, err)
	}

	balances := &GroupBalances{
		GroupID: groupID,
		Edges:   calculator.AggregateBalances(entries, scope),
		Members: calculator.MemberBalances(entries, scope),
	}
	slog.Debug("Group balances computed", "group_id", groupID, "edges", len(balances.Edges))
	s.done(op)
	return balances, nil
}

// GetFriendBalance returns the net debt between the actor and friendID across
// every expense one of them paid and the other shares. The result has at most
// one edge.
func (s *Service) GetFriendBalance(ctx context.Context, actor, friendID string) ([]calculator.DebtEdge, error) {
	const op = "GetFriendBalance"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	scope := models.PairScope(actor, friendID)
	if err := scope.Validate(); err != nil {
		return nil, s.fail(op, err)
	}

	entries, err := s.scopeEntries(ctx, scope)
	if err != nil {
		return nil, s.fail(op, err)
	}
	edges := calculator.AggregateBalances(entries, scope)
	s.done(op)
	return edges, nil
}

// GetSettlementPlan returns the transfers that zero every net balance in
// scope. For a group scope the actor must be an accepted member; for a pair
// scope the actor must be one of the pair.
func (s *Service) GetSettlementPlan(ctx context.Context, actor string, scope models.Scope) ([]calculator.Transfer, error) {
	const op = "GetSettlementPlan"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	if err := scope.Validate(); err != nil {
		return nil, s.fail(op, err)
	}
	if scope.IsPair() {
		if actor != scope.Pair[0] && actor != scope.Pair[1] {
			return nil, s.fail(op, ErrNotInPair)
		}
	} else if err := s.requireActiveMember(ctx, scope.GroupID, actor); err != nil {
		return nil, s.fail(op, err)
	}

	entries, err := s.scopeEntries(ctx, scope)
	if err != nil {
		return nil, s.fail(op, err)
	}
	transfers, err := calculator.PlanSettlements(calculator.AggregateBalances(entries, scope))
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.opts.Metrics.ObserveSettlement(len(transfers))
	slog.Debug("Settlement plan computed", "group_id", scope.GroupID, "pair", scope.Pair, "transfers", len(transfers))
	s.done(op)
	return transfers, nil
}

// scopeEntries reads a snapshot of the scope's shares and verifies every
// expense in it still reconciles with its total.
func (s *Service) scopeEntries(ctx context.Context, scope models.Scope) ([]models.ShareEntry, error) {
	entries, err := read(ctx, s, func(ctx context.Context) ([]models.ShareEntry, error) {
		return s.store.ListScopeEntries(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	if err := calculator.CheckExpenseIntegrity(entries, s.opts.Tolerance); err != nil {
		return nil, fmt.Errorf("scope %v: %w", scope, err)
	}
	return entries, nil
}
