package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/grocerysplit/internal/calculator"
	"github.com/mmynk/grocerysplit/internal/lifecycle"
	"github.com/mmynk/grocerysplit/internal/models"
)

// CreateExpenseInput describes a new expense. The payer becomes the
// expense creator and is owed every other participant's share.
type CreateExpenseInput struct {
	PayerID        string
	TotalAmount    models.Amount
	ParticipantIDs []string
	Mode           models.SplitMode
	Weights        map[string]decimal.Decimal
	GroupID        string
	PurchaseDate   time.Time
	StoreName      string
	Notes          string
	// Items are optional. A zero TotalPrice is filled in from quantity and
	// unit price.
	Items []models.ExpenseItem
}

// CreateExpense computes the shares and persists the expense, its items and
// its shares as one unit.
func (s *Service) CreateExpense(ctx context.Context, in CreateExpenseInput) (*models.ExpenseBundle, error) {
	const op = "CreateExpense"

	if err := requireActor(in.PayerID); err != nil {
		return nil, s.fail(op, err)
	}
	mode := in.Mode
	if mode == "" {
		mode = models.SplitEqual
	}

	shares, err := calculator.ComputeShares(in.TotalAmount, in.ParticipantIDs, mode, in.Weights)
	if err != nil {
		return nil, s.fail(op, err)
	}

	items := slices.Clone(in.Items)
	for i := range items {
		if items[i].TotalPrice == 0 {
			items[i].TotalPrice = models.AmountFromDecimal(items[i].UnitPrice.Decimal().Mul(items[i].Quantity))
		}
	}
	if err := calculator.ReconcileItems(in.TotalAmount, items, s.opts.Tolerance); err != nil {
		return nil, s.fail(op, err)
	}

	if in.GroupID != "" {
		if err := s.requireActiveMember(ctx, in.GroupID, in.PayerID); err != nil {
			return nil, s.fail(op, err)
		}
	}

	now := s.opts.Now()
	purchaseDate := in.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = now
	}
	bundle := &models.ExpenseBundle{
		Expense: &models.Expense{
			CreatedBy:    in.PayerID,
			GroupID:      in.GroupID,
			TotalAmount:  in.TotalAmount,
			SplitMode:    mode,
			PurchaseDate: purchaseDate,
			StoreName:    strings.TrimSpace(in.StoreName),
			Notes:        strings.TrimSpace(in.Notes),
			CreatedAt:    now,
		},
		Items:  items,
		Shares: make([]models.ExpenseShare, 0, len(shares)),
	}
	for _, sh := range shares {
		status := models.SharePending
		if sh.UserID == in.PayerID {
			// The payer's own portion is never owed to anyone.
			status = models.ShareAccepted
		}
		bundle.Shares = append(bundle.Shares, models.ExpenseShare{
			UserID:     sh.UserID,
			Amount:     sh.Amount,
			Percentage: sh.Percentage,
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.CreateExpenseBundle(ctx, bundle)
	}); err != nil {
		return nil, s.fail(op, err)
	}

	for _, sh := range bundle.Shares {
		if sh.UserID == in.PayerID {
			continue
		}
		s.notify(sh.UserID, models.NotifyExpenseShared, "New shared expense",
			fmt.Sprintf("%s shared an expense with you: you owe %s", in.PayerID, sh.Amount),
			map[string]any{
				"expense_id": bundle.Expense.ID,
				"share_id":   sh.ID,
				"amount":     sh.Amount.String(),
			})
	}

	slog.Info("Expense created",
		"expense_id", bundle.Expense.ID,
		"payer_id", in.PayerID,
		"total", in.TotalAmount.String(),
		"mode", mode,
		"shares", len(bundle.Shares),
		"group_id", in.GroupID,
	)
	s.done(op)
	return bundle, nil
}

// GetExpense returns an expense with its items and shares. The actor must be
// the creator, a share holder, or an accepted member of the expense's group.
func (s *Service) GetExpense(ctx context.Context, actor, expenseID string) (*models.ExpenseBundle, error) {
	const op = "GetExpense"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	expense, err := read(ctx, s, func(ctx context.Context) (*models.Expense, error) {
		return s.store.GetExpense(ctx, expenseID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	shares, err := read(ctx, s, func(ctx context.Context) ([]models.ExpenseShare, error) {
		return s.store.ListExpenseShares(ctx, expenseID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	allowed := actor == expense.CreatedBy || slices.ContainsFunc(shares, func(sh models.ExpenseShare) bool {
		return sh.UserID == actor
	})
	if !allowed && expense.GroupID != "" {
		allowed = s.requireActiveMember(ctx, expense.GroupID, actor) == nil
	}
	if !allowed {
		return nil, s.fail(op, fmt.Errorf("%w: expense %s", ErrNotParticipant, expenseID))
	}

	items, err := read(ctx, s, func(ctx context.Context) ([]models.ExpenseItem, error) {
		return s.store.ListExpenseItems(ctx, expenseID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.done(op)
	return &models.ExpenseBundle{Expense: expense, Items: items, Shares: shares}, nil
}

// ListExpenses returns expenses purchased between from and to, inclusive;
// a zero bound is open. Without a group the result is every expense the
// actor created or holds a share in. With a group the actor must be an
// accepted member and gets all of the group's expenses.
func (s *Service) ListExpenses(ctx context.Context, actor, groupID string, from, to time.Time) ([]models.ExpenseBundle, error) {
	const op = "ListExpenses"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, s.fail(op, fmt.Errorf("%w: range ends before it starts", ErrInvalidInput))
	}
	filter := models.ExpenseFilter{UserID: actor, From: from, To: to}
	if groupID != "" {
		if err := s.requireActiveMember(ctx, groupID, actor); err != nil {
			return nil, s.fail(op, err)
		}
		filter = models.ExpenseFilter{GroupID: groupID, From: from, To: to}
	}

	bundles, err := read(ctx, s, func(ctx context.Context) ([]models.ExpenseBundle, error) {
		return s.store.ListExpenses(ctx, filter)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.done(op)
	return bundles, nil
}

// DeleteExpense removes an expense with its items and shares. Only the
// creator may delete it.
func (s *Service) DeleteExpense(ctx context.Context, actor, expenseID string) error {
	const op = "DeleteExpense"

	if err := requireActor(actor); err != nil {
		return s.fail(op, err)
	}
	expense, err := read(ctx, s, func(ctx context.Context) (*models.Expense, error) {
		return s.store.GetExpense(ctx, expenseID)
	})
	if err != nil {
		return s.fail(op, err)
	}
	if expense.CreatedBy != actor {
		return s.fail(op, fmt.Errorf("%w: expense %s", ErrNotCreator, expenseID))
	}

	if _, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.DeleteExpense(ctx, expenseID)
	}); err != nil {
		return s.fail(op, err)
	}

	slog.Info("Expense deleted", "expense_id", expenseID, "actor", actor)
	s.done(op)
	return nil
}

// UpdateShareStatus moves the actor's own share to next. The expense creator
// is notified of every change made by someone else.
func (s *Service) UpdateShareStatus(ctx context.Context, actor, shareID string, next models.ShareStatus) (*models.ExpenseShare, error) {
	const op = "UpdateShareStatus"

	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, err)
	}
	share, err := read(ctx, s, func(ctx context.Context) (*models.ExpenseShare, error) {
		return s.store.GetShare(ctx, shareID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err := lifecycle.Share(share, actor, next); err != nil {
		return nil, s.fail(op, err)
	}
	expense, err := read(ctx, s, func(ctx context.Context) (*models.Expense, error) {
		return s.store.GetExpense(ctx, share.ExpenseID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	updated, err := write(ctx, s, func(ctx context.Context) (*models.ExpenseShare, error) {
		return s.store.UpdateShareStatus(ctx, share.ID, share.Status, next, s.opts.Now())
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	if expense.CreatedBy != actor {
		s.notify(expense.CreatedBy, models.NotifyShareUpdated, "Expense share updated",
			fmt.Sprintf("%s marked their share of %s as %s", actor, updated.Amount, next),
			map[string]any{
				"expense_id": expense.ID,
				"share_id":   updated.ID,
				"status":     string(next),
			})
	}

	slog.Info("Share status updated",
		"share_id", updated.ID,
		"expense_id", expense.ID,
		"from", share.Status,
		"to", next,
	)
	s.done(op)
	return updated, nil
}
