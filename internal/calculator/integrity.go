package calculator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mmynk/grocerysplit/internal/models"
)

var (
	// ErrShareSumMismatch means stored shares no longer add up to their
	// expense total.
	ErrShareSumMismatch = errors.New("share amounts do not sum to expense total")

	ErrItemTotalMismatch = errors.New("item total does not equal quantity times unit price")
	ErrItemsDoNotMatch   = errors.New("item totals do not sum to expense total")
)

// CheckExpenseIntegrity verifies that the shares of every expense in entries
// sum to that expense's total within tolerance. Share amounts never change
// after creation, so a cancelled share still accounts for the portion it
// released; the check therefore holds for the live shares of an untouched
// expense and for the full share set once some are cancelled. Entries must
// contain every share of each expense they mention.
func CheckExpenseIntegrity(entries []models.ShareEntry, tolerance models.Amount) error {
	sums := make(map[string]models.Amount)
	totals := make(map[string]models.Amount)
	for _, e := range entries {
		totals[e.ExpenseID] = e.ExpenseTotal
		sums[e.ExpenseID] += e.Amount
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if diff := (sums[id] - totals[id]).Abs(); diff > tolerance {
			return fmt.Errorf("%w: expense %s has shares %s against total %s",
				ErrShareSumMismatch, id, sums[id], totals[id])
		}
	}
	return nil
}

// ReconcileItems checks each item's quantity × unit price against its total
// and the item totals against the expense total, both within tolerance.
// An expense without items always reconciles.
func ReconcileItems(total models.Amount, items []models.ExpenseItem, tolerance models.Amount) error {
	if len(items) == 0 {
		return nil
	}
	var sum models.Amount
	for i, item := range items {
		if !item.Quantity.IsPositive() || item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d has invalid quantity or price", ErrItemTotalMismatch, i)
		}
		expected := models.AmountFromDecimal(item.UnitPrice.Decimal().Mul(item.Quantity))
		if (expected - item.TotalPrice).Abs() > tolerance {
			return fmt.Errorf("%w: item %d expected %s, got %s", ErrItemTotalMismatch, i, expected, item.TotalPrice)
		}
		sum += item.TotalPrice
	}
	if (sum - total).Abs() > tolerance {
		return fmt.Errorf("%w: items sum to %s, expense total %s", ErrItemsDoNotMatch, sum, total)
	}
	return nil
}
