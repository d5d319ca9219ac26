package calculator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mmynk/grocerysplit/internal/models"
)

// ErrUnbalancedLedger means the net positions do not sum to zero. It
// indicates corrupted data and is never patched over.
var ErrUnbalancedLedger = errors.New("net balances do not sum to zero")

// Transfer is a recommended payment: From pays To Amount.
type Transfer struct {
	From   string
	To     string
	Amount models.Amount
}

type position struct {
	userID string
	amount models.Amount // always positive
}

// PlanSettlements reduces pairwise balances to a short list of transfers
// that zeroes every net position. The largest debtor repeatedly pays the
// largest creditor; ties go to the lower user id. For N users with non-zero
// nets the plan has at most N-1 transfers.
func PlanSettlements(edges []DebtEdge) ([]Transfer, error) {
	for _, e := range edges {
		if e.Amount <= 0 || e.From == e.To {
			return nil, fmt.Errorf("%w: malformed edge %s -> %s (%d)", ErrUnbalancedLedger, e.From, e.To, e.Amount)
		}
	}
	return PlanFromNets(NetPositions(edges))
}

// PlanFromNets plans transfers directly from per-user net positions.
func PlanFromNets(nets map[string]models.Amount) ([]Transfer, error) {
	var (
		sum       models.Amount
		creditors []position
		debtors   []position
	)
	for id, net := range nets {
		sum += net
		switch {
		case net > 0:
			creditors = append(creditors, position{userID: id, amount: net})
		case net < 0:
			debtors = append(debtors, position{userID: id, amount: -net})
		}
	}
	if sum != 0 {
		return nil, fmt.Errorf("%w: residual %d", ErrUnbalancedLedger, sum)
	}

	var transfers []Transfer
	for len(debtors) > 0 && len(creditors) > 0 {
		slices.SortFunc(debtors, byLargest)
		slices.SortFunc(creditors, byLargest)

		d, c := &debtors[0], &creditors[0]
		amount := min(d.amount, c.amount)
		transfers = append(transfers, Transfer{From: d.userID, To: c.userID, Amount: amount})

		d.amount -= amount
		c.amount -= amount
		debtors = dropSettled(debtors)
		creditors = dropSettled(creditors)
	}

	if len(debtors) > 0 || len(creditors) > 0 {
		return nil, fmt.Errorf("%w: %d debtors and %d creditors left", ErrUnbalancedLedger, len(debtors), len(creditors))
	}
	return transfers, nil
}

func byLargest(a, b position) int {
	if a.amount != b.amount {
		if a.amount > b.amount {
			return -1
		}
		return 1
	}
	return strings.Compare(a.userID, b.userID)
}

func dropSettled(ps []position) []position {
	return slices.DeleteFunc(ps, func(p position) bool { return p.amount == 0 })
}
