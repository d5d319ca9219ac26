package calculator

import (
	"slices"
	"strings"

	"github.com/mmynk/grocerysplit/internal/models"
)

// DebtEdge is a net debt between two users: From owes To Amount (> 0).
type DebtEdge struct {
	From   string
	To     string
	Amount models.Amount
}

// MemberBalance summarizes one user's position in a scope.
type MemberBalance struct {
	UserID     string
	TotalLent  models.Amount // owed to this user by others
	TotalOwed  models.Amount // owed by this user to others
	NetBalance models.Amount // Positive = owed money, Negative = owes money
}

// Outstanding returns what an entry still contributes as debt. Rejected,
// cancelled and paid shares contribute nothing, as does a creator's own
// share.
func Outstanding(e models.ShareEntry) models.Amount {
	if e.Debtor == e.Creditor {
		return 0
	}
	switch e.Status {
	case models.SharePending, models.ShareAccepted:
		return e.Amount
	default:
		return 0
	}
}

// AggregateBalances folds share entries into one signed accumulator per
// unordered user pair and returns the non-zero nets, sorted by (From, To).
func AggregateBalances(entries []models.ShareEntry, scope models.Scope) []DebtEdge {
	type pair struct{ lo, hi string }
	// acc[p] > 0 means p.lo owes p.hi.
	acc := make(map[pair]int64)

	for _, e := range entries {
		amount := int64(Outstanding(e))
		if amount == 0 || !scope.Includes(e.Debtor, e.Creditor) {
			continue
		}
		if e.Debtor < e.Creditor {
			acc[pair{e.Debtor, e.Creditor}] += amount
		} else {
			acc[pair{e.Creditor, e.Debtor}] -= amount
		}
	}

	edges := make([]DebtEdge, 0, len(acc))
	for p, net := range acc {
		switch {
		case net > 0:
			edges = append(edges, DebtEdge{From: p.lo, To: p.hi, Amount: models.Amount(net)})
		case net < 0:
			edges = append(edges, DebtEdge{From: p.hi, To: p.lo, Amount: models.Amount(-net)})
		}
	}
	slices.SortFunc(edges, compareEdges)
	return edges
}

func compareEdges(a, b DebtEdge) int {
	if c := strings.Compare(a.From, b.From); c != 0 {
		return c
	}
	return strings.Compare(a.To, b.To)
}

// NetPositions projects pairwise edges onto one net value per user:
// amounts owed to them minus amounts they owe.
func NetPositions(edges []DebtEdge) map[string]models.Amount {
	nets := make(map[string]models.Amount)
	for _, e := range edges {
		nets[e.To] += e.Amount
		nets[e.From] -= e.Amount
	}
	return nets
}

// MemberBalances returns gross and net positions for every user with
// outstanding debt in scope, sorted by user id.
func MemberBalances(entries []models.ShareEntry, scope models.Scope) []MemberBalance {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		if _, exists := balances[id]; !exists {
			balances[id] = &MemberBalance{UserID: id}
		}
		return balances[id]
	}

	for _, e := range entries {
		amount := Outstanding(e)
		if amount == 0 || !scope.Includes(e.Debtor, e.Creditor) {
			continue
		}
		get(e.Creditor).TotalLent += amount
		get(e.Debtor).TotalOwed += amount
	}

	result := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.NetBalance = bal.TotalLent - bal.TotalOwed
		result = append(result, *bal)
	}
	slices.SortFunc(result, func(a, b MemberBalance) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return result
}
