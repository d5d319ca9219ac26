package models

import "errors"

// ErrInvalidScope is returned when a scope names neither a group nor a pair.
var ErrInvalidScope = errors.New("scope must name a group or a user pair")

// Scope is the set of users balances are aggregated over: either a group
// or an unordered friend pair.
type Scope struct {
	GroupID string
	Pair    [2]string
}

// GroupScope scopes to every expense of a group.
func GroupScope(groupID string) Scope {
	return Scope{GroupID: groupID}
}

// PairScope scopes to the expenses between two users. The pair is stored in
// canonical order.
func PairScope(a, b string) Scope {
	if b < a {
		a, b = b, a
	}
	return Scope{Pair: [2]string{a, b}}
}

// IsPair reports whether the scope is a friend pair.
func (s Scope) IsPair() bool {
	return s.GroupID == "" && s.Pair[0] != ""
}

// Includes reports whether a debt between the two users is visible in scope.
func (s Scope) Includes(a, b string) bool {
	if !s.IsPair() {
		return true
	}
	return PairKey(a, b) == PairKey(s.Pair[0], s.Pair[1])
}

// Validate checks that exactly one of group or pair is set.
func (s Scope) Validate() error {
	hasPair := s.Pair[0] != "" || s.Pair[1] != ""
	switch {
	case s.GroupID != "" && hasPair:
		return ErrInvalidScope
	case s.GroupID != "":
		return nil
	case hasPair && s.Pair[0] != "" && s.Pair[1] != "" && s.Pair[0] != s.Pair[1]:
		return nil
	default:
		return ErrInvalidScope
	}
}

// ShareEntry is the read-side projection of one share used for balance
// computation: the share owner owes the expense creator Amount.
type ShareEntry struct {
	ShareID      string
	ExpenseID    string
	ExpenseTotal Amount
	Debtor       string
	Creditor     string
	Amount       Amount
	Status       ShareStatus
}
