package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitMode selects how an expense total is divided among participants.
type SplitMode string

const (
	SplitEqual      SplitMode = "equal"
	SplitPercentage SplitMode = "percentage"
)

// Valid reports whether m is a known split mode.
func (m SplitMode) Valid() bool {
	return m == SplitEqual || m == SplitPercentage
}

// Expense is a purchase paid by exactly one user.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// CreatedBy is the payer. Only the payer may delete the expense.
	CreatedBy string

	// GroupID scopes the expense to a group. Empty means no group.
	GroupID string

	// TotalAmount is the positive amount paid, in minor units.
	TotalAmount Amount

	// SplitMode records how the shares were computed.
	SplitMode SplitMode

	PurchaseDate time.Time
	StoreName    string
	Notes        string
	CreatedAt    time.Time
}

// ExpenseItem is a line item of an expense.
// Quantity × UnitPrice equals TotalPrice within rounding tolerance.
type ExpenseItem struct {
	ID        string
	ExpenseID string

	// GroceryItemID optionally references a catalog entry.
	GroceryItemID string
	Name          string

	Quantity   decimal.Decimal
	UnitPrice  Amount
	TotalPrice Amount
}

// ShareStatus is the lifecycle state of an ExpenseShare.
type ShareStatus string

const (
	SharePending   ShareStatus = "pending"
	ShareAccepted  ShareStatus = "accepted"
	ShareRejected  ShareStatus = "rejected"
	SharePaid      ShareStatus = "paid"
	ShareCancelled ShareStatus = "cancelled"
)

// Valid reports whether s is a known share status.
func (s ShareStatus) Valid() bool {
	switch s {
	case SharePending, ShareAccepted, ShareRejected, SharePaid, ShareCancelled:
		return true
	}
	return false
}

// ExpenseShare is one participant's owed portion of an expense.
type ExpenseShare struct {
	ID        string
	ExpenseID string
	UserID    string
	Amount    Amount

	// Percentage is set only for percentage splits.
	Percentage *decimal.Decimal

	Status    ShareStatus
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpenseBundle is an expense with everything written alongside it.
type ExpenseBundle struct {
	Expense *Expense
	Items   []ExpenseItem
	Shares  []ExpenseShare
}

// ExpenseFilter narrows an expense listing. Zero times leave that end of the
// purchase-date range open; both ends are inclusive.
type ExpenseFilter struct {
	// UserID limits results to expenses the user created or holds a share
	// in. Ignored when GroupID is set.
	UserID  string
	GroupID string
	From    time.Time
	To      time.Time
}
