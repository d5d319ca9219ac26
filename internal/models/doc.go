// Package models defines the ledger's domain entities.
//
// # Money
//
// Every monetary field is an Amount: an integer count of minor currency
// units (cents). Floating point never appears in a monetary path; decimal
// values are only used for percentages and item quantities.
//
// # Lifecycle
//
// An Expense is written together with its ExpenseItems and ExpenseShares as
// one unit. Afterwards only ExpenseShare.Status changes, until the creator
// deletes the whole expense.
//
// FriendRequest, ExpenseShare and GroupMembership carry explicit status
// enums. Which transitions are legal is decided by package lifecycle, not by
// storage queries.
//
// # Identity
//
// Users are owned by the external auth provider. Every entity references
// them by id string only.
package models
