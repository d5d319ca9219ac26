package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

const shareColumns = `id, expense_id, user_id, amount, percentage, status, paid_at, created_at, updated_at`

// CreateExpenseBundle persists the expense with its items and shares.
func (s *Store) CreateExpenseBundle(ctx context.Context, bundle *models.ExpenseBundle) error {
	e := bundle.Expense
	if e == nil {
		return fmt.Errorf("expense bundle has no expense")
	}
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.PurchaseDate.IsZero() {
		e.PurchaseDate = e.CreatedAt
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx,
			`INSERT INTO expenses (id, created_by, group_id, total_amount, split_mode, purchase_date, store_name, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.CreatedBy, nullString(e.GroupID), int64(e.TotalAmount), string(e.SplitMode),
			toMicros(e.PurchaseDate), e.StoreName, e.Notes, toMicros(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for i := range bundle.Items {
			item := &bundle.Items[i]
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.ExpenseID = e.ID
			_, err := s.exec(ctx, tx,
				`INSERT INTO expense_items (id, expense_id, position, grocery_item_id, name, quantity, unit_price, total_price)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, item.ExpenseID, i, item.GroceryItemID, item.Name, item.Quantity.String(),
				int64(item.UnitPrice), int64(item.TotalPrice),
			)
			if err != nil {
				return fmt.Errorf("failed to insert expense item: %w", err)
			}
		}

		for i := range bundle.Shares {
			share := &bundle.Shares[i]
			if share.ID == "" {
				share.ID = uuid.New().String()
			}
			share.ExpenseID = e.ID
			if share.CreatedAt.IsZero() {
				share.CreatedAt = e.CreatedAt
			}
			if share.UpdatedAt.IsZero() {
				share.UpdatedAt = share.CreatedAt
			}
			var pct sql.NullString
			if share.Percentage != nil {
				pct = sql.NullString{String: share.Percentage.String(), Valid: true}
			}
			_, err := s.exec(ctx, tx,
				`INSERT INTO expense_shares (`+shareColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				share.ID, share.ExpenseID, share.UserID, int64(share.Amount), pct, string(share.Status),
				nullMicros(share.PaidAt), toMicros(share.CreatedAt), toMicros(share.UpdatedAt),
			)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return fmt.Errorf("share for user %s: %w", share.UserID, storage.ErrDuplicate)
				}
				return fmt.Errorf("failed to insert expense share: %w", err)
			}
		}
		return nil
	})
}

const expenseColumns = `id, created_by, group_id, total_amount, split_mode, purchase_date, store_name, notes, created_at`

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	e, err := scanExpense(s.queryRow(ctx, s.db,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, expenseID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return e, err
}

// ListExpenses returns the expenses matching filter with their items and
// shares, newest purchase first.
func (s *Store) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.ExpenseBundle, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case filter.GroupID != "":
		where = append(where, `group_id = ?`)
		args = append(args, filter.GroupID)
	case filter.UserID != "":
		where = append(where, `(created_by = ? OR id IN (SELECT expense_id FROM expense_shares WHERE user_id = ?))`)
		args = append(args, filter.UserID, filter.UserID)
	}
	if !filter.From.IsZero() {
		where = append(where, `purchase_date >= ?`)
		args = append(args, toMicros(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, `purchase_date <= ?`)
		args = append(args, toMicros(filter.To))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY purchase_date DESC, id`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	var bundles []models.ExpenseBundle
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bundles = append(bundles, models.ExpenseBundle{Expense: e})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	// The pool holds a single SQLite connection, so children are read only
	// after the expense cursor is closed.
	for i := range bundles {
		id := bundles[i].Expense.ID
		if bundles[i].Items, err = s.ListExpenseItems(ctx, id); err != nil {
			return nil, err
		}
		if bundles[i].Shares, err = s.ListExpenseShares(ctx, id); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e                              models.Expense
		groupID                        sql.NullString
		mode                           string
		purchaseDate, createdAt, total int64
	)
	err := row.Scan(&e.ID, &e.CreatedBy, &groupID, &total, &mode, &purchaseDate, &e.StoreName, &e.Notes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	e.GroupID = groupID.String
	e.TotalAmount = models.Amount(total)
	e.SplitMode = models.SplitMode(mode)
	e.PurchaseDate = fromMicros(purchaseDate)
	e.CreatedAt = fromMicros(createdAt)
	return &e, nil
}

// ListExpenseItems returns the items of an expense in insertion order.
func (s *Store) ListExpenseItems(ctx context.Context, expenseID string) ([]models.ExpenseItem, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT id, expense_id, grocery_item_id, name, quantity, unit_price, total_price
		 FROM expense_items WHERE expense_id = ? ORDER BY position`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense items: %w", err)
	}
	defer rows.Close()

	var items []models.ExpenseItem
	for rows.Next() {
		var (
			item              models.ExpenseItem
			qty               string
			unitPrice, amount int64
		)
		if err := rows.Scan(&item.ID, &item.ExpenseID, &item.GroceryItemID, &item.Name, &qty, &unitPrice, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense item: %w", err)
		}
		item.Quantity, err = decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q for item %s: %w", qty, item.ID, err)
		}
		item.UnitPrice = models.Amount(unitPrice)
		item.TotalPrice = models.Amount(amount)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListExpenseShares returns the shares of an expense ordered by user ID.
func (s *Store) ListExpenseShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+shareColumns+` FROM expense_shares WHERE expense_id = ? ORDER BY user_id`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *share)
	}
	return shares, rows.Err()
}

// DeleteExpense removes an expense; items and shares cascade.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	result, err := s.exec(ctx, s.db, `DELETE FROM expenses WHERE id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// GetShare retrieves a single share.
func (s *Store) GetShare(ctx context.Context, shareID string) (*models.ExpenseShare, error) {
	share, err := scanShare(s.queryRow(ctx, s.db,
		`SELECT `+shareColumns+` FROM expense_shares WHERE id = ?`, shareID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("share %s: %w", shareID, storage.ErrNotFound)
	}
	return share, err
}

// UpdateShareStatus performs a compare-and-set on the share status. Moving
// to paid stamps paid_at.
func (s *Store) UpdateShareStatus(ctx context.Context, shareID string, expected, next models.ShareStatus, at time.Time) (*models.ExpenseShare, error) {
	var (
		result sql.Result
		err    error
	)
	if next == models.SharePaid {
		result, err = s.exec(ctx, s.db,
			`UPDATE expense_shares SET status = ?, updated_at = ?, paid_at = ? WHERE id = ? AND status = ?`,
			string(next), toMicros(at), toMicros(at), shareID, string(expected))
	} else {
		result, err = s.exec(ctx, s.db,
			`UPDATE expense_shares SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(next), toMicros(at), shareID, string(expected))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update share status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetShare(ctx, shareID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("share %s: %w", shareID, storage.ErrStatusMismatch)
	}
	return s.GetShare(ctx, shareID)
}

// ListScopeEntries reads the share entries for a group or a user pair in a
// single statement.
func (s *Store) ListScopeEntries(ctx context.Context, scope models.Scope) ([]models.ShareEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	const base = `SELECT s.id, s.expense_id, e.total_amount, s.user_id, e.created_by, s.amount, s.status
		FROM expense_shares s JOIN expenses e ON e.id = s.expense_id `
	var (
		rows *sql.Rows
		err  error
	)
	if scope.IsPair() {
		a, b := scope.Pair[0], scope.Pair[1]
		rows, err = s.query(ctx, s.db, base+`
			WHERE e.id IN (
				SELECT e2.id FROM expenses e2 JOIN expense_shares s2 ON s2.expense_id = e2.id
				WHERE (e2.created_by = ? AND s2.user_id = ?) OR (e2.created_by = ? AND s2.user_id = ?))
			ORDER BY e.created_at, e.id, s.user_id`, a, b, b, a)
	} else {
		rows, err = s.query(ctx, s.db, base+`
			WHERE e.group_id = ?
			ORDER BY e.created_at, e.id, s.user_id`, scope.GroupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scope entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ShareEntry
	for rows.Next() {
		var (
			entry         models.ShareEntry
			total, amount int64
			status        string
		)
		if err := rows.Scan(&entry.ShareID, &entry.ExpenseID, &total, &entry.Debtor, &entry.Creditor, &amount, &status); err != nil {
			return nil, fmt.Errorf("failed to scan scope entry: %w", err)
		}
		entry.ExpenseTotal = models.Amount(total)
		entry.Amount = models.Amount(amount)
		entry.Status = models.ShareStatus(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanShare(row rowScanner) (*models.ExpenseShare, error) {
	var (
		share                models.ExpenseShare
		amount               int64
		pct                  sql.NullString
		status               string
		paidAt               sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&share.ID, &share.ExpenseID, &share.UserID, &amount, &pct, &status, &paidAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense share: %w", err)
	}
	share.Amount = models.Amount(amount)
	share.Status = models.ShareStatus(status)
	share.CreatedAt = fromMicros(createdAt)
	share.UpdatedAt = fromMicros(updatedAt)
	if pct.Valid {
		d, err := decimal.NewFromString(pct.String)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage %q for share %s: %w", pct.String, share.ID, err)
		}
		share.Percentage = &d
	}
	if paidAt.Valid {
		t := fromMicros(paidAt.Int64)
		share.PaidAt = &t
	}
	return &share, nil
}
