package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New("sqlite", filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testBundle(creator string, groupID string, shares map[string]models.Amount) *models.ExpenseBundle {
	var total models.Amount
	bundle := &models.ExpenseBundle{
		Expense: &models.Expense{CreatedBy: creator, GroupID: groupID, SplitMode: models.SplitEqual},
	}
	for user, amount := range shares {
		total += amount
		status := models.SharePending
		if user == creator {
			status = models.ShareAccepted
		}
		bundle.Shares = append(bundle.Shares, models.ExpenseShare{UserID: user, Amount: amount, Status: status})
	}
	bundle.Expense.TotalAmount = total
	return bundle
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateExpenseBundle assigns ids and round-trips", func(t *testing.T) {
		pct := decimal.RequireFromString("33.5")
		bundle := &models.ExpenseBundle{
			Expense: &models.Expense{
				CreatedBy:   "alice",
				TotalAmount: 1000,
				SplitMode:   models.SplitPercentage,
				StoreName:   "Corner Market",
			},
			Items: []models.ExpenseItem{
				{Name: "Milk", Quantity: decimal.RequireFromString("2"), UnitPrice: 150, TotalPrice: 300},
				{Name: "Bread", Quantity: decimal.RequireFromString("1.5"), UnitPrice: 466, TotalPrice: 699},
			},
			Shares: []models.ExpenseShare{
				{UserID: "bob", Amount: 335, Percentage: &pct, Status: models.SharePending},
				{UserID: "alice", Amount: 665, Status: models.ShareAccepted},
			},
		}
		require.NoError(t, store.CreateExpenseBundle(ctx, bundle))
		require.NotEmpty(t, bundle.Expense.ID)
		assert.False(t, bundle.Expense.CreatedAt.IsZero())

		got, err := store.GetExpense(ctx, bundle.Expense.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Amount(1000), got.TotalAmount)
		assert.Equal(t, models.SplitPercentage, got.SplitMode)
		assert.Equal(t, "Corner Market", got.StoreName)
		assert.Empty(t, got.GroupID)

		items, err := store.ListExpenseItems(ctx, bundle.Expense.ID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Milk", items[0].Name)
		assert.True(t, items[1].Quantity.Equal(decimal.RequireFromString("1.5")))

		shares, err := store.ListExpenseShares(ctx, bundle.Expense.ID)
		require.NoError(t, err)
		require.Len(t, shares, 2)
		assert.Equal(t, "alice", shares[0].UserID)
		assert.Nil(t, shares[0].Percentage)
		require.NotNil(t, shares[1].Percentage)
		assert.True(t, shares[1].Percentage.Equal(pct))
	})

	t.Run("CreateExpenseBundle is atomic", func(t *testing.T) {
		bundle := &models.ExpenseBundle{
			Expense: &models.Expense{ID: "atomic", CreatedBy: "alice", TotalAmount: 200, SplitMode: models.SplitEqual},
			Shares: []models.ExpenseShare{
				{UserID: "bob", Amount: 100, Status: models.SharePending},
				{UserID: "bob", Amount: 100, Status: models.SharePending},
			},
		}
		err := store.CreateExpenseBundle(ctx, bundle)
		require.ErrorIs(t, err, storage.ErrDuplicate)

		_, err = store.GetExpense(ctx, "atomic")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeleteExpense cascades", func(t *testing.T) {
		bundle := testBundle("alice", "", map[string]models.Amount{"alice": 50, "bob": 50})
		require.NoError(t, store.CreateExpenseBundle(ctx, bundle))
		shareID := bundle.Shares[0].ID

		require.NoError(t, store.DeleteExpense(ctx, bundle.Expense.ID))

		_, err := store.GetShare(ctx, shareID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteExpense(ctx, bundle.Expense.ID), storage.ErrNotFound)
	})

	t.Run("UpdateShareStatus compares and sets", func(t *testing.T) {
		bundle := testBundle("alice", "", map[string]models.Amount{"bob": 400})
		require.NoError(t, store.CreateExpenseBundle(ctx, bundle))
		shareID := bundle.Shares[0].ID
		at := time.Now().UTC()

		share, err := store.UpdateShareStatus(ctx, shareID, models.SharePending, models.ShareAccepted, at)
		require.NoError(t, err)
		assert.Equal(t, models.ShareAccepted, share.Status)
		assert.Nil(t, share.PaidAt)

		_, err = store.UpdateShareStatus(ctx, shareID, models.SharePending, models.ShareRejected, at)
		assert.ErrorIs(t, err, storage.ErrStatusMismatch)

		share, err = store.UpdateShareStatus(ctx, shareID, models.ShareAccepted, models.SharePaid, at)
		require.NoError(t, err)
		require.NotNil(t, share.PaidAt)
		assert.Equal(t, at.UnixMicro(), share.PaidAt.UnixMicro())

		_, err = store.UpdateShareStatus(ctx, "missing", models.SharePending, models.ShareAccepted, at)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("UpdateShareStatus lets one concurrent writer win", func(t *testing.T) {
		bundle := testBundle("alice", "", map[string]models.Amount{"bob": 100})
		require.NoError(t, store.CreateExpenseBundle(ctx, bundle))
		shareID := bundle.Shares[0].ID

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for _, next := range []models.ShareStatus{models.ShareAccepted, models.ShareRejected, models.ShareAccepted} {
			wg.Add(1)
			go func(next models.ShareStatus) {
				defer wg.Done()
				if _, err := store.UpdateShareStatus(ctx, shareID, models.SharePending, next, time.Now()); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(next)
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
	})
}

func TestListScopeEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Flat", CreatedBy: "alice"}
	require.NoError(t, store.CreateGroup(ctx, group, &models.GroupMembership{
		UserID: "alice", Role: models.RoleAdmin, Status: models.MembershipAccepted,
	}))

	inGroup := testBundle("alice", group.ID, map[string]models.Amount{"alice": 100, "bob": 100, "carol": 100})
	direct := testBundle("bob", "", map[string]models.Amount{"alice": 250})
	unrelated := testBundle("carol", "", map[string]models.Amount{"dave": 75})
	for _, b := range []*models.ExpenseBundle{inGroup, direct, unrelated} {
		require.NoError(t, store.CreateExpenseBundle(ctx, b))
	}

	t.Run("group scope returns every share of group expenses", func(t *testing.T) {
		entries, err := store.ListScopeEntries(ctx, models.GroupScope(group.ID))
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for _, e := range entries {
			assert.Equal(t, inGroup.Expense.ID, e.ExpenseID)
			assert.Equal(t, "alice", e.Creditor)
			assert.Equal(t, models.Amount(300), e.ExpenseTotal)
		}
	})

	t.Run("pair scope spans group and direct expenses", func(t *testing.T) {
		entries, err := store.ListScopeEntries(ctx, models.PairScope("bob", "alice"))
		require.NoError(t, err)

		expenses := map[string]bool{}
		for _, e := range entries {
			expenses[e.ExpenseID] = true
		}
		assert.Equal(t, map[string]bool{inGroup.Expense.ID: true, direct.Expense.ID: true}, expenses)
		assert.Len(t, entries, 4)
	})

	t.Run("invalid scope", func(t *testing.T) {
		_, err := store.ListScopeEntries(ctx, models.Scope{})
		assert.ErrorIs(t, err, models.ErrInvalidScope)
	})
}

func TestFriends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := &models.FriendRequest{FromUserID: "alice", ToUserID: "bob", Status: models.RequestPending}
	require.NoError(t, store.CreateFriendRequest(ctx, req))
	require.NotEmpty(t, req.ID)

	t.Run("second pending request for the pair is a duplicate", func(t *testing.T) {
		err := store.CreateFriendRequest(ctx, &models.FriendRequest{
			FromUserID: "bob", ToUserID: "alice", Status: models.RequestPending,
		})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("accept writes mirrored rows atomically", func(t *testing.T) {
		at := time.Now().UTC()
		updated, err := store.UpdateFriendRequestStatus(ctx, req.ID, models.RequestPending, models.RequestAccepted, at,
			models.MirroredFriends("alice", "bob", models.FriendAccepted, at)...)
		require.NoError(t, err)
		assert.Equal(t, models.RequestAccepted, updated.Status)

		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			f, err := store.GetFriend(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.Equal(t, models.FriendAccepted, f.Status)
		}
	})

	t.Run("stale transition leaves friends untouched", func(t *testing.T) {
		other := &models.FriendRequest{FromUserID: "carol", ToUserID: "dave", Status: models.RequestPending}
		require.NoError(t, store.CreateFriendRequest(ctx, other))
		_, err := store.UpdateFriendRequestStatus(ctx, other.ID, models.RequestPending, models.RequestCancelled, time.Now())
		require.NoError(t, err)

		_, err = store.UpdateFriendRequestStatus(ctx, other.ID, models.RequestPending, models.RequestAccepted, time.Now(),
			models.MirroredFriends("carol", "dave", models.FriendAccepted, time.Now())...)
		assert.ErrorIs(t, err, storage.ErrStatusMismatch)

		_, err = store.GetFriend(ctx, "carol", "dave")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("a new request is allowed once the old one is resolved", func(t *testing.T) {
		assert.NoError(t, store.CreateFriendRequest(ctx, &models.FriendRequest{
			FromUserID: "dave", ToUserID: "carol", Status: models.RequestPending,
		}))
	})

	t.Run("DeleteFriendPair removes both directions", func(t *testing.T) {
		require.NoError(t, store.DeleteFriendPair(ctx, "bob", "alice"))
		_, err := store.GetFriend(ctx, "alice", "bob")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetFriend(ctx, "bob", "alice")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteFriendPair(ctx, "alice", "bob"), storage.ErrNotFound)
	})
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", CreatedBy: "alice"}
	require.NoError(t, store.CreateGroup(ctx, group, &models.GroupMembership{
		UserID: "alice", Role: models.RoleAdmin, Status: models.MembershipAccepted,
	}))

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", got.Name)

	invite := &models.GroupMembership{GroupID: group.ID, UserID: "bob", Role: models.RoleMember, Status: models.MembershipPending}
	require.NoError(t, store.AddMembership(ctx, invite))
	assert.ErrorIs(t, store.AddMembership(ctx, invite), storage.ErrDuplicate)

	m, err := store.UpdateMembershipStatus(ctx, group.ID, "bob", models.MembershipPending, models.MembershipAccepted)
	require.NoError(t, err)
	assert.True(t, m.Active())

	_, err = store.UpdateMembershipStatus(ctx, group.ID, "bob", models.MembershipPending, models.MembershipRejected)
	assert.ErrorIs(t, err, storage.ErrStatusMismatch)

	_, err = store.GetMembership(ctx, group.ID, "carol")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	members, err := store.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleAdmin, members[0].Role)
}

func TestNotifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data, err := structpb.NewStruct(map[string]any{"expense_id": "e1", "amount": "4.00"})
	require.NoError(t, err)

	older := &models.Notification{UserID: "bob", Title: "New expense", Message: "alice shared an expense",
		Type: models.NotifyExpenseShared, Data: data, CreatedAt: time.Now().Add(-time.Minute)}
	newer := &models.Notification{UserID: "bob", Title: "Friend request", Message: "carol sent a request",
		Type: models.NotifyFriendRequest}
	require.NoError(t, store.CreateNotification(ctx, older))
	require.NoError(t, store.CreateNotification(ctx, newer))

	list, err := store.ListNotifications(ctx, "bob", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	require.NotNil(t, list[1].Data)
	assert.Equal(t, "e1", list[1].Data.GetFields()["expense_id"].GetStringValue())

	assert.ErrorIs(t, store.MarkNotificationRead(ctx, "alice", older.ID), storage.ErrNotFound)
	require.NoError(t, store.MarkNotificationRead(ctx, "bob", older.ID))

	unread, err := store.ListNotifications(ctx, "bob", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, newer.ID, unread[0].ID)
}

func TestListExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Flat", CreatedBy: "alice"}
	require.NoError(t, store.CreateGroup(ctx, group, &models.GroupMembership{
		UserID: "alice", Role: models.RoleAdmin, Status: models.MembershipAccepted,
	}))

	day := func(d int) time.Time { return time.Date(2026, time.March, d, 12, 0, 0, 0, time.UTC) }
	create := func(creator, groupID string, date time.Time, shares map[string]models.Amount) string {
		bundle := testBundle(creator, groupID, shares)
		bundle.Expense.PurchaseDate = date
		bundle.Items = []models.ExpenseItem{{Name: "Eggs", Quantity: decimal.NewFromInt(1), UnitPrice: 10, TotalPrice: 10}}
		require.NoError(t, store.CreateExpenseBundle(ctx, bundle))
		return bundle.Expense.ID
	}
	aliceOnly := create("alice", "", day(1), map[string]models.Amount{"alice": 100})
	sharedWithBob := create("alice", "", day(5), map[string]models.Amount{"alice": 50, "bob": 50})
	bobPaid := create("bob", "", day(10), map[string]models.Amount{"bob": 30, "carol": 30})
	inGroup := create("alice", group.ID, day(15), map[string]models.Amount{"alice": 40, "carol": 40})

	ids := func(bundles []models.ExpenseBundle) []string {
		out := make([]string, 0, len(bundles))
		for _, b := range bundles {
			out = append(out, b.Expense.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter models.ExpenseFilter
		want   []string
	}{
		{"created or shared, newest first", models.ExpenseFilter{UserID: "bob"}, []string{bobPaid, sharedWithBob}},
		{"creator sees every own expense", models.ExpenseFilter{UserID: "alice"}, []string{inGroup, sharedWithBob, aliceOnly}},
		{"date range is inclusive", models.ExpenseFilter{UserID: "alice", From: day(1), To: day(5)}, []string{sharedWithBob, aliceOnly}},
		{"open-ended from", models.ExpenseFilter{UserID: "carol", From: day(11)}, []string{inGroup}},
		{"group filter", models.ExpenseFilter{GroupID: group.ID}, []string{inGroup}},
		{"no match", models.ExpenseFilter{UserID: "dave"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListExpenses(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("bundles carry items and shares", func(t *testing.T) {
		got, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: "bob", To: day(5)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Len(t, got[0].Items, 1)
		require.Len(t, got[0].Shares, 2)
		assert.Equal(t, "alice", got[0].Shares[0].UserID)
		assert.True(t, got[0].Expense.PurchaseDate.Equal(day(5)))
	})
}

func TestSQLiteDSN(t *testing.T) {
	lite, err := DialectFor("sqlite")
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare path",
			raw:  "data/ledger.db",
			want: "data/ledger.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		},
		{
			name: "caller params are kept and required ones appended",
			raw:  "data/ledger.db?_pragma=busy_timeout(1000)",
			want: "data/ledger.db?_pragma=busy_timeout(1000)&_pragma=foreign_keys(1)&_txlock=immediate",
		},
		{
			name: "foreign keys cannot be switched off",
			raw:  "file:ledger.db?_pragma=foreign_keys(0)&_txlock=deferred",
			want: "file:ledger.db?_pragma=foreign_keys(1)&_txlock=deferred&_pragma=busy_timeout(5000)",
		},
		{
			name: "escaped pragma is recognized",
			raw:  "ledger.db?_pragma=foreign_keys%280%29",
			want: "ledger.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lite.DSN(tt.raw))
		})
	}
}

func TestDeleteExpenseCascadesWithCustomDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	store, err := New("sqlite", path+"?_pragma=busy_timeout(1000)")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	bundle := testBundle("alice", "", map[string]models.Amount{"alice": 50, "bob": 50})
	bundle.Items = []models.ExpenseItem{{Name: "Milk", Quantity: decimal.NewFromInt(1), UnitPrice: 100, TotalPrice: 100}}
	require.NoError(t, store.CreateExpenseBundle(ctx, bundle))

	require.NoError(t, store.DeleteExpense(ctx, bundle.Expense.ID))

	shares, err := store.ListExpenseShares(ctx, bundle.Expense.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)
	items, err := store.ListExpenseItems(ctx, bundle.Expense.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	for _, sh := range bundle.Shares {
		_, err := store.GetShare(ctx, sh.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func TestDialectRebind(t *testing.T) {
	pg, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT 1 FROM t WHERE a = ? AND b = ?"))

	lite, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "a = ?", lite.Rebind("a = ?"))

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
