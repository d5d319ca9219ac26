package calculator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/grocerysplit/internal/models"
)

func weightsOf(pairs ...any) map[string]decimal.Decimal {
	w := make(map[string]decimal.Decimal)
	for i := 0; i < len(pairs); i += 2 {
		w[pairs[i].(string)] = decimal.RequireFromString(pairs[i+1].(string))
	}
	return w
}

func TestComputeShares(t *testing.T) {
	tests := []struct {
		name         string
		total        models.Amount
		participants []string
		mode         models.SplitMode
		weights      map[string]decimal.Decimal
		want         map[string]models.Amount
		wantErr      error
	}{
		{
			name:         "equal split divides evenly",
			total:        900,
			participants: []string{"alice", "bob", "carol"},
			mode:         models.SplitEqual,
			want:         map[string]models.Amount{"alice": 300, "bob": 300, "carol": 300},
		},
		{
			name:         "equal split hands remainder to lowest ids",
			total:        100,
			participants: []string{"carol", "alice", "bob"},
			mode:         models.SplitEqual,
			want:         map[string]models.Amount{"alice": 34, "bob": 33, "carol": 33},
		},
		{
			name:         "equal split with single participant",
			total:        1,
			participants: []string{"alice"},
			mode:         models.SplitEqual,
			want:         map[string]models.Amount{"alice": 1},
		},
		{
			name:         "percentage split exact",
			total:        1000,
			participants: []string{"alice", "bob", "carol"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("alice", "50", "bob", "30", "carol", "20"),
			want:         map[string]models.Amount{"alice": 500, "bob": 300, "carol": 200},
		},
		{
			name:         "percentage split pushes residual to last participant",
			total:        100,
			participants: []string{"alice", "bob", "carol"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("alice", "33.33", "bob", "33.33", "carol", "33.34"),
			// 33.33 -> 33, 33.33 -> 33, 33.34 -> 33, residual 1 to carol
			want: map[string]models.Amount{"alice": 33, "bob": 33, "carol": 34},
		},
		{
			name:         "percentage split uses banker's rounding",
			total:        5,
			participants: []string{"a", "b"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("a", "50", "b", "50"),
			// 2.5 -> 2 for both, residual 1 to b
			want: map[string]models.Amount{"a": 2, "b": 3},
		},
		{
			name:         "negative residual never drives a share below zero",
			total:        5,
			participants: []string{"a", "b", "c", "d"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("a", "30", "b", "30", "c", "30", "d", "10"),
			// 1.5 -> 2 three times, 0.5 -> 0, residual -1 comes from c
			want: map[string]models.Amount{"a": 2, "b": 2, "c": 1, "d": 0},
		},
		{
			name:         "weights summing to 99 rejected",
			total:        1000,
			participants: []string{"alice", "bob"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("alice", "50", "bob", "49"),
			wantErr:      ErrWeightsDoNotSumTo100,
		},
		{
			name:         "weights summing to 101 rejected",
			total:        1000,
			participants: []string{"alice", "bob"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("alice", "50", "bob", "51"),
			wantErr:      ErrWeightsDoNotSumTo100,
		},
		{
			name:         "missing weight rejected",
			total:        1000,
			participants: []string{"alice", "bob"},
			mode:         models.SplitPercentage,
			weights:      weightsOf("alice", "100"),
			wantErr:      ErrInvalidWeight,
		},
		{
			name:         "zero total rejected",
			total:        0,
			participants: []string{"alice"},
			mode:         models.SplitEqual,
			wantErr:      ErrNonPositiveTotal,
		},
		{
			name:         "negative total rejected",
			total:        -10,
			participants: []string{"alice"},
			mode:         models.SplitEqual,
			wantErr:      ErrNonPositiveTotal,
		},
		{
			name:         "empty participants rejected",
			total:        100,
			participants: []string{},
			mode:         models.SplitEqual,
			wantErr:      ErrInvalidParticipantSet,
		},
		{
			name:         "duplicate participants rejected",
			total:        100,
			participants: []string{"alice", "bob", "alice"},
			mode:         models.SplitEqual,
			wantErr:      ErrInvalidParticipantSet,
		},
		{
			name:         "unknown mode rejected",
			total:        100,
			participants: []string{"alice"},
			mode:         "exact",
			wantErr:      ErrUnknownSplitMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := ComputeShares(tt.total, tt.participants, tt.mode, tt.weights)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ComputeShares() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeShares() unexpected error: %v", err)
			}
			if len(shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.want))
			}
			var sum models.Amount
			for i, s := range shares {
				if i > 0 && shares[i-1].UserID >= s.UserID {
					t.Errorf("shares not in ascending id order: %q before %q", shares[i-1].UserID, s.UserID)
				}
				if s.Amount != tt.want[s.UserID] {
					t.Errorf("%s amount = %d, want %d", s.UserID, s.Amount, tt.want[s.UserID])
				}
				if tt.mode == models.SplitPercentage && s.Percentage == nil {
					t.Errorf("%s missing percentage", s.UserID)
				}
				sum += s.Amount
			}
			if sum != tt.total {
				t.Errorf("shares sum to %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestComputeShares_EqualSplitIsExact(t *testing.T) {
	for n := 1; n <= 12; n++ {
		participants := make([]string, n)
		for i := range participants {
			participants[i] = fmt.Sprintf("user-%02d", i)
		}
		for total := models.Amount(1); total <= 500; total++ {
			shares, err := ComputeShares(total, participants, models.SplitEqual, nil)
			if err != nil {
				t.Fatalf("total=%d n=%d: %v", total, n, err)
			}
			var sum models.Amount
			lo, hi := shares[0].Amount, shares[0].Amount
			for _, s := range shares {
				sum += s.Amount
				lo, hi = min(lo, s.Amount), max(hi, s.Amount)
			}
			if sum != total {
				t.Fatalf("total=%d n=%d: shares sum to %d", total, n, sum)
			}
			if hi-lo > 1 {
				t.Fatalf("total=%d n=%d: shares differ by %d", total, n, hi-lo)
			}
		}
	}
}

func TestReconcileItems(t *testing.T) {
	item := func(qty string, unit, total models.Amount) models.ExpenseItem {
		return models.ExpenseItem{Quantity: decimal.RequireFromString(qty), UnitPrice: unit, TotalPrice: total}
	}

	tests := []struct {
		name    string
		total   models.Amount
		items   []models.ExpenseItem
		wantErr error
	}{
		{name: "no items", total: 500},
		{name: "items reconcile", total: 950, items: []models.ExpenseItem{item("2", 250, 500), item("1.5", 300, 450)}},
		{name: "fractional quantity rounds", total: 333, items: []models.ExpenseItem{item("0.333", 1000, 333)}},
		{name: "item total wrong", total: 600, items: []models.ExpenseItem{item("2", 250, 600)}, wantErr: ErrItemTotalMismatch},
		{name: "items do not sum to total", total: 900, items: []models.ExpenseItem{item("2", 250, 500)}, wantErr: ErrItemsDoNotMatch},
		{name: "zero quantity", total: 0, items: []models.ExpenseItem{item("0", 250, 0)}, wantErr: ErrItemTotalMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReconcileItems(tt.total, tt.items, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReconcileItems() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
