package calculator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/grocerysplit/internal/models"
)

var (
	ErrInvalidParticipantSet = errors.New("participant set must be non-empty with unique ids")
	ErrWeightsDoNotSumTo100  = errors.New("percentage weights must sum to exactly 100")
	ErrNonPositiveTotal      = errors.New("total amount must be positive")
	ErrUnknownSplitMode      = errors.New("unknown split mode")
	ErrInvalidWeight         = errors.New("each participant needs exactly one positive weight")
)

var hundred = decimal.NewFromInt(100)

// Share is one participant's computed portion of an expense total.
type Share struct {
	UserID     string
	Amount     models.Amount
	Percentage *decimal.Decimal
}

// ComputeShares splits total among participants. Results are ordered by
// ascending participant id and always sum to total exactly.
//
// Equal mode gives every participant total/N and hands the total mod N
// leftover minor units out one at a time, in id order. Percentage mode
// rounds each total*weight/100 half-to-even and moves the residual onto the
// last participant.
//
// The payer owes a share only when listed as a participant.
func ComputeShares(total models.Amount, participants []string, mode models.SplitMode, weights map[string]decimal.Decimal) ([]Share, error) {
	if total <= 0 {
		return nil, ErrNonPositiveTotal
	}
	ids, err := sortedParticipants(participants)
	if err != nil {
		return nil, err
	}

	switch mode {
	case models.SplitEqual:
		return equalShares(total, ids), nil
	case models.SplitPercentage:
		return percentageShares(total, ids, weights)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplitMode, mode)
	}
}

func sortedParticipants(participants []string) ([]string, error) {
	if len(participants) == 0 {
		return nil, ErrInvalidParticipantSet
	}
	ids := slices.Clone(participants)
	slices.Sort(ids)
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty participant id", ErrInvalidParticipantSet)
		}
		if i > 0 && ids[i-1] == id {
			return nil, fmt.Errorf("%w: duplicate participant %q", ErrInvalidParticipantSet, id)
		}
	}
	return ids, nil
}

func equalShares(total models.Amount, ids []string) []Share {
	n := int64(len(ids))
	base := int64(total) / n
	remainder := int64(total) % n

	shares := make([]Share, len(ids))
	for i, id := range ids {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		shares[i] = Share{UserID: id, Amount: models.Amount(amount)}
	}
	return shares
}

// ValidateWeights checks that weights cover exactly the participants, are
// positive and sum to 100.
func ValidateWeights(ids []string, weights map[string]decimal.Decimal) error {
	if len(weights) != len(ids) {
		return ErrInvalidWeight
	}
	sum := decimal.Zero
	for _, id := range ids {
		w, ok := weights[id]
		if !ok || !w.IsPositive() {
			return fmt.Errorf("%w: participant %q", ErrInvalidWeight, id)
		}
		sum = sum.Add(w)
	}
	if !sum.Equal(hundred) {
		return fmt.Errorf("%w: got %s", ErrWeightsDoNotSumTo100, sum.String())
	}
	return nil
}

func percentageShares(total models.Amount, ids []string, weights map[string]decimal.Decimal) ([]Share, error) {
	if err := ValidateWeights(ids, weights); err != nil {
		return nil, err
	}

	totalDec := decimal.NewFromInt(int64(total))
	shares := make([]Share, len(ids))
	var distributed int64
	for i, id := range ids {
		w := weights[id]
		amount := totalDec.Mul(w).Div(hundred).RoundBank(0).IntPart()
		distributed += amount
		shares[i] = Share{UserID: id, Amount: models.Amount(amount), Percentage: &w}
	}

	absorbResidual(shares, int64(total)-distributed)
	return shares, nil
}

// absorbResidual moves the rounding residual onto the last share. A negative
// residual larger than the last share walks backwards so no share drops
// below zero.
func absorbResidual(shares []Share, residual int64) {
	if residual >= 0 {
		shares[len(shares)-1].Amount += models.Amount(residual)
		return
	}
	for i := len(shares) - 1; i >= 0 && residual < 0; i-- {
		take := min(int64(shares[i].Amount), -residual)
		shares[i].Amount -= models.Amount(take)
		residual += take
	}
}
