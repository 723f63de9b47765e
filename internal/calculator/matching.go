package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/models"
)

// LowestActiveBid returns the active bid with the smallest ask, ties going to
// the earliest bid. It is recomputed from the full bid set on every call.
// Returns nil when no bid is active.
func LowestActiveBid(bids []models.Bid) *models.Bid {
	var lowest *models.Bid
	for i := range bids {
		b := &bids[i]
		if !b.Active {
			continue
		}
		if lowest == nil || lowerBid(b, lowest) {
			lowest = b
		}
	}
	return lowest
}

func lowerBid(a, b *models.Bid) bool {
	if c := a.AskAmount.Cmp(b.AskAmount); c != 0 {
		return c < 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ActiveBidOf returns the bidder's active bid, or nil.
func ActiveBidOf(bids []models.Bid, bidderID string) *models.Bid {
	for i := range bids {
		if bids[i].Active && bids[i].BidderID == bidderID {
			return &bids[i]
		}
	}
	return nil
}

// RequestRemaining is the pledge capacity left under the lowest active ask.
// ok is false when no bid is active, in which case there is no ceiling.
func RequestRemaining(r *models.ReverseRequest) (remaining decimal.Decimal, ok bool) {
	lowest := LowestActiveBid(r.Bids)
	if lowest == nil {
		return decimal.Zero, false
	}
	remaining = lowest.AskAmount.Sub(PledgedTotal(r.Pledges))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return remaining, true
}

// CheckRequestPledge reports whether a pledge of amount may be added.
func CheckRequestPledge(r *models.ReverseRequest, amount decimal.Decimal) error {
	if err := ValidateAmount("amount", amount); err != nil {
		return err
	}
	if r.Status != models.RequestOpen {
		return fmt.Errorf("%w: request is %s and does not accept pledges", models.ErrInvalidState, r.Status)
	}
	// TODO: decide on a ceiling for pledges made while no bid is active; they
	// can currently exceed any ask placed later.
	if remaining, ok := RequestRemaining(r); ok && amount.GreaterThan(remaining) {
		return fmt.Errorf("%w: amount %s exceeds remaining %s under the lowest ask", models.ErrValidation, amount, remaining)
	}
	return nil
}

// CheckBid reports whether an ask may be placed on the request.
func CheckBid(r *models.ReverseRequest, ask decimal.Decimal) error {
	if err := ValidateAmount("ask_amount", ask); err != nil {
		return err
	}
	if r.Status != models.RequestOpen {
		return fmt.Errorf("%w: request is %s and does not accept bids", models.ErrInvalidState, r.Status)
	}
	return nil
}

// RequestSettleable returns the bid that wins the request when pledges cover
// the lowest active ask.
func RequestSettleable(r *models.ReverseRequest) (*models.Bid, bool) {
	if r.Status != models.RequestOpen {
		return nil, false
	}
	lowest := LowestActiveBid(r.Bids)
	if lowest == nil {
		return nil, false
	}
	if PledgedTotal(r.Pledges).LessThan(lowest.AskAmount) {
		return nil, false
	}
	return lowest, true
}
