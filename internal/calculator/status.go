package calculator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/models"
)

// ThreadStatus derives a thread's status from its pledges, target, deadline
// and commit flag at instant now. First match wins:
//
//  1. committed_current if the owner locked in the partial amount
//  2. funded if pledges reached the target
//  3. expired if now is past the deadline
//  4. open otherwise
func ThreadStatus(t *models.Thread, now time.Time) models.ThreadStatus {
	if t.CommittedCurrent {
		return models.ThreadCommittedCurrent
	}
	if PledgedTotal(t.Pledges).GreaterThanOrEqual(t.TargetAmount) {
		return models.ThreadFunded
	}
	if now.After(t.Deadline) {
		return models.ThreadExpired
	}
	return models.ThreadOpen
}

// ThreadRemaining is how much can still be pledged before the target is hit.
func ThreadRemaining(t *models.Thread) decimal.Decimal {
	remaining := t.TargetAmount.Sub(PledgedTotal(t.Pledges))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CheckThreadPledge reports whether a pledge of amount may be added now.
// Pledges that would overshoot the target are rejected, never truncated.
func CheckThreadPledge(t *models.Thread, amount decimal.Decimal, now time.Time) error {
	if err := ValidateAmount("amount", amount); err != nil {
		return err
	}
	if status := ThreadStatus(t, now); status != models.ThreadOpen {
		return fmt.Errorf("%w: thread is %s and does not accept pledges", models.ErrInvalidState, status)
	}
	if remaining := ThreadRemaining(t); amount.GreaterThan(remaining) {
		return fmt.Errorf("%w: amount %s exceeds remaining %s", models.ErrValidation, amount, remaining)
	}
	return nil
}

// CheckCommitCurrent reports whether the owner may lock in the amount pledged
// so far. It does not check who the caller is.
func CheckCommitCurrent(t *models.Thread, now time.Time) error {
	if t.CommittedCurrent {
		return fmt.Errorf("%w: thread already committed to its current amount", models.ErrInvalidState)
	}
	status := ThreadStatus(t, now)
	if status != models.ThreadOpen && status != models.ThreadExpired {
		return fmt.Errorf("%w: cannot commit a %s thread", models.ErrInvalidState, status)
	}
	total := PledgedTotal(t.Pledges)
	if !total.IsPositive() || total.GreaterThanOrEqual(t.TargetAmount) {
		return fmt.Errorf("%w: pledged total %s must be between 0 and the target", models.ErrInvalidState, total)
	}
	return nil
}

// ThreadSettleable reports whether the thread has reached a state that
// creates debts: funded, or committed to its current amount.
func ThreadSettleable(t *models.Thread, now time.Time) bool {
	switch ThreadStatus(t, now) {
	case models.ThreadFunded, models.ThreadCommittedCurrent:
		return true
	}
	return false
}
