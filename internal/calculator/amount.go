package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/models"
)

// MinAmount is the smallest target, pledge or ask accepted.
var MinAmount = decimal.NewFromInt(1)

// ValidateAmount checks that a money amount is at least MinAmount and has at
// most two fractional digits.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", models.ErrValidation, field)
	}
	if amount.LessThan(MinAmount) {
		return fmt.Errorf("%w: %s must be at least %s", models.ErrValidation, field, MinAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s must have at most two decimal places", models.ErrValidation, field)
	}
	return nil
}

// PledgedTotal sums pledge amounts. It is the only source of truth for how
// much a deal has collected.
func PledgedTotal(pledges []models.Pledge) decimal.Decimal {
	total := decimal.Zero
	for _, p := range pledges {
		total = total.Add(p.Amount)
	}
	return total
}
