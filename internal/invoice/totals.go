package invoice

import (
	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

// ItemAmount is quantity × rate, unrounded.
func ItemAmount(quantity, rate decimal.Decimal) decimal.Decimal {
	return quantity.Mul(rate)
}

// DocumentTotal sums item amounts in stored order.
func DocumentTotal(items []core.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}
