package cart

import (
	"github.com/shopspring/decimal"

	"github.com/ashtongoh/korii-pos-sys/models"
)

// LineTotal computes (basePrice + sum of modifiers) * quantity. Modifiers
// may be negative. No rounding happens here; amounts are formatted only at
// display time.
func LineTotal(basePrice decimal.Decimal, customizations []models.Customization, quantity int) decimal.Decimal {
	unit := basePrice
	for _, c := range customizations {
		unit = unit.Add(c.PriceModifier)
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartTotal sums the line totals.
func CartTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// CountItems sums quantities across lines, which is distinct from the
// number of lines.
func CountItems(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
