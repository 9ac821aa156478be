package invoices

import "math"

// RecomputeTotals normalizes every line amount to integer minor units
// and derives subtotal, tax and total. It runs before every persist and
// is idempotent: recomputing an already-normalized invoice changes
// nothing.
//
// Line amount rule: an explicit amount wins (rounded); otherwise the
// amount is round(quantity * rate).
func RecomputeTotals(inv *Invoice) {
	var subtotal int64
	for i := range inv.LineItems {
		item := &inv.LineItems[i]

		var amount int64
		if item.Amount != nil {
			amount = int64(math.Round(*item.Amount))
		} else {
			amount = int64(math.Round(item.Quantity * item.Rate))
		}

		normalized := float64(amount)
		item.Amount = &normalized
		subtotal += amount
	}

	inv.Subtotal = subtotal
	inv.TaxAmount = int64(math.Round(float64(subtotal) * inv.TaxRate))
	inv.TotalAmount = inv.Subtotal + inv.TaxAmount
}
