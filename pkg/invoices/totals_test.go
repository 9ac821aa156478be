package invoices

import "testing"

func TestRecomputeTotals(t *testing.T) {
	inv := &Invoice{
		LineItems: []LineItem{
			{Type: LineItemTime, Label: "Hours", Quantity: 2, Rate: 10000},
			{Type: LineItemExpense, Label: "Filing fee", Quantity: 1, Rate: 5000},
		},
		TaxRate: 0.05,
	}

	RecomputeTotals(inv)

	if inv.Subtotal != 25000 {
		t.Errorf("subtotal = %d, want 25000", inv.Subtotal)
	}
	if inv.TaxAmount != 1250 {
		t.Errorf("taxAmount = %d, want 1250", inv.TaxAmount)
	}
	if inv.TotalAmount != 26250 {
		t.Errorf("totalAmount = %d, want 26250", inv.TotalAmount)
	}
}

func TestRecomputeTotalsExplicitAmountWins(t *testing.T) {
	explicit := 999.4
	inv := &Invoice{
		LineItems: []LineItem{
			{Type: LineItemAdjustment, Label: "Credit", Quantity: 10, Rate: 100, Amount: &explicit},
		},
		TaxRate: 0,
	}

	RecomputeTotals(inv)

	if inv.Subtotal != 999 {
		t.Errorf("subtotal = %d, want rounded explicit amount 999", inv.Subtotal)
	}
}

func TestRecomputeTotalsIdempotent(t *testing.T) {
	inv := &Invoice{
		LineItems: []LineItem{
			{Type: LineItemTime, Label: "Hours", Quantity: 3, Rate: 333.33},
			{Type: LineItemExpense, Label: "Postage", Quantity: 1, Rate: 12.5},
		},
		TaxRate: 0.0825,
	}

	RecomputeTotals(inv)
	first := *inv

	RecomputeTotals(inv)

	if inv.Subtotal != first.Subtotal || inv.TaxAmount != first.TaxAmount || inv.TotalAmount != first.TotalAmount {
		t.Errorf("recompute not idempotent: first %d/%d/%d, second %d/%d/%d",
			first.Subtotal, first.TaxAmount, first.TotalAmount,
			inv.Subtotal, inv.TaxAmount, inv.TotalAmount)
	}
}

func TestRecomputeTotalsInvariant(t *testing.T) {
	cases := []struct {
		name    string
		items   []LineItem
		taxRate float64
	}{
		{"empty", nil, 0.1},
		{"zero tax", []LineItem{{Type: LineItemTime, Label: "a", Quantity: 1, Rate: 100}}, 0},
		{"full tax", []LineItem{{Type: LineItemTime, Label: "a", Quantity: 7, Rate: 19.99}}, 1},
		{"fractional", []LineItem{
			{Type: LineItemTime, Label: "a", Quantity: 1.5, Rate: 66.7},
			{Type: LineItemExpense, Label: "b", Quantity: 0.25, Rate: 401},
		}, 0.0625},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{LineItems: tc.items, TaxRate: tc.taxRate}
			RecomputeTotals(inv)

			if inv.TotalAmount != inv.Subtotal+inv.TaxAmount {
				t.Errorf("total %d != subtotal %d + tax %d", inv.TotalAmount, inv.Subtotal, inv.TaxAmount)
			}

			var sum int64
			for _, item := range inv.LineItems {
				if item.Amount == nil {
					t.Fatal("line amount not normalized")
				}
				sum += int64(*item.Amount)
			}
			if inv.Subtotal != sum {
				t.Errorf("subtotal %d != sum of line amounts %d", inv.Subtotal, sum)
			}
		})
	}
}
