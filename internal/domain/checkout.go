package domain

import "github.com/shopspring/decimal"

func init() {
	// Clients read prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// CheckoutRules are the fixed shipping and tax parameters applied when an order is created.
type CheckoutRules struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultCheckoutRules() CheckoutRules {
	return CheckoutRules{
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingFee:           decimal.NewFromInt(50),
		TaxRate:               decimal.NewFromFloat(0.18),
	}
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Matches compares two totals at cent precision.
func (t Totals) Matches(o Totals) bool {
	eq := func(a, b decimal.Decimal) bool { return a.Round(2).Equal(b.Round(2)) }
	return eq(t.Subtotal, o.Subtotal) && eq(t.Shipping, o.Shipping) && eq(t.Tax, o.Tax) && eq(t.Total, o.Total)
}

// Compute derives totals from the line items. total is always subtotal + shipping + tax.
func (r CheckoutRules) Compute(items []OrderItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal())
	}
	subtotal = subtotal.Round(2)

	shipping := r.ShippingFee
	if subtotal.GreaterThanOrEqual(r.FreeShippingThreshold) || len(items) == 0 {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(r.TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
