// Package billing computes the priced breakdown of a cart: subtotal,
// discount, GST, and grand total. It is pure and safe for concurrent use.
package billing

import "github.com/shopspring/decimal"

// TaxRate is the fixed GST rate applied to every order. It is not
// configurable per order or per store.
var TaxRate = decimal.RequireFromString("0.05")

// Line is a single cart entry to be priced. UnitPrice must be non-negative
// and Quantity positive; callers validate before pricing.
type Line struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the priced result of a cart. All fields are rounded to two
// decimal places using decimal.Round, which rounds half away from zero.
// Every renderer and report reads these stored values; nothing downstream
// re-rounds or recomputes them.
type Breakdown struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeBill prices the given lines with an optional flat discount.
//
// The tax base is subtotal minus discount, floored at zero: a discount can
// never drive the taxable amount negative. Tax is TaxRate times the tax
// base, and the total is tax base plus tax. An empty cart yields an
// all-zero Breakdown, which is a valid result rather than an error.
func ComputeBill(lines []Line, discount decimal.Decimal) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal = subtotal.Add(l.UnitPrice.Mul(qty))
	}

	discount = floorAtZero(discount)
	taxable := floorAtZero(subtotal.Sub(discount))
	tax := taxable.Mul(TaxRate)
	total := taxable.Add(tax)

	return Breakdown{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
