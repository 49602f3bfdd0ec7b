package document

import (
	"github.com/shopspring/decimal"
)

// Totals holds the aggregate monetary fields derived from a request's
// line items. Under current business policy no discounts, freight or
// taxes are modeled, so vPag and vNF both equal vProd.
type Totals struct {
	VProd decimal.Decimal
	VNF   decimal.Decimal
	VPag  decimal.Decimal
}

// LineTotal returns quantity * unitPrice for one item at full precision
func LineTotal(item LineItem) decimal.Decimal {
	return item.EffectiveQuantity().Mul(item.EffectiveUnitPrice())
}

// CalculateTotals sums the line totals over all items and rounds the
// aggregate half-up to two decimal digits. Zero items yields 0.00.
func CalculateTotals(items []LineItem) Totals {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(LineTotal(item))
	}
	vProd := sum.Round(2)
	return Totals{
		VProd: vProd,
		VNF:   vProd,
		VPag:  vProd,
	}
}

// FormatAmount renders a monetary value as a fixed-point literal with
// exactly two decimal digits, never scientific notation.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity with its minimal decimal form
// (no forced decimal places, no trailing zero padding).
func FormatQuantity(d decimal.Decimal) string {
	return d.String()
}
