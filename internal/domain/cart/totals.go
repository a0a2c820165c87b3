package cart

import (
	"github.com/shopspring/decimal"

	"github.com/ccube-shop/storefront/internal/domain/promo"
)

// Totals is the money breakdown shown at the bottom of the cart. It is a
// pure derivation of the cart lines and the applied discount, recomputed on
// every read.
type Totals struct {
	Subtotal              decimal.Decimal
	DiscountSavings       decimal.Decimal
	SubtotalAfterDiscount decimal.Decimal
	Tax                   decimal.Decimal
	Total                 decimal.Decimal
}

// ComposeTotals combines the priced cart lines with the discount savings and
// tax rate. The subtotal covers every line, not just discount-applicable
// ones; tax applies to the discounted subtotal.
func ComposeTotals(items []promo.Item, savings decimal.Decimal, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	afterDiscount := subtotal.Sub(savings)
	tax := afterDiscount.Mul(taxRate)

	return Totals{
		Subtotal:              subtotal,
		DiscountSavings:       savings,
		SubtotalAfterDiscount: afterDiscount,
		Tax:                   tax,
		Total:                 afterDiscount.Add(tax),
	}
}
