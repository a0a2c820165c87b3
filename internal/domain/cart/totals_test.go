package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ccube-shop/storefront/internal/domain/promo"
)

func TestComposeTotals(t *testing.T) {
	items := []promo.Item{
		{Key: "a", ProductID: "a", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		{Key: "b", ProductID: "b", UnitPrice: decimal.NewFromInt(50), Quantity: 1},
	}
	taxRate := decimal.RequireFromString("0.14")

	totals := ComposeTotals(items, decimal.NewFromInt(50), taxRate)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, totals.DiscountSavings.Equal(decimal.NewFromInt(50)))
	assert.True(t, totals.SubtotalAfterDiscount.Equal(decimal.NewFromInt(200)))
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(28)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(228)))
}

func TestComposeTotals_NoDiscount(t *testing.T) {
	// total == subtotal * (1 + rate) when nothing is saved.
	items := []promo.Item{
		{Key: "a", ProductID: "a", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
	}
	taxRate := decimal.RequireFromString("0.14")

	totals := ComposeTotals(items, decimal.Zero, taxRate)

	want := decimal.NewFromInt(100).Mul(decimal.NewFromInt(1).Add(taxRate))
	assert.True(t, totals.Total.Equal(want), "total = %s", totals.Total)
}

func TestComposeTotals_EmptyCart(t *testing.T) {
	totals := ComposeTotals(nil, decimal.Zero, decimal.RequireFromString("0.14"))

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestComposeTotals_SubtotalCoversAllLines(t *testing.T) {
	// The subtotal includes lines no promotion touches.
	items := []promo.Item{
		{Key: "promoted", ProductID: "a", UnitPrice: decimal.NewFromInt(10), Quantity: 3},
		{Key: "regular", ProductID: "z", UnitPrice: decimal.NewFromInt(500), Quantity: 1},
	}

	totals := ComposeTotals(items, decimal.NewFromInt(10), decimal.Zero)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(530)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(520)))
}
