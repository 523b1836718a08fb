package cart

import (
	"github.com/shopspring/decimal"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

var (
	// FreeShippingThreshold is the items subtotal above which shipping is free.
	// The boundary is strict: a subtotal of exactly 100.00 still pays shipping.
	FreeShippingThreshold = decimal.NewFromInt(100)

	// FlatShippingPrice applies whenever the subtotal is at or below the threshold.
	FlatShippingPrice = decimal.NewFromInt(10)

	// TaxRate is applied to the rounded items subtotal, not the raw sum.
	TaxRate = decimal.RequireFromString("0.15")
)

// Totals carries the four derived price figures of a cart.
type Totals struct {
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
}

// round2 rounds to two decimals, half away from zero.
func round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// ComputeTotals derives the price figures from the cart lines. It is pure:
// recomputing over unchanged lines always yields identical totals.
func ComputeTotals(items []models.CartItem) Totals {
	sum := decimal.Zero
	for i := range items {
		line := items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		sum = sum.Add(line)
	}

	itemsPrice := round2(sum)

	shipping := FlatShippingPrice
	if itemsPrice.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := round2(itemsPrice.Mul(TaxRate))
	total := round2(itemsPrice.Add(shipping).Add(tax))

	return Totals{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    total,
	}
}

// ApplyTo writes the derived figures onto the cart row.
func (t Totals) ApplyTo(cart *models.Cart) {
	if cart == nil {
		return
	}
	cart.ItemsPrice = t.ItemsPrice
	cart.ShippingPrice = t.ShippingPrice
	cart.TaxPrice = t.TaxPrice
	cart.TotalPrice = t.TotalPrice
}
