package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// perExtraItemShipping is added for every item past the first.
var perExtraItemShipping = decimal.NewFromInt(2)

// Config is the pricing parameter snapshot a single checkout observes. It is
// built once per call from the settings store so a mid-flight settings change
// cannot split one quote across two rate sets.
type Config struct {
	ShippingFlatRateBase   decimal.Decimal
	TaxRate                decimal.Decimal
	SessionFee             decimal.Decimal
	CustomTShirtBase       decimal.Decimal
	BothPlacementSurcharge decimal.Decimal
}

// LineItem is the priced slice of a cart line the calculator needs.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote carries the monetary breakdown of a cart. Every field is already
// rounded to cents; Total is the sum of the other three rounded values.
type Quote struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	ItemCount    int
}

// Calculate prices a cart. Each component is rounded to two places (half away
// from zero) independently before the final sum, matching how totals were
// always presented to customers.
func Calculate(items []LineItem, cfg Config) Quote {
	subtotal := decimal.Zero
	itemCount := 0
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		itemCount += item.Quantity
	}
	subtotal = subtotal.Round(2)

	shipping := cfg.ShippingFlatRateBase
	if extra := itemCount - 1; extra > 0 {
		shipping = shipping.Add(perExtraItemShipping.Mul(decimal.NewFromInt(int64(extra))))
	}
	shipping = shipping.Round(2)

	tax := subtotal.Mul(cfg.TaxRate).Round(2)

	return Quote{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax).Round(2),
		ItemCount:    itemCount,
	}
}

// LineTotal prices one line, rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// CustomUnitPrice computes the finalize-time price of a custom design:
// the custom tee base plus the surcharge when printing front and back.
func CustomUnitPrice(placement enums.PrintPlacement, cfg Config) decimal.Decimal {
	price := cfg.CustomTShirtBase
	if placement == enums.PrintPlacementBoth {
		price = price.Add(cfg.BothPlacementSurcharge)
	}
	return price.Round(2)
}
