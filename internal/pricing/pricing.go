package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/commercium-dev/storefront/internal/models"
)

// DefaultTaxRate is the flat storefront VAT rate.
var DefaultTaxRate = decimal.NewFromFloat(0.18)

type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Currency      string          `json:"currency"`
}

// ShippingPolicy computes the shipping charge for a cart subtotal. Policies
// are interchangeable without touching the Summarize signature.
type ShippingPolicy interface {
	Shipping(subtotal decimal.Decimal) decimal.Decimal
}

type FreeShipping struct{}

func (FreeShipping) Shipping(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// FlatShipping charges Fee for any order below Threshold and nothing above.
type FlatShipping struct {
	Fee       decimal.Decimal
	Threshold decimal.Decimal
}

func (p FlatShipping) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.Threshold) {
		return decimal.Zero
	}
	return p.Fee
}

type Engine struct {
	TaxRate  decimal.Decimal
	Policy   ShippingPolicy
	Currency string
}

func NewEngine(currency string) *Engine {
	return &Engine{
		TaxRate:  DefaultTaxRate,
		Policy:   FreeShipping{},
		Currency: currency,
	}
}

// Summarize is pure: same items in, byte-identical summary out. Intermediate
// values keep full precision; rounding to 2 decimals happens only here, at
// the output boundary.
func (e *Engine) Summarize(items []models.CartItem) Summary {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.TotalPrice)
	}

	tax := subtotal.Mul(e.TaxRate)
	shipping := e.Policy.Shipping(subtotal)
	grand := subtotal.Add(tax).Add(shipping)

	return Summary{
		Subtotal:      subtotal.Round(2),
		TaxTotal:      tax.Round(2),
		ShippingTotal: shipping.Round(2),
		GrandTotal:    grand.Round(2),
		Currency:      e.Currency,
	}
}

// LineTotal is the single definition of a cart line's derived total.
func LineTotal(unitPrice decimal.Decimal, quantity uint) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
