package finance

import (
	"fmt"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultVATRate is the Chilean IVA rate used when no rate is configured
var DefaultVATRate = decimal.RequireFromString("0.19")

// LineInput is the priced part of a document line
type LineInput struct {
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
}

// Totals holds the computed amounts of a quote or invoice.
// Total always equals (Subtotal - DiscountAmount) + TaxAmount.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Round rounds each component to the currency's minor unit and derives Total
// from the rounded components so the stored totals add up exactly.
func (t Totals) Round(currency valueobject.Currency) Totals {
	sub := currency.RoundAmount(t.Subtotal)
	tax := currency.RoundAmount(t.TaxAmount)
	disc := currency.RoundAmount(t.DiscountAmount)
	return Totals{
		Subtotal:       sub,
		TaxAmount:      tax,
		DiscountAmount: disc,
		Total:          sub.Sub(disc).Add(tax),
	}
}

// Calculator computes line and document totals.
// It is stateless apart from the VAT rate applied under a global discount.
type Calculator struct {
	defaultVATRate decimal.Decimal
}

// NewCalculator creates a calculator; a zero rate falls back to DefaultVATRate
func NewCalculator(defaultVATRate decimal.Decimal) *Calculator {
	if defaultVATRate.IsZero() {
		defaultVATRate = DefaultVATRate
	}
	return &Calculator{defaultVATRate: defaultVATRate}
}

// DefaultVATRate returns the rate used to recompute tax under a global discount
func (c *Calculator) DefaultVATRate() decimal.Decimal {
	return c.defaultVATRate
}

// LineSubtotal returns unitPrice × quantity × (1 − discountRate), unrounded
func (c *Calculator) LineSubtotal(line LineInput) decimal.Decimal {
	return line.UnitPrice.Mul(line.Quantity).Mul(decimal.NewFromInt(1).Sub(line.DiscountRate))
}

// ValidateLine checks a single line's numeric ranges
func (c *Calculator) ValidateLine(index int, line LineInput) error {
	one := decimal.NewFromInt(1)
	switch {
	case !line.Quantity.IsPositive():
		return shared.NewValidationError("INVALID_QUANTITY", fmt.Sprintf("item %d: quantity must be positive", index+1))
	case line.UnitPrice.IsNegative():
		return shared.NewValidationError("INVALID_UNIT_PRICE", fmt.Sprintf("item %d: unit price cannot be negative", index+1))
	case line.TaxRate.IsNegative() || line.TaxRate.GreaterThan(one):
		return shared.NewValidationError("INVALID_TAX_RATE", fmt.Sprintf("item %d: tax rate must be between 0 and 1", index+1))
	case line.DiscountRate.IsNegative() || line.DiscountRate.GreaterThan(one):
		return shared.NewValidationError("INVALID_DISCOUNT_RATE", fmt.Sprintf("item %d: discount rate must be between 0 and 1", index+1))
	}
	return nil
}

// Compute aggregates the lines into document totals.
//
// With a positive globalDiscount the tax is recomputed as
// (subtotal − globalDiscount) × defaultVATRate and the per-line tax rates are
// ignored. Callers that mix rates and use a global discount get the default rate.
// Results are unrounded; call Totals.Round at the output boundary.
func (c *Calculator) Compute(lines []LineInput, globalDiscount decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for i, line := range lines {
		if err := c.ValidateLine(i, line); err != nil {
			return Totals{}, err
		}
		lineSubtotal := c.LineSubtotal(line)
		subtotal = subtotal.Add(lineSubtotal)
		tax = tax.Add(lineSubtotal.Mul(line.TaxRate))
	}

	if globalDiscount.IsNegative() {
		return Totals{}, shared.NewValidationError("INVALID_DISCOUNT", "discount amount cannot be negative")
	}
	if globalDiscount.GreaterThan(subtotal) {
		return Totals{}, shared.NewValidationError("INVALID_DISCOUNT", "discount amount cannot exceed the subtotal").
			WithDetail("subtotal", subtotal.String())
	}

	discount := decimal.Zero
	if globalDiscount.IsPositive() {
		discount = globalDiscount
		tax = subtotal.Sub(globalDiscount).Mul(c.defaultVATRate)
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		Total:          subtotal.Sub(discount).Add(tax),
	}, nil
}

// ComputeItems prices document items in place (LineTotal) and returns rounded totals
func (c *Calculator) ComputeItems(items []LineItem, globalDiscount decimal.Decimal, currency valueobject.Currency) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, shared.NewValidationError("EMPTY_ITEMS", "at least one item is required")
	}
	lines := make([]LineInput, len(items))
	for i := range items {
		lines[i] = items[i].Input()
	}
	totals, err := c.Compute(lines, globalDiscount)
	if err != nil {
		return Totals{}, err
	}
	for i := range items {
		items[i].LineTotal = currency.RoundAmount(c.LineSubtotal(lines[i]))
	}
	return totals.Round(currency), nil
}
