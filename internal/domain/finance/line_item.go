package finance

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a priced line of a quote or invoice.
// Items are immutable once the parent document leaves DRAFT; edits replace the whole list.
type LineItem struct {
	ID           uuid.UUID       `json:"id"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	LineTotal    decimal.Decimal `json:"line_total"` // net of line discount, before tax
	VehicleID    *uuid.UUID      `json:"vehicle_id,omitempty"`
	SortOrder    int             `json:"sort_order"`
}

// LineItemInput is the caller-supplied part of a line item
type LineItemInput struct {
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	VehicleID    *uuid.UUID
}

// Input returns the calculator view of the item
func (i LineItem) Input() LineInput {
	return LineInput{
		UnitPrice:    i.UnitPrice,
		Quantity:     i.Quantity,
		TaxRate:      i.TaxRate,
		DiscountRate: i.DiscountRate,
	}
}

// newLineItems builds items with fresh ids in the given display order
func newLineItems(inputs []LineItemInput) []LineItem {
	items := make([]LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = LineItem{
			ID:           uuid.New(),
			Description:  strings.TrimSpace(in.Description),
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			TaxRate:      in.TaxRate,
			DiscountRate: in.DiscountRate,
			VehicleID:    in.VehicleID,
			SortOrder:    i,
		}
	}
	return items
}

// copyLineItems clones items under new ids, keeping their order and computed totals
func copyLineItems(src []LineItem) []LineItem {
	items := make([]LineItem, len(src))
	for i, it := range src {
		it.ID = uuid.New()
		if it.VehicleID != nil {
			v := *it.VehicleID
			it.VehicleID = &v
		}
		items[i] = it
	}
	return items
}
