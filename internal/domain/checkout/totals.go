package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxMode controls whether tax is added on top of the payable amount
// or treated as already embedded in the line item prices.
type TaxMode int

const (
	TaxModeExclusive TaxMode = 0
	TaxModeInclusive TaxMode = 1
)

// LineItem is a single product line on an in-progress sale.
type LineItem struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns unit price * quantity for the line.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Adjustments are the sale-level amounts applied on top of the line items.
// Tax is a manual override; when it is exactly zero and DefaultTaxRate is
// positive, tax is derived from the rate instead.
type Adjustments struct {
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	TaxMode        TaxMode
	DefaultTaxRate decimal.Decimal // percentage, e.g. 16 for 16% VAT
}

// Totals is the result of a total computation. Total is the payable amount;
// Tax is the tax actually applied (or, in inclusive mode, the embedded tax
// component shown for display).
type Totals struct {
	SubTotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
	TaxMode  TaxMode
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotal produces the authoritative payable total from line items and
// adjustments.
//
// Exclusive mode: total = subtotal - discount + tax + shipping.
// Inclusive mode: total = subtotal - discount + shipping, with the embedded
// tax component computed for display only.
//
// A discount larger than the subtotal legally produces a negative total;
// no clamping happens here. An empty item set yields a zero total and is
// rejected by the sale service before finalize, not by the calculator.
func ComputeTotal(items []LineItem, adj Adjustments) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}

	// Taxable base before tax itself.
	base := subtotal.Sub(adj.Discount).Add(adj.Shipping)

	tax := adj.Tax
	if tax.IsZero() && adj.DefaultTaxRate.IsPositive() {
		if adj.TaxMode == TaxModeInclusive {
			// Tax already embedded in prices; extract the component.
			tax = base.Mul(adj.DefaultTaxRate).
				Div(oneHundred.Add(adj.DefaultTaxRate)).Round(2)
		} else {
			tax = base.Mul(adj.DefaultTaxRate).Div(oneHundred).Round(2)
		}
	}

	total := base
	if adj.TaxMode == TaxModeExclusive {
		total = total.Add(tax)
	}

	return Totals{
		SubTotal: subtotal,
		Discount: adj.Discount,
		Tax:      tax,
		Shipping: adj.Shipping,
		Total:    total,
		TaxMode:  adj.TaxMode,
	}
}
