package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func items(prices ...string) []LineItem {
	out := make([]LineItem, len(prices))
	for i, p := range prices {
		out[i] = LineItem{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec(p)}
	}
	return out
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name      string
		items     []LineItem
		adj       Adjustments
		wantTotal string
		wantTax   string
	}{
		{
			name:      "exclusive manual tax",
			items:     items("600.00", "400.00"),
			adj:       Adjustments{Discount: dec("100"), Tax: dec("50"), Shipping: dec("25")},
			wantTotal: "975",
			wantTax:   "50",
		},
		{
			name:      "inclusive mode ignores tax in total",
			items:     items("600.00", "400.00"),
			adj:       Adjustments{Discount: dec("100"), Tax: dec("50"), Shipping: dec("25"), TaxMode: TaxModeInclusive},
			wantTotal: "925",
			wantTax:   "50",
		},
		{
			name:      "exclusive auto tax from default rate",
			items:     items("1000.00"),
			adj:       Adjustments{DefaultTaxRate: dec("16")},
			wantTotal: "1160",
			wantTax:   "160",
		},
		{
			name:      "inclusive auto tax is display only",
			items:     items("1160.00"),
			adj:       Adjustments{TaxMode: TaxModeInclusive, DefaultTaxRate: dec("16")},
			wantTotal: "1160",
			wantTax:   "160",
		},
		{
			name:      "manual tax wins over default rate",
			items:     items("1000.00"),
			adj:       Adjustments{Tax: dec("75"), DefaultTaxRate: dec("16")},
			wantTotal: "1075",
			wantTax:   "75",
		},
		{
			name:      "discount may exceed subtotal, total goes negative",
			items:     items("100.00"),
			adj:       Adjustments{Discount: dec("150")},
			wantTotal: "-50",
			wantTax:   "0",
		},
		{
			name:      "no items yields zero total",
			items:     nil,
			adj:       Adjustments{},
			wantTotal: "0",
			wantTax:   "0",
		},
		{
			name:      "auto tax applies after discount and shipping",
			items:     items("1000.00"),
			adj:       Adjustments{Discount: dec("200"), Shipping: dec("50"), DefaultTaxRate: dec("16")},
			wantTotal: "986",
			wantTax:   "136",
		},
		{
			name:      "auto tax rounds to two decimals",
			items:     items("99.99"),
			adj:       Adjustments{DefaultTaxRate: dec("16")},
			wantTotal: "115.99",
			wantTax:   "16.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotal(tt.items, tt.adj)
			if !got.Total.Equal(dec(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", got.Total, tt.wantTotal)
			}
			if !got.Tax.Equal(dec(tt.wantTax)) {
				t.Errorf("tax = %s, want %s", got.Tax, tt.wantTax)
			}
		})
	}
}

func TestComputeTotalQuantities(t *testing.T) {
	lines := []LineItem{
		{ProductID: uuid.New(), Quantity: 3, UnitPrice: dec("19.99")},
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: dec("5.50")},
	}
	got := ComputeTotal(lines, Adjustments{})
	if !got.SubTotal.Equal(dec("70.97")) {
		t.Errorf("subtotal = %s, want 70.97", got.SubTotal)
	}
	if !got.Total.Equal(dec("70.97")) {
		t.Errorf("total = %s, want 70.97", got.Total)
	}
}

// Exclusive-mode total must equal subtotal - discount + tax + shipping and
// inclusive-mode total must equal subtotal - discount + shipping, for any
// non-negative adjustments.
func TestComputeTotalConsistency(t *testing.T) {
	lines := items("120.00", "80.00", "35.45")
	adjs := []Adjustments{
		{Discount: dec("10"), Tax: dec("20"), Shipping: dec("30")},
		{Discount: dec("0"), Tax: dec("5.55"), Shipping: dec("0")},
		{Discount: dec("235.45"), Tax: dec("1"), Shipping: dec("0.01")},
	}

	for _, adj := range adjs {
		subtotal := dec("235.45")

		adj.TaxMode = TaxModeExclusive
		got := ComputeTotal(lines, adj)
		want := subtotal.Sub(adj.Discount).Add(adj.Tax).Add(adj.Shipping)
		if !got.Total.Equal(want) {
			t.Errorf("exclusive total = %s, want %s", got.Total, want)
		}

		adj.TaxMode = TaxModeInclusive
		got = ComputeTotal(lines, adj)
		want = subtotal.Sub(adj.Discount).Add(adj.Shipping)
		if !got.Total.Equal(want) {
			t.Errorf("inclusive total = %s, want %s", got.Total, want)
		}
	}
}
