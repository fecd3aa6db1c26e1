package entity

import "github.com/shopspring/decimal"

// ReceiptHeader holds the store/business header printed at the top of a receipt.
type ReceiptHeader struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
}

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// ReceiptPayment represents one settlement line on a receipt, such as
// "CASH 1000.00" or "MPESA QGH7TI61 500.00".
type ReceiptPayment struct {
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// Receipt is a value object representing a printable receipt.
// It is NOT a database entity; it is composed from sale data at print time.
type Receipt struct {
	Header      ReceiptHeader    `json:"header"`
	InvoiceNo   string           `json:"invoice_no"`
	Date        string           `json:"date"`
	Cashier     string           `json:"cashier,omitempty"`
	Customer    string           `json:"customer,omitempty"`
	Items       []ReceiptItem    `json:"items"`
	SubTotal    decimal.Decimal  `json:"sub_total"`
	Discount    decimal.Decimal  `json:"discount"`
	Tax         decimal.Decimal  `json:"tax"`
	TaxLabel    string           `json:"tax_label,omitempty"`
	Total       decimal.Decimal  `json:"total"`
	Payments    []ReceiptPayment `json:"payments"`
	ChangeGiven decimal.Decimal  `json:"change_given"`
	Due         decimal.Decimal  `json:"due"`
	Footer      string           `json:"footer,omitempty"`
}
