package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	infraRepo "github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/pkg/apperror"
	"github.com/dukapos/dukapos-api/pkg/printer"
)

// PrinterService handles receipt formatting and thermal printing.
type PrinterService struct {
	printer       printer.Printer
	saleRepo      repository.SaleRepository
	quotationRepo repository.QuotationRepository
	tenantRepo    repository.TenantRepository
	printerType   string
}

// NewPrinterService creates a new printer service.
func NewPrinterService(
	p printer.Printer,
	saleRepo repository.SaleRepository,
	quotationRepo repository.QuotationRepository,
	tenantRepo repository.TenantRepository,
	printerType string,
) *PrinterService {
	return &PrinterService{
		printer:       p,
		saleRepo:      saleRepo,
		quotationRepo: quotationRepo,
		tenantRepo:    tenantRepo,
		printerType:   printerType,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus() *PrinterStatus {
	return &PrinterStatus{
		Configured: s.printerType != "none" && s.printerType != "",
		Connected:  s.printer.IsConnected(),
		Type:       s.printerType,
	}
}

// TestPrint sends a test page to the printer.
// Returns the receipt data so the handler can return it as JSON when printer is disabled.
func (s *PrinterService) TestPrint() (*entity.Receipt, error) {
	ten := decimal.NewFromInt(10)
	five := decimal.NewFromInt(5)
	twenty := decimal.NewFromInt(20)

	receipt := &entity.Receipt{
		Header: entity.ReceiptHeader{
			StoreName: "PRINTER TEST",
			Address:   "Test Address",
			Phone:     "+254 000 000 000",
		},
		InvoiceNo: "TEST-001",
		Date:      "Test Date",
		Cashier:   "System",
		Items: []entity.ReceiptItem{
			{Name: "Test Item 1", Quantity: 1, UnitPrice: ten, Total: ten},
			{Name: "Test Item 2", Quantity: 2, UnitPrice: five, Total: ten},
		},
		SubTotal: twenty,
		Total:    twenty,
		Payments: []entity.ReceiptPayment{
			{Method: "cash", Amount: twenty},
		},
	}

	data := FormatReceipt(receipt)
	if err := s.printer.Print(data); err != nil {
		return receipt, fmt.Errorf("test print failed: %w", err)
	}

	return receipt, nil
}

// BuildSaleReceipt composes the printable receipt for a completed sale,
// including one settlement line per recorded payment.
func (s *PrinterService) BuildSaleReceipt(ctx context.Context, saleID uuid.UUID) (*entity.Receipt, error) {
	sale, err := s.saleRepo.GetWithDetails(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}

	receipt := &entity.Receipt{
		Header:      s.storeHeader(ctx),
		InvoiceNo:   sale.InvoiceNo,
		Date:        sale.SaleDate.Format("2006-01-02 15:04"),
		SubTotal:    sale.SubTotal,
		Discount:    sale.DiscountAmount,
		Tax:         sale.TaxAmount,
		Total:       sale.Total,
		ChangeGiven: sale.ChangeGiven,
		Due:         sale.AmountDue,
	}

	if tenant := s.currentTenant(ctx); tenant != nil {
		receipt.TaxLabel = tenant.Settings.TaxLabel
		receipt.Footer = tenant.Settings.ReceiptFooter
	}

	if sale.Customer != nil {
		receipt.Customer = sale.Customer.Name
	}

	for _, item := range sale.Items {
		name := item.Product.Name
		if item.Variant != nil {
			name = fmt.Sprintf("%s (%s)", name, item.Variant.Name)
		}
		if name == "" {
			name = "Product"
		}
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}

	for _, p := range sale.Payments {
		receipt.Payments = append(receipt.Payments, entity.ReceiptPayment{
			Method:    strings.ToUpper(string(p.Method)),
			Reference: p.Reference,
			Amount:    p.Amount,
		})
	}

	return receipt, nil
}

// PrintSaleReceipt fetches a sale (with items and payments) and prints its receipt.
func (s *PrinterService) PrintSaleReceipt(ctx context.Context, saleID uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.BuildSaleReceipt(ctx, saleID)
	if err != nil {
		return nil, err
	}

	data := FormatReceipt(receipt)
	if err := s.printer.Print(data); err != nil {
		log.Printf("Printer error (sale %s): %v", saleID, err)
		return receipt, fmt.Errorf("failed to print receipt: %w", err)
	}

	return receipt, nil
}

// PrintQuotationReceipt fetches a quotation (with details) and prints its receipt.
func (s *PrinterService) PrintQuotationReceipt(ctx context.Context, quotationID uuid.UUID) (*entity.Receipt, error) {
	quotation, err := s.quotationRepo.GetWithDetails(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, apperror.NewNotFoundError("Quotation")
	}

	receipt := &entity.Receipt{
		Header:    s.storeHeader(ctx),
		InvoiceNo: quotation.Reference,
		Date:      quotation.Date.Format("2006-01-02 15:04"),
		SubTotal:  quotation.TotalAmount.Sub(quotation.TaxAmount),
		Discount:  quotation.DiscountAmount,
		Tax:       quotation.TaxAmount,
		Total:     quotation.TotalAmount,
	}

	if quotation.Customer != nil {
		receipt.Customer = quotation.Customer.Name
	} else if quotation.CustomerName != "" {
		receipt.Customer = quotation.CustomerName
	}

	for _, d := range quotation.Details {
		item := entity.ReceiptItem{
			Name:      d.ProductName,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			Total:     d.SubTotal,
		}
		if item.Name == "" {
			if d.Product.Name != "" {
				item.Name = d.Product.Name
			} else {
				item.Name = "Product"
			}
		}
		receipt.Items = append(receipt.Items, item)
	}

	data := FormatReceipt(receipt)
	if err := s.printer.Print(data); err != nil {
		log.Printf("Printer error (quotation %s): %v", quotationID, err)
		return receipt, fmt.Errorf("failed to print receipt: %w", err)
	}

	return receipt, nil
}

func (s *PrinterService) storeHeader(ctx context.Context) entity.ReceiptHeader {
	header := entity.ReceiptHeader{StoreName: "DukaPOS Store"}
	if tenant := s.currentTenant(ctx); tenant != nil {
		header.StoreName = tenant.Name
	}
	return header
}

func (s *PrinterService) currentTenant(ctx context.Context) *entity.Tenant {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil
	}
	return tenant
}

// FormatReceipt converts a Receipt into ESC/POS bytes.
func FormatReceipt(r *entity.Receipt) []byte {
	doc := printer.NewDocument(32) // 58mm paper = 32 chars

	// Header
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(r.Header.StoreName).
		SetFontSize(printer.FontNormal).
		SetBold(false)

	if r.Header.Address != "" {
		doc.Text(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Text(r.Header.Phone)
	}
	if r.Header.TaxID != "" {
		doc.TextF("Tax ID: %s", r.Header.TaxID)
	}

	doc.SetAlign(printer.AlignLeft).
		Separator('-')

	// Invoice info
	doc.KeyValue("Invoice:", r.InvoiceNo).
		KeyValue("Date:", r.Date)

	if r.Cashier != "" {
		doc.KeyValue("Cashier:", r.Cashier)
	}
	if r.Customer != "" {
		doc.KeyValue("Customer:", r.Customer)
	}

	doc.Separator('-')

	// Items
	for _, item := range r.Items {
		doc.ItemLine(item.Quantity, item.Name, item.Total.StringFixed(2))
		if item.Quantity > 1 {
			doc.TextF("  @ %s each", item.UnitPrice.StringFixed(2))
		}
	}

	doc.Separator('-')

	// Totals
	doc.KeyValue("Subtotal:", r.SubTotal.StringFixed(2))
	if r.Discount.IsPositive() {
		doc.KeyValue("Discount:", "-"+r.Discount.StringFixed(2))
	}
	if r.Tax.IsPositive() {
		label := r.TaxLabel
		if label == "" {
			label = "Tax"
		}
		doc.KeyValue(label+":", r.Tax.StringFixed(2))
	}
	doc.SetBold(true).
		KeyValue("TOTAL:", r.Total.StringFixed(2)).
		SetBold(false)

	// Settlement lines, one per tender
	for _, p := range r.Payments {
		label := p.Method
		if p.Reference != "" {
			label = fmt.Sprintf("%s %s", p.Method, p.Reference)
		}
		doc.KeyValue(label+":", p.Amount.StringFixed(2))
	}
	if r.ChangeGiven.IsPositive() {
		doc.KeyValue("CHANGE:", r.ChangeGiven.StringFixed(2))
	}
	if r.Due.IsPositive() {
		doc.KeyValue("Due:", r.Due.StringFixed(2))
	}

	doc.Separator('-')

	// Footer
	footer := r.Footer
	if footer == "" {
		footer = "Thank you for your business!"
	}
	doc.SetAlign(printer.AlignCenter).
		LineFeed().
		Text(footer).
		LineFeed().
		SetAlign(printer.AlignLeft)

	doc.FeedLines(3).
		PartialCut()

	return doc.Bytes()
}
