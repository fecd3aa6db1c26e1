package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/checkout"
	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	infraRepo "github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/pkg/apperror"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

// QuotationService handles quotation-related operations
type QuotationService struct {
	quotationRepo       repository.QuotationRepository
	quotationDetailRepo repository.QuotationDetailRepository
	productRepo         repository.ProductRepository
	customerRepo        repository.CustomerRepository
	saleService         *SaleService
}

// NewQuotationService creates a new quotation service
func NewQuotationService(
	quotationRepo repository.QuotationRepository,
	quotationDetailRepo repository.QuotationDetailRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	saleService *SaleService,
) *QuotationService {
	return &QuotationService{
		quotationRepo:       quotationRepo,
		quotationDetailRepo: quotationDetailRepo,
		productRepo:         productRepo,
		customerRepo:        customerRepo,
		saleService:         saleService,
	}
}

// CreateQuotationInput represents the input for creating a quotation
type CreateQuotationInput struct {
	UserID         uuid.UUID
	CustomerID     *uuid.UUID
	Date           time.Time
	TaxMode        enum.TaxType
	TaxRate        decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	Note           *string
	Status         enum.QuotationStatus
	Items          []QuotationItemInput
}

// QuotationItemInput represents a line item input
type QuotationItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateQuotation creates a new quotation
func (s *QuotationService) CreateQuotation(ctx context.Context, input *CreateQuotationInput) (*entity.Quotation, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	if len(input.Items) == 0 {
		return nil, apperror.NewUnprocessableError("Quotation must contain at least one item")
	}

	// Generate reference number
	nextNum, err := s.quotationRepo.GetNextReferenceNumber(ctx)
	if err != nil {
		return nil, err
	}
	reference := fmt.Sprintf("QT-%06d", nextNum)

	// Get customer name if customer ID is provided
	var customerName string
	if input.CustomerID != nil {
		customer, err := s.customerRepo.GetByID(ctx, *input.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			customerName = customer.Name
		}
	}

	lines, details, err := s.buildDetails(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	// The quotation quotes exactly what the till would charge.
	totals := checkout.ComputeTotal(lines, checkout.Adjustments{
		Discount:       input.DiscountAmount,
		Shipping:       input.ShippingAmount,
		TaxMode:        checkout.TaxMode(input.TaxMode),
		DefaultTaxRate: input.TaxRate,
	})

	quotation := &entity.Quotation{
		TenantID:       tenantID,
		UserID:         input.UserID,
		CustomerID:     input.CustomerID,
		Date:           input.Date,
		Reference:      reference,
		CustomerName:   customerName,
		TaxMode:        input.TaxMode,
		TaxRate:        input.TaxRate,
		TaxAmount:      totals.Tax,
		DiscountAmount: input.DiscountAmount,
		ShippingAmount: input.ShippingAmount,
		TotalAmount:    totals.Total,
		Status:         input.Status,
		Note:           input.Note,
	}

	if err := s.quotationRepo.Create(ctx, quotation); err != nil {
		return nil, err
	}

	for i := range details {
		details[i].QuotationID = quotation.ID
		if err := s.quotationDetailRepo.Create(ctx, &details[i]); err != nil {
			return nil, err
		}
	}

	// Fetch the complete quotation with details
	return s.quotationRepo.GetWithDetails(ctx, quotation.ID)
}

func (s *QuotationService) buildDetails(ctx context.Context, items []QuotationItemInput) ([]checkout.LineItem, []entity.QuotationDetail, error) {
	productIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}
	productMap := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	lines := make([]checkout.LineItem, 0, len(items))
	details := make([]entity.QuotationDetail, 0, len(items))

	for _, item := range items {
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, nil, apperror.NewNotFoundError(fmt.Sprintf("Product %s", item.ProductID))
		}
		if item.Quantity <= 0 {
			return nil, nil, apperror.NewUnprocessableError(
				fmt.Sprintf("Invalid quantity for product %s", product.Name))
		}

		unitPrice := item.UnitPrice
		if !unitPrice.IsPositive() {
			unitPrice = product.EffectivePrice(nil)
		}

		lines = append(lines, checkout.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
		})
		details = append(details, entity.QuotationDetail{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			ProductCode: product.Code,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice,
			SubTotal:    unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	return lines, details, nil
}

// GetQuotation retrieves a quotation by ID
func (s *QuotationService) GetQuotation(ctx context.Context, id uuid.UUID) (*entity.Quotation, error) {
	quotation, err := s.quotationRepo.GetWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, apperror.NewNotFoundError("Quotation")
	}
	return quotation, nil
}

// ListQuotationsInput represents the input for listing quotations
type ListQuotationsInput struct {
	UserID       uuid.UUID
	IsSuperAdmin bool
	Pagination   *pagination.PaginationParams
	Search       string
	Status       *enum.QuotationStatus
	CustomerID   *uuid.UUID
}

// ListQuotations lists quotations with filtering
func (s *QuotationService) ListQuotations(ctx context.Context, input *ListQuotationsInput) (*pagination.PaginatedResult[entity.Quotation], error) {
	params := &repository.QuotationFilterParams{
		Pagination: input.Pagination,
		Search:     input.Search,
		Status:     input.Status,
		CustomerID: input.CustomerID,
	}

	var userID uuid.UUID
	if !input.IsSuperAdmin {
		userID = input.UserID
	}

	quotations, total, err := s.quotationRepo.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(input.Pagination.Page, input.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(quotations, pag), nil
}

// UpdateQuotationInput represents the input for updating a quotation
type UpdateQuotationInput struct {
	UserID         uuid.UUID
	ID             uuid.UUID
	IsSuperAdmin   bool
	CustomerID     *uuid.UUID
	Date           time.Time
	TaxMode        enum.TaxType
	TaxRate        decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	Note           *string
	Status         enum.QuotationStatus
	Items          []QuotationItemInput
}

// UpdateQuotation updates an existing quotation
func (s *QuotationService) UpdateQuotation(ctx context.Context, input *UpdateQuotationInput) (*entity.Quotation, error) {
	quotation, err := s.quotationRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, apperror.NewNotFoundError("Quotation")
	}

	// Check permission
	if !input.IsSuperAdmin && quotation.UserID != input.UserID {
		return nil, apperror.ErrForbidden
	}

	if quotation.SaleID != nil {
		return nil, apperror.NewUnprocessableError("Quotation has already been converted to a sale")
	}

	// Get customer name if customer ID is provided
	var customerName string
	if input.CustomerID != nil {
		customer, err := s.customerRepo.GetByID(ctx, *input.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			customerName = customer.Name
		}
	}

	lines, details, err := s.buildDetails(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	totals := checkout.ComputeTotal(lines, checkout.Adjustments{
		Discount:       input.DiscountAmount,
		Shipping:       input.ShippingAmount,
		TaxMode:        checkout.TaxMode(input.TaxMode),
		DefaultTaxRate: input.TaxRate,
	})

	quotation.CustomerID = input.CustomerID
	quotation.Date = input.Date
	quotation.CustomerName = customerName
	quotation.TaxMode = input.TaxMode
	quotation.TaxRate = input.TaxRate
	quotation.TaxAmount = totals.Tax
	quotation.DiscountAmount = input.DiscountAmount
	quotation.ShippingAmount = input.ShippingAmount
	quotation.TotalAmount = totals.Total
	quotation.Status = input.Status
	quotation.Note = input.Note

	if err := s.quotationRepo.Update(ctx, quotation); err != nil {
		return nil, err
	}

	// Delete existing details and create new ones
	if err := s.quotationDetailRepo.DeleteByQuotationID(ctx, quotation.ID); err != nil {
		return nil, err
	}

	for i := range details {
		details[i].QuotationID = quotation.ID
		if err := s.quotationDetailRepo.Create(ctx, &details[i]); err != nil {
			return nil, err
		}
	}

	return s.quotationRepo.GetWithDetails(ctx, quotation.ID)
}

// DeleteQuotation deletes a quotation
func (s *QuotationService) DeleteQuotation(ctx context.Context, userID, id uuid.UUID, isSuperAdmin bool) error {
	quotation, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if quotation == nil {
		return apperror.NewNotFoundError("Quotation")
	}

	// Check permission
	if !isSuperAdmin && quotation.UserID != userID {
		return apperror.ErrForbidden
	}

	// Delete details first
	if err := s.quotationDetailRepo.DeleteByQuotationID(ctx, id); err != nil {
		return err
	}

	return s.quotationRepo.Delete(ctx, id)
}

// UpdateQuotationStatus updates the status of a quotation
func (s *QuotationService) UpdateQuotationStatus(ctx context.Context, userID, id uuid.UUID, status enum.QuotationStatus, isSuperAdmin bool) error {
	quotation, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if quotation == nil {
		return apperror.NewNotFoundError("Quotation")
	}

	// Check permission
	if !isSuperAdmin && quotation.UserID != userID {
		return apperror.ErrForbidden
	}

	return s.quotationRepo.UpdateStatus(ctx, id, status)
}

// ConvertQuotationInput carries the payment details needed to turn an
// accepted quotation into a sale.
type ConvertQuotationInput struct {
	UserID       uuid.UUID
	QuotationID  uuid.UUID
	IsSuperAdmin bool
	LocationID   *uuid.UUID
	CashTendered *decimal.Decimal
	MobileMoney  *MobileMoneyInput
	Payments     []SalePaymentInput
}

// ConvertToSale runs the full checkout for an accepted quotation and links
// the resulting sale back to it. A converted quotation is frozen.
func (s *QuotationService) ConvertToSale(ctx context.Context, input *ConvertQuotationInput) (*entity.Sale, error) {
	quotation, err := s.quotationRepo.GetWithDetails(ctx, input.QuotationID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, apperror.NewNotFoundError("Quotation")
	}

	if !input.IsSuperAdmin && quotation.UserID != input.UserID {
		return nil, apperror.ErrForbidden
	}
	if quotation.SaleID != nil {
		return nil, apperror.NewConflictError("Quotation has already been converted to a sale")
	}

	saleItems := make([]SaleItemInput, 0, len(quotation.Details))
	for _, d := range quotation.Details {
		saleItems = append(saleItems, SaleItemInput{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
		})
	}

	sale, err := s.saleService.CreateSale(ctx, &CreateSaleInput{
		UserID:         input.UserID,
		CustomerID:     quotation.CustomerID,
		LocationID:     input.LocationID,
		TaxMode:        quotation.TaxMode,
		DiscountAmount: quotation.DiscountAmount,
		TaxAmount:      quotation.TaxAmount,
		ShippingAmount: quotation.ShippingAmount,
		CashTendered:   input.CashTendered,
		MobileMoney:    input.MobileMoney,
		Note:           quotation.Note,
		Items:          saleItems,
		Payments:       input.Payments,
	})
	if err != nil {
		return nil, err
	}

	quotation.SaleID = &sale.ID
	quotation.Status = enum.QuotationStatusAccepted
	if err := s.quotationRepo.Update(ctx, quotation); err != nil {
		return nil, err
	}

	return sale, nil
}
