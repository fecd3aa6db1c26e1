package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/checkout"
	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	infraRepo "github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/pkg/apperror"
	"github.com/dukapos/dukapos-api/pkg/email"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

// MobileMoneyProvider builds a checkout gateway from a tenant's M-Pesa
// configuration. The production implementation lives in
// internal/infrastructure/mpesa.
type MobileMoneyProvider interface {
	GatewayFor(cfg *entity.MpesaIntegration) (checkout.Gateway, error)
}

// SaleService handles checkout and sale-related operations
type SaleService struct {
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	locationRepo repository.LocationRepository
	methodRepo   repository.PaymentMethodRepository
	stockRepo    repository.StockLevelRepository
	tenantRepo   repository.TenantRepository
	provider     MobileMoneyProvider
	emailSvc     *email.EmailService

	// submitting guards against the same cashier double-submitting a sale
	// while the first request is still in flight.
	submitting sync.Map
}

// NewSaleService creates a new sale service
func NewSaleService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	locationRepo repository.LocationRepository,
	methodRepo repository.PaymentMethodRepository,
	stockRepo repository.StockLevelRepository,
	tenantRepo repository.TenantRepository,
	provider MobileMoneyProvider,
	emailSvc *email.EmailService,
) *SaleService {
	return &SaleService{
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		locationRepo: locationRepo,
		methodRepo:   methodRepo,
		stockRepo:    stockRepo,
		tenantRepo:   tenantRepo,
		provider:     provider,
		emailSvc:     emailSvc,
	}
}

// SaleItemInput represents an item in a sale
type SaleItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	// UnitPrice overrides the catalog price when positive.
	UnitPrice decimal.Decimal
}

// SalePaymentInput represents one tender offered at checkout
type SalePaymentInput struct {
	Method    enum.PaymentMethod
	Amount    decimal.Decimal
	Reference string
}

// MobileMoneyInput requests a mobile-money charge for whatever balance is
// left after the listed payments.
type MobileMoneyInput struct {
	Phone string
}

// CreateSaleInput represents the create sale input
type CreateSaleInput struct {
	UserID         uuid.UUID
	CustomerID     *uuid.UUID
	LocationID     *uuid.UUID
	TaxMode        enum.TaxType
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	// CashTendered confirms a cash tender larger than the balance; the
	// difference is handed back as change.
	CashTendered *decimal.Decimal
	MobileMoney  *MobileMoneyInput
	Note         *string
	Items        []SaleItemInput
	Payments     []SalePaymentInput
}

// CreateSale runs the whole checkout for one sale: it prices the cart,
// settles the payment ledger, decrements stock and persists the sale with
// its items and payments in one transaction. Nothing is written unless the
// ledger allows finalization.
func (s *SaleService) CreateSale(ctx context.Context, input *CreateSaleInput) (*entity.Sale, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	// Reject a second submission from the same cashier while the first is
	// still being processed.
	if _, loaded := s.submitting.LoadOrStore(input.UserID, struct{}{}); loaded {
		return nil, apperror.NewConflictError("A sale is already being processed for this user")
	}
	defer s.submitting.Delete(input.UserID)

	if len(input.Items) == 0 {
		return nil, apperror.NewUnprocessableError("Sale must contain at least one item")
	}

	location, err := s.resolveLocation(ctx, input.LocationID)
	if err != nil {
		return nil, err
	}

	var customer *entity.Customer
	if input.CustomerID != nil {
		customer, err = s.customerRepo.GetByID(ctx, *input.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, apperror.NewNotFoundError("Customer")
		}
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperror.NewNotFoundError("Tenant")
	}

	lines, saleItems, stockDecrements, productMap, err := s.buildLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	totals := checkout.ComputeTotal(lines, checkout.Adjustments{
		Discount:       input.DiscountAmount,
		Tax:            input.TaxAmount,
		Shipping:       input.ShippingAmount,
		TaxMode:        checkout.TaxMode(input.TaxMode),
		DefaultTaxRate: decimal.NewFromFloat(tenant.Settings.TaxRate),
	})

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	ledger := checkout.NewLedger(totals.Total, catalog)
	changeGiven := decimal.Zero

	for _, p := range input.Payments {
		if p.Method == enum.PaymentMethodCredit {
			if customer == nil {
				return nil, apperror.NewBadRequestError("Customer required for credit sale")
			}
			owed := ledger.Remaining()
			if !customer.CreditLimit.IsZero() && owed.GreaterThan(customer.AvailableCredit()) {
				return nil, apperror.NewUnprocessableError("Customer credit limit exceeded")
			}
		}

		if _, err := ledger.AddPayment(p.Method, p.Amount, p.Reference); err != nil {
			var overpay *checkout.CashOverpaymentError
			if errors.As(err, &overpay) {
				// A larger cash tender needs the cashier's explicit
				// change confirmation via CashTendered.
				return nil, apperror.NewUnprocessableError(fmt.Sprintf(
					"Cash tendered %s exceeds balance %s; confirm change of %s",
					overpay.Tendered.StringFixed(2),
					overpay.Remaining.StringFixed(2),
					overpay.Tendered.Sub(overpay.Remaining).StringFixed(2),
				))
			}
			return nil, apperror.NewUnprocessableError(err.Error())
		}
	}

	if input.CashTendered != nil {
		flow := checkout.NewChangeFlow(ledger)
		if err := flow.Begin(*input.CashTendered); err != nil {
			return nil, apperror.NewUnprocessableError(err.Error())
		}
		pending, _ := flow.Pending()
		if _, err := flow.Confirm(); err != nil {
			return nil, apperror.NewUnprocessableError(err.Error())
		}
		changeGiven = pending.Change()
	}

	invoiceNo := s.nextInvoiceNo(tenant)

	if input.MobileMoney != nil && ledger.Remaining().IsPositive() {
		if err := s.collectMobileMoney(ctx, tenant, ledger, input.MobileMoney.Phone, invoiceNo); err != nil {
			return nil, err
		}
	}

	if !ledger.CanFinalize() {
		return nil, apperror.NewUnprocessableError(fmt.Sprintf(
			"Payment incomplete: %s still owed", ledger.Remaining().StringFixed(2)))
	}

	// Stock comes off before the write so two tills cannot sell the same
	// last unit. It is put back if the write fails.
	if err := s.takeStock(ctx, location.ID, stockDecrements, productMap); err != nil {
		return nil, err
	}

	creditAmount := decimal.Zero
	payments := make([]entity.SalePayment, 0, len(ledger.Payments()))
	for _, p := range ledger.Payments() {
		payments = append(payments, entity.SalePayment{
			Method:    p.Method,
			Amount:    p.Amount,
			Reference: p.Reference,
		})
		if p.Method == enum.PaymentMethodCredit {
			creditAmount = creditAmount.Add(p.Amount)
		}
	}

	totalItems := 0
	for _, item := range saleItems {
		totalItems += item.Quantity
	}

	sale := &entity.Sale{
		TenantID:       tenantID,
		UserID:         input.UserID,
		CustomerID:     input.CustomerID,
		LocationID:     &location.ID,
		SaleDate:       time.Now(),
		InvoiceNo:      invoiceNo,
		Status:         enum.SaleStatusCompleted,
		TotalItems:     totalItems,
		SubTotal:       totals.SubTotal,
		DiscountAmount: input.DiscountAmount,
		TaxMode:        input.TaxMode,
		TaxAmount:      totals.Tax,
		ShippingAmount: input.ShippingAmount,
		Total:          totals.Total,
		AmountPaid:     totals.Total.Sub(creditAmount),
		AmountDue:      creditAmount,
		ChangeGiven:    changeGiven,
		Note:           input.Note,
		Items:          saleItems,
		Payments:       payments,
	}

	if err := s.saleRepo.Create(ctx, sale); err != nil {
		// The checkout state still lives with the caller; putting stock
		// back lets them retry the same submission.
		_ = s.productRepo.AtomicIncrementBatch(ctx, stockDecrements)
		_ = s.stockRepo.AtomicIncrementBatch(ctx, location.ID, stockDecrements)
		return nil, err
	}

	if creditAmount.IsPositive() && input.CustomerID != nil {
		if err := s.customerRepo.AdjustCreditBalance(ctx, *input.CustomerID, creditAmount); err != nil {
			log.Printf("credit balance update failed (sale %s): %v", sale.ID, err)
		}
	}

	s.sendReceiptEmail(tenant, customer, sale)

	return s.saleRepo.GetWithDetails(ctx, sale.ID)
}

// resolveLocation returns the requested location or falls back to the
// tenant default.
func (s *SaleService) resolveLocation(ctx context.Context, locationID *uuid.UUID) (*entity.Location, error) {
	if locationID != nil {
		location, err := s.locationRepo.GetByID(ctx, *locationID)
		if err != nil {
			return nil, err
		}
		if location == nil {
			return nil, apperror.NewNotFoundError("Location")
		}
		return location, nil
	}

	location, err := s.locationRepo.GetDefault(ctx)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, apperror.NewBadRequestError("Location required: no default location configured")
	}
	return location, nil
}

// buildLines prices the cart and prepares persistence rows alongside the
// stock decrement map.
func (s *SaleService) buildLines(ctx context.Context, items []SaleItemInput) ([]checkout.LineItem, []entity.SaleItem, map[uuid.UUID]int, map[uuid.UUID]*entity.Product, error) {
	productIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	productMap := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	lines := make([]checkout.LineItem, 0, len(items))
	saleItems := make([]entity.SaleItem, 0, len(items))
	stockDecrements := make(map[uuid.UUID]int)

	for _, item := range items {
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, nil, nil, nil, apperror.NewNotFoundError(fmt.Sprintf("Product %s", item.ProductID))
		}
		if item.Quantity <= 0 {
			return nil, nil, nil, nil, apperror.NewUnprocessableError(
				fmt.Sprintf("Invalid quantity for product %s", product.Name))
		}

		unitPrice := item.UnitPrice
		if !unitPrice.IsPositive() {
			unitPrice = product.EffectivePrice(item.VariantID)
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

		lines = append(lines, checkout.LineItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
		})
		saleItems = append(saleItems, entity.SaleItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Total:     lineTotal,
		})
		stockDecrements[item.ProductID] += item.Quantity
	}

	return lines, saleItems, stockDecrements, productMap, nil
}

// loadCatalog builds the tender catalog from the tenant's configured
// payment methods, falling back to the built-in defaults when the tenant
// has none.
func (s *SaleService) loadCatalog(ctx context.Context) (checkout.MethodCatalog, error) {
	methods, err := s.methodRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return checkout.DefaultCatalog(), nil
	}

	catalog := make(checkout.StaticCatalog, len(methods))
	for _, m := range methods {
		catalog[m.Code] = checkout.MethodInfo{RequiresReference: m.RequiresReference}
	}
	return catalog, nil
}

// takeStock decrements both the aggregate product quantity and the
// per-location stock level.
func (s *SaleService) takeStock(ctx context.Context, locationID uuid.UUID, decrements map[uuid.UUID]int, productMap map[uuid.UUID]*entity.Product) error {
	failedIDs, err := s.productRepo.AtomicDecrementBatch(ctx, decrements)
	if err != nil {
		return err
	}
	if len(failedIDs) > 0 {
		var failedNames []string
		for _, id := range failedIDs {
			if product, exists := productMap[id]; exists {
				failedNames = append(failedNames, product.Name)
			}
		}
		return apperror.NewAppError(http.StatusBadRequest, fmt.Sprintf("Insufficient stock for: %v", failedNames))
	}

	locationFailed, err := s.stockRepo.AtomicDecrementBatch(ctx, locationID, decrements)
	if err != nil {
		_ = s.productRepo.AtomicIncrementBatch(ctx, decrements)
		return err
	}
	if len(locationFailed) > 0 {
		_ = s.productRepo.AtomicIncrementBatch(ctx, decrements)
		var failedNames []string
		for _, id := range locationFailed {
			if product, exists := productMap[id]; exists {
				failedNames = append(failedNames, product.Name)
			}
		}
		return apperror.NewAppError(http.StatusBadRequest, fmt.Sprintf("Insufficient stock at this location for: %v", failedNames))
	}

	return nil
}

// collectMobileMoney pushes an STK charge for the outstanding balance and
// waits for the customer to complete or reject it on their phone.
func (s *SaleService) collectMobileMoney(ctx context.Context, tenant *entity.Tenant, ledger *checkout.Ledger, phone, reference string) error {
	if tenant.Settings.Mpesa == nil {
		return apperror.NewBadRequestError("Mobile money is not configured for this store")
	}
	if s.provider == nil {
		return apperror.NewBadRequestError("Mobile money is not available")
	}

	gateway, err := s.provider.GatewayFor(tenant.Settings.Mpesa)
	if err != nil {
		return apperror.NewGatewayError(err.Error())
	}

	collector := checkout.NewCollector(gateway)
	if _, err := collector.Collect(ctx, ledger, phone, reference); err != nil {
		switch {
		case errors.Is(err, checkout.ErrUserCancelled):
			return apperror.NewAppError(http.StatusRequestTimeout, "Mobile money charge cancelled")
		case errors.Is(err, checkout.ErrGatewayTimeout):
			return apperror.NewAppError(http.StatusGatewayTimeout, "Mobile money charge timed out")
		default:
			return apperror.NewGatewayError(err.Error())
		}
	}
	return nil
}

func (s *SaleService) nextInvoiceNo(tenant *entity.Tenant) string {
	prefix := tenant.Settings.InvoicePrefix
	if prefix == "" {
		prefix = "INV-"
	}
	return fmt.Sprintf("%s%s", prefix, uuid.New().String()[:8])
}

// sendReceiptEmail emails the receipt when the customer has an address and
// the tenant wants notifications. Failures are logged, never surfaced; the
// sale has already committed.
func (s *SaleService) sendReceiptEmail(tenant *entity.Tenant, customer *entity.Customer, sale *entity.Sale) {
	if s.emailSvc == nil || customer == nil || customer.Email == nil || !tenant.Settings.EmailNotifications {
		return
	}
	if err := s.emailSvc.SendReceiptEmail(*customer.Email, tenant.Name, sale.InvoiceNo, sale.Total.StringFixed(2)); err != nil {
		log.Printf("receipt email failed (sale %s): %v", sale.ID, err)
	}
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	sale, err := s.saleRepo.GetWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return sale, nil
}

// ListSales lists sales with filtering
func (s *SaleService) ListSales(ctx context.Context, userID uuid.UUID, params *repository.SaleFilterParams) (*pagination.PaginatedResult[entity.Sale], error) {
	sales, total, err := s.saleRepo.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(sales, pag), nil
}

// ListSalesWithCursor lists sales with cursor-based pagination
func (s *SaleService) ListSalesWithCursor(ctx context.Context, userID uuid.UUID, params *repository.SaleCursorFilterParams) (*pagination.CursorPaginatedResult[entity.Sale], error) {
	sales, err := s.saleRepo.ListWithCursor(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	hasPrev := params.Cursor.Cursor != ""

	cursorPag, items := pagination.NewCursorPagination(sales, params.Cursor.Limit,
		func(sl entity.Sale) string { return sl.ID.String() },
		func(sl entity.Sale) time.Time { return sl.CreatedAt },
	)
	cursorPag.HasPrev = hasPrev

	return pagination.NewCursorPaginatedResult(items, cursorPag), nil
}

// CancelSale cancels a sale, restores stock and reverses any credit.
func (s *SaleService) CancelSale(ctx context.Context, userID, saleID uuid.UUID) error {
	sale, err := s.saleRepo.GetWithDetails(ctx, saleID)
	if err != nil {
		return err
	}
	if sale == nil {
		return apperror.NewNotFoundError("Sale")
	}

	if sale.UserID != userID {
		return apperror.ErrForbidden
	}

	if sale.Status == enum.SaleStatusCancelled {
		return apperror.NewAppError(http.StatusBadRequest, "Sale is already cancelled")
	}

	stockIncrements := make(map[uuid.UUID]int)
	for _, item := range sale.Items {
		stockIncrements[item.ProductID] += item.Quantity
	}

	if err := s.productRepo.AtomicIncrementBatch(ctx, stockIncrements); err != nil {
		return err
	}
	if sale.LocationID != nil {
		if err := s.stockRepo.AtomicIncrementBatch(ctx, *sale.LocationID, stockIncrements); err != nil {
			return err
		}
	}

	if sale.CustomerID != nil && sale.AmountDue.IsPositive() {
		if err := s.customerRepo.AdjustCreditBalance(ctx, *sale.CustomerID, sale.AmountDue.Neg()); err != nil {
			return err
		}
	}

	return s.saleRepo.UpdateStatus(ctx, saleID, enum.SaleStatusCancelled)
}

// GetDueSales returns sales with an outstanding credit balance
func (s *SaleService) GetDueSales(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Sale], error) {
	sales, total, err := s.saleRepo.GetDueSales(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(sales, pag), nil
}

// PayDue records a payment towards a credit sale's outstanding balance and
// releases the customer's credit by the same amount.
func (s *SaleService) PayDue(ctx context.Context, userID, saleID uuid.UUID, method enum.PaymentMethod, amount decimal.Decimal, reference string, skipUserCheck bool) error {
	sale, err := s.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return err
	}
	if sale == nil {
		return apperror.NewNotFoundError("Sale")
	}

	// Only check ownership if not skipping (i.e., non-super-admin)
	if !skipUserCheck && sale.UserID != userID {
		return apperror.ErrForbidden
	}

	if !amount.IsPositive() {
		return apperror.NewUnprocessableError("Payment amount must be positive")
	}
	if amount.GreaterThan(sale.AmountDue) {
		return apperror.NewUnprocessableError("Payment exceeds outstanding balance")
	}

	payment := &entity.SalePayment{
		SaleID:    saleID,
		Method:    method,
		Amount:    amount,
		Reference: reference,
	}
	if err := s.saleRepo.AddPayment(ctx, payment); err != nil {
		return err
	}

	sale.AmountPaid = sale.AmountPaid.Add(amount)
	sale.AmountDue = sale.AmountDue.Sub(amount)

	if err := s.saleRepo.Update(ctx, sale); err != nil {
		return err
	}

	if sale.CustomerID != nil {
		if err := s.customerRepo.AdjustCreditBalance(ctx, *sale.CustomerID, amount.Neg()); err != nil {
			log.Printf("credit balance release failed (sale %s): %v", sale.ID, err)
		}
	}

	return nil
}
