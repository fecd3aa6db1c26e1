package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

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

// ---- mocks -----------------------------------------------------------------

type mockSaleRepo struct {
	created      *entity.Sale
	createErr    error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*entity.Sale, error)
	updated      *entity.Sale
	updateStatus enum.SaleStatus
	statusCalled bool
	addedPayment *entity.SalePayment
}

func (r *mockSaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	if r.createErr != nil {
		return r.createErr
	}
	sale.ID = uuid.New()
	r.created = sale
	return nil
}

func (r *mockSaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	if r.getByIDFn != nil {
		return r.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *mockSaleRepo) GetByInvoiceNo(ctx context.Context, invoiceNo string) (*entity.Sale, error) {
	return nil, nil
}

func (r *mockSaleRepo) Update(ctx context.Context, sale *entity.Sale) error {
	r.updated = sale
	return nil
}

func (r *mockSaleRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *mockSaleRepo) List(ctx context.Context, userID uuid.UUID, params *repository.SaleFilterParams) ([]entity.Sale, int64, error) {
	return nil, 0, nil
}

func (r *mockSaleRepo) ListWithCursor(ctx context.Context, userID uuid.UUID, params *repository.SaleCursorFilterParams) ([]entity.Sale, error) {
	return nil, nil
}

func (r *mockSaleRepo) GetWithDetails(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	if r.getByIDFn != nil {
		return r.getByIDFn(ctx, id)
	}
	return r.created, nil
}

func (r *mockSaleRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.SaleStatus) error {
	r.statusCalled = true
	r.updateStatus = status
	return nil
}

func (r *mockSaleRepo) GetDueSales(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams) ([]entity.Sale, int64, error) {
	return nil, 0, nil
}

func (r *mockSaleRepo) AddPayment(ctx context.Context, payment *entity.SalePayment) error {
	r.addedPayment = payment
	return nil
}

type mockProductRepo struct {
	products      []entity.Product
	decrementFail []uuid.UUID
	decremented   map[uuid.UUID]int
	incremented   map[uuid.UUID]int
}

func (r *mockProductRepo) Create(ctx context.Context, product *entity.Product) error { return nil }
func (r *mockProductRepo) CreateBatch(ctx context.Context, products []entity.Product) error {
	return nil
}
func (r *mockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	return nil, nil
}

func (r *mockProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error) {
	return r.products, nil
}

func (r *mockProductRepo) GetBySlug(ctx context.Context, slug string) (*entity.Product, error) {
	return nil, nil
}
func (r *mockProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	return nil, nil
}
func (r *mockProductRepo) Update(ctx context.Context, product *entity.Product) error { return nil }
func (r *mockProductRepo) Delete(ctx context.Context, id uuid.UUID) error            { return nil }
func (r *mockProductRepo) List(ctx context.Context, userID uuid.UUID, params *repository.ProductFilterParams) ([]entity.Product, int64, error) {
	return nil, 0, nil
}
func (r *mockProductRepo) ListWithCursor(ctx context.Context, userID uuid.UUID, params *repository.ProductCursorFilterParams) ([]entity.Product, error) {
	return nil, nil
}
func (r *mockProductRepo) GetLowStock(ctx context.Context, userID uuid.UUID) ([]entity.Product, error) {
	return nil, nil
}
func (r *mockProductRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return nil
}
func (r *mockProductRepo) UpdateQuantityBatch(ctx context.Context, updates map[uuid.UUID]int) error {
	return nil
}
func (r *mockProductRepo) AtomicDecrementQuantity(ctx context.Context, id uuid.UUID, amount int) (bool, error) {
	return true, nil
}

func (r *mockProductRepo) AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error) {
	if len(r.decrementFail) > 0 {
		return r.decrementFail, nil
	}
	r.decremented = decrements
	return nil, nil
}

func (r *mockProductRepo) AtomicIncrementBatch(ctx context.Context, increments map[uuid.UUID]int) error {
	r.incremented = increments
	return nil
}

type mockCustomerRepo struct {
	customer    *entity.Customer
	creditDelta *decimal.Decimal
	creditID    uuid.UUID
}

func (r *mockCustomerRepo) Create(ctx context.Context, customer *entity.Customer) error { return nil }

func (r *mockCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	return r.customer, nil
}

func (r *mockCustomerRepo) GetByEmail(ctx context.Context, email string) (*entity.Customer, error) {
	return nil, nil
}
func (r *mockCustomerRepo) Update(ctx context.Context, customer *entity.Customer) error { return nil }
func (r *mockCustomerRepo) Delete(ctx context.Context, id uuid.UUID) error              { return nil }
func (r *mockCustomerRepo) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, skipUserFilter bool) ([]entity.Customer, int64, error) {
	return nil, 0, nil
}
func (r *mockCustomerRepo) ListWithCursor(ctx context.Context, userID uuid.UUID, params *pagination.CursorParams, search string, skipUserFilter bool) ([]entity.Customer, error) {
	return nil, nil
}

func (r *mockCustomerRepo) AdjustCreditBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	r.creditID = id
	r.creditDelta = &delta
	return nil
}

type mockLocationRepo struct {
	location   *entity.Location
	defaultLoc *entity.Location
}

func (r *mockLocationRepo) Create(ctx context.Context, location *entity.Location) error { return nil }

func (r *mockLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Location, error) {
	return r.location, nil
}

func (r *mockLocationRepo) GetByCode(ctx context.Context, code string) (*entity.Location, error) {
	return nil, nil
}

func (r *mockLocationRepo) GetDefault(ctx context.Context) (*entity.Location, error) {
	return r.defaultLoc, nil
}

func (r *mockLocationRepo) Update(ctx context.Context, location *entity.Location) error { return nil }
func (r *mockLocationRepo) Delete(ctx context.Context, id uuid.UUID) error              { return nil }
func (r *mockLocationRepo) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, skipUserFilter bool) ([]entity.Location, int64, error) {
	return nil, 0, nil
}
func (r *mockLocationRepo) SetDefault(ctx context.Context, id uuid.UUID) error { return nil }

type mockMethodRepo struct {
	methods []entity.PaymentMethod
	created []entity.PaymentMethod
}

func (r *mockMethodRepo) Create(ctx context.Context, method *entity.PaymentMethod) error {
	r.created = append(r.created, *method)
	return nil
}
func (r *mockMethodRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PaymentMethod, error) {
	return nil, nil
}
func (r *mockMethodRepo) Update(ctx context.Context, method *entity.PaymentMethod) error { return nil }
func (r *mockMethodRepo) Delete(ctx context.Context, id uuid.UUID) error                 { return nil }
func (r *mockMethodRepo) List(ctx context.Context) ([]entity.PaymentMethod, error) {
	return r.methods, nil
}

func (r *mockMethodRepo) ListActive(ctx context.Context) ([]entity.PaymentMethod, error) {
	return r.methods, nil
}

type mockStockRepo struct {
	decrementFail []uuid.UUID
	decremented   map[uuid.UUID]int
	incremented   map[uuid.UUID]int
	locationID    uuid.UUID
}

func (r *mockStockRepo) Get(ctx context.Context, productID, locationID uuid.UUID) (*entity.StockLevel, error) {
	return nil, nil
}
func (r *mockStockRepo) GetByLocation(ctx context.Context, locationID uuid.UUID) ([]entity.StockLevel, error) {
	return nil, nil
}
func (r *mockStockRepo) Upsert(ctx context.Context, level *entity.StockLevel) error { return nil }

func (r *mockStockRepo) AtomicDecrementBatch(ctx context.Context, locationID uuid.UUID, decrements map[uuid.UUID]int) ([]uuid.UUID, error) {
	if len(r.decrementFail) > 0 {
		return r.decrementFail, nil
	}
	r.locationID = locationID
	r.decremented = decrements
	return nil, nil
}

func (r *mockStockRepo) AtomicIncrementBatch(ctx context.Context, locationID uuid.UUID, increments map[uuid.UUID]int) error {
	r.incremented = increments
	return nil
}

type mockTenantRepo struct {
	tenant  *entity.Tenant
	bySlug  *entity.Tenant
	created *entity.Tenant
	member  *entity.TenantMembership
}

func (r *mockTenantRepo) Create(ctx context.Context, tenant *entity.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	r.created = tenant
	return nil
}

func (r *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	return r.tenant, nil
}

func (r *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	return r.bySlug, nil
}
func (r *mockTenantRepo) Update(ctx context.Context, tenant *entity.Tenant) error { return nil }
func (r *mockTenantRepo) Delete(ctx context.Context, id uuid.UUID) error          { return nil }
func (r *mockTenantRepo) GetUserTenants(ctx context.Context, userID uuid.UUID) ([]entity.Tenant, error) {
	return nil, nil
}
func (r *mockTenantRepo) AddMember(ctx context.Context, membership *entity.TenantMembership) error {
	r.member = membership
	return nil
}
func (r *mockTenantRepo) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	return nil
}
func (r *mockTenantRepo) GetMembers(ctx context.Context, tenantID uuid.UUID) ([]entity.TenantMembership, error) {
	return nil, nil
}
func (r *mockTenantRepo) IsMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	return true, nil
}
func (r *mockTenantRepo) GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*entity.TenantMembership, error) {
	return nil, nil
}
func (r *mockTenantRepo) UpdateMemberRole(ctx context.Context, tenantID, userID uuid.UUID, role string) error {
	return nil
}
func (r *mockTenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return false, nil
}
func (r *mockTenantRepo) ListAll(ctx context.Context) ([]entity.Tenant, error) { return nil, nil }
func (r *mockTenantRepo) Count(ctx context.Context) (int64, error)             { return 0, nil }

// fakeGateway reports a fixed poll outcome after a successful initiate.
type fakeGateway struct {
	initiateErr error
	poll        checkout.PollResult
}

func (g *fakeGateway) Initiate(ctx context.Context, req checkout.InitiateRequest) (checkout.InitiateResult, error) {
	if g.initiateErr != nil {
		return checkout.InitiateResult{}, g.initiateErr
	}
	return checkout.InitiateResult{CheckoutID: "ws_CO_TEST"}, nil
}

func (g *fakeGateway) PollStatus(ctx context.Context, checkoutID string) (checkout.PollResult, error) {
	return g.poll, nil
}

type fakeProvider struct {
	gateway checkout.Gateway
}

func (p *fakeProvider) GatewayFor(cfg *entity.MpesaIntegration) (checkout.Gateway, error) {
	return p.gateway, nil
}

// ---- fixture ---------------------------------------------------------------

type saleFixture struct {
	svc       *SaleService
	sales     *mockSaleRepo
	products  *mockProductRepo
	customers *mockCustomerRepo
	locations *mockLocationRepo
	methods   *mockMethodRepo
	stock     *mockStockRepo
	tenants   *mockTenantRepo
	provider  *fakeProvider

	tenantID  uuid.UUID
	userID    uuid.UUID
	productID uuid.UUID
	location  *entity.Location
}

// newSaleFixture wires a service against in-memory mocks selling a single
// product priced 250.00 with no default tax, so four units total 1000.00.
func newSaleFixture() *saleFixture {
	f := &saleFixture{
		tenantID:  uuid.New(),
		userID:    uuid.New(),
		productID: uuid.New(),
	}

	f.location = &entity.Location{
		ID:        uuid.New(),
		TenantID:  f.tenantID,
		Name:      "Main Till",
		Code:      "MAIN",
		IsDefault: true,
		IsActive:  true,
	}

	f.sales = &mockSaleRepo{}
	f.products = &mockProductRepo{
		products: []entity.Product{{
			ID:           f.productID,
			Name:         "Sugar 1kg",
			Quantity:     50,
			SellingPrice: decimal.NewFromInt(250),
		}},
	}
	f.customers = &mockCustomerRepo{}
	f.locations = &mockLocationRepo{location: f.location, defaultLoc: f.location}
	f.methods = &mockMethodRepo{}
	f.stock = &mockStockRepo{}
	f.tenants = &mockTenantRepo{
		tenant: &entity.Tenant{
			ID:   f.tenantID,
			Name: "Duka Moja",
			Slug: "duka-moja",
			Settings: entity.TenantSettings{
				InvoicePrefix: "TST-",
			},
		},
	}
	f.provider = &fakeProvider{}

	f.svc = NewSaleService(f.sales, f.products, f.customers, f.locations,
		f.methods, f.stock, f.tenants, f.provider, nil)
	return f
}

func (f *saleFixture) ctx() context.Context {
	return infraRepo.WithTenant(context.Background(), f.tenantID)
}

func (f *saleFixture) input() *CreateSaleInput {
	return &CreateSaleInput{
		UserID: f.userID,
		Items: []SaleItemInput{
			{ProductID: f.productID, Quantity: 4},
		},
	}
}

func requireAppError(t *testing.T, err error, code int, contains string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected status %d, got %d (%s)", code, appErr.Code, appErr.Message)
	}
	if contains != "" && !strings.Contains(appErr.Message, contains) {
		t.Fatalf("expected message containing %q, got %q", contains, appErr.Message)
	}
}

// ---- CreateSale ------------------------------------------------------------

func TestCreateSaleCashExact(t *testing.T) {
	f := newSaleFixture()
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1000)},
	}

	sale, err := f.svc.CreateSale(f.ctx(), in)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if sale.Status != enum.SaleStatusCompleted {
		t.Errorf("expected completed status, got %d", sale.Status)
	}
	if !sale.Total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected total 1000, got %s", sale.Total)
	}
	if !sale.AmountPaid.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected amount paid 1000, got %s", sale.AmountPaid)
	}
	if !sale.AmountDue.IsZero() {
		t.Errorf("expected zero amount due, got %s", sale.AmountDue)
	}
	if sale.TotalItems != 4 {
		t.Errorf("expected 4 total items, got %d", sale.TotalItems)
	}
	if !strings.HasPrefix(sale.InvoiceNo, "TST-") {
		t.Errorf("expected invoice prefix TST-, got %s", sale.InvoiceNo)
	}
	if f.products.decremented[f.productID] != 4 {
		t.Errorf("expected aggregate stock decrement of 4, got %d", f.products.decremented[f.productID])
	}
	if f.stock.decremented[f.productID] != 4 || f.stock.locationID != f.location.ID {
		t.Errorf("expected location stock decrement of 4 at %s", f.location.ID)
	}
}

func TestCreateSaleDefaultTaxApplied(t *testing.T) {
	f := newSaleFixture()
	f.tenants.tenant.Settings.TaxRate = 16.0
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1160)},
	}

	sale, err := f.svc.CreateSale(f.ctx(), in)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if !sale.TaxAmount.Equal(decimal.NewFromInt(160)) {
		t.Errorf("expected tax 160, got %s", sale.TaxAmount)
	}
	if !sale.Total.Equal(decimal.NewFromInt(1160)) {
		t.Errorf("expected total 1160, got %s", sale.Total)
	}
}

func TestCreateSaleInclusiveTaxKeepsTotal(t *testing.T) {
	f := newSaleFixture()
	f.tenants.tenant.Settings.TaxRate = 16.0
	in := f.input()
	in.TaxMode = enum.TaxTypeInclusive
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1000)},
	}

	sale, err := f.svc.CreateSale(f.ctx(), in)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("inclusive tax must not change the total, got %s", sale.Total)
	}
	if !sale.TaxAmount.Equal(decimal.NewFromFloat(137.93)) {
		t.Errorf("expected embedded tax 137.93, got %s", sale.TaxAmount)
	}
}

func TestCreateSaleRequiresTenantContext(t *testing.T) {
	f := newSaleFixture()
	_, err := f.svc.CreateSale(context.Background(), f.input())
	requireAppError(t, err, http.StatusBadRequest, "Tenant context required")
}

func TestCreateSaleRequiresItems(t *testing.T) {
	f := newSaleFixture()
	in := f.input()
	in.Items = nil
	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusUnprocessableEntity, "at least one item")
}

func TestCreateSaleRejectsDuplicateSubmission(t *testing.T) {
	f := newSaleFixture()
	f.svc.submitting.Store(f.userID, struct{}{})
	defer f.svc.submitting.Delete(f.userID)

	_, err := f.svc.CreateSale(f.ctx(), f.input())
	requireAppError(t, err, http.StatusConflict, "already being processed")
}

func TestCreateSalePaymentIncomplete(t *testing.T) {
	f := newSaleFixture()
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(600)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusUnprocessableEntity, "Payment incomplete: 400.00 still owed")
	if f.sales.created != nil {
		t.Error("incomplete payment must not persist a sale")
	}
	if f.products.decremented != nil {
		t.Error("incomplete payment must not touch stock")
	}
}

func TestCreateSaleCashOverpaymentNeedsConfirmation(t *testing.T) {
	f := newSaleFixture()
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1500)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusUnprocessableEntity, "confirm change of 500.00")
}

func TestCreateSaleCashChangeFlow(t *testing.T) {
	f := newSaleFixture()
	tendered := decimal.NewFromInt(1500)
	in := f.input()
	in.CashTendered = &tendered

	sale, err := f.svc.CreateSale(f.ctx(), in)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if !sale.ChangeGiven.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected change 500, got %s", sale.ChangeGiven)
	}
	if !sale.AmountPaid.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("change flow settles the balance only, got paid %s", sale.AmountPaid)
	}
	if len(sale.Payments) != 1 || sale.Payments[0].Method != enum.PaymentMethodCash {
		t.Fatalf("expected one cash payment, got %+v", sale.Payments)
	}
	if !sale.Payments[0].Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("recorded payment must be the owed amount, got %s", sale.Payments[0].Amount)
	}
}

func TestCreateSaleCreditRequiresCustomer(t *testing.T) {
	f := newSaleFixture()
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCredit, Amount: decimal.NewFromInt(1000)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusBadRequest, "Customer required for credit sale")
}

func TestCreateSaleCreditLimitExceeded(t *testing.T) {
	f := newSaleFixture()
	customerID := uuid.New()
	f.customers.customer = &entity.Customer{
		ID:            customerID,
		Name:          "Wanjiku",
		CreditLimit:   decimal.NewFromInt(500),
		CreditBalance: decimal.NewFromInt(200),
	}
	in := f.input()
	in.CustomerID = &customerID
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCredit, Amount: decimal.NewFromInt(1000)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusUnprocessableEntity, "Customer credit limit exceeded")
}

func TestCreateSaleCreditSplitsAmounts(t *testing.T) {
	f := newSaleFixture()
	customerID := uuid.New()
	f.customers.customer = &entity.Customer{ID: customerID, Name: "Wanjiku"}
	in := f.input()
	in.CustomerID = &customerID
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(600)},
		{Method: enum.PaymentMethodCredit, Amount: decimal.NewFromInt(400)},
	}

	sale, err := f.svc.CreateSale(f.ctx(), in)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if !sale.AmountPaid.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected amount paid 600, got %s", sale.AmountPaid)
	}
	if !sale.AmountDue.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected amount due 400, got %s", sale.AmountDue)
	}
	if f.customers.creditDelta == nil || !f.customers.creditDelta.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected credit balance increase of 400, got %v", f.customers.creditDelta)
	}
	if f.customers.creditID != customerID {
		t.Errorf("credit adjusted for wrong customer %s", f.customers.creditID)
	}
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	f := newSaleFixture()
	f.products.decrementFail = []uuid.UUID{f.productID}
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1000)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusBadRequest, "Sugar 1kg")
	if f.sales.created != nil {
		t.Error("insufficient stock must not persist a sale")
	}
}

func TestCreateSaleLocationStockShortfallCompensates(t *testing.T) {
	f := newSaleFixture()
	f.stock.decrementFail = []uuid.UUID{f.productID}
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1000)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusBadRequest, "Insufficient stock at this location")
	if f.products.incremented[f.productID] != 4 {
		t.Error("aggregate decrement must be compensated when the location lacks stock")
	}
}

func TestCreateSaleCompensatesStockWhenPersistFails(t *testing.T) {
	f := newSaleFixture()
	f.sales.createErr = errors.New("connection reset")
	in := f.input()
	in.Payments = []SalePaymentInput{
		{Method: enum.PaymentMethodCash, Amount: decimal.NewFromInt(1000)},
	}

	_, err := f.svc.CreateSale(f.ctx(), in)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if f.products.incremented[f.productID] != 4 {
		t.Error("aggregate stock must be restored after a failed write")
	}
	if f.stock.incremented[f.productID] != 4 {
		t.Error("location stock must be restored after a failed write")
	}
}

func TestCreateSaleMobileMoneyNotConfigured(t *testing.T) {
	f := newSaleFixture()
	in := f.input()
	in.MobileMoney = &MobileMoneyInput{Phone: "254712345678"}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusBadRequest, "Mobile money is not configured")
}

func TestCreateSaleMobileMoneyGatewayRejection(t *testing.T) {
	f := newSaleFixture()
	f.tenants.tenant.Settings.Mpesa = &entity.MpesaIntegration{ShortCode: "174379"}
	f.provider.gateway = &fakeGateway{initiateErr: errors.New("invalid credentials")}
	in := f.input()
	in.MobileMoney = &MobileMoneyInput{Phone: "254712345678"}

	_, err := f.svc.CreateSale(f.ctx(), in)
	requireAppError(t, err, http.StatusBadGateway, "")
}

func TestCreateSaleMobileMoneySuccess(t *testing.T) {
	if testing.Short() {
		t.Skip("polls on the real clock")
	}
	f := newSaleFixture()
	f.tenants.tenant.Settings.Mpesa = &entity.MpesaIntegration{ShortCode: "174379"}
	f.provider.gateway = &fakeGateway{
		poll: checkout.PollResult{State: checkout.GatewayStateSuccess, Receipt: "QGR7TEST01"},
	}
	in := f.input()
	in.MobileMoney = &MobileMoneyInput{Phone: "254712345678"}

	sale, err := f.svc.CreateSale(f.ctx(), in)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if len(sale.Payments) != 1 || sale.Payments[0].Method != enum.PaymentMethodMobileMoney {
		t.Fatalf("expected one mobile money payment, got %+v", sale.Payments)
	}
	if sale.Payments[0].Reference != "QGR7TEST01" {
		t.Errorf("expected gateway receipt as reference, got %s", sale.Payments[0].Reference)
	}
	if !sale.AmountPaid.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected amount paid 1000, got %s", sale.AmountPaid)
	}
}

// ---- CancelSale ------------------------------------------------------------

func TestCancelSaleRestoresStockAndCredit(t *testing.T) {
	f := newSaleFixture()
	customerID := uuid.New()
	saleID := uuid.New()
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{
			ID:         saleID,
			UserID:     f.userID,
			CustomerID: &customerID,
			LocationID: &f.location.ID,
			Status:     enum.SaleStatusCompleted,
			AmountDue:  decimal.NewFromInt(400),
			Items: []entity.SaleItem{
				{ProductID: f.productID, Quantity: 4},
			},
		}, nil
	}

	if err := f.svc.CancelSale(f.ctx(), f.userID, saleID); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}
	if f.products.incremented[f.productID] != 4 {
		t.Error("aggregate stock must be restored on cancellation")
	}
	if f.stock.incremented[f.productID] != 4 {
		t.Error("location stock must be restored on cancellation")
	}
	if f.customers.creditDelta == nil || !f.customers.creditDelta.Equal(decimal.NewFromInt(-400)) {
		t.Errorf("expected credit release of 400, got %v", f.customers.creditDelta)
	}
	if !f.sales.statusCalled || f.sales.updateStatus != enum.SaleStatusCancelled {
		t.Error("expected status update to cancelled")
	}
}

func TestCancelSaleChecksOwnership(t *testing.T) {
	f := newSaleFixture()
	saleID := uuid.New()
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{ID: saleID, UserID: uuid.New(), Status: enum.SaleStatusCompleted}, nil
	}

	err := f.svc.CancelSale(f.ctx(), f.userID, saleID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelSaleAlreadyCancelled(t *testing.T) {
	f := newSaleFixture()
	saleID := uuid.New()
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{ID: saleID, UserID: f.userID, Status: enum.SaleStatusCancelled}, nil
	}

	err := f.svc.CancelSale(f.ctx(), f.userID, saleID)
	requireAppError(t, err, http.StatusBadRequest, "already cancelled")
}

// ---- PayDue ----------------------------------------------------------------

func TestPayDueSettlesCredit(t *testing.T) {
	f := newSaleFixture()
	customerID := uuid.New()
	saleID := uuid.New()
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{
			ID:         saleID,
			UserID:     f.userID,
			CustomerID: &customerID,
			AmountPaid: decimal.NewFromInt(600),
			AmountDue:  decimal.NewFromInt(400),
		}, nil
	}

	err := f.svc.PayDue(f.ctx(), f.userID, saleID, enum.PaymentMethodCash,
		decimal.NewFromInt(250), "", false)
	if err != nil {
		t.Fatalf("PayDue: %v", err)
	}
	if f.sales.addedPayment == nil || !f.sales.addedPayment.Amount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected recorded payment of 250, got %+v", f.sales.addedPayment)
	}
	if !f.sales.updated.AmountPaid.Equal(decimal.NewFromInt(850)) {
		t.Errorf("expected amount paid 850, got %s", f.sales.updated.AmountPaid)
	}
	if !f.sales.updated.AmountDue.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected amount due 150, got %s", f.sales.updated.AmountDue)
	}
	if f.customers.creditDelta == nil || !f.customers.creditDelta.Equal(decimal.NewFromInt(-250)) {
		t.Errorf("expected credit release of 250, got %v", f.customers.creditDelta)
	}
}

func TestPayDueValidation(t *testing.T) {
	f := newSaleFixture()
	saleID := uuid.New()
	due := &entity.Sale{
		ID:        saleID,
		UserID:    f.userID,
		AmountDue: decimal.NewFromInt(400),
	}

	tests := []struct {
		name     string
		sale     *entity.Sale
		userID   uuid.UUID
		amount   decimal.Decimal
		wantCode int
		wantMsg  string
	}{
		{"sale not found", nil, f.userID, decimal.NewFromInt(100), http.StatusNotFound, "Sale not found"},
		{"zero amount", due, f.userID, decimal.Zero, http.StatusUnprocessableEntity, "must be positive"},
		{"negative amount", due, f.userID, decimal.NewFromInt(-10), http.StatusUnprocessableEntity, "must be positive"},
		{"exceeds balance", due, f.userID, decimal.NewFromInt(500), http.StatusUnprocessableEntity, "exceeds outstanding balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
				return tt.sale, nil
			}
			err := f.svc.PayDue(f.ctx(), tt.userID, saleID, enum.PaymentMethodCash, tt.amount, "", false)
			requireAppError(t, err, tt.wantCode, tt.wantMsg)
		})
	}
}

func TestPayDueChecksOwnership(t *testing.T) {
	f := newSaleFixture()
	saleID := uuid.New()
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{ID: saleID, UserID: uuid.New(), AmountDue: decimal.NewFromInt(400)}, nil
	}

	err := f.svc.PayDue(f.ctx(), f.userID, saleID, enum.PaymentMethodCash,
		decimal.NewFromInt(100), "", false)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// Super-admin settlement skips the ownership check.
	err = f.svc.PayDue(f.ctx(), f.userID, saleID, enum.PaymentMethodCash,
		decimal.NewFromInt(100), "", true)
	if err != nil {
		t.Fatalf("expected super-admin settlement to pass, got %v", err)
	}
}
