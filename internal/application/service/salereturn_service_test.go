package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	infraRepo "github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/pkg/apperror"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

type mockReturnRepo struct {
	created      *entity.SaleReturn
	stored       *entity.SaleReturn
	statusCalled bool
	statusSeq    []enum.ReturnStatus
	updateStatus enum.ReturnStatus
	approvedBy   uuid.UUID
	deleted      bool
}

func (r *mockReturnRepo) Create(ctx context.Context, ret *entity.SaleReturn) error {
	ret.ID = uuid.New()
	r.created = ret
	return nil
}

func (r *mockReturnRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error) {
	return r.stored, nil
}

func (r *mockReturnRepo) GetByReturnNo(ctx context.Context, returnNo string) (*entity.SaleReturn, error) {
	return nil, nil
}

func (r *mockReturnRepo) Update(ctx context.Context, ret *entity.SaleReturn) error { return nil }

func (r *mockReturnRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deleted = true
	return nil
}

func (r *mockReturnRepo) List(ctx context.Context, userID uuid.UUID, params *repository.SaleReturnFilterParams) ([]entity.SaleReturn, int64, error) {
	return nil, 0, nil
}

func (r *mockReturnRepo) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error) {
	if r.stored != nil {
		return r.stored, nil
	}
	return r.created, nil
}

func (r *mockReturnRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReturnStatus, approvedBy uuid.UUID) error {
	r.statusCalled = true
	r.statusSeq = append(r.statusSeq, status)
	r.updateStatus = status
	r.approvedBy = approvedBy
	return nil
}

func (r *mockReturnRepo) GetPendingReturns(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams) ([]entity.SaleReturn, int64, error) {
	return nil, 0, nil
}

type mockReturnItemRepo struct {
	batch          []entity.SaleReturnItem
	deletedByRetID bool
}

func (r *mockReturnItemRepo) Create(ctx context.Context, item *entity.SaleReturnItem) error {
	return nil
}

func (r *mockReturnItemRepo) CreateBatch(ctx context.Context, items []entity.SaleReturnItem) error {
	r.batch = items
	return nil
}

func (r *mockReturnItemRepo) GetByReturnID(ctx context.Context, returnID uuid.UUID) ([]entity.SaleReturnItem, error) {
	return r.batch, nil
}

func (r *mockReturnItemRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *mockReturnItemRepo) DeleteByReturnID(ctx context.Context, returnID uuid.UUID) error {
	r.deletedByRetID = true
	return nil
}

type returnFixture struct {
	svc         *SaleReturnService
	returns     *mockReturnRepo
	returnItems *mockReturnItemRepo
	sales       *mockSaleRepo
	products    *mockProductRepo
	stock       *mockStockRepo
	customers   *mockCustomerRepo

	tenantID   uuid.UUID
	userID     uuid.UUID
	saleID     uuid.UUID
	saleItemID uuid.UUID
	productID  uuid.UUID
	locationID uuid.UUID
}

// newReturnFixture wires a return service over a completed sale of three
// units at 250.00 each.
func newReturnFixture() *returnFixture {
	f := &returnFixture{
		tenantID:   uuid.New(),
		userID:     uuid.New(),
		saleID:     uuid.New(),
		saleItemID: uuid.New(),
		productID:  uuid.New(),
		locationID: uuid.New(),
	}

	f.returns = &mockReturnRepo{}
	f.returnItems = &mockReturnItemRepo{}
	f.products = &mockProductRepo{}
	f.stock = &mockStockRepo{}
	f.customers = &mockCustomerRepo{}

	f.sales = &mockSaleRepo{}
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{
			ID:         f.saleID,
			UserID:     f.userID,
			LocationID: &f.locationID,
			Status:     enum.SaleStatusCompleted,
			Total:      decimal.NewFromInt(750),
			AmountPaid: decimal.NewFromInt(750),
			Items: []entity.SaleItem{{
				ID:        f.saleItemID,
				SaleID:    f.saleID,
				ProductID: f.productID,
				Quantity:  3,
				UnitPrice: decimal.NewFromInt(250),
				Total:     decimal.NewFromInt(750),
			}},
		}, nil
	}

	tenants := &mockTenantRepo{
		tenant: &entity.Tenant{ID: f.tenantID, Name: "Duka Moja"},
	}

	f.svc = NewSaleReturnService(f.returns, f.returnItems, f.sales,
		f.products, f.stock, f.customers, tenants)
	return f
}

func (f *returnFixture) ctx() context.Context {
	return infraRepo.WithTenant(context.Background(), f.tenantID)
}

func (f *returnFixture) input() *CreateReturnInput {
	return &CreateReturnInput{
		UserID:       f.userID,
		SaleID:       f.saleID,
		RefundMethod: enum.PaymentMethodCash,
		Items: []ReturnItemInput{
			{SaleItemID: f.saleItemID, Quantity: 2},
		},
	}
}

func TestCreateReturnPendingNoStockMovement(t *testing.T) {
	f := newReturnFixture()

	ret, err := f.svc.CreateReturn(f.ctx(), f.input())
	if err != nil {
		t.Fatalf("CreateReturn: %v", err)
	}

	if ret.Status != enum.ReturnStatusPending {
		t.Errorf("expected pending status, got %d", ret.Status)
	}
	if !ret.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected total 500, got %s", ret.TotalAmount)
	}
	if len(f.returnItems.batch) != 1 || f.returnItems.batch[0].Quantity != 2 {
		t.Fatalf("expected one return item of qty 2, got %+v", f.returnItems.batch)
	}
	if f.products.incremented != nil || f.stock.incremented != nil {
		t.Error("pending return must not move stock")
	}
}

func TestCreateReturnValidation(t *testing.T) {
	strangerItem := uuid.New()

	tests := []struct {
		name    string
		mutate  func(f *returnFixture, in *CreateReturnInput)
		code    int
		message string
	}{
		{
			"no items",
			func(f *returnFixture, in *CreateReturnInput) { in.Items = nil },
			http.StatusUnprocessableEntity, "at least one item",
		},
		{
			"sale not completed",
			func(f *returnFixture, in *CreateReturnInput) {
				f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
					return &entity.Sale{ID: f.saleID, Status: enum.SaleStatusCancelled}, nil
				}
			},
			http.StatusUnprocessableEntity, "Only completed sales",
		},
		{
			"sale not found",
			func(f *returnFixture, in *CreateReturnInput) {
				f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
					return nil, nil
				}
			},
			http.StatusNotFound, "Sale not found",
		},
		{
			"item not on sale",
			func(f *returnFixture, in *CreateReturnInput) {
				in.Items = []ReturnItemInput{{SaleItemID: strangerItem, Quantity: 1}}
			},
			http.StatusUnprocessableEntity, "does not belong to this sale",
		},
		{
			"duplicate item",
			func(f *returnFixture, in *CreateReturnInput) {
				in.Items = []ReturnItemInput{
					{SaleItemID: f.saleItemID, Quantity: 1},
					{SaleItemID: f.saleItemID, Quantity: 1},
				}
			},
			http.StatusUnprocessableEntity, "Duplicate sale item",
		},
		{
			"quantity above sold",
			func(f *returnFixture, in *CreateReturnInput) {
				in.Items = []ReturnItemInput{{SaleItemID: f.saleItemID, Quantity: 4}}
			},
			http.StatusUnprocessableEntity, "Invalid return quantity",
		},
		{
			"zero quantity",
			func(f *returnFixture, in *CreateReturnInput) {
				in.Items = []ReturnItemInput{{SaleItemID: f.saleItemID, Quantity: 0}}
			},
			http.StatusUnprocessableEntity, "Invalid return quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReturnFixture()
			in := f.input()
			tt.mutate(f, in)
			_, err := f.svc.CreateReturn(f.ctx(), in)
			requireAppError(t, err, tt.code, tt.message)
		})
	}
}

func TestApproveReturnRestoresStock(t *testing.T) {
	f := newReturnFixture()
	returnID := uuid.New()
	f.returns.stored = &entity.SaleReturn{
		ID:           returnID,
		UserID:       f.userID,
		SaleID:       f.saleID,
		Status:       enum.ReturnStatusPending,
		RefundMethod: enum.PaymentMethodCash,
		TotalAmount:  decimal.NewFromInt(500),
		Items: []entity.SaleReturnItem{
			{ReturnID: returnID, SaleItemID: f.saleItemID, ProductID: f.productID, Quantity: 2},
		},
	}

	if err := f.svc.ApproveReturn(f.ctx(), f.userID, returnID, false); err != nil {
		t.Fatalf("ApproveReturn: %v", err)
	}
	if f.products.incremented[f.productID] != 2 {
		t.Error("aggregate stock must be restored on approval")
	}
	if f.stock.incremented[f.productID] != 2 {
		t.Error("location stock must be restored on approval")
	}
	// Approval passes through the approved state before completing.
	wantSeq := []enum.ReturnStatus{enum.ReturnStatusApproved, enum.ReturnStatusCompleted}
	if len(f.returns.statusSeq) != len(wantSeq) {
		t.Fatalf("status transitions = %v, want %v", f.returns.statusSeq, wantSeq)
	}
	for i, want := range wantSeq {
		if f.returns.statusSeq[i] != want {
			t.Fatalf("status transitions = %v, want %v", f.returns.statusSeq, wantSeq)
		}
	}
	if f.returns.approvedBy != f.userID {
		t.Errorf("expected approver %s, got %s", f.userID, f.returns.approvedBy)
	}
	if f.customers.creditDelta != nil {
		t.Error("cash refund must not touch the credit balance")
	}
}

func TestApproveReturnCreditRefundReleasesDue(t *testing.T) {
	f := newReturnFixture()
	returnID := uuid.New()
	customerID := uuid.New()
	f.sales.getByIDFn = func(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
		return &entity.Sale{
			ID:         f.saleID,
			UserID:     f.userID,
			CustomerID: &customerID,
			LocationID: &f.locationID,
			Status:     enum.SaleStatusCompleted,
			AmountDue:  decimal.NewFromInt(300),
		}, nil
	}
	f.returns.stored = &entity.SaleReturn{
		ID:           returnID,
		UserID:       f.userID,
		SaleID:       f.saleID,
		Status:       enum.ReturnStatusPending,
		RefundMethod: enum.PaymentMethodCredit,
		TotalAmount:  decimal.NewFromInt(500),
		Items: []entity.SaleReturnItem{
			{ReturnID: returnID, SaleItemID: f.saleItemID, ProductID: f.productID, Quantity: 2},
		},
	}

	if err := f.svc.ApproveReturn(f.ctx(), f.userID, returnID, false); err != nil {
		t.Fatalf("ApproveReturn: %v", err)
	}

	// The release is capped at what the sale still owes.
	if f.customers.creditDelta == nil || !f.customers.creditDelta.Equal(decimal.NewFromInt(-300)) {
		t.Errorf("expected credit release of 300, got %v", f.customers.creditDelta)
	}
	if f.sales.updated == nil || !f.sales.updated.AmountDue.IsZero() {
		t.Error("expected the sale's outstanding balance to be cleared")
	}
}

func TestApproveReturnGuards(t *testing.T) {
	tests := []struct {
		name    string
		ret     func(f *returnFixture) *entity.SaleReturn
		userID  func(f *returnFixture) uuid.UUID
		admin   bool
		wantErr func(t *testing.T, err error)
	}{
		{
			"not found",
			func(f *returnFixture) *entity.SaleReturn { return nil },
			func(f *returnFixture) uuid.UUID { return f.userID },
			false,
			func(t *testing.T, err error) { requireAppError(t, err, http.StatusNotFound, "Return not found") },
		},
		{
			"not owner",
			func(f *returnFixture) *entity.SaleReturn {
				return &entity.SaleReturn{ID: uuid.New(), UserID: uuid.New(), Status: enum.ReturnStatusPending}
			},
			func(f *returnFixture) uuid.UUID { return f.userID },
			false,
			func(t *testing.T, err error) {
				if !errors.Is(err, apperror.ErrForbidden) {
					t.Fatalf("expected forbidden, got %v", err)
				}
			},
		},
		{
			"already completed",
			func(f *returnFixture) *entity.SaleReturn {
				return &entity.SaleReturn{ID: uuid.New(), UserID: f.userID, Status: enum.ReturnStatusCompleted}
			},
			func(f *returnFixture) uuid.UUID { return f.userID },
			false,
			func(t *testing.T, err error) { requireAppError(t, err, http.StatusBadRequest, "not pending") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReturnFixture()
			f.returns.stored = tt.ret(f)
			err := f.svc.ApproveReturn(f.ctx(), tt.userID(f), uuid.New(), tt.admin)
			tt.wantErr(t, err)
		})
	}
}

func TestApproveReturnSuperAdminBypassesOwnership(t *testing.T) {
	f := newReturnFixture()
	returnID := uuid.New()
	f.returns.stored = &entity.SaleReturn{
		ID:           returnID,
		UserID:       uuid.New(),
		SaleID:       f.saleID,
		Status:       enum.ReturnStatusPending,
		RefundMethod: enum.PaymentMethodCash,
		Items: []entity.SaleReturnItem{
			{ReturnID: returnID, SaleItemID: f.saleItemID, ProductID: f.productID, Quantity: 1},
		},
	}

	if err := f.svc.ApproveReturn(f.ctx(), f.userID, returnID, true); err != nil {
		t.Fatalf("expected super-admin approval to pass, got %v", err)
	}
}

func TestRejectReturnLeavesStockAlone(t *testing.T) {
	f := newReturnFixture()
	returnID := uuid.New()
	f.returns.stored = &entity.SaleReturn{
		ID:     returnID,
		UserID: f.userID,
		Status: enum.ReturnStatusPending,
	}

	if err := f.svc.RejectReturn(f.ctx(), f.userID, returnID, false); err != nil {
		t.Fatalf("RejectReturn: %v", err)
	}
	if f.returns.updateStatus != enum.ReturnStatusRejected {
		t.Errorf("expected rejected status, got %d", f.returns.updateStatus)
	}
	if f.products.incremented != nil {
		t.Error("rejection must not move stock")
	}
}

func TestDeleteReturnPendingOnly(t *testing.T) {
	f := newReturnFixture()
	returnID := uuid.New()
	f.returns.stored = &entity.SaleReturn{
		ID:     returnID,
		UserID: f.userID,
		Status: enum.ReturnStatusCompleted,
	}

	err := f.svc.DeleteReturn(f.ctx(), f.userID, returnID, false)
	requireAppError(t, err, http.StatusBadRequest, "Only pending returns can be deleted")

	f.returns.stored.Status = enum.ReturnStatusPending
	if err := f.svc.DeleteReturn(f.ctx(), f.userID, returnID, false); err != nil {
		t.Fatalf("DeleteReturn: %v", err)
	}
	if !f.returnItems.deletedByRetID || !f.returns.deleted {
		t.Error("expected return and its items to be deleted")
	}
}
