package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	infraRepo "github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/pkg/apperror"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

// SaleReturnService handles sale return operations
type SaleReturnService struct {
	returnRepo     repository.SaleReturnRepository
	returnItemRepo repository.SaleReturnItemRepository
	saleRepo       repository.SaleRepository
	productRepo    repository.ProductRepository
	stockRepo      repository.StockLevelRepository
	customerRepo   repository.CustomerRepository
	tenantRepo     repository.TenantRepository
}

// NewSaleReturnService creates a new sale return service
func NewSaleReturnService(
	returnRepo repository.SaleReturnRepository,
	returnItemRepo repository.SaleReturnItemRepository,
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	stockRepo repository.StockLevelRepository,
	customerRepo repository.CustomerRepository,
	tenantRepo repository.TenantRepository,
) *SaleReturnService {
	return &SaleReturnService{
		returnRepo:     returnRepo,
		returnItemRepo: returnItemRepo,
		saleRepo:       saleRepo,
		productRepo:    productRepo,
		stockRepo:      stockRepo,
		customerRepo:   customerRepo,
		tenantRepo:     tenantRepo,
	}
}

// ReturnItemInput represents one returned line
type ReturnItemInput struct {
	SaleItemID uuid.UUID
	Quantity   int
}

// CreateReturnInput represents the create return input
type CreateReturnInput struct {
	UserID       uuid.UUID
	SaleID       uuid.UUID
	RefundMethod enum.PaymentMethod
	Reason       *string
	Items        []ReturnItemInput
}

// CreateReturn records a pending return against a completed sale. Stock and
// refunds move only on approval.
func (s *SaleReturnService) CreateReturn(ctx context.Context, input *CreateReturnInput) (*entity.SaleReturn, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	if len(input.Items) == 0 {
		return nil, apperror.NewUnprocessableError("Return must contain at least one item")
	}

	sale, err := s.saleRepo.GetWithDetails(ctx, input.SaleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	if sale.Status != enum.SaleStatusCompleted {
		return nil, apperror.NewUnprocessableError("Only completed sales can be returned")
	}

	saleItemMap := make(map[uuid.UUID]*entity.SaleItem, len(sale.Items))
	for i := range sale.Items {
		saleItemMap[sale.Items[i].ID] = &sale.Items[i]
	}

	totalAmount := decimal.Zero
	seen := make(map[uuid.UUID]bool, len(input.Items))
	returnItems := make([]entity.SaleReturnItem, 0, len(input.Items))

	for _, item := range input.Items {
		saleItem, exists := saleItemMap[item.SaleItemID]
		if !exists {
			return nil, apperror.NewUnprocessableError(
				fmt.Sprintf("Sale item %s does not belong to this sale", item.SaleItemID))
		}
		if seen[item.SaleItemID] {
			return nil, apperror.NewUnprocessableError("Duplicate sale item in return")
		}
		seen[item.SaleItemID] = true

		if item.Quantity <= 0 || item.Quantity > saleItem.Quantity {
			return nil, apperror.NewUnprocessableError(
				fmt.Sprintf("Invalid return quantity for sale item %s", item.SaleItemID))
		}

		lineTotal := saleItem.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		totalAmount = totalAmount.Add(lineTotal)

		returnItems = append(returnItems, entity.SaleReturnItem{
			SaleItemID: item.SaleItemID,
			ProductID:  saleItem.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  saleItem.UnitPrice,
			Total:      lineTotal,
		})
	}

	ret := &entity.SaleReturn{
		TenantID:     tenantID,
		UserID:       input.UserID,
		SaleID:       input.SaleID,
		Date:         time.Now(),
		ReturnNo:     s.nextReturnNo(ctx, tenantID),
		Status:       enum.ReturnStatusPending,
		RefundMethod: input.RefundMethod,
		TotalAmount:  totalAmount,
		Reason:       input.Reason,
	}

	if err := s.returnRepo.Create(ctx, ret); err != nil {
		return nil, err
	}

	for i := range returnItems {
		returnItems[i].ReturnID = ret.ID
	}
	if err := s.returnItemRepo.CreateBatch(ctx, returnItems); err != nil {
		return nil, err
	}

	return s.returnRepo.GetWithItems(ctx, ret.ID)
}

func (s *SaleReturnService) nextReturnNo(ctx context.Context, tenantID uuid.UUID) string {
	prefix := "RTN-"
	if tenant, err := s.tenantRepo.GetByID(ctx, tenantID); err == nil && tenant != nil && tenant.Settings.ReturnPrefix != "" {
		prefix = tenant.Settings.ReturnPrefix
	}
	return fmt.Sprintf("%s%s", prefix, uuid.New().String()[:8])
}

// GetReturn retrieves a return by ID
func (s *SaleReturnService) GetReturn(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error) {
	ret, err := s.returnRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, apperror.NewNotFoundError("Return")
	}
	return ret, nil
}

// ListReturns lists returns with filtering
func (s *SaleReturnService) ListReturns(ctx context.Context, userID uuid.UUID, params *repository.SaleReturnFilterParams) (*pagination.PaginatedResult[entity.SaleReturn], error) {
	returns, total, err := s.returnRepo.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(returns, pag), nil
}

// ApproveReturn approves a pending return, restores stock and settles the
// refund. A credit refund releases the customer's accounts receivable; other
// methods hand value back outside the system and only the sale's paid total
// is adjusted.
func (s *SaleReturnService) ApproveReturn(ctx context.Context, userID, returnID uuid.UUID, isSuperAdmin bool) error {
	ret, err := s.returnRepo.GetWithItems(ctx, returnID)
	if err != nil {
		return err
	}
	if ret == nil {
		return apperror.NewNotFoundError("Return")
	}

	// Super-admin can approve any return, regular users can only approve their own
	if !isSuperAdmin && ret.UserID != userID {
		return apperror.ErrForbidden
	}

	if ret.Status != enum.ReturnStatusPending {
		return apperror.NewAppError(http.StatusBadRequest, "Return is not pending")
	}

	sale, err := s.saleRepo.GetByID(ctx, ret.SaleID)
	if err != nil {
		return err
	}
	if sale == nil {
		return apperror.NewNotFoundError("Sale")
	}

	// The return is approved while stock and the refund move, and completed
	// once settlement finishes.
	if err := s.returnRepo.UpdateStatus(ctx, returnID, enum.ReturnStatusApproved, userID); err != nil {
		return err
	}

	stockIncrements := make(map[uuid.UUID]int)
	for _, item := range ret.Items {
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

	if ret.RefundMethod == enum.PaymentMethodCredit && sale.CustomerID != nil {
		released := decimal.Min(ret.TotalAmount, sale.AmountDue)
		if released.IsPositive() {
			if err := s.customerRepo.AdjustCreditBalance(ctx, *sale.CustomerID, released.Neg()); err != nil {
				return err
			}
			sale.AmountDue = sale.AmountDue.Sub(released)
			if err := s.saleRepo.Update(ctx, sale); err != nil {
				return err
			}
		}
	}

	return s.returnRepo.UpdateStatus(ctx, returnID, enum.ReturnStatusCompleted, userID)
}

// RejectReturn rejects a pending return. Nothing moves.
func (s *SaleReturnService) RejectReturn(ctx context.Context, userID, returnID uuid.UUID, isSuperAdmin bool) error {
	ret, err := s.returnRepo.GetByID(ctx, returnID)
	if err != nil {
		return err
	}
	if ret == nil {
		return apperror.NewNotFoundError("Return")
	}

	if !isSuperAdmin && ret.UserID != userID {
		return apperror.ErrForbidden
	}

	if ret.Status != enum.ReturnStatusPending {
		return apperror.NewAppError(http.StatusBadRequest, "Return is not pending")
	}

	return s.returnRepo.UpdateStatus(ctx, returnID, enum.ReturnStatusRejected, userID)
}

// DeleteReturn deletes a pending return
func (s *SaleReturnService) DeleteReturn(ctx context.Context, userID, returnID uuid.UUID, isSuperAdmin bool) error {
	ret, err := s.returnRepo.GetByID(ctx, returnID)
	if err != nil {
		return err
	}
	if ret == nil {
		return apperror.NewNotFoundError("Return")
	}

	if !isSuperAdmin && ret.UserID != userID {
		return apperror.ErrForbidden
	}

	if ret.Status != enum.ReturnStatusPending {
		return apperror.NewAppError(http.StatusBadRequest, "Only pending returns can be deleted")
	}

	if err := s.returnItemRepo.DeleteByReturnID(ctx, returnID); err != nil {
		return err
	}

	return s.returnRepo.Delete(ctx, returnID)
}

// GetPendingReturns returns pending returns awaiting approval
func (s *SaleReturnService) GetPendingReturns(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.SaleReturn], error) {
	returns, total, err := s.returnRepo.GetPendingReturns(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(returns, pag), nil
}
