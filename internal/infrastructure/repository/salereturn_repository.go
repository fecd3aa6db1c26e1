package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	domainRepo "github.com/dukapos/dukapos-api/internal/domain/repository"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

type saleReturnRepository struct {
	db *gorm.DB
}

// NewSaleReturnRepository creates a new sale return repository
func NewSaleReturnRepository(db *gorm.DB) domainRepo.SaleReturnRepository {
	return &saleReturnRepository{db: db}
}

func (r *saleReturnRepository) Create(ctx context.Context, ret *entity.SaleReturn) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *saleReturnRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error) {
	var ret entity.SaleReturn
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Sale").
		Preload("ApprovedBy").
		First(&ret, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ret, err
}

func (r *saleReturnRepository) GetByReturnNo(ctx context.Context, returnNo string) (*entity.SaleReturn, error) {
	var ret entity.SaleReturn
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).First(&ret, "return_no = ?", returnNo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ret, err
}

func (r *saleReturnRepository) Update(ctx context.Context, ret *entity.SaleReturn) error {
	return r.db.WithContext(ctx).Save(ret).Error
}

func (r *saleReturnRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.SaleReturn{}, "id = ?", id).Error
}

func (r *saleReturnRepository) List(ctx context.Context, userID uuid.UUID, params *domainRepo.SaleReturnFilterParams) ([]entity.SaleReturn, int64, error) {
	var returns []entity.SaleReturn
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SaleReturn{}).Scopes(TenantScope(ctx))
	if !params.SkipUserFilter {
		query = query.Where("user_id = ?", userID)
	}

	if params.Search != "" {
		query = query.Where("return_no ILIKE ?", "%"+params.Search+"%")
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.SaleID != nil {
		query = query.Where("sale_id = ?", *params.SaleID)
	}

	if params.StartDate != nil {
		query = query.Where("date >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("date <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sorting
	sortBy := "created_at"
	sortOrder := "DESC"
	if params.SortBy != "" {
		sortBy = params.SortBy
	}
	if params.SortOrder != "" && (params.SortOrder == "ASC" || params.SortOrder == "asc") {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Sale").
		Order(sortBy + " " + sortOrder).
		Find(&returns).Error

	return returns, total, err
}

func (r *saleReturnRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error) {
	var ret entity.SaleReturn
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Sale").
		Preload("Sale.Customer").
		Preload("ApprovedBy").
		Preload("Items.Product").
		Preload("Items.SaleItem").
		First(&ret, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ret, err
}

func (r *saleReturnRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReturnStatus, approvedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.SaleReturn{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"approved_by": approvedBy,
		}).Error
}

func (r *saleReturnRepository) GetPendingReturns(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams) ([]entity.SaleReturn, int64, error) {
	var returns []entity.SaleReturn
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SaleReturn{}).Scopes(TenantScope(ctx)).
		Where("status = ?", enum.ReturnStatusPending)
	if userID != uuid.Nil {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Preload("Sale").
		Order("created_at DESC").
		Find(&returns).Error

	return returns, total, err
}

type saleReturnItemRepository struct {
	db *gorm.DB
}

// NewSaleReturnItemRepository creates a new return item repository
func NewSaleReturnItemRepository(db *gorm.DB) domainRepo.SaleReturnItemRepository {
	return &saleReturnItemRepository{db: db}
}

func (r *saleReturnItemRepository) Create(ctx context.Context, item *entity.SaleReturnItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *saleReturnItemRepository) CreateBatch(ctx context.Context, items []entity.SaleReturnItem) error {
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *saleReturnItemRepository) GetByReturnID(ctx context.Context, returnID uuid.UUID) ([]entity.SaleReturnItem, error) {
	var items []entity.SaleReturnItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("return_id = ?", returnID).
		Find(&items).Error
	return items, err
}

func (r *saleReturnItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.SaleReturnItem{}, "id = ?", id).Error
}

func (r *saleReturnItemRepository) DeleteByReturnID(ctx context.Context, returnID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.SaleReturnItem{}, "return_id = ?", returnID).Error
}
