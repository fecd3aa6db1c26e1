package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

// SaleReturnRepository defines the interface for sale return data operations
type SaleReturnRepository interface {
	Create(ctx context.Context, ret *entity.SaleReturn) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error)
	GetByReturnNo(ctx context.Context, returnNo string) (*entity.SaleReturn, error)
	Update(ctx context.Context, ret *entity.SaleReturn) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params *SaleReturnFilterParams) ([]entity.SaleReturn, int64, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.SaleReturn, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReturnStatus, approvedBy uuid.UUID) error
	GetPendingReturns(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams) ([]entity.SaleReturn, int64, error)
}

// SaleReturnFilterParams contains filtering parameters for return queries
type SaleReturnFilterParams struct {
	Pagination     *pagination.PaginationParams
	Search         string
	Status         *enum.ReturnStatus
	SaleID         *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	SortBy         string
	SortOrder      string
	SkipUserFilter bool // If true, returns all returns (for super-admin)
}

// SaleReturnItemRepository defines the interface for return item data operations
type SaleReturnItemRepository interface {
	Create(ctx context.Context, item *entity.SaleReturnItem) error
	CreateBatch(ctx context.Context, items []entity.SaleReturnItem) error
	GetByReturnID(ctx context.Context, returnID uuid.UUID) ([]entity.SaleReturnItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByReturnID(ctx context.Context, returnID uuid.UUID) error
}
