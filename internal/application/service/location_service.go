package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukapos/dukapos-api/internal/domain/entity"
	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	infraRepo "github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/pkg/apperror"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

// LocationService handles store location operations
type LocationService struct {
	locationRepo repository.LocationRepository
	stockRepo    repository.StockLevelRepository
}

// NewLocationService creates a new location service
func NewLocationService(locationRepo repository.LocationRepository, stockRepo repository.StockLevelRepository) *LocationService {
	return &LocationService{locationRepo: locationRepo, stockRepo: stockRepo}
}

// CreateLocationInput represents the create location input
type CreateLocationInput struct {
	UserID    uuid.UUID
	Name      string
	Code      string
	Phone     *string
	Address   *string
	IsDefault bool
}

// CreateLocation creates a new location. The first location a tenant creates
// becomes the default automatically.
func (s *LocationService) CreateLocation(ctx context.Context, input *CreateLocationInput) (*entity.Location, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	existing, err := s.locationRepo.GetByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("A location with this code already exists")
	}

	isDefault := input.IsDefault
	if !isDefault {
		current, err := s.locationRepo.GetDefault(ctx)
		if err != nil {
			return nil, err
		}
		isDefault = current == nil
	}

	location := &entity.Location{
		TenantID:  tenantID,
		UserID:    input.UserID,
		Name:      input.Name,
		Code:      input.Code,
		Phone:     input.Phone,
		Address:   input.Address,
		IsDefault: isDefault,
		IsActive:  true,
	}

	if err := s.locationRepo.Create(ctx, location); err != nil {
		return nil, err
	}

	if input.IsDefault {
		if err := s.locationRepo.SetDefault(ctx, location.ID); err != nil {
			return nil, err
		}
	}

	return location, nil
}

// GetLocation retrieves a location by ID
func (s *LocationService) GetLocation(ctx context.Context, id uuid.UUID) (*entity.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, apperror.NewNotFoundError("Location")
	}
	return location, nil
}

// ListLocations lists locations with optional search
func (s *LocationService) ListLocations(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, isSuperAdmin bool) (*pagination.PaginatedResult[entity.Location], error) {
	locations, total, err := s.locationRepo.List(ctx, userID, params, search, isSuperAdmin)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(locations, pag), nil
}

// UpdateLocationInput represents the update location input
type UpdateLocationInput struct {
	ID       uuid.UUID
	Name     *string
	Phone    *string
	Address  *string
	IsActive *bool
}

// UpdateLocation updates a location
func (s *LocationService) UpdateLocation(ctx context.Context, input *UpdateLocationInput) (*entity.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, apperror.NewNotFoundError("Location")
	}

	if input.Name != nil {
		location.Name = *input.Name
	}
	if input.Phone != nil {
		location.Phone = input.Phone
	}
	if input.Address != nil {
		location.Address = input.Address
	}
	if input.IsActive != nil {
		if !*input.IsActive && location.IsDefault {
			return nil, apperror.NewUnprocessableError("The default location cannot be deactivated")
		}
		location.IsActive = *input.IsActive
	}

	if err := s.locationRepo.Update(ctx, location); err != nil {
		return nil, err
	}

	return location, nil
}

// SetDefaultLocation makes the given location the tenant default
func (s *LocationService) SetDefaultLocation(ctx context.Context, id uuid.UUID) error {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if location == nil {
		return apperror.NewNotFoundError("Location")
	}
	if !location.IsActive {
		return apperror.NewUnprocessableError("An inactive location cannot be the default")
	}

	return s.locationRepo.SetDefault(ctx, id)
}

// DeleteLocation deletes a location. The default location and locations
// still holding stock cannot be deleted.
func (s *LocationService) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if location == nil {
		return apperror.NewNotFoundError("Location")
	}
	if location.IsDefault {
		return apperror.NewUnprocessableError("The default location cannot be deleted")
	}

	levels, err := s.stockRepo.GetByLocation(ctx, id)
	if err != nil {
		return err
	}
	for _, level := range levels {
		if level.Quantity > 0 {
			return apperror.NewUnprocessableError("Location still holds stock")
		}
	}

	return s.locationRepo.Delete(ctx, id)
}

// GetLocationStock returns per-product stock at a location
func (s *LocationService) GetLocationStock(ctx context.Context, id uuid.UUID) ([]entity.StockLevel, error) {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, apperror.NewNotFoundError("Location")
	}
	return s.stockRepo.GetByLocation(ctx, id)
}

// PaymentMethodService manages the tender types a tenant accepts
type PaymentMethodService struct {
	methodRepo repository.PaymentMethodRepository
}

// NewPaymentMethodService creates a new payment method service
func NewPaymentMethodService(methodRepo repository.PaymentMethodRepository) *PaymentMethodService {
	return &PaymentMethodService{methodRepo: methodRepo}
}

// CreatePaymentMethodInput represents the create payment method input
type CreatePaymentMethodInput struct {
	Code              enum.PaymentMethod
	Name              string
	RequiresReference bool
	SortOrder         int
}

// CreatePaymentMethod enables a tender type for the tenant
func (s *PaymentMethodService) CreatePaymentMethod(ctx context.Context, input *CreatePaymentMethodInput) (*entity.PaymentMethod, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	method := &entity.PaymentMethod{
		TenantID:          tenantID,
		Code:              input.Code,
		Name:              input.Name,
		RequiresReference: input.RequiresReference,
		IsActive:          true,
		SortOrder:         input.SortOrder,
	}

	if err := s.methodRepo.Create(ctx, method); err != nil {
		return nil, err
	}

	return method, nil
}

// ListPaymentMethods lists all configured tender types
func (s *PaymentMethodService) ListPaymentMethods(ctx context.Context) ([]entity.PaymentMethod, error) {
	return s.methodRepo.List(ctx)
}

// UpdatePaymentMethodInput represents the update payment method input
type UpdatePaymentMethodInput struct {
	ID                uuid.UUID
	Name              *string
	RequiresReference *bool
	IsActive          *bool
	SortOrder         *int
}

// UpdatePaymentMethod updates a tender type
func (s *PaymentMethodService) UpdatePaymentMethod(ctx context.Context, input *UpdatePaymentMethodInput) (*entity.PaymentMethod, error) {
	method, err := s.methodRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, apperror.NewNotFoundError("Payment method")
	}

	if input.Name != nil {
		method.Name = *input.Name
	}
	if input.RequiresReference != nil {
		method.RequiresReference = *input.RequiresReference
	}
	if input.IsActive != nil {
		method.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		method.SortOrder = *input.SortOrder
	}

	if err := s.methodRepo.Update(ctx, method); err != nil {
		return nil, err
	}

	return method, nil
}

// DeletePaymentMethod removes a tender type from the tenant's catalog
func (s *PaymentMethodService) DeletePaymentMethod(ctx context.Context, id uuid.UUID) error {
	method, err := s.methodRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if method == nil {
		return apperror.NewNotFoundError("Payment method")
	}

	return s.methodRepo.Delete(ctx, id)
}
