package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	CategoryID    *uuid.UUID      `json:"category_id"`
	UnitID        *uuid.UUID      `json:"unit_id"`
	Name          string          `json:"name" binding:"required,min=2,max=255"`
	Code          string          `json:"code" binding:"omitempty,max=100"`
	Quantity      int             `json:"quantity" binding:"min=0"`
	QuantityAlert int             `json:"quantity_alert" binding:"min=0"`
	BuyingPrice   decimal.Decimal `json:"buying_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxType       int             `json:"tax_type" binding:"min=0,max=1"`
	Notes         *string         `json:"notes"`
}

// UpdateProductRequest represents a product update request
type UpdateProductRequest struct {
	CategoryID    *uuid.UUID       `json:"category_id"`
	UnitID        *uuid.UUID       `json:"unit_id"`
	Name          *string          `json:"name" binding:"omitempty,min=2,max=255"`
	Code          *string          `json:"code" binding:"omitempty,min=1,max=100"`
	Quantity      *int             `json:"quantity" binding:"omitempty,min=0"`
	QuantityAlert *int             `json:"quantity_alert" binding:"omitempty,min=0"`
	BuyingPrice   *decimal.Decimal `json:"buying_price"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	TaxType       *int             `json:"tax_type" binding:"omitempty,min=0,max=1"`
	Notes         *string          `json:"notes"`
}

// CreateVariantRequest represents a product variant creation request
type CreateVariantRequest struct {
	Name         string           `json:"name" binding:"required,min=1,max=255"`
	SKU          string           `json:"sku" binding:"required,min=1,max=100"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
}

// SetStockLevelRequest represents a per-location stock adjustment request
type SetStockLevelRequest struct {
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	Quantity   int       `json:"quantity"`
}

// ProductFilterRequest represents product filter parameters
type ProductFilterRequest struct {
	Search     string `form:"search"`
	CategoryID string `form:"category_id"`
	UnitID     string `form:"unit_id"`
	LowStock   bool   `form:"low_stock"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
	Page       int    `form:"page"`
	PerPage    int    `form:"per_page"`
	Limit      int    `form:"limit"` // For cursor-based pagination
}
