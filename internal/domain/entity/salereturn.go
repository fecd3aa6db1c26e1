package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// SaleReturn represents goods returned against a completed sale
type SaleReturn struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	TenantID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID       uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	SaleID       uuid.UUID          `gorm:"type:uuid;not null;index" json:"sale_id"`
	ApprovedByID *uuid.UUID         `gorm:"type:uuid;column:approved_by" json:"approved_by,omitempty"`
	Date         time.Time          `gorm:"type:date;not null" json:"date"`
	ReturnNo     string             `gorm:"size:100;unique;not null" json:"return_no"`
	Status       enum.ReturnStatus  `gorm:"default:0" json:"status"`
	RefundMethod enum.PaymentMethod `gorm:"size:50" json:"refund_method"`
	TotalAmount  decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"total_amount"`
	Reason       *string            `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	DeletedAt    gorm.DeletedAt     `gorm:"index" json:"-"`

	// Relationships
	Tenant     Tenant           `gorm:"foreignKey:TenantID" json:"-"`
	User       User             `gorm:"foreignKey:UserID" json:"-"`
	Sale       Sale             `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
	ApprovedBy *User            `gorm:"foreignKey:ApprovedByID" json:"approved_by_user,omitempty"`
	Items      []SaleReturnItem `gorm:"foreignKey:ReturnID" json:"items,omitempty"`
}

// BeforeCreate generates a UUID before creating a new return
func (r *SaleReturn) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SaleReturn model
func (SaleReturn) TableName() string {
	return "sale_returns"
}

// SaleReturnItem represents a returned line item
type SaleReturnItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ReturnID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"return_id"`
	SaleItemID uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_item_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	Total      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Return   SaleReturn `gorm:"foreignKey:ReturnID" json:"-"`
	SaleItem SaleItem   `gorm:"foreignKey:SaleItemID" json:"-"`
	Product  Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// BeforeCreate generates a UUID before creating a new return item
func (ri *SaleReturnItem) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SaleReturnItem model
func (SaleReturnItem) TableName() string {
	return "sale_return_items"
}
