package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// Sale represents a completed or pending point-of-sale transaction
type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	LocationID     *uuid.UUID      `gorm:"type:uuid;index" json:"location_id,omitempty"`
	SaleDate       time.Time       `gorm:"type:date;not null" json:"sale_date"`
	InvoiceNo      string          `gorm:"size:100;unique;not null" json:"invoice_no"`
	Status         enum.SaleStatus `gorm:"default:0" json:"status"`
	TotalItems     int             `gorm:"default:0" json:"total_items"`
	SubTotal       decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"sub_total"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"discount_amount"`
	TaxMode        enum.TaxType    `gorm:"default:0" json:"tax_mode"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"tax_amount"`
	ShippingAmount decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"shipping_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"amount_paid"`
	AmountDue      decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"amount_due"`
	ChangeGiven    decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"change_given"`
	Note           *string         `gorm:"type:text" json:"note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Tenant   Tenant        `gorm:"foreignKey:TenantID" json:"-"`
	User     User          `gorm:"foreignKey:UserID" json:"-"`
	Customer *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Location *Location     `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Items    []SaleItem    `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	Payments []SalePayment `gorm:"foreignKey:SaleID" json:"payments,omitempty"`
}

// BeforeCreate generates a UUID before creating a new sale
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Sale model
func (Sale) TableName() string {
	return "sales"
}

// IsCreditSale reports whether any part of the sale was settled on
// customer credit.
func (s *Sale) IsCreditSale() bool {
	for _, p := range s.Payments {
		if p.Method == enum.PaymentMethodCredit {
			return true
		}
	}
	return false
}

// SaleItem represents a line item in a sale
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	VariantID *uuid.UUID      `gorm:"type:uuid;index" json:"variant_id,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	Total     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Sale    Sale            `gorm:"foreignKey:SaleID" json:"-"`
	Product Product         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

// BeforeCreate generates a UUID before creating a new sale item
func (si *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SaleItem model
func (SaleItem) TableName() string {
	return "sale_items"
}

// SalePayment represents a single settlement against a sale. A sale may
// carry several payments with different methods.
type SalePayment struct {
	ID        uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	SaleID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"sale_id"`
	Method    enum.PaymentMethod `gorm:"size:50;not null" json:"method"`
	Amount    decimal.Decimal    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reference string             `gorm:"size:255" json:"reference"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt gorm.DeletedAt     `gorm:"index" json:"-"`

	// Relationships
	Sale Sale `gorm:"foreignKey:SaleID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new sale payment
func (sp *SalePayment) BeforeCreate(tx *gorm.DB) error {
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SalePayment model
func (SalePayment) TableName() string {
	return "sale_payments"
}
