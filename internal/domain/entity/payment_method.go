package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
)

// PaymentMethod represents a tender type a tenant accepts at checkout.
// The seeded defaults cover cash, card and customer credit; tenants can
// enable additional methods such as mobile money.
type PaymentMethod struct {
	ID                uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	TenantID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Code              enum.PaymentMethod `gorm:"size:50;not null" json:"code"`
	Name              string             `gorm:"size:100;not null" json:"name"`
	RequiresReference bool               `gorm:"default:false" json:"requires_reference"`
	IsActive          bool               `gorm:"default:true" json:"is_active"`
	SortOrder         int                `gorm:"default:0" json:"sort_order"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"-"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new payment method
func (pm *PaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the PaymentMethod model
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
