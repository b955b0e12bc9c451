package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/enums"
	"github.com/printforge/printforge-backend/pkg/types"
)

// Order is the durable record produced by a successful checkout. Orders are
// never deleted; refunds and shipment progress mutate status fields only.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID         uuid.UUID         `gorm:"column:owner_id;type:uuid;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'paid'"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Tax             decimal.Decimal   `gorm:"column:tax;type:numeric(10,2);not null"`
	ShippingCost    decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(10,2);not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null"`
	ShippingAddress types.Address     `gorm:"embedded;embeddedPrefix:ship_"`
	PaymentID       string            `gorm:"column:payment_id;not null"`
	ItemCount       int               `gorm:"column:item_count;not null"`
	TrackingNumber  *string           `gorm:"column:tracking_number"`
	RefundID        *string           `gorm:"column:refund_id"`
	RefundAmount    *decimal.Decimal  `gorm:"column:refund_amount;type:numeric(10,2)"`
	ShippedAt       *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	RefundedAt      *time.Time        `gorm:"column:refunded_at"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
