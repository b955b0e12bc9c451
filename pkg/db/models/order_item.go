package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// OrderItem is the immutable line snapshot written with its order. Exactly one
// of ProductID and DesignSessionID is set.
type OrderItem struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	DesignSessionID *uuid.UUID            `gorm:"column:design_session_id;type:uuid"`
	Size            string                `gorm:"column:size"`
	Color           string                `gorm:"column:color"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal       `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal       decimal.Decimal       `gorm:"column:line_total;type:numeric(10,2);not null"`
	PrintPlacement  *enums.PrintPlacement `gorm:"column:print_placement;type:text"`
	DesignImageRef  *string               `gorm:"column:design_image_ref"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// IsCatalog reports whether the line references stocked inventory.
func (i OrderItem) IsCatalog() bool {
	return i.ProductID != nil
}

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
