package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// CartItem is a customer's pending line. Catalog lines carry a product
// reference plus size/color; custom lines carry a finalized design session
// with quantity fixed at one. Unit price is snapshotted at add time.
type CartItem struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID         uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;index"`
	ProductID       *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	DesignSessionID *uuid.UUID            `gorm:"column:design_session_id;type:uuid"`
	Size            string                `gorm:"column:size"`
	Color           string                `gorm:"column:color"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal       `gorm:"column:unit_price;type:numeric(10,2);not null"`
	PrintPlacement  *enums.PrintPlacement `gorm:"column:print_placement;type:text"`
	DesignImageRef  *string               `gorm:"column:design_image_ref"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCustom reports whether the line came from the design pipeline.
func (c CartItem) IsCustom() bool {
	return c.DesignSessionID != nil
}

func (c *CartItem) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
