package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryVariant tracks stock per (product, size, color). StockCount never
// goes below zero; decrements are guarded SQL, not read-modify-write.
type InventoryVariant struct {
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Size       string    `gorm:"column:size;primaryKey"`
	Color      string    `gorm:"column:color;primaryKey"`
	StockCount int       `gorm:"column:stock_count;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
