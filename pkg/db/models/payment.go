package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// Payment records a captured gateway charge. The primary key is the gateway's
// charge identifier, so a replayed capture collides instead of duplicating.
// OrderID is nil for standalone design-session fees.
type Payment struct {
	ID        string              `gorm:"column:id;primaryKey"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	Type      enums.PaymentType   `gorm:"column:type;type:text;not null"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Status    enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'succeeded'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
