package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db/models"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// VariantKey identifies one stocked (product, size, color) combination.
type VariantKey struct {
	ProductID uuid.UUID
	Size      string
	Color     string
}

// Repository is the stock ledger. Decrements are conditional writes so the
// count can never go below zero regardless of interleaving.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariant(ctx context.Context, key VariantKey) (*models.InventoryVariant, error)
	CheckAndDecrement(ctx context.Context, key VariantKey, qty int) error
	Increment(ctx context.Context, key VariantKey, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVariant(ctx context.Context, key VariantKey) (*models.InventoryVariant, error) {
	var variant models.InventoryVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND size = ? AND color = ?", key.ProductID, key.Size, key.Color).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory variant")
	}
	return &variant, nil
}

// CheckAndDecrement removes qty units if and only if the variant still holds
// at least qty. Zero rows affected means a concurrent buyer got there first.
func (r *repository) CheckAndDecrement(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "decrement quantity must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_variants
		SET stock_count = stock_count - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND size = ? AND color = ? AND stock_count >= ?
	`, qty, key.ProductID, key.Size, key.Color, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock at commit time")
	}
	return nil
}

// Increment restores qty units additively. It never overwrites the counter
// with an absolute value, so concurrent restores cannot lose stock.
func (r *repository) Increment(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "increment quantity must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_variants
		SET stock_count = stock_count + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND size = ? AND color = ?
	`, qty, key.ProductID, key.Size, key.Color)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory variant not found")
	}
	return nil
}
