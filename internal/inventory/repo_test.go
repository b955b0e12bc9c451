package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db/models"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryVariant{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, key VariantKey, stock int) {
	t.Helper()
	err := db.Create(&models.InventoryVariant{
		ProductID:  key.ProductID,
		Size:       key.Size,
		Color:      key.Color,
		StockCount: stock,
	}).Error
	if err != nil {
		t.Fatalf("seed variant: %v", err)
	}
}

func TestCheckAndDecrement(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	key := VariantKey{ProductID: uuid.New(), Size: "M", Color: "black"}
	seedVariant(t, db, key, 3)

	if err := repo.CheckAndDecrement(ctx, key, 2); err != nil {
		t.Fatalf("first decrement: %v", err)
	}

	// Second buyer wants 2 but only 1 remains: the guarded UPDATE must reject
	// without ever driving the count negative.
	err := repo.CheckAndDecrement(ctx, key, 2)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStockConflict) {
		t.Fatalf("expected stock conflict, got %v", err)
	}

	variant, err := repo.FindVariant(ctx, key)
	if err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockCount != 1 {
		t.Fatalf("expected stock 1, got %d", variant.StockCount)
	}
}

func TestCheckAndDecrementConservesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	key := VariantKey{ProductID: uuid.New(), Size: "L", Color: "white"}
	seedVariant(t, db, key, 5)

	granted := 0
	for i := 0; i < 10; i++ {
		if err := repo.CheckAndDecrement(ctx, key, 1); err == nil {
			granted++
		}
	}
	if granted != 5 {
		t.Fatalf("expected exactly 5 grants against stock 5, got %d", granted)
	}

	variant, err := repo.FindVariant(ctx, key)
	if err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockCount != 0 {
		t.Fatalf("expected zero stock, got %d", variant.StockCount)
	}
}

func TestCheckAndDecrementConcurrentBuyers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	// One connection keeps sqlite from throwing lock errors; the guarded
	// UPDATE still races at the statement level, which is what matters.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	ctx := context.Background()
	key := VariantKey{ProductID: uuid.New(), Size: "M", Color: "navy"}
	seedVariant(t, db, key, 5)

	const buyers = 8
	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.CheckAndDecrement(ctx, key, 1); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != 5 {
		t.Fatalf("expected exactly 5 of %d buyers granted against stock 5, got %d", buyers, got)
	}
	variant, err := repo.FindVariant(ctx, key)
	if err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockCount != 0 {
		t.Fatalf("expected zero stock, got %d", variant.StockCount)
	}
}

func TestCheckAndDecrementInvalidQty(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	err := repo.CheckAndDecrement(context.Background(), VariantKey{ProductID: uuid.New()}, 0)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIncrementIsAdditive(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	key := VariantKey{ProductID: uuid.New(), Size: "S", Color: "red"}
	seedVariant(t, db, key, 4)

	if err := repo.Increment(ctx, key, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}

	variant, err := repo.FindVariant(ctx, key)
	if err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockCount != 6 {
		t.Fatalf("expected additive restore to 6, got %d", variant.StockCount)
	}
}

func TestIncrementUnknownVariant(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	err := repo.Increment(context.Background(), VariantKey{ProductID: uuid.New(), Size: "M", Color: "blue"}, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindVariantNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	_, err := repo.FindVariant(context.Background(), VariantKey{ProductID: uuid.New(), Size: "M", Color: "blue"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithTxUsesTransactionHandle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	key := VariantKey{ProductID: uuid.New(), Size: "M", Color: "green"}
	seedVariant(t, db, key, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).CheckAndDecrement(ctx, key, 2)
	})
	if err != nil {
		t.Fatalf("tx decrement: %v", err)
	}

	variant, err := repo.FindVariant(ctx, key)
	if err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockCount != 0 {
		t.Fatalf("expected stock 0, got %d", variant.StockCount)
	}
}
