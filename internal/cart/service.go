package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printforge/printforge-backend/internal/inventory"
	"github.com/printforge/printforge-backend/internal/pricing"
	"github.com/printforge/printforge-backend/internal/settings"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// Service manages a customer's cart ahead of checkout.
type Service interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]models.CartItem, error)
	AddCatalogItem(ctx context.Context, ownerID uuid.UUID, input CatalogItemInput) (*models.CartItem, error)
	AddCustomItem(ctx context.Context, ownerID uuid.UUID, input CustomItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, ownerID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	Remove(ctx context.Context, ownerID, itemID uuid.UUID) error
}

// CatalogItemInput adds a stocked product to the cart. UnitPrice is the
// catalog price at add time, snapshotted onto the line.
type CatalogItemInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CustomItemInput adds a finalized design-session tee. Quantity is fixed at
// one; the price comes from the pricing configuration at finalize time.
type CustomItemInput struct {
	DesignSessionID uuid.UUID
	PrintPlacement  enums.PrintPlacement
	DesignImageRef  string
}

type service struct {
	repo      Repository
	inventory inventory.Repository
	settings  settings.Service
}

// NewService wires the cart service.
func NewService(repo Repository, inventoryRepo inventory.Repository, settingsSvc settings.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	return &service{repo: repo, inventory: inventoryRepo, settings: settingsSvc}, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]models.CartItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.FindByOwner(ctx, ownerID)
}

func (s *service) AddCatalogItem(ctx context.Context, ownerID uuid.UUID, input CatalogItemInput) (*models.CartItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	key := inventory.VariantKey{ProductID: input.ProductID, Size: input.Size, Color: input.Color}
	variant, err := s.inventory.FindVariant(ctx, key)
	if err != nil {
		return nil, err
	}
	if variant.StockCount < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for requested quantity").
			WithDetails(map[string]any{"product_id": input.ProductID, "available": variant.StockCount})
	}

	productID := input.ProductID
	item := &models.CartItem{
		OwnerID:   ownerID,
		ProductID: &productID,
		Size:      input.Size,
		Color:     input.Color,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice.Round(2),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return item, nil
}

func (s *service) AddCustomItem(ctx context.Context, ownerID uuid.UUID, input CustomItemInput) (*models.CartItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.DesignSessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "design session id required")
	}
	if !input.PrintPlacement.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "print placement must be front, back, or both")
	}
	if input.DesignImageRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "design image reference required")
	}

	cfg, err := s.settings.PricingConfig(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing configuration")
	}

	sessionID := input.DesignSessionID
	placement := input.PrintPlacement
	imageRef := input.DesignImageRef
	item := &models.CartItem{
		OwnerID:         ownerID,
		DesignSessionID: &sessionID,
		Quantity:        1,
		UnitPrice:       pricing.CustomUnitPrice(placement, cfg),
		PrintPlacement:  &placement,
		DesignImageRef:  &imageRef,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return item, nil
}

func (s *service) UpdateQuantity(ctx context.Context, ownerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	item, err := s.repo.FindByIDAndOwner(ctx, itemID, ownerID)
	if err != nil {
		return nil, err
	}
	if item.IsCustom() && quantity != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom design items are limited to quantity 1")
	}

	if err := s.repo.UpdateQuantity(ctx, itemID, ownerID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (s *service) Remove(ctx context.Context, ownerID, itemID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.Delete(ctx, itemID, ownerID)
}
