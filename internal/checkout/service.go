package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/cart"
	"github.com/printforge/printforge-backend/internal/inventory"
	"github.com/printforge/printforge-backend/internal/orders"
	"github.com/printforge/printforge-backend/internal/pricing"
	"github.com/printforge/printforge-backend/internal/settings"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
	"github.com/printforge/printforge-backend/pkg/square"
	"github.com/printforge/printforge-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentCharger interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*square.PaymentResult, error)
}

// Input is one checkout attempt for the identified customer.
type Input struct {
	OwnerID         uuid.UUID
	ShippingAddress types.Address
	PaymentSourceID string
	CustomerID      string
}

// Result is a committed checkout: the order with its line snapshots loaded.
type Result struct {
	Order *models.Order
}

// Service converts a cart into a paid order in one attempt: validate, price,
// capture, then a single transaction for the order, its lines, the payment
// record, the stock decrements, and the cart clear.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	runner    txRunner
	carts     cart.Repository
	orders    orders.Repository
	inventory inventory.Repository
	charger   paymentCharger
	settings  settings.Service
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService wires the checkout coordinator.
func NewService(
	runner txRunner,
	carts cart.Repository,
	ordersRepo orders.Repository,
	inventoryRepo inventory.Repository,
	charger paymentCharger,
	settingsSvc settings.Service,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if charger == nil {
		return nil, fmt.Errorf("payment charger required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		runner:    runner,
		carts:     carts,
		orders:    ordersRepo,
		inventory: inventoryRepo,
		charger:   charger,
		settings:  settingsSvc,
		metrics:   checkoutMetrics,
		logg:      logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	result, err := s.checkout(ctx, input)
	if err != nil {
		s.metrics.IncCheckoutFailure(string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncCheckoutSuccess()
	return result, nil
}

func (s *service) checkout(ctx context.Context, input Input) (*Result, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ctx = s.logg.WithUserID(ctx, input.OwnerID.String())

	addr := input.ShippingAddress.Normalized()
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	if input.PaymentSourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	items, err := s.carts.FindByOwner(ctx, input.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	requirements := aggregateStock(items)
	if err := s.precheckStock(ctx, requirements); err != nil {
		return nil, err
	}

	cfg, err := s.settings.PricingConfig(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing configuration")
	}
	quote := pricing.Calculate(toLineItems(items), cfg)

	// Capture before commit. A stock race between here and the decrement
	// leaves a charge with no order; that case is counted and logged for
	// reconciliation rather than auto-reversed.
	payment, err := s.charger.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: quote.Total.Shift(2).IntPart(),
		Currency:    "USD",
		SourceID:    input.PaymentSourceID,
		CustomerID:  input.CustomerID,
		Note:        "printforge order",
		ReferenceID: input.OwnerID.String(),
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OwnerID:         input.OwnerID,
		Status:          enums.OrderStatusPaid,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		ShippingCost:    quote.ShippingCost,
		Total:           quote.Total,
		ShippingAddress: addr,
		PaymentID:       payment.PaymentID,
		ItemCount:       quote.ItemCount,
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		inventoryRepo := s.inventory.WithTx(tx)
		cartsRepo := s.carts.WithTx(tx)

		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := ordersRepo.CreateItems(ctx, snapshotItems(order.ID, items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := ordersRepo.CreatePayment(ctx, &models.Payment{
			ID:      payment.PaymentID,
			OwnerID: input.OwnerID,
			OrderID: &order.ID,
			Type:    enums.PaymentTypeOrderPayment,
			Amount:  quote.Total,
			Status:  enums.PaymentStatusSucceeded,
		}); err != nil {
			return err
		}
		for _, req := range requirements {
			if err := inventoryRepo.CheckAndDecrement(ctx, req.key, req.quantity); err != nil {
				return err
			}
		}
		if err := cartsRepo.DeleteByOwner(ctx, input.OwnerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStockConflict) {
			s.metrics.IncOrphanedCharge()
			reconCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id":   payment.PaymentID,
				"amount":       quote.Total.String(),
				"charge_state": "captured_without_order",
			})
			s.logg.Error(reconCtx, "checkout lost stock race after capture; payment needs reconciliation", err)
		}
		return nil, err
	}

	committed, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "checkout committed")
	return &Result{Order: committed}, nil
}

type stockRequirement struct {
	key      inventory.VariantKey
	quantity int
}

// aggregateStock sums catalog quantities per variant so two cart lines for
// the same variant are checked and decremented as one requirement.
func aggregateStock(items []models.CartItem) []stockRequirement {
	var order []inventory.VariantKey
	totals := map[inventory.VariantKey]int{}
	for _, item := range items {
		if item.IsCustom() || item.ProductID == nil {
			continue
		}
		key := inventory.VariantKey{ProductID: *item.ProductID, Size: item.Size, Color: item.Color}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += item.Quantity
	}
	out := make([]stockRequirement, len(order))
	for i, key := range order {
		out[i] = stockRequirement{key: key, quantity: totals[key]}
	}
	return out
}

func (s *service) precheckStock(ctx context.Context, requirements []stockRequirement) error {
	var shortages []map[string]any
	for _, req := range requirements {
		variant, err := s.inventory.FindVariant(ctx, req.key)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				shortages = append(shortages, shortageDetail(req, 0))
				continue
			}
			return err
		}
		if variant.StockCount < req.quantity {
			shortages = append(shortages, shortageDetail(req, variant.StockCount))
		}
	}
	if len(shortages) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for cart").
			WithDetails(map[string]any{"shortages": shortages})
	}
	return nil
}

func shortageDetail(req stockRequirement, available int) map[string]any {
	return map[string]any{
		"product_id": req.key.ProductID.String(),
		"size":       req.key.Size,
		"color":      req.key.Color,
		"requested":  req.quantity,
		"available":  available,
	}
}

func toLineItems(items []models.CartItem) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	for i, item := range items {
		out[i] = pricing.LineItem{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	return out
}

func snapshotItems(orderID uuid.UUID, items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, item := range items {
		out[i] = models.OrderItem{
			OrderID:         orderID,
			ProductID:       item.ProductID,
			DesignSessionID: item.DesignSessionID,
			Size:            item.Size,
			Color:           item.Color,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			LineTotal:       pricing.LineTotal(item.UnitPrice, item.Quantity),
			PrintPlacement:  item.PrintPlacement,
			DesignImageRef:  item.DesignImageRef,
		}
	}
	return out
}
