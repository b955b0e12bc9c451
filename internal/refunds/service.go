package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/inventory"
	"github.com/printforge/printforge-backend/internal/orders"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
	"github.com/printforge/printforge-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentRefunder interface {
	RefundPayment(ctx context.Context, params square.RefundCreateParams) (*square.RefundResult, error)
}

// Input requests a full refund of one order.
type Input struct {
	OrderID uuid.UUID
	Reason  string
}

// Result reports a committed refund. StockRestored counts the catalog units
// returned to inventory; custom lines restore nothing.
type Result struct {
	Order         *models.Order
	OwnerID       uuid.UUID
	RefundID      string
	StockRestored int
}

// Orders in any of these statuses may be refunded. Delivered goods are
// final-sale; refunded is terminal.
var refundableStatuses = []enums.OrderStatus{
	enums.OrderStatusPaid,
	enums.OrderStatusProcessing,
	enums.OrderStatusShipped,
}

// Service reverses a paid order: refund the charge at the gateway, then in
// one transaction mark the order refunded and return its catalog units to
// stock. Session fees are separate payments and are never touched here.
type Service interface {
	Refund(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	runner    txRunner
	orders    orders.Repository
	inventory inventory.Repository
	refunder  paymentRefunder
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService wires the refund service.
func NewService(
	runner txRunner,
	ordersRepo orders.Repository,
	inventoryRepo inventory.Repository,
	refunder paymentRefunder,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("payment refunder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		runner:    runner,
		orders:    ordersRepo,
		inventory: inventoryRepo,
		refunder:  refunder,
		metrics:   checkoutMetrics,
		logg:      logg,
	}, nil
}

func (s *service) Refund(ctx context.Context, input Input) (*Result, error) {
	result, err := s.refund(ctx, input)
	if err != nil {
		s.metrics.IncRefundFailure(string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncRefundSuccess()
	return result, nil
}

func (s *service) refund(ctx context.Context, input Input) (*Result, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := checkRefundable(order); err != nil {
		return nil, err
	}

	payment, err := s.orders.FindPaymentByID(ctx, order.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Type != enums.PaymentTypeOrderPayment {
		return nil, pkgerrors.New(pkgerrors.CodeNotRefundable,
			"payment on record is not an order payment").
			WithDetails(map[string]any{"payment_type": payment.Type.String()})
	}

	// The idempotency key is derived from the order, so a retried or racing
	// refund replays the same gateway refund instead of issuing a second one.
	gatewayResult, err := s.refunder.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:      order.PaymentID,
		AmountCents:    order.Total.Shift(2).IntPart(),
		Currency:       "USD",
		Reason:         input.Reason,
		IdempotencyKey: "refund-" + order.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	restored := 0
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		inventoryRepo := s.inventory.WithTx(tx)

		// Guard on the whole refund-eligible set rather than the status
		// snapshot read before the gateway call: a concurrent fulfillment
		// step (paid to processing, processing to shipped) must not strand
		// an already-issued gateway refund.
		now := time.Now().UTC()
		landed, err := ordersRepo.UpdateStatusGuardedIn(ctx, order.ID, refundableStatuses, map[string]any{
			"status":        enums.OrderStatusRefunded,
			"refund_id":     gatewayResult.RefundID,
			"refund_amount": order.Total,
			"refunded_at":   now,
		})
		if err != nil {
			return err
		}
		if !landed {
			current, reloadErr := ordersRepo.FindByID(ctx, order.ID)
			if reloadErr != nil {
				return reloadErr
			}
			if checkErr := checkRefundable(current); checkErr != nil {
				return checkErr
			}
			return pkgerrors.New(pkgerrors.CodeConflict,
				"order state changed while refunding")
		}

		for _, item := range order.Items {
			if !item.IsCatalog() {
				continue
			}
			key := inventory.VariantKey{ProductID: *item.ProductID, Size: item.Size, Color: item.Color}
			if err := inventoryRepo.Increment(ctx, key, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
			restored += item.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	refunded, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"refund_id":      gatewayResult.RefundID,
		"stock_restored": restored,
	}), "refund committed")

	return &Result{
		Order:         refunded,
		OwnerID:       refunded.OwnerID,
		RefundID:      gatewayResult.RefundID,
		StockRestored: restored,
	}, nil
}

func checkRefundable(order *models.Order) error {
	switch order.Status {
	case enums.OrderStatusRefunded:
		return pkgerrors.New(pkgerrors.CodeAlreadyRefunded, "order already refunded")
	case enums.OrderStatusDelivered:
		return pkgerrors.New(pkgerrors.CodeNotRefundable,
			"delivered orders cannot be refunded").
			WithDetails(map[string]any{"status": order.Status.String()})
	default:
		return nil
	}
}
