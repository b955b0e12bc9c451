package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/notifications"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

// allowedTransitions is the fulfillment lifecycle. Refunds are excluded on
// purpose; an order only reaches refunded through the refund flow, which
// writes the status together with its stock restores.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPaid:       {enums.OrderStatusProcessing},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

// AllowedTargets returns the statuses an order in the given status may move
// to through the fulfillment surface, sorted for stable error payloads.
func AllowedTargets(from enums.OrderStatus) []enums.OrderStatus {
	targets := allowedTransitions[from]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransitionInput moves an order along the fulfillment lifecycle.
type TransitionInput struct {
	OrderID        uuid.UUID
	Target         enums.OrderStatus
	TrackingNumber string
}

// TransitionResult reports the moved order plus the status it left behind.
type TransitionResult struct {
	Order          *models.Order
	PreviousStatus enums.OrderStatus
}

// Service exposes order queries and lifecycle transitions.
type Service interface {
	Get(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error)
	GetAny(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
}

type service struct {
	runner   txRunner
	repo     Repository
	notifier notifications.ShipmentNotifier
	logg     *logger.Logger
}

// NewService wires the orders service.
func NewService(runner txRunner, repo Repository, notifier notifications.ShipmentNotifier, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("shipment notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{runner: runner, repo: repo, notifier: notifier, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.FindByIDAndOwner(ctx, orderID, ownerID)
}

func (s *service) GetAny(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

func (s *service) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// Transition applies a single lifecycle step. The current status is
// re-checked in the WHERE clause of the update, so two racing transitions
// cannot both land.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown status %q", input.Target))
	}
	if input.Target == enums.OrderStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			"refunds are issued through the refund endpoint").
			WithDetails(map[string]any{"target": input.Target.String()})
	}

	var (
		updated    *models.Order
		previous   enums.OrderStatus
		wasShipped bool
	)
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		previous = order.Status

		if err := validateTransition(order.Status, input.Target); err != nil {
			return err
		}

		updates := map[string]any{"status": input.Target}
		now := time.Now().UTC()
		switch input.Target {
		case enums.OrderStatusShipped:
			if input.TrackingNumber == "" {
				return pkgerrors.New(pkgerrors.CodeValidation,
					"tracking number required to mark an order shipped")
			}
			updates["tracking_number"] = input.TrackingNumber
			updates["shipped_at"] = now
			wasShipped = true
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}

		landed, err := repo.UpdateStatusGuarded(ctx, order.ID, order.Status, updates)
		if err != nil {
			return err
		}
		if !landed {
			current, reloadErr := repo.FindByID(ctx, order.ID)
			if reloadErr != nil {
				return reloadErr
			}
			return invalidTransitionError(current.Status, input.Target)
		}

		updated, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if wasShipped {
		notice := notifications.ShipmentNotice{
			OrderID:        updated.ID,
			OwnerID:        updated.OwnerID,
			TrackingNumber: input.TrackingNumber,
			Destination:    updated.ShippingAddress,
		}
		if notifyErr := s.notifier.NotifyShipped(ctx, notice); notifyErr != nil {
			ctx = s.logg.WithFields(ctx, map[string]any{
				"order_id":        updated.ID.String(),
				"tracking_number": input.TrackingNumber,
				"error":           notifyErr.Error(),
			})
			s.logg.Warn(ctx, "shipment notice failed; order remains shipped")
		}
	}

	return &TransitionResult{Order: updated, PreviousStatus: previous}, nil
}

func validateTransition(from, to enums.OrderStatus) error {
	if from.IsTerminal() {
		return invalidTransitionError(from, to)
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return nil
		}
	}
	return invalidTransitionError(from, to)
}

func invalidTransitionError(from, to enums.OrderStatus) *pkgerrors.Error {
	allowed := AllowedTargets(from)
	names := make([]string, len(allowed))
	for i, status := range allowed {
		names[i] = status.String()
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{
			"current": from.String(),
			"target":  to.String(),
			"allowed": names,
		})
}
