package orders

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/notifications"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

type recordingNotifier struct {
	notices []notifications.ShipmentNotice
	fail    bool
}

func (n *recordingNotifier) NotifyShipped(_ context.Context, notice notifications.ShipmentNotice) error {
	if n.fail {
		return fmt.Errorf("smtp unreachable")
	}
	n.notices = append(n.notices, notice)
	return nil
}

func newTestService(t *testing.T, conn *gorm.DB, notifier notifications.ShipmentNotifier) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(db.FromGorm(conn), NewRepository(conn), notifier, logg)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		OwnerID:      ownerID,
		Status:       status,
		Subtotal:     decimal.RequireFromString("20.00"),
		Tax:          decimal.Zero,
		ShippingCost: decimal.RequireFromString("7.99"),
		Total:        decimal.RequireFromString("27.99"),
		ShippingAddress: types.Address{
			Street:  "600 Congress Ave",
			City:    "Austin",
			State:   "TX",
			Zip:     "78701",
			Country: "US",
		},
		PaymentID: "sq-payment-" + uuid.NewString(),
		ItemCount: 2,
	}
	if status == enums.OrderStatusShipped {
		tn := "1Z999"
		order.TrackingNumber = &tn
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestTransitionMatrix(t *testing.T) {
	t.Parallel()

	statuses := []enums.OrderStatus{
		enums.OrderStatusPaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusRefunded,
	}
	allowed := map[enums.OrderStatus]enums.OrderStatus{
		enums.OrderStatusPaid:       enums.OrderStatusProcessing,
		enums.OrderStatusProcessing: enums.OrderStatusShipped,
		enums.OrderStatusShipped:    enums.OrderStatusDelivered,
	}

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	ctx := context.Background()
	owner := uuid.New()

	for _, from := range statuses {
		for _, to := range statuses {
			from, to := from, to
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				order := seedOrder(t, conn, owner, from)
				_, err := svc.Transition(ctx, TransitionInput{
					OrderID:        order.ID,
					Target:         to,
					TrackingNumber: "1Z999AA10123456784",
				})
				if allowed[from] == to {
					require.NoError(t, err)
					var stored models.Order
					require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
					assert.Equal(t, to, stored.Status)
					return
				}
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition),
					"expected invalid transition, got %v", err)
				var stored models.Order
				require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
				assert.Equal(t, from, stored.Status, "failed transition must not mutate status")
			})
		}
	}
}

func TestTransitionShippedRequiresTracking(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusProcessing)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusShipped,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var stored models.Order
	if dbErr := conn.First(&stored, "id = ?", order.ID).Error; dbErr != nil {
		t.Fatalf("reload order: %v", dbErr)
	}
	if stored.Status != enums.OrderStatusProcessing {
		t.Fatalf("status mutated to %s despite missing tracking number", stored.Status)
	}
}

func TestTransitionShippedStampsAndNotifies(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := newTestService(t, conn, notifier)
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusProcessing)

	result, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:        order.ID,
		Target:         enums.OrderStatusShipped,
		TrackingNumber: "1Z999AA10123456784",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, result.PreviousStatus)
	updated := result.Order
	require.NotNil(t, updated.TrackingNumber)
	assert.Equal(t, "1Z999AA10123456784", *updated.TrackingNumber)
	require.NotNil(t, updated.ShippedAt)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, order.ID, notifier.notices[0].OrderID)
	assert.Equal(t, "1Z999AA10123456784", notifier.notices[0].TrackingNumber)
}

func TestTransitionNotifierFailureSwallowed(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{fail: true})
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusProcessing)

	result, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:        order.ID,
		Target:         enums.OrderStatusShipped,
		TrackingNumber: "1Z999AA10123456784",
	})
	require.NoError(t, err, "notification failure must not fail the transition")
	assert.Equal(t, enums.OrderStatusShipped, result.Order.Status)
}

func TestTransitionDeliveredStampsTimestamp(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusShipped)

	result, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, result.PreviousStatus)
	require.NotNil(t, result.Order.DeliveredAt)
	assert.Nil(t, result.Order.RefundedAt)
}

func TestTransitionBackwardsReportsAllowedTargets(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusShipped)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusProcessing,
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok, "details should carry the allowed target set")
	assert.Equal(t, []string{"delivered"}, details["allowed"])
}

func TestTransitionRefundedTargetRejected(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPaid)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusRefunded,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestGuardedUpdateSkipsStaleStatus(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusProcessing)

	landed, err := repo.UpdateStatusGuarded(context.Background(), order.ID,
		enums.OrderStatusPaid, map[string]any{"status": enums.OrderStatusProcessing})
	require.NoError(t, err)
	assert.False(t, landed, "stale precondition must not land")
}

func TestGetScopesToOwner(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	ctx := context.Background()
	owner := uuid.New()
	order := seedOrder(t, conn, owner, enums.OrderStatusPaid)

	found, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = svc.Get(ctx, uuid.New(), order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}

func TestListForOwnerReturnsOwnOrdersOnly(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &recordingNotifier{})
	ctx := context.Background()
	owner := uuid.New()
	seedOrder(t, conn, owner, enums.OrderStatusPaid)
	seedOrder(t, conn, owner, enums.OrderStatusDelivered)
	seedOrder(t, conn, uuid.New(), enums.OrderStatusPaid)

	result, err := svc.ListForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}
