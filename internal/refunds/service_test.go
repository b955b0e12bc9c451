package refunds

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/inventory"
	"github.com/printforge/printforge-backend/internal/orders"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
	"github.com/printforge/printforge-backend/pkg/square"
	"github.com/printforge/printforge-backend/pkg/types"
)

type fakeRefunder struct {
	calls    []square.RefundCreateParams
	failure  error
	onRefund func()
}

func (f *fakeRefunder) RefundPayment(_ context.Context, params square.RefundCreateParams) (*square.RefundResult, error) {
	f.calls = append(f.calls, params)
	if f.onRefund != nil {
		f.onRefund()
	}
	if f.failure != nil {
		return nil, f.failure
	}
	return &square.RefundResult{RefundID: "rf-" + uuid.NewString(), Status: "COMPLETED"}, nil
}

type testEnv struct {
	conn     *gorm.DB
	refunder *fakeRefunder
	svc      Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:refunds_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Order{}, &models.OrderItem{}, &models.Payment{}, &models.InventoryVariant{},
	))

	logg := logger.New(logger.Options{ServiceName: "refunds-test", Output: io.Discard})
	refunder := &fakeRefunder{}
	svc, err := NewService(
		db.FromGorm(conn),
		orders.NewRepository(conn),
		inventory.NewRepository(conn),
		refunder,
		metrics.NewCheckoutMetrics(nil),
		logg,
	)
	require.NoError(t, err)
	return &testEnv{conn: conn, refunder: refunder, svc: svc}
}

type orderOpts struct {
	status      enums.OrderStatus
	paymentType enums.PaymentType
	withCatalog bool
	withCustom  bool
	stock       int
}

func (e *testEnv) seedOrder(t *testing.T, opts orderOpts) (*models.Order, *inventory.VariantKey) {
	t.Helper()
	if opts.paymentType == "" {
		opts.paymentType = enums.PaymentTypeOrderPayment
	}

	owner := uuid.New()
	order := &models.Order{
		OwnerID:      owner,
		Status:       opts.status,
		Subtotal:     decimal.RequireFromString("20.00"),
		Tax:          decimal.Zero,
		ShippingCost: decimal.RequireFromString("7.99"),
		Total:        decimal.RequireFromString("27.99"),
		ShippingAddress: types.Address{
			Street: "600 Congress Ave", City: "Austin", State: "TX", Zip: "78701", Country: "US",
		},
		PaymentID: "pay-" + uuid.NewString(),
		ItemCount: 2,
	}
	require.NoError(t, e.conn.Create(order).Error)
	require.NoError(t, e.conn.Create(&models.Payment{
		ID:      order.PaymentID,
		OwnerID: owner,
		OrderID: &order.ID,
		Type:    opts.paymentType,
		Amount:  order.Total,
		Status:  enums.PaymentStatusSucceeded,
	}).Error)

	var key *inventory.VariantKey
	if opts.withCatalog {
		productID := uuid.New()
		key = &inventory.VariantKey{ProductID: productID, Size: "M", Color: "black"}
		require.NoError(t, e.conn.Create(&models.InventoryVariant{
			ProductID:  productID,
			Size:       key.Size,
			Color:      key.Color,
			StockCount: opts.stock,
		}).Error)
		require.NoError(t, e.conn.Create(&models.OrderItem{
			OrderID:   order.ID,
			ProductID: &productID,
			Size:      key.Size,
			Color:     key.Color,
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("10.00"),
			LineTotal: decimal.RequireFromString("20.00"),
		}).Error)
	}
	if opts.withCustom {
		sessionID := uuid.New()
		placement := enums.PrintPlacementFront
		require.NoError(t, e.conn.Create(&models.OrderItem{
			OrderID:         order.ID,
			DesignSessionID: &sessionID,
			Quantity:        1,
			UnitPrice:       decimal.RequireFromString("24.99"),
			LineTotal:       decimal.RequireFromString("24.99"),
			PrintPlacement:  &placement,
		}).Error)
	}
	return order, key
}

func (e *testEnv) stockCount(t *testing.T, key inventory.VariantKey) int {
	t.Helper()
	var variant models.InventoryVariant
	require.NoError(t, e.conn.
		Where("product_id = ? AND size = ? AND color = ?", key.ProductID, key.Size, key.Color).
		First(&variant).Error)
	return variant.StockCount
}

func TestRefundRestoresStockAndMarksOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, key := env.seedOrder(t, orderOpts{status: enums.OrderStatusPaid, withCatalog: true, stock: 3})

	result, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID, Reason: "customer request"})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusRefunded, result.Order.Status)
	assert.Equal(t, order.OwnerID, result.OwnerID)
	require.NotNil(t, result.Order.RefundID)
	assert.Equal(t, result.RefundID, *result.Order.RefundID)
	require.NotNil(t, result.Order.RefundAmount)
	assert.True(t, result.Order.RefundAmount.Equal(decimal.RequireFromString("27.99")))
	require.NotNil(t, result.Order.RefundedAt)

	assert.Equal(t, 2, result.StockRestored)
	assert.Equal(t, 5, env.stockCount(t, *key), "2 purchased units return to the 3 on hand")

	require.Len(t, env.refunder.calls, 1)
	assert.Equal(t, order.PaymentID, env.refunder.calls[0].PaymentID)
	assert.Equal(t, int64(2799), env.refunder.calls[0].AmountCents)
	assert.Equal(t, "refund-"+order.ID.String(), env.refunder.calls[0].IdempotencyKey)
}

func TestRefundProcessingAndShippedOrders(t *testing.T) {
	t.Parallel()

	for _, status := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped} {
		status := status
		t.Run(status.String(), func(t *testing.T) {
			env := newTestEnv(t)
			order, _ := env.seedOrder(t, orderOpts{status: status, withCatalog: true, stock: 0})

			result, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
			require.NoError(t, err)
			assert.Equal(t, enums.OrderStatusRefunded, result.Order.Status)
		})
	}
}

func TestRefundSurvivesConcurrentFulfillmentStep(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, key := env.seedOrder(t, orderOpts{status: enums.OrderStatusPaid, withCatalog: true, stock: 3})

	// An admin moves the order to processing while the gateway call is in
	// flight. Both statuses are refund-eligible, so the refund must still
	// land rather than strand the issued gateway refund.
	env.refunder.onRefund = func() {
		require.NoError(t, env.conn.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", enums.OrderStatusProcessing).Error)
	}

	result, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, result.Order.Status)
	assert.Equal(t, 5, env.stockCount(t, *key))
	assert.Len(t, env.refunder.calls, 1)
}

func TestRefundRaceToTerminalStatusReportsActualState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		landed   enums.OrderStatus
		wantCode pkgerrors.Code
	}{
		{"delivered wins", enums.OrderStatusDelivered, pkgerrors.CodeNotRefundable},
		{"refund wins", enums.OrderStatusRefunded, pkgerrors.CodeAlreadyRefunded},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			order, key := env.seedOrder(t, orderOpts{status: enums.OrderStatusShipped, withCatalog: true, stock: 1})

			env.refunder.onRefund = func() {
				require.NoError(t, env.conn.Model(&models.Order{}).
					Where("id = ?", order.ID).
					Update("status", tc.landed).Error)
			}

			_, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
			if !pkgerrors.IsCode(err, tc.wantCode) {
				t.Fatalf("expected %s, got %v", tc.wantCode, err)
			}

			var stored models.Order
			require.NoError(t, env.conn.First(&stored, "id = ?", order.ID).Error)
			assert.Equal(t, tc.landed, stored.Status)
			assert.Equal(t, 1, env.stockCount(t, *key), "no restore when the guard misses")
		})
	}
}

func TestRefundAlreadyRefunded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, key := env.seedOrder(t, orderOpts{status: enums.OrderStatusPaid, withCatalog: true, stock: 0})

	_, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	require.NoError(t, err)
	require.Len(t, env.refunder.calls, 1)

	_, err = env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyRefunded) {
		t.Fatalf("expected already refunded, got %v", err)
	}
	assert.Len(t, env.refunder.calls, 1, "second attempt must not reach the gateway")
	assert.Equal(t, 2, env.stockCount(t, *key), "stock restored exactly once")
}

func TestRefundDeliveredOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, _ := env.seedOrder(t, orderOpts{status: enums.OrderStatusDelivered, withCatalog: true, stock: 0})

	_, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotRefundable) {
		t.Fatalf("expected not refundable, got %v", err)
	}
	assert.Empty(t, env.refunder.calls)
}

func TestRefundLeavesSessionFeePaymentAlone(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, _ := env.seedOrder(t, orderOpts{status: enums.OrderStatusPaid, withCatalog: true, stock: 0})

	// A standalone design-session fee charged to the same customer.
	feeID := "pay-fee-" + uuid.NewString()
	require.NoError(t, env.conn.Create(&models.Payment{
		ID:      feeID,
		OwnerID: order.OwnerID,
		Type:    enums.PaymentTypeSessionFee,
		Amount:  decimal.RequireFromString("5.00"),
		Status:  enums.PaymentStatusSucceeded,
	}).Error)

	_, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	require.NoError(t, err)

	require.Len(t, env.refunder.calls, 1)
	assert.Equal(t, order.PaymentID, env.refunder.calls[0].PaymentID, "only the order payment is refunded")

	var fee models.Payment
	require.NoError(t, env.conn.First(&fee, "id = ?", feeID).Error)
	assert.True(t, fee.Amount.Equal(decimal.RequireFromString("5.00")))
}

func TestRefundRejectsNonOrderPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, _ := env.seedOrder(t, orderOpts{
		status:      enums.OrderStatusPaid,
		paymentType: enums.PaymentTypeSessionFee,
	})

	_, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotRefundable) {
		t.Fatalf("expected not refundable, got %v", err)
	}
	assert.Empty(t, env.refunder.calls)
}

func TestRefundCustomLinesRestoreNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, key := env.seedOrder(t, orderOpts{
		status:      enums.OrderStatusPaid,
		withCatalog: true,
		withCustom:  true,
		stock:       1,
	})

	result, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.StockRestored, "only catalog units count")
	assert.Equal(t, 3, env.stockCount(t, *key))
}

func TestRefundGatewayFailureLeavesOrderUntouched(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, key := env.seedOrder(t, orderOpts{status: enums.OrderStatusPaid, withCatalog: true, stock: 1})
	env.refunder.failure = pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")

	_, err := env.svc.Refund(context.Background(), Input{OrderID: order.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	var stored models.Order
	require.NoError(t, env.conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	assert.Nil(t, stored.RefundID)
	assert.Equal(t, 1, env.stockCount(t, *key), "stock unchanged when the gateway declines")
}
