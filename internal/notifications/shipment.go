package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/types"
)

// ShipmentNotice describes a shipped order to the customer-facing channel.
type ShipmentNotice struct {
	OrderID        uuid.UUID
	OwnerID        uuid.UUID
	TrackingNumber string
	Destination    types.Address
}

// ShipmentNotifier delivers shipment notices. Delivery is best effort; the
// order transition that triggered the notice is already committed when the
// notifier runs.
type ShipmentNotifier interface {
	NotifyShipped(ctx context.Context, notice ShipmentNotice) error
}

type logNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier emits shipment notices as structured log lines. It stands in
// until an email or webhook channel is configured.
func NewLogNotifier(logg *logger.Logger) (ShipmentNotifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &logNotifier{logg: logg}, nil
}

func (n *logNotifier) NotifyShipped(ctx context.Context, notice ShipmentNotice) error {
	ctx = n.logg.WithFields(ctx, map[string]any{
		"order_id":        notice.OrderID.String(),
		"owner_id":        notice.OwnerID.String(),
		"tracking_number": notice.TrackingNumber,
		"destination":     notice.Destination.Normalized(),
	})
	n.logg.Info(ctx, "shipment notice emitted")
	return nil
}
