package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/types"
)

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Status          string              `json:"status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Tax             decimal.Decimal     `json:"tax"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	Total           decimal.Decimal     `json:"total"`
	ShippingAddress types.Address       `json:"shipping_address"`
	PaymentID       string              `json:"payment_id"`
	ItemCount       int                 `json:"item_count"`
	TrackingNumber  *string             `json:"tracking_number,omitempty"`
	RefundID        *string             `json:"refund_id,omitempty"`
	RefundAmount    *decimal.Decimal    `json:"refund_amount,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	RefundedAt      *time.Time          `json:"refunded_at,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       *uuid.UUID      `json:"product_id,omitempty"`
	DesignSessionID *uuid.UUID      `json:"design_session_id,omitempty"`
	Size            string          `json:"size,omitempty"`
	Color           string          `json:"color,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
	PrintPlacement  *string         `json:"print_placement,omitempty"`
	DesignImageRef  *string         `json:"design_image_ref,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = newOrderItemResponse(item)
	}
	return orderResponse{
		ID:              order.ID,
		Status:          order.Status.String(),
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		ShippingCost:    order.ShippingCost,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		PaymentID:       order.PaymentID,
		ItemCount:       order.ItemCount,
		TrackingNumber:  order.TrackingNumber,
		RefundID:        order.RefundID,
		RefundAmount:    order.RefundAmount,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		RefundedAt:      order.RefundedAt,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

func newOrderItemResponse(item models.OrderItem) orderItemResponse {
	var placement *string
	if item.PrintPlacement != nil {
		p := item.PrintPlacement.String()
		placement = &p
	}
	return orderItemResponse{
		ID:              item.ID,
		ProductID:       item.ProductID,
		DesignSessionID: item.DesignSessionID,
		Size:            item.Size,
		Color:           item.Color,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		LineTotal:       item.LineTotal,
		PrintPlacement:  placement,
		DesignImageRef:  item.DesignImageRef,
	}
}
