package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

const (
	TopicOrderCreated         = "order.created"
	TopicOrderQuantityUpdated = "order.quantity_updated"
	TopicOrderPaid            = "order.paid"
	TopicOrderShipped         = "order.shipped"
	TopicOrderCanceled        = "order.canceled"
	TopicOrderDeleted         = "order.deleted"

	TopicProductCreated       = "product.created"
	TopicProductUpdated       = "product.updated"
	TopicProductStockAdjusted = "product.stock_adjusted"
)

// OrderTopics lists every topic carrying an OrderEvent.
var OrderTopics = []string{
	TopicOrderCreated,
	TopicOrderQuantityUpdated,
	TopicOrderPaid,
	TopicOrderShipped,
	TopicOrderCanceled,
	TopicOrderDeleted,
}

// OrderTopicFor returns the topic announcing a move to status.
func OrderTopicFor(status model.OrderStatus) string {
	switch status {
	case model.OrderStatusPaid:
		return TopicOrderPaid
	case model.OrderStatusShipped:
		return TopicOrderShipped
	case model.OrderStatusCanceled:
		return TopicOrderCanceled
	default:
		return TopicOrderCreated
	}
}

type OrderEvent struct {
	OrderID          string    `json:"order_id"`
	ProductID        string    `json:"product_id"`
	Quantity         int       `json:"quantity"`
	Status           string    `json:"status"`
	PreviousStatus   string    `json:"previous_status,omitempty"`
	PreviousQuantity int       `json:"previous_quantity,omitempty"`
	StockRemaining   *int      `json:"stock_remaining,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type ProductCreatedEvent struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Sku       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}

// ProductUpdatedEvent carries the product after the update. Changed names
// the fields the update touched.
type ProductUpdatedEvent struct {
	ProductID   string          `json:"product_id"`
	Sku         string          `json:"sku"`
	PreviousSku string          `json:"previous_sku,omitempty"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Changed     []string        `json:"changed"`
}

type ProductStockAdjustedEvent struct {
	ProductID string `json:"product_id"`
	Sku       string `json:"sku"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
	Stock     int    `json:"stock"`
}
