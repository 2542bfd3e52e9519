package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/order"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
)

type CreateProductRequest struct {
	Sku   string          `json:"sku" validate:"required,max=50,sku"`
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock" validate:"required,gte=0"`
}

// UpdateProductRequest is a partial update; omitted fields stay unchanged.
type UpdateProductRequest struct {
	Sku   *string          `json:"sku" validate:"omitempty,max=50,sku"`
	Name  *string          `json:"name" validate:"omitempty,max=200"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock" validate:"omitempty,gte=0"`
}

type AdjustStockRequest struct {
	Adjustment *int   `json:"adjustment" validate:"required"`
	Reason     string `json:"reason" validate:"max=500"`
}

type CreateOrderRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type UpdateOrderRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type ProductResponse struct {
	ID        uuid.UUID       `json:"id"`
	Sku       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type OrderResponse struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"product_id"`
	Quantity           int       `json:"quantity"`
	Status             string    `json:"status"`
	AllowedTransitions []string  `json:"allowed_transitions"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type OrderDetailsResponse struct {
	OrderResponse
	Product    ProductResponse `json:"product"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type LowStockAlertResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	Sku          string    `json:"sku"`
	Name         string    `json:"name"`
	CurrentStock int       `json:"current_stock"`
	Threshold    int       `json:"threshold"`
	Shortage     int       `json:"shortage"`
}

type InventorySummaryResponse struct {
	Products ProductSummaryResponse `json:"products"`
	Orders   OrderSummaryResponse   `json:"orders"`
}

type ProductSummaryResponse struct {
	Total              int             `json:"total"`
	InStock            int             `json:"in_stock"`
	OutOfStock         int             `json:"out_of_stock"`
	LowStockCount      int             `json:"low_stock_count"`
	TotalStockQuantity int             `json:"total_stock_quantity"`
	TotalStockValue    decimal.Decimal `json:"total_stock_value"`
}

type OrderSummaryResponse struct {
	Total                int            `json:"total"`
	ByStatus             map[string]int `json:"by_status"`
	TotalQuantityOrdered int            `json:"total_quantity_ordered"`
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		Sku:       p.Sku,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toOrderResponse(o model.Order) OrderResponse {
	allowed := order.AllowedTransitions(o.Status)
	transitions := make([]string, 0, len(allowed))
	for _, status := range allowed {
		transitions = append(transitions, status.String())
	}

	return OrderResponse{
		ID:                 o.ID,
		ProductID:          o.ProductID,
		Quantity:           o.Quantity,
		Status:             o.Status.String(),
		AllowedTransitions: transitions,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func toOrderDetailsResponse(d service.OrderDetails) OrderDetailsResponse {
	return OrderDetailsResponse{
		OrderResponse: toOrderResponse(d.Order),
		Product:       toProductResponse(d.Product),
		TotalValue:    d.Total,
	}
}

func toInventorySummaryResponse(s service.InventorySummary) InventorySummaryResponse {
	byStatus := make(map[string]int, len(s.Orders.ByStatus))
	for status, n := range s.Orders.ByStatus {
		byStatus[status.String()] = n
	}

	return InventorySummaryResponse{
		Products: ProductSummaryResponse{
			Total:              s.Products.Total,
			InStock:            s.Products.InStock,
			OutOfStock:         s.Products.OutOfStock,
			LowStockCount:      s.Products.LowStock,
			TotalStockQuantity: s.Products.TotalStockQuantity,
			TotalStockValue:    s.Products.TotalStockValue,
		},
		Orders: OrderSummaryResponse{
			Total:                s.Orders.Total,
			ByStatus:             byStatus,
			TotalQuantityOrdered: s.Orders.TotalQuantityOrdered,
		},
	}
}
