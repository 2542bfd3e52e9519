package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
)

type ProductSummary struct {
	Total              int
	InStock            int
	OutOfStock         int
	LowStock           int
	TotalStockQuantity int
	TotalStockValue    decimal.Decimal
}

type OrderSummary struct {
	Total                int
	ByStatus             map[model.OrderStatus]int
	TotalQuantityOrdered int
}

// InventorySummary aggregates catalog and order figures.
type InventorySummary struct {
	Products ProductSummary
	Orders   OrderSummary
}

func (s *productService) InventorySummary(ctx context.Context) (InventorySummary, error) {
	products, err := s.store.Products().ListProducts(ctx, repository.ListProductsParams{})
	if err != nil {
		return InventorySummary{}, fmt.Errorf("product repository list products: %w", err)
	}

	orders, err := s.store.Orders().ListOrders(ctx, repository.ListOrdersParams{})
	if err != nil {
		return InventorySummary{}, fmt.Errorf("order repository list orders: %w", err)
	}

	summary := InventorySummary{
		Products: ProductSummary{
			Total:           len(products),
			TotalStockValue: decimal.Zero,
		},
		Orders: OrderSummary{
			Total:    len(orders),
			ByStatus: make(map[model.OrderStatus]int, len(model.OrderStatuses)),
		},
	}

	for _, p := range products {
		if p.Stock > 0 {
			summary.Products.InStock++
		} else {
			summary.Products.OutOfStock++
		}
		if p.Stock < s.lowStockThreshold {
			summary.Products.LowStock++
		}
		summary.Products.TotalStockQuantity += p.Stock
		summary.Products.TotalStockValue = summary.Products.TotalStockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}

	for _, status := range model.OrderStatuses {
		summary.Orders.ByStatus[status] = 0
	}
	for _, o := range orders {
		summary.Orders.ByStatus[o.Status]++
		summary.Orders.TotalQuantityOrdered += o.Quantity
	}

	return summary, nil
}
