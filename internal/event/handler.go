package event

import (
	"context"
	"log/slog"
)

func (s *Service) handleOrderEvent(ctx context.Context, topic string, ev OrderEvent) error {
	s.logger.InfoContext(ctx, "handling order event",
		slog.String("topic", topic),
		slog.String("order_id", ev.OrderID),
		slog.String("status", ev.Status),
		slog.Int("quantity", ev.Quantity),
	)

	if ev.StockRemaining != nil {
		s.checkLowStock(ctx, ev.ProductID, *ev.StockRemaining)
	}

	return nil
}

func (s *Service) handleProductCreatedEvent(ctx context.Context, _ string, ev ProductCreatedEvent) error {
	s.logger.InfoContext(ctx, "handling product created event", slog.Any("event", ev))
	s.checkLowStock(ctx, ev.ProductID, ev.Stock)
	return nil
}

func (s *Service) handleProductUpdatedEvent(ctx context.Context, _ string, ev ProductUpdatedEvent) error {
	s.logger.InfoContext(ctx, "handling product updated event", slog.Any("event", ev))
	s.checkLowStock(ctx, ev.ProductID, ev.Stock)
	return nil
}

func (s *Service) handleProductStockAdjustedEvent(ctx context.Context, _ string, ev ProductStockAdjustedEvent) error {
	s.logger.InfoContext(ctx, "handling product stock adjusted event", slog.Any("event", ev))
	s.checkLowStock(ctx, ev.ProductID, ev.Stock)
	return nil
}

func (s *Service) checkLowStock(ctx context.Context, productID string, stock int) {
	if stock >= s.lowStockThreshold {
		return
	}
	s.logger.WarnContext(ctx, "product stock is low",
		slog.String("product_id", productID),
		slog.Int("stock", stock),
		slog.Int("threshold", s.lowStockThreshold),
	)
}
