package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

// reserveOptimistic runs the read-compute-write cycle at most maxRetries
// times. Only a lost version race consumes an attempt; a missing product or a
// short stock fails immediately.
func (l *ledger) reserveOptimistic(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error) {
	return l.casLoop(ctx, productID, qty)
}

func (l *ledger) casLoop(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error) {
	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return model.StockLevel{}, &apperr.ConcurrentModificationError{
					ProductID: productID,
					Attempts:  attempt - 1,
					Cause:     err,
				}
			}
		}

		current, err := l.store.Get(ctx, productID)
		if err != nil {
			return model.StockLevel{}, fmt.Errorf("get stock: %w", err)
		}
		if current.Stock < qty {
			return model.StockLevel{}, apperr.NewInsufficientStock(productID, current.Stock, qty)
		}

		level, ok, err := l.store.CompareAndSwap(ctx, productID, current.Version, current.Stock-qty)
		if err != nil {
			return model.StockLevel{}, fmt.Errorf("compare and swap stock: %w", err)
		}
		if ok {
			return level, nil
		}

		optimisticConflicts.WithLabelValues(l.strategy.String()).Inc()
		l.logger.DebugContext(ctx, "stock version changed, retrying",
			slog.String("product_id", productID.String()),
			slog.Int("attempt", attempt),
			slog.Int64("expected_version", current.Version),
		)
	}

	return model.StockLevel{}, &apperr.ConcurrentModificationError{
		ProductID: productID,
		Attempts:  l.maxRetries,
	}
}
