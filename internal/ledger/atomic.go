package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

// atomicAttempts bounds the conditional decrements of one reservation. A
// second attempt only happens when stock came back between the failed
// decrement and the read that explains it.
const atomicAttempts = 2

// reserveAtomic issues a conditional decrement. When nothing matched, a fresh
// read tells a missing product apart from a short one.
func (l *ledger) reserveAtomic(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error) {
	var current model.StockLevel
	for range atomicAttempts {
		level, ok, err := l.store.DecrementIfAvailable(ctx, productID, qty)
		if err != nil {
			return model.StockLevel{}, fmt.Errorf("decrement stock: %w", err)
		}
		if ok {
			return level, nil
		}

		current, err = l.store.Get(ctx, productID)
		if err != nil {
			return model.StockLevel{}, fmt.Errorf("get stock: %w", err)
		}
		if current.Stock < qty {
			return model.StockLevel{}, apperr.NewInsufficientStock(productID, current.Stock, qty)
		}
	}

	// The decrement saw less than qty; report that rather than the later read.
	return model.StockLevel{}, apperr.NewInsufficientStock(productID, min(current.Stock, qty-1), qty)
}
