package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

// reservePessimistic holds an exclusive lock across read, check and write.
// Stores without row locks fall back to the ledger-wide mutex, which
// serialises reservations of every product.
func (l *ledger) reservePessimistic(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error) {
	if locker, ok := l.store.(RowLocker); ok {
		level, err := locker.LockRow(ctx, productID, func(current model.StockLevel) (int, error) {
			if current.Stock < qty {
				return 0, apperr.NewInsufficientStock(productID, current.Stock, qty)
			}
			return current.Stock - qty, nil
		})
		if err != nil {
			return model.StockLevel{}, fmt.Errorf("lock stock row: %w", err)
		}
		return level, nil
	}

	if err := l.lockLedger(ctx); err != nil {
		return model.StockLevel{}, err
	}
	defer l.ledgerMu.Unlock()

	// Writers in other processes can still move the version, so the write
	// stays conditional.
	return l.casLoop(ctx, productID, qty)
}

// lockLedger acquires the ledger-wide mutex unless ctx ends first.
func (l *ledger) lockLedger(ctx context.Context) error {
	if l.ledgerMu.TryLock() {
		return nil
	}

	acquired := make(chan struct{})
	go func() {
		l.ledgerMu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// Hand the lock back once the waiting goroutine gets it.
		go func() {
			<-acquired
			l.ledgerMu.Unlock()
		}()
		return fmt.Errorf("wait for ledger lock: %w", ctx.Err())
	}
}
