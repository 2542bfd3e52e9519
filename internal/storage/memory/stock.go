package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

var (
	_ ledger.StockStore = (*StockTable)(nil)
	_ ledger.RowLocker  = (*StockTable)(nil)
	_ ledger.Seeder     = (*StockTable)(nil)
)

// StockTable keeps one counter per product, each guarded by its own mutex.
type StockTable struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*stockRow
}

type stockRow struct {
	mu      sync.Mutex
	stock   int
	version int64
}

func NewStockTable() *StockTable {
	return &StockTable{
		rows: make(map[uuid.UUID]*stockRow),
	}
}

func (t *StockTable) Init(_ context.Context, productID uuid.UUID, stock int) error {
	if stock < 0 {
		return fmt.Errorf("initial stock must not be negative, got %d", stock)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[productID]; ok {
		return fmt.Errorf("stock for product %s already initialised", productID)
	}
	t.rows[productID] = &stockRow{stock: stock}

	return nil
}

func (t *StockTable) Drop(_ context.Context, productID uuid.UUID) error {
	t.mu.Lock()
	delete(t.rows, productID)
	t.mu.Unlock()

	return nil
}

func (t *StockTable) row(productID uuid.UUID) (*stockRow, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rows[productID]
	return r, ok
}

func (t *StockTable) Get(_ context.Context, productID uuid.UUID) (model.StockLevel, error) {
	r, ok := t.row(productID)
	if !ok {
		return model.StockLevel{}, apperr.NewProductNotFound(productID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.level(productID), nil
}

func (t *StockTable) DecrementIfAvailable(_ context.Context, productID uuid.UUID, qty int) (model.StockLevel, bool, error) {
	r, ok := t.row(productID)
	if !ok {
		return model.StockLevel{}, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stock < qty {
		return model.StockLevel{}, false, nil
	}
	r.write(r.stock - qty)

	return r.level(productID), true, nil
}

func (t *StockTable) CompareAndSwap(_ context.Context, productID uuid.UUID, expectedVersion int64, newStock int) (model.StockLevel, bool, error) {
	if newStock < 0 {
		return model.StockLevel{}, false, fmt.Errorf("stock must not be negative, got %d", newStock)
	}

	r, ok := t.row(productID)
	if !ok {
		return model.StockLevel{}, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.version != expectedVersion {
		return model.StockLevel{}, false, nil
	}
	r.write(newStock)

	return r.level(productID), true, nil
}

func (t *StockTable) Adjust(_ context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	r, ok := t.row(productID)
	if !ok {
		return model.StockLevel{}, 0, apperr.NewProductNotFound(productID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.stock
	r.write(max(before+delta, 0))

	return r.level(productID), r.stock - before, nil
}

// LockRow keeps the row mutex for the whole of fn, so every other operation
// on the product waits.
func (t *StockTable) LockRow(_ context.Context, productID uuid.UUID, fn ledger.LockedUpdateFunc) (model.StockLevel, error) {
	r, ok := t.row(productID)
	if !ok {
		return model.StockLevel{}, apperr.NewProductNotFound(productID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	newStock, err := fn(r.level(productID))
	if err != nil {
		return model.StockLevel{}, err
	}
	if newStock < 0 {
		return model.StockLevel{}, fmt.Errorf("stock must not be negative, got %d", newStock)
	}
	r.write(newStock)

	return r.level(productID), nil
}

func (r *stockRow) write(stock int) {
	r.stock = stock
	r.version++
}

func (r *stockRow) level(productID uuid.UUID) model.StockLevel {
	return model.StockLevel{
		ProductID: productID,
		Stock:     r.stock,
		Version:   r.version,
	}
}
