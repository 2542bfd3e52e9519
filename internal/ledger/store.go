package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

// StockStore is the set of primitives a backend must provide for the ledger.
// Each method is a single indivisible step for the given product and every
// successful write advances the version.
type StockStore interface {
	// Get returns the current counter or apperr.ProductNotFoundErr.
	Get(ctx context.Context, productID uuid.UUID) (model.StockLevel, error)

	// DecrementIfAvailable subtracts qty only if stock >= qty. It reports false,
	// without an error, when the product is missing or the stock is too low.
	DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, bool, error)

	// CompareAndSwap writes newStock only if the version still equals
	// expectedVersion. It reports false on a version mismatch or a missing product.
	CompareAndSwap(ctx context.Context, productID uuid.UUID, expectedVersion int64, newStock int) (model.StockLevel, bool, error)

	// Adjust adds delta and floors the result at zero. applied is the change
	// that was actually made.
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (level model.StockLevel, applied int, err error)
}

// LockedUpdateFunc receives the locked counter and returns the stock to write.
type LockedUpdateFunc func(level model.StockLevel) (newStock int, err error)

// RowLocker is implemented by stores that can hold an exclusive lock on one
// product's counter across a read-check-write sequence.
type RowLocker interface {
	LockRow(ctx context.Context, productID uuid.UUID, fn LockedUpdateFunc) (model.StockLevel, error)
}

// Seeder is implemented by stores that keep counters apart from the catalog
// and need the starting stock of a new product.
type Seeder interface {
	Init(ctx context.Context, productID uuid.UUID, stock int) error
	Drop(ctx context.Context, productID uuid.UUID) error
}
