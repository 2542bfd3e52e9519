package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/db"
)

var (
	_ ledger.StockStore = (*stockRepository)(nil)
	_ ledger.RowLocker  = (*stockRepository)(nil)
)

// stockRepository keeps the counter on the products row. The CHECK
// constraint on products.stock backs every write.
type stockRepository struct {
	db db.DB
}

func NewStockRepository(db db.DB) *stockRepository {
	return &stockRepository{
		db: db,
	}
}

func (r stockRepository) Get(ctx context.Context, productID uuid.UUID) (model.StockLevel, error) {
	level, err := scanStockLevel(r.db.QueryRow(ctx,
		`SELECT id, stock, version FROM products WHERE id = $1`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StockLevel{}, apperr.NewProductNotFound(productID)
		}
		return model.StockLevel{}, fmt.Errorf("select stock: %w", err)
	}

	return level, nil
}

func (r stockRepository) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, bool, error) {
	level, err := scanStockLevel(r.db.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - @qty, version = version + 1, updated_at = NOW()
		WHERE id = @id AND stock >= @qty
		RETURNING id, stock, version
	`, pgx.NamedArgs{
		"id":  productID,
		"qty": qty,
	}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StockLevel{}, false, nil
		}
		return model.StockLevel{}, false, fmt.Errorf("decrement stock: %w", err)
	}

	return level, true, nil
}

func (r stockRepository) CompareAndSwap(ctx context.Context, productID uuid.UUID, expectedVersion int64, newStock int) (model.StockLevel, bool, error) {
	level, err := scanStockLevel(r.db.QueryRow(ctx, `
		UPDATE products
		SET stock = @stock, version = version + 1, updated_at = NOW()
		WHERE id = @id AND version = @version
		RETURNING id, stock, version
	`, pgx.NamedArgs{
		"id":      productID,
		"stock":   newStock,
		"version": expectedVersion,
	}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StockLevel{}, false, nil
		}
		return model.StockLevel{}, false, fmt.Errorf("compare and swap stock: %w", err)
	}

	return level, true, nil
}

func (r stockRepository) Adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	var (
		level   model.StockLevel
		applied int
	)
	err := r.db.QueryRow(ctx, `
		WITH cur AS (
			SELECT id, stock FROM products WHERE id = @id FOR UPDATE
		)
		UPDATE products AS p
		SET stock = GREATEST(cur.stock + @delta, 0), version = p.version + 1, updated_at = NOW()
		FROM cur
		WHERE p.id = cur.id
		RETURNING p.id, p.stock, p.version, p.stock - cur.stock
	`, pgx.NamedArgs{
		"id":    productID,
		"delta": delta,
	}).Scan(&level.ProductID, &level.Stock, &level.Version, &applied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StockLevel{}, 0, apperr.NewProductNotFound(productID)
		}
		return model.StockLevel{}, 0, fmt.Errorf("adjust stock: %w", err)
	}

	return level, applied, nil
}

// LockRow holds FOR UPDATE on the product row while fn decides the new stock.
// Inside a unit of work the lock lasts until that transaction ends.
func (r stockRepository) LockRow(ctx context.Context, productID uuid.UUID, fn ledger.LockedUpdateFunc) (model.StockLevel, error) {
	var level model.StockLevel
	err := r.db.WithTx(ctx, func(tx db.DB) error {
		current, err := scanStockLevel(tx.QueryRow(ctx,
			`SELECT id, stock, version FROM products WHERE id = $1 FOR UPDATE`, productID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NewProductNotFound(productID)
			}
			return fmt.Errorf("lock stock row: %w", err)
		}

		newStock, err := fn(current)
		if err != nil {
			return err
		}

		level, err = scanStockLevel(tx.QueryRow(ctx, `
			UPDATE products
			SET stock = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING id, stock, version
		`, productID, newStock))
		if err != nil {
			return fmt.Errorf("write locked stock: %w", err)
		}

		return nil
	})
	if err != nil {
		return model.StockLevel{}, err
	}

	return level, nil
}

func scanStockLevel(row pgx.Row) (model.StockLevel, error) {
	var level model.StockLevel
	if err := row.Scan(&level.ProductID, &level.Stock, &level.Version); err != nil {
		return model.StockLevel{}, err
	}
	return level, nil
}
