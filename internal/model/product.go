package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uuid.UUID       `json:"id"`
	Sku       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StockLevel returns the mutable stock counter of the product.
func (p Product) StockLevel() StockLevel {
	return StockLevel{
		ProductID: p.ID,
		Stock:     p.Stock,
		Version:   p.Version,
	}
}

// WithStockLevel returns a copy of the product carrying the given counter.
func (p Product) WithStockLevel(level StockLevel) Product {
	p.Stock = level.Stock
	p.Version = level.Version
	return p
}

// StockLevel is the per-product counter guarded by the stock ledger.
type StockLevel struct {
	ProductID uuid.UUID `json:"product_id"`
	Stock     int       `json:"stock"`
	Version   int64     `json:"version"`
}
