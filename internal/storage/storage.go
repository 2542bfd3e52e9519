package storage

import (
	"context"

	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
)

// Tx gives access to every repository of one unit of work.
type Tx interface {
	Products() repository.ProductRepository
	Orders() repository.OrderRepository
	Stock() ledger.StockStore
	Outbox() repository.OutboxMsgRepository
}

// Storage is the root store. Its repositories run outside any transaction.
type Storage interface {
	Tx

	// WithTx runs fn as one unit of work. Every write made through the Tx is
	// kept when fn returns nil and undone when it returns an error.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
