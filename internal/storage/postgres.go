package storage

import (
	"context"

	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/db"
)

var _ Storage = (*postgres)(nil)

type postgres struct {
	postgresTx
}

// NewPostgres returns a Storage backed by one PostgreSQL database. Stock
// counters live on the products rows.
func NewPostgres(client db.DB) *postgres {
	return &postgres{
		postgresTx: postgresTx{db: client},
	}
}

func (s *postgres) WithTx(ctx context.Context, fn func(Tx) error) error {
	return s.db.WithTx(ctx, func(tx db.DB) error {
		return fn(postgresTx{db: tx})
	})
}

type postgresTx struct {
	db db.DB
}

func (t postgresTx) Products() repository.ProductRepository {
	return repository.NewProductRepository(t.db)
}

func (t postgresTx) Orders() repository.OrderRepository {
	return repository.NewOrderRepository(t.db)
}

func (t postgresTx) Stock() ledger.StockStore {
	return repository.NewStockRepository(t.db)
}

func (t postgresTx) Outbox() repository.OutboxMsgRepository {
	return repository.NewOutboxMsgRepository(t.db)
}
