package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/db"
)

// newPostgres connects to the database named by POSTGRES_TEST_DSN, applies the
// migrations and empties every table.
func newPostgres(t *testing.T) storage.Storage {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(pool))
	_, err = pool.Exec(ctx, `TRUNCATE outbox_messages, orders, products`)
	require.NoError(t, err)

	return storage.NewPostgres(db.NewClient(pool))
}

func seedPostgresProduct(t *testing.T, s storage.Storage, stock int) model.Product {
	t.Helper()

	now := time.Now().Truncate(time.Microsecond)
	p := model.Product{
		ID:        uuid.Must(uuid.NewV7()),
		Sku:       "PG-" + uuid.NewString()[:8],
		Name:      "Postgres widget",
		Price:     decimal.RequireFromString("4.50"),
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Products().CreateProduct(context.Background(), p))

	return p
}

func TestPostgres_WithTx(t *testing.T) {
	s := newPostgres(t)
	ctx := context.Background()
	p := seedPostgresProduct(t, s, 10)

	errBoom := errors.New("boom")
	err := s.WithTx(ctx, func(tx storage.Tx) error {
		if _, _, err := tx.Stock().Adjust(ctx, p.ID, -4); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	level, err := s.Stock().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, level.Stock)

	msgs, err := s.Outbox().ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{BatchSize: 10})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPostgres_NoOversell(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, strategy := range []ledger.Strategy{ledger.StrategyAtomic, ledger.StrategyOptimistic, ledger.StrategyPessimistic} {
		t.Run(strategy.String(), func(t *testing.T) {
			s := newPostgres(t)
			ctx := context.Background()
			p := seedPostgresProduct(t, s, 10)

			l := ledger.New(strategy, s.Stock(), ledger.WithMaxRetries(20))
			orders := service.NewOrderService(logger, s, l)

			var created atomic.Int32
			var g errgroup.Group
			for range 25 {
				g.Go(func() error {
					_, err := orders.CreateOrder(ctx, service.CreateOrderParams{ProductID: p.ID, Quantity: 1})
					switch {
					case err == nil:
						created.Add(1)
					case errors.Is(err, apperr.InsufficientStockErr), errors.Is(err, apperr.ConcurrentModificationErr):
					default:
						return err
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			level, err := s.Stock().Get(ctx, p.ID)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, level.Stock, 0)
			assert.Equal(t, 10, level.Stock+int(created.Load()))

			list, err := s.Orders().ListOrders(ctx, repository.ListOrdersParams{ProductID: &p.ID})
			require.NoError(t, err)
			assert.Len(t, list, int(created.Load()))
		})
	}
}

func TestPostgres_UpdateProduct(t *testing.T) {
	s := newPostgres(t)
	ctx := context.Background()
	taken := seedPostgresProduct(t, s, 1)
	p := seedPostgresProduct(t, s, 3)

	p.Name = "Renamed widget"
	p.Price = decimal.RequireFromString("5.25")
	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.Products().GetProductForUpdate(ctx, p.ID); err != nil {
			return err
		}
		return tx.Products().UpdateProduct(ctx, p)
	}))

	got, err := s.Products().GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed widget", got.Name)
	assert.True(t, decimal.RequireFromString("5.25").Equal(got.Price))
	assert.Equal(t, 3, got.Stock)

	p.Sku = taken.Sku
	err = s.Products().UpdateProduct(ctx, p)
	assert.ErrorIs(t, err, apperr.DuplicateSkuErr)

	p.ID = uuid.Must(uuid.NewV7())
	p.Sku = "PG-GHOST"
	err = s.Products().UpdateProduct(ctx, p)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
}
