package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/memory"
)

const lowStockThreshold = 10

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type services struct {
	store    storage.Storage
	products service.ProductService
	orders   service.OrderService
}

func newServices(t *testing.T, store storage.Storage) services {
	t.Helper()

	l := ledger.New(ledger.StrategyAtomic, store.Stock())
	return services{
		store:    store,
		products: service.NewProductService(discardLogger, store, l, lowStockThreshold),
		orders:   service.NewOrderService(discardLogger, store, l),
	}
}

func (s services) createProduct(t *testing.T, sku string, stock int) model.Product {
	t.Helper()

	p, err := s.products.CreateProduct(context.Background(), service.CreateProductParams{
		Sku:   sku,
		Name:  "Product " + sku,
		Price: decimal.RequireFromString("19.99"),
		Stock: stock,
	})
	require.NoError(t, err)

	return p
}

func (s services) stock(t *testing.T, p model.Product) int {
	t.Helper()

	got, err := s.products.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)

	return got.Stock
}

type outboxMsg struct {
	Topic   string
	Payload json.RawMessage
}

func (s services) outbox(t *testing.T) []outboxMsg {
	t.Helper()

	rows, err := s.store.Outbox().ListUnprocessedOutboxMsgs(context.Background(),
		repository.ListUnprocessedOutboxMsgsParams{BatchSize: 1000})
	require.NoError(t, err)

	msgs := make([]outboxMsg, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, outboxMsg{Topic: row.Topic, Payload: row.Payload})
	}

	return msgs
}

func topics(msgs []outboxMsg) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Topic)
	}
	return out
}

var errOutboxDown = errors.New("outbox unavailable")

// brokenOutboxStore fails every outbox write made inside a unit of work.
type brokenOutboxStore struct {
	*memory.Store
}

func (s brokenOutboxStore) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(brokenOutboxTx{Tx: tx})
	})
}

type brokenOutboxTx struct {
	storage.Tx
}

func (brokenOutboxTx) Outbox() repository.OutboxMsgRepository {
	return brokenOutbox{}
}

type brokenOutbox struct {
	repository.OutboxMsgRepository
}

func (brokenOutbox) CreateOutboxMsg(context.Context, repository.CreateOutboxMsgParams) error {
	return errOutboxDown
}

// interleavingOutboxStore runs interleave in the middle of every outbox write
// made inside a unit of work and then fails the write.
type interleavingOutboxStore struct {
	*memory.Store
	interleave func()
}

func (s interleavingOutboxStore) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(interleavingOutboxTx{Tx: tx, interleave: s.interleave})
	})
}

type interleavingOutboxTx struct {
	storage.Tx
	interleave func()
}

func (t interleavingOutboxTx) Outbox() repository.OutboxMsgRepository {
	return interleavingOutbox{interleave: t.interleave}
}

type interleavingOutbox struct {
	repository.OutboxMsgRepository
	interleave func()
}

func (o interleavingOutbox) CreateOutboxMsg(context.Context, repository.CreateOutboxMsgParams) error {
	o.interleave()
	return errOutboxDown
}

// interleavingStockStore runs interleave right before every stock adjustment
// made inside a unit of work.
type interleavingStockStore struct {
	*memory.Store
	interleave func()
}

func (s interleavingStockStore) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(interleavingStockTx{Tx: tx, interleave: s.interleave})
	})
}

type interleavingStockTx struct {
	storage.Tx
	interleave func()
}

func (t interleavingStockTx) Stock() ledger.StockStore {
	return interleavingStock{StockStore: t.Tx.Stock(), interleave: t.interleave}
}

type interleavingStock struct {
	ledger.StockStore
	interleave func()
}

func (s interleavingStock) Adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	s.interleave()
	return s.StockStore.Adjust(ctx, productID, delta)
}
