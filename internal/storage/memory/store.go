package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store keeps the catalog, the orders and the outbox in process memory.
// Stock counters live in a ledger.StockStore, by default a StockTable.
//
// A unit of work sees the writes of concurrent units immediately; rollback
// applies compensating writes rather than discarding private state. Stock
// given back inside a unit of work only becomes visible once it commits.
type Store struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
	skus     map[string]uuid.UUID
	orders   map[uuid.UUID]model.Order
	outbox   []outboxRow

	rowLocks *lockTable
	stock    ledger.StockStore
}

type Option func(*Store)

// WithStockStore keeps stock counters in store instead of the built-in table.
// The store must implement ledger.Seeder so new products get a counter.
func WithStockStore(store ledger.StockStore) Option {
	return func(s *Store) {
		s.stock = store
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		products: make(map[uuid.UUID]model.Product),
		skus:     make(map[string]uuid.UUID),
		orders:   make(map[uuid.UUID]model.Order),
		rowLocks: newLockTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stock == nil {
		s.stock = NewStockTable()
	}

	return s
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepository{s: s}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepository{s: s}
}

func (s *Store) Stock() ledger.StockStore {
	return s.stock
}

func (s *Store) Outbox() repository.OutboxMsgRepository {
	return &outboxMsgRepository{s: s}
}

func (s *Store) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	j := newJournal()
	defer func() {
		for _, id := range j.lockedRows() {
			s.rowLocks.unlock(id)
		}
	}()

	if err := fn(&tx{s: s, j: j, stock: journalStock(s.stock, j)}); err != nil {
		return abort(ctx, j, err)
	}
	if err := j.commit(context.WithoutCancel(ctx)); err != nil {
		return abort(ctx, j, fmt.Errorf("commit: %w", err))
	}

	return nil
}

func abort(ctx context.Context, j *journal, err error) error {
	if rbErr := j.rollback(context.WithoutCancel(ctx)); rbErr != nil {
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

// lockRow takes the row lock for the unit of work j and keeps it until the
// unit ends. Without a unit of work it does nothing.
func (s *Store) lockRow(ctx context.Context, j *journal, id uuid.UUID) error {
	if j == nil || j.holds(id) {
		return nil
	}
	if err := s.rowLocks.lock(ctx, id); err != nil {
		j.forget(id)
		return err
	}

	return nil
}

type tx struct {
	s     *Store
	j     *journal
	stock ledger.StockStore
}

func (t *tx) Products() repository.ProductRepository {
	return &productRepository{s: t.s, j: t.j}
}

func (t *tx) Orders() repository.OrderRepository {
	return &orderRepository{s: t.s, j: t.j}
}

func (t *tx) Stock() ledger.StockStore {
	return t.stock
}

func (t *tx) Outbox() repository.OutboxMsgRepository {
	return &outboxMsgRepository{s: t.s, j: t.j}
}

// lockTable hands out one exclusive lock per key. A buffered channel of
// size one acts as a mutex that can be abandoned when a context ends.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		locks: make(map[uuid.UUID]chan struct{}),
	}
}

func (t *lockTable) lock(ctx context.Context, id uuid.UUID) error {
	t.mu.Lock()
	ch, ok := t.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[id] = ch
	}
	t.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) unlock(id uuid.UUID) {
	t.mu.Lock()
	ch := t.locks[id]
	t.mu.Unlock()

	<-ch
}
