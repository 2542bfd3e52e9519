package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

type undoFunc func(ctx context.Context) error

// journal records how to reverse every write of one unit of work, the writes
// it holds back until commit and which rows it holds locked.
type journal struct {
	mu       sync.Mutex
	undo     []undoFunc
	onCommit []undoFunc
	locked   map[uuid.UUID]struct{}
}

func newJournal() *journal {
	return &journal{
		locked: make(map[uuid.UUID]struct{}),
	}
}

func (j *journal) record(fn undoFunc) {
	j.mu.Lock()
	j.undo = append(j.undo, fn)
	j.mu.Unlock()
}

func (j *journal) deferUntilCommit(fn undoFunc) {
	j.mu.Lock()
	j.onCommit = append(j.onCommit, fn)
	j.mu.Unlock()
}

// commit applies the held back writes in order. It stops at the first
// failure; whatever was applied by then has been recorded for rollback.
func (j *journal) commit(ctx context.Context) error {
	j.mu.Lock()
	steps := j.onCommit
	j.onCommit = nil
	j.mu.Unlock()

	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	return nil
}

// rollback runs the recorded undo steps newest first.
func (j *journal) rollback(ctx context.Context) error {
	j.mu.Lock()
	steps := j.undo
	j.undo = nil
	j.mu.Unlock()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// holds reports whether the row is already locked by this unit of work and
// marks it as locked otherwise.
func (j *journal) holds(id uuid.UUID) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.locked[id]; ok {
		return true
	}
	j.locked[id] = struct{}{}

	return false
}

func (j *journal) forget(id uuid.UUID) {
	j.mu.Lock()
	delete(j.locked, id)
	j.mu.Unlock()
}

func (j *journal) lockedRows() []uuid.UUID {
	j.mu.Lock()
	defer j.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(j.locked))
	for id := range j.locked {
		ids = append(ids, id)
	}

	return ids
}

var _ ledger.StockStore = (*journaledStock)(nil)

// journaledStock records a compensating adjustment for every write that takes
// stock away. Writes that add stock are held back until the unit of work
// commits, so no other unit can reserve units that a rollback would take
// back again.
type journaledStock struct {
	store ledger.StockStore
	j     *journal

	mu      sync.Mutex
	pending map[uuid.UUID]int
}

func (s *journaledStock) Get(ctx context.Context, productID uuid.UUID) (model.StockLevel, error) {
	return s.store.Get(ctx, productID)
}

func (s *journaledStock) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, bool, error) {
	level, ok, err := s.store.DecrementIfAvailable(ctx, productID, qty)
	if err == nil && ok {
		s.compensate(productID, qty)
	}
	return level, ok, err
}

func (s *journaledStock) CompareAndSwap(ctx context.Context, productID uuid.UUID, expectedVersion int64, newStock int) (model.StockLevel, bool, error) {
	before, err := s.store.Get(ctx, productID)
	if err != nil {
		return model.StockLevel{}, false, err
	}
	if before.Version != expectedVersion {
		return model.StockLevel{}, false, nil
	}

	level, ok, err := s.store.CompareAndSwap(ctx, productID, expectedVersion, newStock)
	if err == nil && ok {
		s.compensate(productID, before.Stock-newStock)
	}
	return level, ok, err
}

// Adjust holds positive deltas back until commit. A negative delta first
// cancels out what is held back for the product and applies only the rest.
// The returned level counts held back units as if they were applied.
func (s *journaledStock) Adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	if delta > 0 {
		current, err := s.store.Get(ctx, productID)
		if err != nil {
			return model.StockLevel{}, 0, err
		}
		held := s.hold(productID, delta)
		current.Stock += held
		return current, delta, nil
	}

	offset := s.take(productID, -delta)
	if offset == -delta {
		current, err := s.store.Get(ctx, productID)
		if err != nil {
			s.hold(productID, offset)
			return model.StockLevel{}, 0, err
		}
		current.Stock += s.held(productID)
		return current, delta, nil
	}

	level, applied, err := s.store.Adjust(ctx, productID, delta+offset)
	if err != nil {
		s.hold(productID, offset)
		return model.StockLevel{}, 0, err
	}
	s.compensate(productID, -applied)

	return level, applied - offset, nil
}

// hold adds delta to the units held back for the product and returns the new
// total. The first hold of a product schedules its release on commit.
func (s *journaledStock) hold(productID uuid.UUID, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		s.pending = make(map[uuid.UUID]int)
	}
	if _, ok := s.pending[productID]; !ok {
		s.j.deferUntilCommit(func(ctx context.Context) error {
			return s.flush(ctx, productID)
		})
	}
	s.pending[productID] += delta

	return s.pending[productID]
}

// take removes up to n held back units of the product and returns how many
// it removed.
func (s *journaledStock) take(productID uuid.UUID, n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := min(s.pending[productID], n)
	if taken > 0 {
		s.pending[productID] -= taken
	}

	return taken
}

func (s *journaledStock) held(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending[productID]
}

func (s *journaledStock) flush(ctx context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	delta := s.pending[productID]
	delete(s.pending, productID)
	s.mu.Unlock()

	if delta == 0 {
		return nil
	}
	_, applied, err := s.store.Adjust(ctx, productID, delta)
	if err != nil {
		return err
	}
	s.compensate(productID, -applied)

	return nil
}

func (s *journaledStock) compensate(productID uuid.UUID, delta int) {
	if delta == 0 {
		return
	}
	s.j.record(func(ctx context.Context) error {
		_, _, err := s.store.Adjust(ctx, productID, delta)
		return err
	})
}

var _ ledger.RowLocker = (*journaledLockingStock)(nil)

type journaledLockingStock struct {
	*journaledStock
	locker ledger.RowLocker
}

func (s *journaledLockingStock) LockRow(ctx context.Context, productID uuid.UUID, fn ledger.LockedUpdateFunc) (model.StockLevel, error) {
	var before int
	level, err := s.locker.LockRow(ctx, productID, func(current model.StockLevel) (int, error) {
		before = current.Stock
		return fn(current)
	})
	if err != nil {
		return model.StockLevel{}, err
	}
	s.compensate(productID, before-level.Stock)

	return level, nil
}

// journalStock wraps store so that its writes are undone on rollback. The
// row-lock capability of store is kept.
func journalStock(store ledger.StockStore, j *journal) ledger.StockStore {
	js := &journaledStock{store: store, j: j}
	if locker, ok := store.(ledger.RowLocker); ok {
		return &journaledLockingStock{journaledStock: js, locker: locker}
	}
	return js
}
