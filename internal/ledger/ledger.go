package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

// DefaultMaxRetries bounds the optimistic read-compute-write cycle.
const DefaultMaxRetries = 3

var tracer = otel.Tracer("internal/ledger")

// Ledger reserves and releases product stock with all-or-nothing semantics.
type Ledger interface {
	// Strategy returns the concurrency strategy used by Reserve.
	Strategy() Strategy

	// Reserve takes qty units from the product. It fails with
	// *apperr.InsufficientStockError, apperr.ProductNotFoundErr or, for the
	// optimistic strategy, *apperr.ConcurrentModificationError.
	Reserve(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error)

	// Release gives qty previously reserved units back to the product.
	// Callers must release each reserved unit at most once.
	Release(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error)

	// Adjust applies a manual stock correction. Negative deltas floor at zero;
	// the returned int is the change that was actually applied.
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error)

	// WithStore returns a ledger with the same strategy bound to store,
	// typically the transaction-scoped store of a unit of work.
	WithStore(store StockStore) Ledger
}

type Option func(*ledger)

// WithMaxRetries sets the optimistic retry budget. Values below 1 are ignored.
func WithMaxRetries(n int) Option {
	return func(l *ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for retry and lock diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *ledger) {
		l.logger = logger
	}
}

var _ Ledger = (*ledger)(nil)

type ledger struct {
	store      StockStore
	strategy   Strategy
	maxRetries int
	logger     *slog.Logger

	// ledgerMu serialises every pessimistic reservation when the store cannot
	// lock a single row. It is shared by all ledgers derived via WithStore.
	ledgerMu *sync.Mutex
}

// New creates a ledger that protects reservations on store with strategy.
func New(strategy Strategy, store StockStore, opts ...Option) Ledger {
	l := &ledger{
		store:      store,
		strategy:   strategy,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
		ledgerMu:   &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(slog.String("component", "ledger"), slog.String("strategy", strategy.String()))

	return l
}

func (l *ledger) Strategy() Strategy {
	return l.strategy
}

func (l *ledger) WithStore(store StockStore) Ledger {
	cp := *l
	cp.store = store
	return &cp
}

func (l *ledger) Reserve(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Reserve", trace.WithAttributes(
		attribute.String("product_id", productID.String()),
		attribute.Int("quantity", qty),
		attribute.String("strategy", l.strategy.String()),
	))
	defer span.End()

	if qty <= 0 {
		return model.StockLevel{}, apperr.NewValidation("quantity must be greater than 0, got %d", qty)
	}

	var (
		level model.StockLevel
		err   error
	)
	switch l.strategy {
	case StrategyOptimistic:
		level, err = l.reserveOptimistic(ctx, productID, qty)
	case StrategyPessimistic:
		level, err = l.reservePessimistic(ctx, productID, qty)
	default:
		level, err = l.reserveAtomic(ctx, productID, qty)
	}

	observeReservation(l.strategy, err)
	if err != nil {
		if isFault(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reserve stock")
		}
		return model.StockLevel{}, err
	}

	return level, nil
}

func (l *ledger) Release(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, error) {
	if qty <= 0 {
		return model.StockLevel{}, apperr.NewValidation("quantity must be greater than 0, got %d", qty)
	}

	level, _, err := l.adjust(ctx, productID, qty)
	if err != nil {
		return model.StockLevel{}, fmt.Errorf("release stock: %w", err)
	}
	releasedUnits.Add(float64(qty))

	return level, nil
}

func (l *ledger) Adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	if delta == 0 {
		level, err := l.store.Get(ctx, productID)
		if err != nil {
			return model.StockLevel{}, 0, fmt.Errorf("get stock: %w", err)
		}
		return level, 0, nil
	}

	level, applied, err := l.adjust(ctx, productID, delta)
	if err != nil {
		return model.StockLevel{}, 0, fmt.Errorf("adjust stock: %w", err)
	}

	return level, applied, nil
}

func (l *ledger) adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	if l.strategy == StrategyPessimistic && !l.canLockRow() {
		l.ledgerMu.Lock()
		defer l.ledgerMu.Unlock()
	}

	level, applied, err := l.store.Adjust(ctx, productID, delta)
	if err != nil {
		return model.StockLevel{}, 0, err
	}

	return level, applied, nil
}

func (l *ledger) canLockRow() bool {
	_, ok := l.store.(RowLocker)
	return ok
}

// isFault reports whether err is an infrastructure failure rather than an
// expected business outcome.
func isFault(err error) bool {
	var (
		stockErr    *apperr.InsufficientStockError
		conflictErr *apperr.ConcurrentModificationError
	)
	switch {
	case errors.As(err, &stockErr), errors.As(err, &conflictErr):
		return false
	case errors.Is(err, apperr.ProductNotFoundErr), errors.Is(err, apperr.ValidationErr):
		return false
	default:
		return true
	}
}
