package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
)

var (
	reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orders_inventory",
		Subsystem: "ledger",
		Name:      "reservations_total",
		Help:      "Stock reservations by strategy and outcome.",
	}, []string{"strategy", "result"})

	optimisticConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orders_inventory",
		Subsystem: "ledger",
		Name:      "version_conflicts_total",
		Help:      "Compare-and-swap writes that lost the version race.",
	}, []string{"strategy"})

	releasedUnits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orders_inventory",
		Subsystem: "ledger",
		Name:      "released_units_total",
		Help:      "Units of stock given back by releases.",
	})
)

func observeReservation(strategy Strategy, err error) {
	reservations.WithLabelValues(strategy.String(), reservationResult(err)).Inc()
}

func reservationResult(err error) string {
	var (
		stockErr    *apperr.InsufficientStockError
		conflictErr *apperr.ConcurrentModificationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &conflictErr):
		return "conflict"
	case errors.Is(err, apperr.ProductNotFoundErr):
		return "not_found"
	default:
		return "error"
	}
}
