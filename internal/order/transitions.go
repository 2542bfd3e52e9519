package order

import (
	"slices"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:  {model.OrderStatusPaid, model.OrderStatusCanceled},
	model.OrderStatusPaid:     {model.OrderStatusShipped, model.OrderStatusCanceled},
	model.OrderStatusShipped:  {},
	model.OrderStatusCanceled: {},
}

// CanTransition reports whether an order in status from may be moved to
// status to. Canceling a canceled order is allowed and changes nothing.
func CanTransition(from, to model.OrderStatus) bool {
	if from == model.OrderStatusCanceled && to == model.OrderStatusCanceled {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// AllowedTransitions returns the statuses reachable from status in one step.
func AllowedTransitions(status model.OrderStatus) []model.OrderStatus {
	return slices.Clone(transitions[status])
}

// releasesStock reports whether moving from one status to another gives the
// reserved units back to the product.
func releasesStock(from, to model.OrderStatus) bool {
	return to == model.OrderStatusCanceled && from.HoldsReservation()
}
