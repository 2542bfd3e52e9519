// Package order owns the order lifecycle and keeps the stock ledger in step
// with every status and quantity change.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
)

// Change describes the outcome of one machine operation.
type Change struct {
	Order    model.Order
	Previous model.Order
	// Changed is false for operations that turned out to be no-ops.
	Changed bool
	// Stock is the product counter after the operation moved it.
	Stock      model.StockLevel
	StockMoved bool
}

// Machine applies lifecycle operations to orders. It must be bound to the
// repositories of a single unit of work: the ledger write and the order write
// of one operation only stay consistent if they commit together.
type Machine struct {
	orders repository.OrderRepository
	ledger ledger.Ledger
	now    func() time.Time
}

func NewMachine(orders repository.OrderRepository, l ledger.Ledger) *Machine {
	return &Machine{
		orders: orders,
		ledger: l,
		now:    time.Now,
	}
}

// Create reserves qty units and records a PENDING order for them.
func (m *Machine) Create(ctx context.Context, productID uuid.UUID, qty int) (Change, error) {
	if qty <= 0 {
		return Change{}, apperr.NewValidation("quantity must be greater than 0, got %d", qty)
	}

	level, err := m.ledger.Reserve(ctx, productID, qty)
	if err != nil {
		return Change{}, err
	}

	now := m.now()
	o := model.Order{
		ID:        uuid.Must(uuid.NewV7()),
		ProductID: productID,
		Quantity:  qty,
		Status:    model.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.orders.CreateOrder(ctx, o); err != nil {
		return Change{}, fmt.Errorf("create order: %w", err)
	}

	return Change{
		Order:      o,
		Changed:    true,
		Stock:      level,
		StockMoved: true,
	}, nil
}

func (m *Machine) Pay(ctx context.Context, id uuid.UUID) (Change, error) {
	return m.Transition(ctx, id, model.OrderStatusPaid)
}

func (m *Machine) Ship(ctx context.Context, id uuid.UUID) (Change, error) {
	return m.Transition(ctx, id, model.OrderStatusShipped)
}

// Cancel gives the reservation back. Canceling twice is a no-op.
func (m *Machine) Cancel(ctx context.Context, id uuid.UUID) (Change, error) {
	return m.Transition(ctx, id, model.OrderStatusCanceled)
}

// Transition moves the order to target, releasing its stock when the move
// ends a reservation.
func (m *Machine) Transition(ctx context.Context, id uuid.UUID, target model.OrderStatus) (Change, error) {
	if err := target.Validate(); err != nil {
		return Change{}, apperr.NewValidation("%s", err.Error())
	}

	current, err := m.orders.GetOrderForUpdate(ctx, id)
	if err != nil {
		return Change{}, err
	}

	if !CanTransition(current.Status, target) {
		return Change{}, apperr.NewInvalidStateTransition(id, current.Status, target)
	}
	if current.Status == target {
		return Change{Order: current, Previous: current}, nil
	}

	change := Change{Previous: current, Changed: true}
	if releasesStock(current.Status, target) {
		level, err := m.ledger.Release(ctx, current.ProductID, current.Quantity)
		if err != nil {
			return Change{}, err
		}
		change.Stock = level
		change.StockMoved = true
	}

	next := current
	next.Status = target
	next.UpdatedAt = m.now()
	if err := m.orders.UpdateOrder(ctx, next); err != nil {
		return Change{}, fmt.Errorf("update order: %w", err)
	}
	change.Order = next

	return change, nil
}

// UpdateQuantity changes the quantity of a PENDING order and moves the
// difference between the order and the product.
func (m *Machine) UpdateQuantity(ctx context.Context, id uuid.UUID, newQty int) (Change, error) {
	if newQty <= 0 {
		return Change{}, apperr.NewValidation("quantity must be greater than 0, got %d", newQty)
	}

	current, err := m.orders.GetOrderForUpdate(ctx, id)
	if err != nil {
		return Change{}, err
	}
	if current.Status != model.OrderStatusPending {
		return Change{}, apperr.NewQuantityLocked(current.Status)
	}

	delta := newQty - current.Quantity
	if delta == 0 {
		return Change{Order: current, Previous: current}, nil
	}

	change := Change{Previous: current, Changed: true, StockMoved: true}
	if delta > 0 {
		change.Stock, err = m.ledger.Reserve(ctx, current.ProductID, delta)
	} else {
		change.Stock, err = m.ledger.Release(ctx, current.ProductID, -delta)
	}
	if err != nil {
		return Change{}, err
	}

	next := current
	next.Quantity = newQty
	next.UpdatedAt = m.now()
	if err := m.orders.UpdateOrder(ctx, next); err != nil {
		return Change{}, fmt.Errorf("update order: %w", err)
	}
	change.Order = next

	return change, nil
}

// Delete removes the order. With restoreStock, a PENDING or PAID order gives
// its reservation back first; otherwise the units stay consumed.
func (m *Machine) Delete(ctx context.Context, id uuid.UUID, restoreStock bool) (Change, error) {
	current, err := m.orders.GetOrderForUpdate(ctx, id)
	if err != nil {
		return Change{}, err
	}

	change := Change{Order: current, Previous: current, Changed: true}
	if restoreStock && current.Status.HoldsReservation() {
		level, err := m.ledger.Release(ctx, current.ProductID, current.Quantity)
		if err != nil {
			return Change{}, err
		}
		change.Stock = level
		change.StockMoved = true
	}

	if err := m.orders.DeleteOrder(ctx, id); err != nil {
		return Change{}, fmt.Errorf("delete order: %w", err)
	}

	return change, nil
}
