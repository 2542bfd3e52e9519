package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
)

var _ repository.OrderRepository = (*orderRepository)(nil)

type orderRepository struct {
	s *Store
	j *journal
}

func (r *orderRepository) CreateOrder(_ context.Context, order model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	r.s.orders[order.ID] = order

	r.onRollback(func() {
		delete(r.s.orders, order.ID)
	})

	return nil
}

func (r *orderRepository) GetOrder(_ context.Context, id uuid.UUID) (model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return model.Order{}, apperr.NewOrderNotFound(id)
	}

	return order, nil
}

// GetOrderForUpdate locks the order until the unit of work ends. Outside a
// unit of work it is a plain read.
func (r *orderRepository) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (model.Order, error) {
	if err := r.s.lockRow(ctx, r.j, id); err != nil {
		return model.Order{}, fmt.Errorf("lock order: %w", err)
	}

	return r.GetOrder(ctx, id)
}

func (r *orderRepository) ListOrders(_ context.Context, params repository.ListOrdersParams) ([]model.Order, error) {
	r.s.mu.RLock()
	orders := make([]model.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if params.Status != nil && o.Status != *params.Status {
			continue
		}
		if params.ProductID != nil && o.ProductID != *params.ProductID {
			continue
		}
		orders = append(orders, o)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(orders, func(a, b model.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})

	if params.Offset > 0 {
		if params.Offset >= len(orders) {
			return []model.Order{}, nil
		}
		orders = orders[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(orders) {
		orders = orders[:params.Limit]
	}

	return orders, nil
}

func (r *orderRepository) UpdateOrder(_ context.Context, order model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.orders[order.ID]
	if !ok {
		return apperr.NewOrderNotFound(order.ID)
	}
	r.s.orders[order.ID] = order

	r.onRollback(func() {
		r.s.orders[order.ID] = prev
	})

	return nil
}

func (r *orderRepository) DeleteOrder(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.orders[id]
	if !ok {
		return apperr.NewOrderNotFound(id)
	}
	delete(r.s.orders, id)

	r.onRollback(func() {
		r.s.orders[id] = prev
	})

	return nil
}

// onRollback records fn to run under the store lock if the unit of work fails.
func (r *orderRepository) onRollback(fn func()) {
	if r.j == nil {
		return
	}
	r.j.record(func(context.Context) error {
		r.s.mu.Lock()
		fn()
		r.s.mu.Unlock()
		return nil
	})
}
