package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/event"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/order"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type CreateOrderParams struct {
	ProductID uuid.UUID
	Quantity  int
}

type ForceDeleteOrderParams struct {
	ID uuid.UUID
	// RestoreStock gives the reservation of a PENDING or PAID order back
	// before the order is removed.
	RestoreStock bool
}

type ListOrdersParams struct {
	Status    *model.OrderStatus
	ProductID *uuid.UUID
	// Limit of zero means DefaultListLimit.
	Limit  int
	Offset int
}

// OrderDetails is an order together with the product it reserves.
type OrderDetails struct {
	Order   model.Order
	Product model.Product
	Total   decimal.Decimal
}

type OrderService interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (model.Order, error)
	UpdateOrderQuantity(ctx context.Context, id uuid.UUID, quantity int) (model.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (model.Order, error)
	ShipOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	// CancelOrder releases the reservation. Canceling a canceled order
	// succeeds without touching stock.
	CancelOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	// ForceDeleteOrder removes the order. Unless RestoreStock is set the
	// reserved units stay consumed.
	ForceDeleteOrder(ctx context.Context, params ForceDeleteOrderParams) error
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	GetOrderDetails(ctx context.Context, id uuid.UUID) (OrderDetails, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]model.Order, error)
}

type orderService struct {
	logger *slog.Logger
	store  storage.Storage
	ledger ledger.Ledger
	now    func() time.Time
}

func NewOrderService(
	logger *slog.Logger,
	store storage.Storage,
	l ledger.Ledger,
) OrderService {
	return &orderService{
		logger: logger.With(slog.String("service", "order")),
		store:  store,
		ledger: l,
		now:    time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, params CreateOrderParams) (model.Order, error) {
	change, err := s.apply(ctx, "create order", event.TopicOrderCreated, func(m *order.Machine) (order.Change, error) {
		return m.Create(ctx, params.ProductID, params.Quantity)
	})
	if err != nil {
		return model.Order{}, err
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", change.Order.ID.String()),
		slog.String("product_id", change.Order.ProductID.String()),
		slog.Int("quantity", change.Order.Quantity),
		slog.Int("stock", change.Stock.Stock),
	)

	return change.Order, nil
}

func (s *orderService) UpdateOrderQuantity(ctx context.Context, id uuid.UUID, quantity int) (model.Order, error) {
	change, err := s.apply(ctx, "update order quantity", event.TopicOrderQuantityUpdated, func(m *order.Machine) (order.Change, error) {
		return m.UpdateQuantity(ctx, id, quantity)
	})
	if err != nil {
		return model.Order{}, err
	}

	if change.Changed {
		s.logger.InfoContext(ctx, "order quantity updated",
			slog.String("order_id", id.String()),
			slog.Int("previous_quantity", change.Previous.Quantity),
			slog.Int("quantity", change.Order.Quantity),
		)
	}

	return change.Order, nil
}

func (s *orderService) MarkPaid(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return s.transition(ctx, id, model.OrderStatusPaid)
}

func (s *orderService) ShipOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return s.transition(ctx, id, model.OrderStatusShipped)
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return s.transition(ctx, id, model.OrderStatusCanceled)
}

func (s *orderService) transition(ctx context.Context, id uuid.UUID, target model.OrderStatus) (model.Order, error) {
	op := fmt.Sprintf("transition order to %s", target)
	change, err := s.apply(ctx, op, event.OrderTopicFor(target), func(m *order.Machine) (order.Change, error) {
		return m.Transition(ctx, id, target)
	})
	if err != nil {
		return model.Order{}, err
	}

	if change.Changed {
		s.logger.InfoContext(ctx, "order status changed",
			slog.String("order_id", id.String()),
			slog.String("from", change.Previous.Status.String()),
			slog.String("to", change.Order.Status.String()),
		)
	}

	return change.Order, nil
}

func (s *orderService) ForceDeleteOrder(ctx context.Context, params ForceDeleteOrderParams) error {
	change, err := s.apply(ctx, "force delete order", event.TopicOrderDeleted, func(m *order.Machine) (order.Change, error) {
		return m.Delete(ctx, params.ID, params.RestoreStock)
	})
	if err != nil {
		return err
	}

	if change.Previous.Status.HoldsReservation() && !change.StockMoved {
		s.logger.WarnContext(ctx, "order deleted without restoring its reserved stock",
			slog.String("order_id", params.ID.String()),
			slog.String("status", change.Previous.Status.String()),
			slog.String("product_id", change.Previous.ProductID.String()),
			slog.Int("quantity", change.Previous.Quantity),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "order deleted",
		slog.String("order_id", params.ID.String()),
		slog.Bool("stock_restored", change.StockMoved),
	)

	return nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	o, err := s.store.Orders().GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, fmt.Errorf("order repository get order: %w", err)
	}

	return o, nil
}

func (s *orderService) GetOrderDetails(ctx context.Context, id uuid.UUID) (OrderDetails, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}

	product, err := s.store.Products().GetProduct(ctx, o.ProductID)
	if err != nil {
		return OrderDetails{}, fmt.Errorf("product repository get product: %w", err)
	}

	return OrderDetails{
		Order:   o,
		Product: product,
		Total:   product.Price.Mul(decimal.NewFromInt(int64(o.Quantity))),
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context, params ListOrdersParams) ([]model.Order, error) {
	if params.Limit < 0 || params.Limit > MaxListLimit {
		return nil, apperr.NewValidation("limit must be between 0 and %d", MaxListLimit)
	}
	if params.Offset < 0 {
		return nil, apperr.NewValidation("offset must be greater than or equal to 0")
	}
	if params.Status != nil {
		if err := params.Status.Validate(); err != nil {
			return nil, apperr.NewValidation("%s", err.Error())
		}
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	orders, err := s.store.Orders().ListOrders(ctx, repository.ListOrdersParams{
		Status:    params.Status,
		ProductID: params.ProductID,
		Limit:     limit,
		Offset:    params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("order repository list orders: %w", err)
	}

	return orders, nil
}

// apply runs fn and the outbox write of its event as one unit of work. No
// event is written for no-op changes.
func (s *orderService) apply(
	ctx context.Context,
	op string,
	topic string,
	fn func(m *order.Machine) (order.Change, error),
) (order.Change, error) {
	var change order.Change
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		m := order.NewMachine(tx.Orders(), s.ledger.WithStore(tx.Stock()))

		var err error
		change, err = fn(m)
		if err != nil {
			return err
		}
		if !change.Changed {
			return nil
		}

		return writeEvent(ctx, tx, topic, change.Order.ID, s.orderEvent(change))
	})
	if err != nil {
		s.logger.Log(ctx, logLevelFor(err), op+" failed", slog.Any("error", err))
		return order.Change{}, fmt.Errorf("%s: %w", op, err)
	}

	return change, nil
}

func (s *orderService) orderEvent(change order.Change) event.OrderEvent {
	ev := event.OrderEvent{
		OrderID:    change.Order.ID.String(),
		ProductID:  change.Order.ProductID.String(),
		Quantity:   change.Order.Quantity,
		Status:     change.Order.Status.String(),
		OccurredAt: s.now(),
	}
	if change.Previous.Status != "" && change.Previous.Status != change.Order.Status {
		ev.PreviousStatus = change.Previous.Status.String()
	}
	if change.Previous.Quantity != 0 && change.Previous.Quantity != change.Order.Quantity {
		ev.PreviousQuantity = change.Previous.Quantity
	}
	if change.StockMoved {
		stock := change.Stock.Stock
		ev.StockRemaining = &stock
	}

	return ev
}
