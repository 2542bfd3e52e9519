package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/db"
)

type ListOrdersParams struct {
	Status    *model.OrderStatus
	ProductID *uuid.UUID
	// Limit of zero means no limit.
	Limit  int
	Offset int
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order model.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	// GetOrderForUpdate reads the order and keeps it locked against other
	// transactions until the surrounding transaction ends.
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (model.Order, error)
	// ListOrders returns the newest orders first.
	ListOrders(ctx context.Context, params ListOrdersParams) ([]model.Order, error)
	UpdateOrder(ctx context.Context, order model.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db db.DB
}

func NewOrderRepository(db db.DB) *orderRepository {
	return &orderRepository{
		db: db,
	}
}

func (r orderRepository) CreateOrder(ctx context.Context, order model.Order) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, product_id, quantity, status, created_at, updated_at)
		VALUES (@id, @product_id, @quantity, @status, @created_at, @updated_at)
	`, pgx.NamedArgs{
		"id":         order.ID,
		"product_id": order.ProductID,
		"quantity":   order.Quantity,
		"status":     string(order.Status),
		"created_at": order.CreatedAt,
		"updated_at": order.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

const selectOrderColumns = `SELECT id, product_id, quantity, status, created_at, updated_at FROM orders`

func (r orderRepository) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return r.getOrder(ctx, selectOrderColumns+` WHERE id = $1`, id)
}

func (r orderRepository) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return r.getOrder(ctx, selectOrderColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r orderRepository) getOrder(ctx context.Context, query string, id uuid.UUID) (model.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, apperr.NewOrderNotFound(id)
		}
		return model.Order{}, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r orderRepository) ListOrders(ctx context.Context, params ListOrdersParams) ([]model.Order, error) {
	var (
		conds []string
		args  = pgx.NamedArgs{}
	)
	if params.Status != nil {
		conds = append(conds, "status = @status")
		args["status"] = string(*params.Status)
	}
	if params.ProductID != nil {
		conds = append(conds, "product_id = @product_id")
		args["product_id"] = *params.ProductID
	}

	query := selectOrderColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if params.Limit > 0 {
		query += " LIMIT @limit"
		args["limit"] = params.Limit
	}
	if params.Offset > 0 {
		query += " OFFSET @offset"
		args["offset"] = params.Offset
	}

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect orders: %w", err)
	}

	return orders, nil
}

func (r orderRepository) UpdateOrder(ctx context.Context, order model.Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET quantity = @quantity, status = @status, updated_at = @updated_at
		WHERE id = @id
	`, pgx.NamedArgs{
		"id":         order.ID,
		"quantity":   order.Quantity,
		"status":     string(order.Status),
		"updated_at": order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewOrderNotFound(order.ID)
	}

	return nil
}

func (r orderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewOrderNotFound(id)
	}

	return nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		order  model.Order
		status string
	)
	if err := row.Scan(
		&order.ID,
		&order.ProductID,
		&order.Quantity,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return model.Order{}, err
	}
	order.Status = model.OrderStatus(status)

	return order, nil
}
