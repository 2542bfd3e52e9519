package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
)

type orderHandler struct {
	*handler
	orderSvc service.OrderService
}

func newOrderHandler(h *handler, orderSvc service.OrderService) *orderHandler {
	return &orderHandler{
		handler:  h,
		orderSvc: orderSvc,
	}
}

func (h *orderHandler) ListOrders(w http.ResponseWriter, r *http.Request) error {
	var (
		status    *string
		productID *uuid.UUID
		limit     *int
		offset    *int
	)
	if err := queryParam(r, "status", &status); err != nil {
		return err
	}
	if err := queryParam(r, "product_id", &productID); err != nil {
		return err
	}
	if err := queryParam(r, "limit", &limit); err != nil {
		return err
	}
	if err := queryParam(r, "offset", &offset); err != nil {
		return err
	}

	params := service.ListOrdersParams{ProductID: productID}
	if status != nil {
		s, err := model.ParseOrderStatus(*status)
		if err != nil {
			return &requestError{param: "status", err: err}
		}
		params.Status = &s
	}
	if limit != nil {
		params.Limit = *limit
	}
	if offset != nil {
		params.Offset = *offset
	}

	orders, err := h.orderSvc.ListOrders(r.Context(), params)
	if err != nil {
		return fmt.Errorf("order service list orders: %w", err)
	}

	items := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *orderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) error {
	var req CreateOrderRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	o, err := h.orderSvc.CreateOrder(r.Context(), service.CreateOrderParams{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return fmt.Errorf("order service create order: %w", err)
	}

	return writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *orderHandler) GetOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "orderID")
	if err != nil {
		return err
	}

	details, err := h.orderSvc.GetOrderDetails(r.Context(), id)
	if err != nil {
		return fmt.Errorf("order service get order details: %w", err)
	}

	return writeJSON(w, http.StatusOK, toOrderDetailsResponse(details))
}

// UpdateOrder changes the quantity of a PENDING order.
func (h *orderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "orderID")
	if err != nil {
		return err
	}

	var req UpdateOrderRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	o, err := h.orderSvc.UpdateOrderQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		return fmt.Errorf("order service update order quantity: %w", err)
	}

	return writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *orderHandler) PayOrder(w http.ResponseWriter, r *http.Request) error {
	return h.transitionTo(w, r, model.OrderStatusPaid)
}

func (h *orderHandler) ShipOrder(w http.ResponseWriter, r *http.Request) error {
	return h.transitionTo(w, r, model.OrderStatusShipped)
}

func (h *orderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) error {
	return h.transitionTo(w, r, model.OrderStatusCanceled)
}

// DeleteOrder cancels the order. With force=true the order is removed
// instead, and restore_stock=true gives its reservation back first.
func (h *orderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "orderID")
	if err != nil {
		return err
	}

	var force, restoreStock *bool
	if err := queryParam(r, "force", &force); err != nil {
		return err
	}
	if err := queryParam(r, "restore_stock", &restoreStock); err != nil {
		return err
	}

	if force == nil || !*force {
		o, err := h.orderSvc.CancelOrder(r.Context(), id)
		if err != nil {
			return fmt.Errorf("order service cancel order: %w", err)
		}
		return writeJSON(w, http.StatusOK, toOrderResponse(o))
	}

	if err := h.orderSvc.ForceDeleteOrder(r.Context(), service.ForceDeleteOrderParams{
		ID:           id,
		RestoreStock: restoreStock != nil && *restoreStock,
	}); err != nil {
		return fmt.Errorf("order service force delete order: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *orderHandler) transitionTo(w http.ResponseWriter, r *http.Request, target model.OrderStatus) error {
	id, err := pathUUID(r, "orderID")
	if err != nil {
		return err
	}

	var o model.Order
	switch target {
	case model.OrderStatusPaid:
		o, err = h.orderSvc.MarkPaid(r.Context(), id)
	case model.OrderStatusShipped:
		o, err = h.orderSvc.ShipOrder(r.Context(), id)
	default:
		o, err = h.orderSvc.CancelOrder(r.Context(), id)
	}
	if err != nil {
		return fmt.Errorf("order service transition order to %s: %w", target, err)
	}

	return writeJSON(w, http.StatusOK, toOrderResponse(o))
}
