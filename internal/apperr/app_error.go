package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/zerror"
)

const (
	ValidationErrorCode        = "VALIDATION_FAILED"
	ProductNotFoundCode        = "PRODUCT_NOT_FOUND"
	OrderNotFoundCode          = "ORDER_NOT_FOUND"
	InsufficientStockCode      = "INSUFFICIENT_STOCK"
	InvalidStateTransitionCode = "INVALID_STATE_TRANSITION"
	ConcurrentModificationCode = "CONCURRENT_MODIFICATION"
	DuplicateSkuCode           = "DUPLICATE_SKU"
)

var (
	ValidationErr             = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	ProductNotFoundErr        = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	OrderNotFoundErr          = zerror.NewNotFound(OrderNotFoundCode, "order not found")
	InsufficientStockErr      = zerror.NewConflict(InsufficientStockCode, "insufficient stock")
	InvalidStateTransitionErr = zerror.NewUnprocessableEntity(InvalidStateTransitionCode, "invalid order status transition")
	ConcurrentModificationErr = zerror.NewConflict(ConcurrentModificationCode, "concurrent modification, please retry")
	DuplicateSkuErr           = zerror.NewConflict(DuplicateSkuCode, "product with this sku already exists")
)

// NewValidation returns a ValidationErr with a specific message.
func NewValidation(format string, args ...any) error {
	return ValidationErr.WithMsg(format, args...)
}

// NewProductNotFound returns a ProductNotFoundErr naming the product.
func NewProductNotFound(id uuid.UUID) error {
	return ProductNotFoundErr.WithMsg("product with ID %s not found", id)
}

// NewOrderNotFound returns an OrderNotFoundErr naming the order.
func NewOrderNotFound(id uuid.UUID) error {
	return OrderNotFoundErr.WithMsg("order with ID %s not found", id)
}

// InsufficientStockError reports a reservation that asked for more than the
// product had.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func NewInsufficientStock(productID uuid.UUID, available, requested int) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return InsufficientStockErr.WithMsg("Insufficient stock. Available: %d, Requested: %d", e.Available, e.Requested)
}

// InvalidStateTransitionError reports a status change the order lifecycle
// does not allow.
type InvalidStateTransitionError struct {
	OrderID uuid.UUID
	Current model.OrderStatus
	Target  model.OrderStatus
}

func NewInvalidStateTransition(orderID uuid.UUID, current, target model.OrderStatus) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{
		OrderID: orderID,
		Current: current,
		Target:  target,
	}
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid status transition from %s to %s", e.OrderID, e.Current, e.Target)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return InvalidStateTransitionErr.WithMsg("Invalid status transition from %s to %s", e.Current, e.Target)
}

// NewQuantityLocked reports a quantity change on an order that left PENDING.
func NewQuantityLocked(status model.OrderStatus) error {
	return InvalidStateTransitionErr.WithMsg(
		"Cannot change quantity for %s orders. Only PENDING orders can be modified.", status)
}

// ConcurrentModificationError reports an optimistic update that kept losing
// the version race. Cause is set when a context ended the retry loop.
type ConcurrentModificationError struct {
	ProductID uuid.UUID
	Attempts  int
	Cause     error
}

func (e *ConcurrentModificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("product %s: concurrent modification after %d attempts: %v", e.ProductID, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("product %s: concurrent modification after %d attempts", e.ProductID, e.Attempts)
}

func (e *ConcurrentModificationError) Unwrap() []error {
	zErr := ConcurrentModificationErr.WithMsg(
		"Unable to complete operation after %d attempts due to concurrent modifications. Please try again.", e.Attempts)
	if e.Cause != nil {
		return []error{zErr, e.Cause}
	}
	return []error{zErr}
}

// IsRetryable reports whether the caller may repeat the request unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ConcurrentModificationErr)
}
