package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http/apierr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/validator"
)

func TestNew(t *testing.T) {
	id := uuid.New()

	testCases := []struct {
		name       string
		err        error
		statusCode int
		code       string
		retryable  bool
	}{
		{"product not found", apperr.NewProductNotFound(id), http.StatusNotFound, apperr.ProductNotFoundCode, false},
		{"order not found", fmt.Errorf("get order: %w", apperr.NewOrderNotFound(id)), http.StatusNotFound, apperr.OrderNotFoundCode, false},
		{"insufficient stock", apperr.NewInsufficientStock(id, 3, 5), http.StatusConflict, apperr.InsufficientStockCode, false},
		{"invalid transition", apperr.NewInvalidStateTransition(id, model.OrderStatusShipped, model.OrderStatusCanceled), http.StatusUnprocessableEntity, apperr.InvalidStateTransitionCode, false},
		{"concurrent modification", &apperr.ConcurrentModificationError{ProductID: id, Attempts: 3}, http.StatusConflict, apperr.ConcurrentModificationCode, true},
		{"validation", apperr.NewValidation("quantity must be greater than 0"), http.StatusBadRequest, apperr.ValidationErrorCode, false},
		{"duplicate sku", apperr.DuplicateSkuErr, http.StatusConflict, apperr.DuplicateSkuCode, false},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
	}

	for _, tc := range testCases {
		t.Run("Should map "+tc.name, func(t *testing.T) {
			res := apierr.New(tc.err)
			assert.Equal(t, tc.statusCode, res.StatusCode)
			assert.Equal(t, tc.code, res.Code)
			assert.Equal(t, tc.retryable, res.Retryable)
		})
	}

	t.Run("Should keep the stock figures in the message", func(t *testing.T) {
		res := apierr.New(apperr.NewInsufficientStock(id, 3, 5))
		assert.Equal(t, "Insufficient stock. Available: 3, Requested: 5", res.Message)
	})

	t.Run("Should list invalid fields", func(t *testing.T) {
		v, err := validator.NewDefaultValidator()
		require.NoError(t, err)

		type request struct {
			Sku      string `validate:"required,sku"`
			Quantity int    `validate:"gt=0"`
		}
		res := apierr.New(v.Validate(request{Sku: "a b"}))

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.NotNil(t, res.Details)
		assert.Len(t, *res.Details, 2)
	})
}
