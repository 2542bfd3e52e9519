package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicontract "github.com/tuanvumaihuynh/orders-inventory/api-contract"
	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/config"
	apihttp "github.com/tuanvumaihuynh/orders-inventory/internal/http"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http/apierr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/memory"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/correlationid"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	l := ledger.New(ledger.StrategyAtomic, store.Stock())

	svc, err := apihttp.New(
		config.HTTP{Swagger: true},
		logger,
		service.NewProductService(logger, store, l, 10),
		service.NewOrderService(logger, store, l),
	)
	require.NoError(t, err)

	return svc.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func createProduct(t *testing.T, h http.Handler, sku string, stock int) apihttp.ProductResponse {
	t.Helper()

	resp := do(t, h, http.MethodPost, "/api/v1/products", map[string]any{
		"sku":   sku,
		"name":  "Product " + sku,
		"price": 19.99,
		"stock": stock,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	return decode[apihttp.ProductResponse](t, resp)
}

func createOrder(t *testing.T, h http.Handler, productID uuid.UUID, qty int) *httptest.ResponseRecorder {
	t.Helper()

	return do(t, h, http.MethodPost, "/api/v1/orders", map[string]any{
		"product_id": productID,
		"quantity":   qty,
	})
}

func TestProducts(t *testing.T) {
	h := newServer(t)

	t.Run("Should create and fetch a product", func(t *testing.T) {
		p := createProduct(t, h, "widget-1", 5)
		assert.Equal(t, "WIDGET-1", p.Sku)
		assert.Equal(t, "19.99", p.Price.String())

		resp := do(t, h, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, p.ID, decode[apihttp.ProductResponse](t, resp).ID)

		resp = do(t, h, http.MethodGet, "/api/v1/products/by-sku/widget-1", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, p.ID, decode[apihttp.ProductResponse](t, resp).ID)
	})

	t.Run("Should reject a duplicate sku", func(t *testing.T) {
		createProduct(t, h, "DUP-1", 1)

		resp := do(t, h, http.MethodPost, "/api/v1/products", map[string]any{
			"sku": "DUP-1", "name": "Again", "price": "1.00", "stock": 0,
		})
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, apperr.DuplicateSkuCode, decode[apierr.ErrorResponse](t, resp).Code)
	})

	t.Run("Should list invalid fields", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/v1/products", map[string]any{
			"sku": "BAD SKU", "name": "Bad", "price": 1,
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)

		res := decode[apierr.ErrorResponse](t, resp)
		require.NotNil(t, res.Details)
		fields := []string{}
		for _, d := range *res.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"sku", "stock"}, fields)
	})

	t.Run("Should reject unknown fields", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/api/v1/products", map[string]any{
			"sku": "X", "name": "X", "price": 1, "stock": 1, "color": "red",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should reject a malformed id", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/v1/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.ValidationErrorCode, decode[apierr.ErrorResponse](t, resp).Code)
	})

	t.Run("Should report unknown products", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, apperr.ProductNotFoundCode, decode[apierr.ErrorResponse](t, resp).Code)
	})

	t.Run("Should adjust stock and floor at zero", func(t *testing.T) {
		p := createProduct(t, h, "ADJ-1", 4)

		resp := do(t, h, http.MethodPost, "/api/v1/products/"+p.ID.String()+"/stock-adjustments", map[string]any{
			"adjustment": -10,
			"reason":     "damaged",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, 0, decode[apihttp.ProductResponse](t, resp).Stock)

		resp = do(t, h, http.MethodPost, "/api/v1/products/"+p.ID.String()+"/stock-adjustments", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should update only the given fields", func(t *testing.T) {
		p := createProduct(t, h, "UPD-1", 4)
		createProduct(t, h, "UPD-TAKEN", 1)

		resp := do(t, h, http.MethodPut, "/api/v1/products/"+p.ID.String(), map[string]any{
			"name":  "Renamed",
			"stock": 9,
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		got := decode[apihttp.ProductResponse](t, resp)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, "UPD-1", got.Sku)
		assert.Equal(t, "19.99", got.Price.String())
		assert.Equal(t, 9, got.Stock)

		resp = do(t, h, http.MethodPut, "/api/v1/products/"+p.ID.String(), map[string]any{"sku": "upd-taken"})
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, apperr.DuplicateSkuCode, decode[apierr.ErrorResponse](t, resp).Code)

		resp = do(t, h, http.MethodPut, "/api/v1/products/"+p.ID.String(), map[string]any{"stock": -1})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = do(t, h, http.MethodPut, "/api/v1/products/"+uuid.NewString(), map[string]any{"name": "Ghost"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("Should filter and alert on low stock", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/v1/products?in_stock=true&q=widget", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, decode[[]apihttp.ProductResponse](t, resp), 1)

		resp = do(t, h, http.MethodGet, "/api/v1/products?low_stock_threshold=abc", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = do(t, h, http.MethodGet, "/api/v1/products/low-stock?threshold=2", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		alerts := decode[[]apihttp.LowStockAlertResponse](t, resp)
		require.NotEmpty(t, alerts)
		for _, a := range alerts {
			assert.Less(t, a.CurrentStock, 2)
			assert.Equal(t, 2-a.CurrentStock, a.Shortage)
		}
	})

	t.Run("Should summarize the inventory", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/v1/inventory/summary", nil)
		require.Equal(t, http.StatusOK, resp.Code)

		summary := decode[apihttp.InventorySummaryResponse](t, resp)
		assert.Positive(t, summary.Products.Total)
		assert.Contains(t, summary.Orders.ByStatus, "PENDING")
	})
}

func TestOrders(t *testing.T) {
	h := newServer(t)

	t.Run("Should walk an order through its lifecycle", func(t *testing.T) {
		p := createProduct(t, h, "LIFE-1", 50)

		resp := createOrder(t, h, p.ID, 3)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		o := decode[apihttp.OrderResponse](t, resp)
		assert.Equal(t, "PENDING", o.Status)
		assert.ElementsMatch(t, []string{"PAID", "CANCELED"}, o.AllowedTransitions)

		resp = do(t, h, http.MethodGet, "/api/v1/orders/"+o.ID.String(), nil)
		require.Equal(t, http.StatusOK, resp.Code)
		details := decode[apihttp.OrderDetailsResponse](t, resp)
		assert.Equal(t, "59.97", details.TotalValue.String())
		assert.Equal(t, 47, details.Product.Stock)

		resp = do(t, h, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/pay", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "PAID", decode[apihttp.OrderResponse](t, resp).Status)

		resp = do(t, h, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/ship", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		shipped := decode[apihttp.OrderResponse](t, resp)
		assert.Equal(t, "SHIPPED", shipped.Status)
		assert.Empty(t, shipped.AllowedTransitions)

		resp = do(t, h, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/cancel", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Equal(t, apperr.InvalidStateTransitionCode, decode[apierr.ErrorResponse](t, resp).Code)
	})

	t.Run("Should report insufficient stock", func(t *testing.T) {
		p := createProduct(t, h, "SHORT-1", 3)

		resp := createOrder(t, h, p.ID, 5)
		require.Equal(t, http.StatusConflict, resp.Code)
		res := decode[apierr.ErrorResponse](t, resp)
		assert.Equal(t, apperr.InsufficientStockCode, res.Code)
		assert.Equal(t, "Insufficient stock. Available: 3, Requested: 5", res.Message)
	})

	t.Run("Should update the quantity of a pending order", func(t *testing.T) {
		p := createProduct(t, h, "PATCH-1", 20)
		o := decode[apihttp.OrderResponse](t, createOrder(t, h, p.ID, 5))

		resp := do(t, h, http.MethodPatch, "/api/v1/orders/"+o.ID.String(), map[string]any{"quantity": 8})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, 8, decode[apihttp.OrderResponse](t, resp).Quantity)

		resp = do(t, h, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
		assert.Equal(t, 12, decode[apihttp.ProductResponse](t, resp).Stock)

		resp = do(t, h, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/pay", nil)
		require.Equal(t, http.StatusOK, resp.Code)

		resp = do(t, h, http.MethodPatch, "/api/v1/orders/"+o.ID.String(), map[string]any{"quantity": 2})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		resp = do(t, h, http.MethodPatch, "/api/v1/orders/"+o.ID.String(), map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should cancel on delete and restore stock once", func(t *testing.T) {
		p := createProduct(t, h, "CANCEL-1", 50)
		o := decode[apihttp.OrderResponse](t, createOrder(t, h, p.ID, 10))

		for range 2 {
			resp := do(t, h, http.MethodDelete, "/api/v1/orders/"+o.ID.String(), nil)
			require.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, "CANCELED", decode[apihttp.OrderResponse](t, resp).Status)
		}

		resp := do(t, h, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
		assert.Equal(t, 50, decode[apihttp.ProductResponse](t, resp).Stock)
	})

	t.Run("Should force delete", func(t *testing.T) {
		p := createProduct(t, h, "FORCE-1", 50)
		o := decode[apihttp.OrderResponse](t, createOrder(t, h, p.ID, 10))

		resp := do(t, h, http.MethodDelete, "/api/v1/orders/"+o.ID.String()+"?force=true&restore_stock=true", nil)
		require.Equal(t, http.StatusNoContent, resp.Code)

		resp = do(t, h, http.MethodGet, "/api/v1/orders/"+o.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = do(t, h, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
		assert.Equal(t, 50, decode[apihttp.ProductResponse](t, resp).Stock)
	})

	t.Run("Should filter orders", func(t *testing.T) {
		p := createProduct(t, h, "LIST-1", 50)
		createOrder(t, h, p.ID, 1)
		createOrder(t, h, p.ID, 2)

		resp := do(t, h, http.MethodGet, "/api/v1/orders?product_id="+p.ID.String()+"&status=pending&limit=1", nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Len(t, decode[[]apihttp.OrderResponse](t, resp), 1)

		resp = do(t, h, http.MethodGet, "/api/v1/orders?status=LOST", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = do(t, h, http.MethodGet, "/api/v1/orders?limit=5000", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestMiddlewares(t *testing.T) {
	h := newServer(t)

	t.Run("Should echo the correlation id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(correlationid.Header, "corr-42")
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "corr-42", resp.Header().Get(correlationid.Header))
	})

	t.Run("Should issue a correlation id", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/healthz", nil)
		assert.NotEmpty(t, resp.Header().Get(correlationid.Header))
	})

	t.Run("Should answer unknown routes with json", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/api/v1/nothing", nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Header().Get("Content-Type"), "application/json")
	})

	t.Run("Should serve metrics", func(t *testing.T) {
		do(t, h, http.MethodGet, "/healthz", nil)

		resp := do(t, h, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "orders_inventory_http_requests_total")
	})
}

func TestRoutesMatchContract(t *testing.T) {
	doc, err := apicontract.Load()
	require.NoError(t, err)

	router, ok := newServer(t).(chi.Routes)
	require.True(t, ok)

	err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/docs") || route == "/metrics" {
			return nil
		}
		path := strings.TrimSuffix(route, "/")

		item := doc.Paths.Find(path)
		if assert.NotNil(t, item, "route %s missing from the contract", path) {
			assert.NotNil(t, item.GetOperation(method), "%s %s missing from the contract", method, path)
		}
		return nil
	})
	require.NoError(t, err)
}
