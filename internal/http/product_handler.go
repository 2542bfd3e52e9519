package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
)

type productHandler struct {
	*handler
	productSvc service.ProductService
}

func newProductHandler(h *handler, productSvc service.ProductService) *productHandler {
	return &productHandler{
		handler:    h,
		productSvc: productSvc,
	}
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	var (
		inStock   *bool
		threshold *int
		q         *string
	)
	if err := queryParam(r, "in_stock", &inStock); err != nil {
		return err
	}
	if err := queryParam(r, "low_stock_threshold", &threshold); err != nil {
		return err
	}
	if err := queryParam(r, "q", &q); err != nil {
		return err
	}

	params := service.ListProductsParams{
		InStockOnly: inStock != nil && *inStock,
		BelowStock:  threshold,
	}
	if q != nil {
		params.NameContains = *q
	}

	products, err := h.productSvc.ListProducts(r.Context(), params)
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	items := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		items = append(items, toProductResponse(product))
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var req CreateProductRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	product, err := h.productSvc.CreateProduct(r.Context(), service.CreateProductParams{
		Sku:   req.Sku,
		Name:  req.Name,
		Price: req.Price,
		Stock: *req.Stock,
	})
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	return writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "productID")
	if err != nil {
		return err
	}

	product, err := h.productSvc.GetProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	return writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *productHandler) GetProductBySku(w http.ResponseWriter, r *http.Request) error {
	product, err := h.productSvc.GetProductBySku(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		return fmt.Errorf("product service get product by sku: %w", err)
	}

	return writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "productID")
	if err != nil {
		return err
	}

	var req UpdateProductRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	product, err := h.productSvc.UpdateProduct(r.Context(), id, service.UpdateProductParams{
		Sku:   req.Sku,
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}

	return writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *productHandler) AdjustStock(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "productID")
	if err != nil {
		return err
	}

	var req AdjustStockRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	product, err := h.productSvc.AdjustStock(r.Context(), id, *req.Adjustment)
	if err != nil {
		return fmt.Errorf("product service adjust stock: %w", err)
	}

	return writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *productHandler) LowStockAlerts(w http.ResponseWriter, r *http.Request) error {
	var threshold *int
	if err := queryParam(r, "threshold", &threshold); err != nil {
		return err
	}

	alerts, err := h.productSvc.LowStockAlerts(r.Context(), threshold)
	if err != nil {
		return fmt.Errorf("product service low stock alerts: %w", err)
	}

	items := make([]LowStockAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, LowStockAlertResponse{
			ProductID:    a.ProductID,
			Sku:          a.Sku,
			Name:         a.Name,
			CurrentStock: a.Stock,
			Threshold:    a.Threshold,
			Shortage:     a.Shortage,
		})
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *productHandler) InventorySummary(w http.ResponseWriter, r *http.Request) error {
	summary, err := h.productSvc.InventorySummary(r.Context())
	if err != nil {
		return fmt.Errorf("product service inventory summary: %w", err)
	}

	return writeJSON(w, http.StatusOK, toInventorySummaryResponse(summary))
}
