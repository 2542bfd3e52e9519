package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/event"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/ptr"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/validator"
)

const (
	maxSkuLength  = 50
	maxNameLength = 200
)

// maxPrice is the largest value a NUMERIC(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

type CreateProductParams struct {
	Sku   string
	Name  string
	Price decimal.Decimal
	Stock int
}

// UpdateProductParams holds a partial update. Nil fields stay unchanged.
// Stock is the wanted level; it is applied as a stock adjustment.
type UpdateProductParams struct {
	Sku   *string
	Name  *string
	Price *decimal.Decimal
	Stock *int
}

type ListProductsParams struct {
	InStockOnly  bool
	BelowStock   *int
	NameContains string
}

// LowStockAlert reports a product whose stock is below the threshold.
type LowStockAlert struct {
	ProductID uuid.UUID
	Sku       string
	Name      string
	Stock     int
	Threshold int
	// Shortage is the number of units missing to reach the threshold.
	Shortage int
}

type ProductService interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetProductBySku(ctx context.Context, sku string) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	// UpdateProduct changes the given fields of the product. A new stock is
	// reached through the ledger as a delta from the stock read in the same
	// unit of work, so reservations made meanwhile are kept.
	UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (model.Product, error)
	// AdjustStock applies a manual correction. Negative deltas floor at zero.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (model.Product, error)
	// LowStockAlerts lists products below threshold, or below the configured
	// default when threshold is nil.
	LowStockAlerts(ctx context.Context, threshold *int) ([]LowStockAlert, error)
	InventorySummary(ctx context.Context) (InventorySummary, error)
}

type productService struct {
	logger            *slog.Logger
	store             storage.Storage
	ledger            ledger.Ledger
	lowStockThreshold int
	now               func() time.Time
}

func NewProductService(
	logger *slog.Logger,
	store storage.Storage,
	l ledger.Ledger,
	lowStockThreshold int,
) ProductService {
	return &productService{
		logger:            logger.With(slog.String("service", "product")),
		store:             store,
		ledger:            l,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	params.Sku = NormalizeSku(params.Sku)
	params.Name = strings.TrimSpace(params.Name)
	if err := validateCreateProduct(params); err != nil {
		return model.Product{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.now()
	product := model.Product{
		ID:        id,
		Sku:       params.Sku,
		Name:      params.Name,
		Price:     params.Price,
		Stock:     params.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ev := event.ProductCreatedEvent{
		ProductID: product.ID.String(),
		Name:      product.Name,
		Sku:       product.Sku,
		Price:     product.Price,
		Stock:     product.Stock,
	}

	if err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.Products().CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}

		return writeEvent(ctx, tx, event.TopicProductCreated, product.ID, ev)
	}); err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID.String()),
		slog.String("sku", product.Sku),
		slog.Int("stock", product.Stock),
	)

	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := s.store.Products().GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("product repository get product: %w", err)
	}

	return product, nil
}

func (s *productService) GetProductBySku(ctx context.Context, sku string) (model.Product, error) {
	product, err := s.store.Products().GetProductBySku(ctx, NormalizeSku(sku))
	if err != nil {
		return model.Product{}, fmt.Errorf("product repository get product by sku: %w", err)
	}

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	if params.BelowStock != nil && *params.BelowStock < 0 {
		return nil, apperr.NewValidation("low stock threshold must be greater than or equal to 0")
	}

	products, err := s.store.Products().ListProducts(ctx, repository.ListProductsParams{
		InStockOnly:  params.InStockOnly,
		BelowStock:   params.BelowStock,
		NameContains: strings.TrimSpace(params.NameContains),
	})
	if err != nil {
		return nil, fmt.Errorf("product repository list products: %w", err)
	}

	return products, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (model.Product, error) {
	if params.Sku != nil {
		params.Sku = ptr.New(NormalizeSku(*params.Sku))
	}
	if params.Name != nil {
		params.Name = ptr.New(strings.TrimSpace(*params.Name))
	}
	if err := validateUpdateProduct(params); err != nil {
		return model.Product{}, err
	}

	var (
		product model.Product
		changed []string
	)
	if err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.Products().GetProductForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product for update: %w", err)
		}

		product = current
		if params.Sku != nil && *params.Sku != current.Sku {
			product.Sku = *params.Sku
			changed = append(changed, "sku")
		}
		if params.Name != nil && *params.Name != current.Name {
			product.Name = *params.Name
			changed = append(changed, "name")
		}
		if params.Price != nil && !params.Price.Equal(current.Price) {
			product.Price = *params.Price
			changed = append(changed, "price")
		}
		if len(changed) > 0 {
			product.UpdatedAt = s.now()
			if err := tx.Products().UpdateProduct(ctx, product); err != nil {
				return fmt.Errorf("product repository update product: %w", err)
			}
		}

		if params.Stock != nil && *params.Stock != current.Stock {
			level, _, err := s.ledger.WithStore(tx.Stock()).Adjust(ctx, id, *params.Stock-current.Stock)
			if err != nil {
				return err
			}
			product = product.WithStockLevel(level)
			product.UpdatedAt = s.now()
			changed = append(changed, "stock")
		}

		if len(changed) == 0 {
			return nil
		}

		ev := event.ProductUpdatedEvent{
			ProductID: id.String(),
			Sku:       product.Sku,
			Name:      product.Name,
			Price:     product.Price,
			Stock:     product.Stock,
			Changed:   changed,
		}
		if product.Sku != current.Sku {
			ev.PreviousSku = current.Sku
		}
		return writeEvent(ctx, tx, event.TopicProductUpdated, id, ev)
	}); err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	if len(changed) > 0 {
		s.logger.InfoContext(ctx, "product updated",
			slog.String("product_id", id.String()),
			slog.Any("changed", changed),
			slog.Int("stock", product.Stock),
		)
	}

	return product, nil
}

func (s *productService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (model.Product, error) {
	var product model.Product
	if err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.Products().GetProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product: %w", err)
		}

		level, applied, err := s.ledger.WithStore(tx.Stock()).Adjust(ctx, id, delta)
		if err != nil {
			return err
		}
		product = current.WithStockLevel(level)

		if delta == 0 {
			return nil
		}

		return writeEvent(ctx, tx, event.TopicProductStockAdjusted, id, event.ProductStockAdjustedEvent{
			ProductID: id.String(),
			Sku:       product.Sku,
			Requested: delta,
			Applied:   applied,
			Stock:     level.Stock,
		})
	}); err != nil {
		return model.Product{}, fmt.Errorf("adjust stock: %w", err)
	}

	s.logger.InfoContext(ctx, "product stock adjusted",
		slog.String("product_id", id.String()),
		slog.Int("delta", delta),
		slog.Int("stock", product.Stock),
	)

	return product, nil
}

func (s *productService) LowStockAlerts(ctx context.Context, threshold *int) ([]LowStockAlert, error) {
	limit := s.lowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	if limit < 0 {
		return nil, apperr.NewValidation("low stock threshold must be greater than or equal to 0")
	}

	products, err := s.store.Products().ListProducts(ctx, repository.ListProductsParams{
		BelowStock: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("product repository list products: %w", err)
	}

	alerts := make([]LowStockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, LowStockAlert{
			ProductID: p.ID,
			Sku:       p.Sku,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: limit,
			Shortage:  limit - p.Stock,
		})
	}

	return alerts, nil
}

// NormalizeSku returns the canonical, upper-cased form of sku.
func NormalizeSku(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func validateCreateProduct(params CreateProductParams) error {
	if err := validateSku(params.Sku); err != nil {
		return err
	}
	if err := validateName(params.Name); err != nil {
		return err
	}
	if err := validatePrice(params.Price); err != nil {
		return err
	}
	return validateStock(params.Stock)
}

func validateUpdateProduct(params UpdateProductParams) error {
	if params.Sku != nil {
		if err := validateSku(*params.Sku); err != nil {
			return err
		}
	}
	if params.Name != nil {
		if err := validateName(*params.Name); err != nil {
			return err
		}
	}
	if params.Price != nil {
		if err := validatePrice(*params.Price); err != nil {
			return err
		}
	}
	if params.Stock != nil {
		return validateStock(*params.Stock)
	}
	return nil
}

func validateSku(sku string) error {
	switch {
	case sku == "" || len(sku) > maxSkuLength:
		return apperr.NewValidation("sku must be between 1 and %d characters", maxSkuLength)
	case !validator.SkuRegex.MatchString(sku):
		return apperr.NewValidation("sku must contain only letters, numbers, hyphens and underscores")
	}
	return nil
}

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return apperr.NewValidation("name must be between 1 and %d characters", maxNameLength)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	switch {
	case !price.IsPositive():
		return apperr.NewValidation("price must be greater than 0")
	case !price.Equal(price.Truncate(2)):
		return apperr.NewValidation("price must have at most 2 decimal places")
	case price.GreaterThan(maxPrice):
		return apperr.NewValidation("price must be at most %s", maxPrice)
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return apperr.NewValidation("stock must be greater than or equal to 0")
	}
	return nil
}
