package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
)

var _ repository.ProductRepository = (*productRepository)(nil)

// productRepository serves catalog fields from the store and the stock
// counter from the stock store.
type productRepository struct {
	s *Store
	j *journal
}

func (r *productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	seeder, ok := r.s.stock.(ledger.Seeder)
	if !ok {
		return fmt.Errorf("stock store %T cannot seed new products", r.s.stock)
	}

	r.s.mu.Lock()
	if _, taken := r.s.skus[product.Sku]; taken {
		r.s.mu.Unlock()
		return apperr.DuplicateSkuErr.WithMsg("Product with SKU '%s' already exists", product.Sku)
	}
	if _, taken := r.s.products[product.ID]; taken {
		r.s.mu.Unlock()
		return fmt.Errorf("product %s already exists", product.ID)
	}
	r.s.products[product.ID] = product
	r.s.skus[product.Sku] = product.ID
	r.s.mu.Unlock()

	if err := seeder.Init(ctx, product.ID, product.Stock); err != nil {
		r.s.removeProduct(product)
		return fmt.Errorf("init stock: %w", err)
	}

	if r.j != nil {
		r.j.record(func(ctx context.Context) error {
			r.s.removeProduct(product)
			return seeder.Drop(ctx, product.ID)
		})
	}

	return nil
}

func (s *Store) removeProduct(product model.Product) {
	s.mu.Lock()
	delete(s.products, product.ID)
	delete(s.skus, product.Sku)
	s.mu.Unlock()
}

func (r *productRepository) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	r.s.mu.RLock()
	product, ok := r.s.products[id]
	r.s.mu.RUnlock()
	if !ok {
		return model.Product{}, apperr.NewProductNotFound(id)
	}

	return r.withStock(ctx, product)
}

// GetProductForUpdate locks the catalog entry until the unit of work ends.
// Outside a unit of work it is a plain read.
func (r *productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error) {
	if err := r.s.lockRow(ctx, r.j, id); err != nil {
		return model.Product{}, fmt.Errorf("lock product: %w", err)
	}

	return r.GetProduct(ctx, id)
}

func (r *productRepository) GetProductBySku(ctx context.Context, sku string) (model.Product, error) {
	r.s.mu.RLock()
	id, ok := r.s.skus[sku]
	product := r.s.products[id]
	r.s.mu.RUnlock()
	if !ok {
		return model.Product{}, apperr.ProductNotFoundErr.WithMsg("product with SKU '%s' not found", sku)
	}

	return r.withStock(ctx, product)
}

func (r *productRepository) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]model.Product, error) {
	r.s.mu.RLock()
	catalog := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		catalog = append(catalog, p)
	}
	r.s.mu.RUnlock()

	needle := strings.ToLower(params.NameContains)
	products := make([]model.Product, 0, len(catalog))
	for _, p := range catalog {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}

		p, err := r.withStock(ctx, p)
		if err != nil {
			return nil, err
		}
		if params.InStockOnly && p.Stock <= 0 {
			continue
		}
		if params.BelowStock != nil && p.Stock >= *params.BelowStock {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b model.Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return products, nil
}

func (r *productRepository) UpdateProduct(_ context.Context, product model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.products[product.ID]
	if !ok {
		return apperr.NewProductNotFound(product.ID)
	}
	if owner, taken := r.s.skus[product.Sku]; taken && owner != product.ID {
		return apperr.DuplicateSkuErr.WithMsg("Product with SKU '%s' already exists", product.Sku)
	}

	product.Stock = prev.Stock
	product.Version = prev.Version
	product.CreatedAt = prev.CreatedAt
	r.s.products[product.ID] = product
	delete(r.s.skus, prev.Sku)
	r.s.skus[product.Sku] = product.ID

	if r.j != nil {
		r.j.record(func(context.Context) error {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()

			r.s.products[prev.ID] = prev
			delete(r.s.skus, product.Sku)
			r.s.skus[prev.Sku] = prev.ID
			return nil
		})
	}

	return nil
}

func (r *productRepository) withStock(ctx context.Context, product model.Product) (model.Product, error) {
	level, err := r.s.stock.Get(ctx, product.ID)
	if err != nil {
		return model.Product{}, fmt.Errorf("get stock: %w", err)
	}

	return product.WithStockLevel(level), nil
}
