package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/db"
)

type ListProductsParams struct {
	// InStockOnly keeps products with stock > 0.
	InStockOnly bool
	// BelowStock keeps products with stock strictly below the value.
	BelowStock *int
	// NameContains keeps products whose name contains the text, ignoring case.
	NameContains string
}

type ProductRepository interface {
	// CreateProduct stores the catalog entry and its starting stock.
	// A taken SKU yields apperr.DuplicateSkuErr.
	CreateProduct(ctx context.Context, product model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	// GetProductForUpdate reads the product and keeps its catalog entry locked
	// against other transactions until the surrounding transaction ends.
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetProductBySku(ctx context.Context, sku string) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	// UpdateProduct rewrites sku, name, price and updated_at. Stock and
	// version are left to the stock store. A taken SKU yields
	// apperr.DuplicateSkuErr.
	UpdateProduct(ctx context.Context, product model.Product) error
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) *productRepository {
	return &productRepository{
		db: db,
	}
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	var price pgtype.Numeric
	if err := price.Scan(product.Price.StringFixed(2)); err != nil {
		return fmt.Errorf("scan price: %w", err)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, sku, name, price, stock, version, created_at, updated_at)
		VALUES (@id, @sku, @name, @price, @stock, @version, @created_at, @updated_at)
	`, pgx.NamedArgs{
		"id":         product.ID,
		"sku":        product.Sku,
		"name":       product.Name,
		"price":      price,
		"stock":      product.Stock,
		"version":    product.Version,
		"created_at": product.CreatedAt,
		"updated_at": product.UpdatedAt,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.DuplicateSkuErr.WithMsg("Product with SKU '%s' already exists", product.Sku).WrapParent(err)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

const selectProductColumns = `SELECT id, sku, name, price, stock, version, created_at, updated_at FROM products`

func (r productRepository) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := scanProduct(r.db.QueryRow(ctx, selectProductColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.NewProductNotFound(id)
		}
		return model.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := scanProduct(r.db.QueryRow(ctx, selectProductColumns+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.NewProductNotFound(id)
		}
		return model.Product{}, fmt.Errorf("select product for update: %w", err)
	}

	return product, nil
}

func (r productRepository) GetProductBySku(ctx context.Context, sku string) (model.Product, error) {
	product, err := scanProduct(r.db.QueryRow(ctx, selectProductColumns+` WHERE sku = $1`, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.ProductNotFoundErr.WithMsg("product with SKU '%s' not found", sku)
		}
		return model.Product{}, fmt.Errorf("select product by sku: %w", err)
	}

	return product, nil
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	var (
		conds []string
		args  = pgx.NamedArgs{}
	)
	if params.InStockOnly {
		conds = append(conds, "stock > 0")
	}
	if params.BelowStock != nil {
		conds = append(conds, "stock < @below_stock")
		args["below_stock"] = *params.BelowStock
	}
	if params.NameContains != "" {
		conds = append(conds, "name ILIKE '%' || @name || '%'")
		args["name"] = params.NameContains
	}

	query := selectProductColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect products: %w", err)
	}

	return products, nil
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	var price pgtype.Numeric
	if err := price.Scan(product.Price.StringFixed(2)); err != nil {
		return fmt.Errorf("scan price: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET sku = @sku, name = @name, price = @price, updated_at = @updated_at
		WHERE id = @id
	`, pgx.NamedArgs{
		"id":         product.ID,
		"sku":        product.Sku,
		"name":       product.Name,
		"price":      price,
		"updated_at": product.UpdatedAt,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.DuplicateSkuErr.WithMsg("Product with SKU '%s' already exists", product.Sku).WrapParent(err)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewProductNotFound(product.ID)
	}

	return nil
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		product model.Product
		price   pgtype.Numeric
	)
	if err := row.Scan(
		&product.ID,
		&product.Sku,
		&product.Name,
		&price,
		&product.Stock,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return model.Product{}, err
	}

	d, err := numericToDecimal(price)
	if err != nil {
		return model.Product{}, err
	}
	product.Price = d

	return product, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Decimal{}, fmt.Errorf("invalid numeric price")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
