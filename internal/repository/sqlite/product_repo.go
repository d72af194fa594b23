package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// productRepository implements repository.ProductRepository for SQLite.
// Prices are stored as decimal text so they round-trip exactly.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new SQLite product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, image, category, stock, created_at, updated_at`

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		nullString(product.Description),
		product.Price.String(),
		nullString(product.Image),
		nullString(product.Category),
		product.Stock,
		formatTime(product.CreatedAt),
		formatTime(product.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create product: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProductNotFound.WithResource(id.String())
		}
		return nil, fmt.Errorf("%w: failed to get product: %v", domain.ErrUnavailable, err)
	}
	return product, nil
}

// List returns all products.
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list products: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan product: %v", domain.ErrUnavailable, err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating products: %v", domain.ErrUnavailable, err)
	}

	return products, nil
}

// Update replaces all mutable fields of an existing product.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = ?, description = ?, price = ?, image = ?, category = ?, stock = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		nullString(product.Description),
		product.Price.String(),
		nullString(product.Image),
		nullString(product.Category),
		product.Stock,
		formatTime(product.UpdatedAt),
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update product: %v", domain.ErrUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", domain.ErrUnavailable, err)
	}
	if rowsAffected == 0 {
		return domain.ErrProductNotFound.WithResource(product.ID.String())
	}

	return nil
}

// Delete deletes a product by ID. Cart lines referencing it cascade.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete product: %v", domain.ErrUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get rows affected: %v", domain.ErrUnavailable, err)
	}
	return rowsAffected > 0, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var description, image, category sql.NullString
	var price, createdAt, updatedAt string

	err := row.Scan(
		&product.ID,
		&product.Name,
		&description,
		&price,
		&image,
		&category,
		&product.Stock,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	product.Description = scanNullString(description)
	product.Image = scanNullString(image)
	product.Category = scanNullString(category)
	product.CreatedAt = parseTime(createdAt)
	product.UpdatedAt = parseTime(updatedAt)

	return product, nil
}
