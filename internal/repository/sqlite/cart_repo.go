package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// cartRepository implements repository.CartRepository for SQLite.
type cartRepository struct {
	db *DB
}

// NewCartRepository creates a new SQLite cart repository.
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, user_id, product_id, quantity, created_at, updated_at`

// UpsertIncrement inserts the line or adds its quantity to the existing
// (user_id, product_id) line in one statement. A merge that would exceed
// domain.MaxQuantity leaves the line untouched and returns ErrInvalidQuantity.
func (r *cartRepository) UpsertIncrement(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error) {
	query := `
		INSERT INTO cart_items (` + cartColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + excluded.quantity,
			updated_at = excluded.updated_at
		WHERE cart_items.quantity + excluded.quantity <= ?
		RETURNING ` + cartColumns

	saved, err := scanCartLine(r.db.QueryRowContext(ctx, query,
		line.ID,
		line.UserID,
		line.ProductID,
		line.Quantity,
		formatTime(line.CreatedAt),
		formatTime(line.UpdatedAt),
		domain.MaxQuantity,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrInvalidQuantity.WithResource(line.ProductID.String())
		}
		if isForeignKeyViolation(err) {
			return nil, domain.ErrProductNotFound.WithResource(line.ProductID.String())
		}
		return nil, fmt.Errorf("%w: failed to upsert cart item: %v", domain.ErrUnavailable, err)
	}
	return saved, nil
}

// GetByID retrieves a cart line by ID.
func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = ?`

	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCartLineNotFound.WithResource(id.String())
		}
		return nil, fmt.Errorf("%w: failed to get cart item: %v", domain.ErrUnavailable, err)
	}
	return line, nil
}

// ListByUser returns the user's cart lines joined with their products.
func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		       p.id, p.name, p.description, p.price, p.image, p.category, p.stock, p.created_at, p.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.created_at, c.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list cart items: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		product := &domain.Product{}
		var lineCreated, lineUpdated, price, productCreated, productUpdated string
		var description, image, category sql.NullString

		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &lineCreated, &lineUpdated,
			&product.ID, &product.Name, &description, &price, &image, &category, &product.Stock,
			&productCreated, &productUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan cart item: %v", domain.ErrUnavailable, err)
		}

		product.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid stored price %q: %v", domain.ErrUnavailable, price, err)
		}
		product.Description = scanNullString(description)
		product.Image = scanNullString(image)
		product.Category = scanNullString(category)
		product.CreatedAt = parseTime(productCreated)
		product.UpdatedAt = parseTime(productUpdated)

		item.CreatedAt = parseTime(lineCreated)
		item.UpdatedAt = parseTime(lineUpdated)
		item.Product = product

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating cart items: %v", domain.ErrUnavailable, err)
	}

	return items, nil
}

// UpdateQuantity sets the quantity of a line owned by userID.
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*domain.CartLine, error) {
	query := `
		UPDATE cart_items SET quantity = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING ` + cartColumns

	line, err := scanCartLine(r.db.QueryRowContext(ctx, query,
		quantity,
		formatTime(time.Now()),
		lineID,
		userID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCartLineNotFound.WithResource(lineID.String())
		}
		return nil, fmt.Errorf("%w: failed to update cart item: %v", domain.ErrUnavailable, err)
	}
	return line, nil
}

// Delete deletes a line owned by userID.
func (r *cartRepository) Delete(ctx context.Context, userID, lineID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, lineID, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete cart item: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// DeleteByUser deletes all lines of a user.
func (r *cartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("%w: failed to clear cart: %v", domain.ErrUnavailable, err)
	}
	return nil
}

func scanCartLine(row rowScanner) (*domain.CartLine, error) {
	line := &domain.CartLine{}
	var createdAt, updatedAt string

	if err := row.Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	line.CreatedAt = parseTime(createdAt)
	line.UpdatedAt = parseTime(updatedAt)
	return line, nil
}
