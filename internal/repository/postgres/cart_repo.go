package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// cartRepository implements repository.CartRepository.
type cartRepository struct {
	db *DB
}

// NewCartRepository creates a new PostgreSQL cart repository.
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, user_id, product_id, quantity, created_at, updated_at`

// UpsertIncrement creates the line or increments the existing line's quantity.
// A merge that would exceed domain.MaxQuantity returns ErrInvalidQuantity.
func (r *cartRepository) UpsertIncrement(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error) {
	// Use PostgreSQL's INSERT ... ON CONFLICT DO UPDATE for atomic upsert
	query := `
		INSERT INTO cart_items (` + cartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    updated_at = EXCLUDED.updated_at
		WHERE cart_items.quantity + EXCLUDED.quantity <= $7
		RETURNING ` + cartColumns

	saved, err := scanCartLine(r.db.conn(ctx).QueryRow(ctx, query,
		line.ID,
		line.UserID,
		line.ProductID,
		line.Quantity,
		line.CreatedAt,
		line.UpdatedAt,
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
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1`

	line, err := scanCartLine(r.db.conn(ctx).QueryRow(ctx, query, id))
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
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list cart items: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		product := &domain.Product{}
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&product.ID, &product.Name, &product.Description, &product.Price, &product.Image,
			&product.Category, &product.Stock, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan cart item: %v", domain.ErrUnavailable, err)
		}
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
		UPDATE cart_items SET quantity = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING ` + cartColumns

	line, err := scanCartLine(r.db.conn(ctx).QueryRow(ctx, query, lineID, userID, quantity, time.Now().UTC()))
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
	_, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete cart item: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// DeleteByUser deletes all lines of a user.
func (r *cartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: failed to clear cart: %v", domain.ErrUnavailable, err)
	}
	return nil
}

func scanCartLine(row pgx.Row) (*domain.CartLine, error) {
	line := &domain.CartLine{}
	if err := row.Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return nil, err
	}
	return line, nil
}
