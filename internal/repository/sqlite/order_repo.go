package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// orderRepository implements repository.OrderRepository for SQLite.
type orderRepository struct {
	db *DB
}

// NewOrderRepository creates a new SQLite order repository.
func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, customer_name, customer_email, shipping_address, total, status, created_at, updated_at`

// Create creates an order together with all of its lines in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO orders (` + orderColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.db.ExecContext(ctx, query,
			order.ID,
			order.UserID,
			order.CustomerName,
			order.CustomerEmail,
			order.ShippingAddress,
			order.Total.String(),
			string(order.Status),
			formatTime(order.CreatedAt),
			formatTime(order.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("%w: failed to create order: %v", domain.ErrUnavailable, err)
		}

		lineQuery := `
			INSERT INTO order_items (id, order_id, product_id, product_name, product_price, quantity, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		for _, line := range order.Items {
			_, err := r.db.ExecContext(ctx, lineQuery,
				line.ID,
				order.ID,
				line.ProductID,
				line.ProductName,
				line.ProductPrice.String(),
				line.Quantity,
				formatTime(line.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("%w: failed to create order item: %v", domain.ErrUnavailable, err)
			}
		}

		return nil
	})
}

// GetByID retrieves an order with its lines.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrOrderNotFound.WithResource(id.String())
		}
		return nil, fmt.Errorf("%w: failed to get order: %v", domain.ErrUnavailable, err)
	}

	lines, err := r.listLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = lines

	return order, nil
}

// ListByUser returns the orders of a user, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id`
	return r.listOrders(ctx, query, userID)
}

// List returns all orders, newest first.
func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	return r.listOrders(ctx, query)
}

// UpdateStatus sets the status of an order.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	query := `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, string(status), formatTime(time.Now()), id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrOrderNotFound.WithResource(id.String())
		}
		return nil, fmt.Errorf("%w: failed to update order status: %v", domain.ErrUnavailable, err)
	}
	return order, nil
}

// Totals returns the number of orders and the sum of their totals.
// Totals are summed in Go because SQLite would add the text columns as floats.
func (r *orderRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT total FROM orders`)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("%w: failed to sum orders: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	var count int64
	revenue := decimal.Zero
	for rows.Next() {
		var total string
		if err := rows.Scan(&total); err != nil {
			return 0, decimal.Zero, fmt.Errorf("%w: failed to scan order total: %v", domain.ErrUnavailable, err)
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("%w: invalid stored total %q: %v", domain.ErrUnavailable, total, err)
		}
		count++
		revenue = revenue.Add(d)
	}

	if err := rows.Err(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("%w: error iterating orders: %v", domain.ErrUnavailable, err)
	}

	return count, revenue, nil
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list orders: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan order: %v", domain.ErrUnavailable, err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating orders: %v", domain.ErrUnavailable, err)
	}

	return orders, nil
}

func (r *orderRepository) listLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, product_name, product_price, quantity, created_at
		FROM order_items
		WHERE order_id = ?
		ORDER BY created_at, rowid
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list order items: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		var line domain.OrderLine
		var price, createdAt string
		err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.ProductName, &price, &line.Quantity, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan order item: %v", domain.ErrUnavailable, err)
		}
		line.ProductPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid stored price %q: %v", domain.ErrUnavailable, price, err)
		}
		line.CreatedAt = parseTime(createdAt)
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating order items: %v", domain.ErrUnavailable, err)
	}

	return lines, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var total, status, createdAt, updatedAt string

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.ShippingAddress,
		&total,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid stored total %q: %w", total, err)
	}
	order.Status = domain.OrderStatus(status)
	order.CreatedAt = parseTime(createdAt)
	order.UpdatedAt = parseTime(updatedAt)

	return order, nil
}
