package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// orderRepository implements repository.OrderRepository.
type orderRepository struct {
	db *DB
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, customer_name, customer_email, shipping_address, total, status, created_at, updated_at`

// Create creates an order together with all of its lines in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `INSERT INTO orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err := r.db.conn(ctx).Exec(ctx, query,
			order.ID,
			order.UserID,
			order.CustomerName,
			order.CustomerEmail,
			order.ShippingAddress,
			order.Total,
			string(order.Status),
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to create order: %v", domain.ErrUnavailable, err)
		}

		batch := &pgx.Batch{}
		for _, line := range order.Items {
			batch.Queue(`
				INSERT INTO order_items (id, order_id, product_id, product_name, product_price, quantity, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, line.ID, order.ID, line.ProductID, line.ProductName, line.ProductPrice, line.Quantity, line.CreatedAt)
		}

		results := r.db.conn(ctx).SendBatch(ctx, batch)
		for range order.Items {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("%w: failed to create order item: %v", domain.ErrUnavailable, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("%w: failed to create order items: %v", domain.ErrUnavailable, err)
		}

		return nil
	})
}

// GetByID retrieves an order with its lines.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.conn(ctx).QueryRow(ctx, query, id))
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
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`
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
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.conn(ctx).QueryRow(ctx, query, id, string(status), time.Now().UTC()))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrOrderNotFound.WithResource(id.String())
		}
		return nil, fmt.Errorf("%w: failed to update order status: %v", domain.ErrUnavailable, err)
	}
	return order, nil
}

// Totals returns the number of orders and the sum of their totals.
func (r *orderRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	var count int64
	revenue := decimal.Zero
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders`).Scan(&count, &revenue)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("%w: failed to sum orders: %v", domain.ErrUnavailable, err)
	}
	return count, revenue, nil
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
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
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list order items: %v", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		var line domain.OrderLine
		err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.ProductName, &line.ProductPrice, &line.Quantity, &line.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan order item: %v", domain.ErrUnavailable, err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating order items: %v", domain.ErrUnavailable, err)
	}

	return lines, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var status string
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.ShippingAddress,
		&order.Total,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}
