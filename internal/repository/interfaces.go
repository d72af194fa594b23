// Package repository defines data access interfaces for the storefront.
// These interfaces abstract database operations, allowing for different implementations
// (SQLite, PostgreSQL) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrDuplicateHandle if the username is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int64, error)
}

// =============================================================================
// Session Repository
// =============================================================================

// SessionRepository defines the interface for session data access.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// Delete deletes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired deletes all sessions that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// =============================================================================
// Product Repository
// =============================================================================

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	// Create creates a new product.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by ID.
	// Returns domain.ErrProductNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// List returns all products. Ordering is not guaranteed.
	List(ctx context.Context) ([]*domain.Product, error)

	// Update replaces all mutable fields of an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete deletes a product by ID.
	// Returns false if no product was deleted.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// =============================================================================
// Cart Repository
// =============================================================================

// CartRepository defines the interface for cart line data access.
type CartRepository interface {
	// UpsertIncrement creates the (user, product) line with the given quantity,
	// or atomically adds quantity to the existing line.
	// This is a single statement; concurrent calls never create duplicate lines.
	UpsertIncrement(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error)

	// GetByID retrieves a cart line by ID.
	// Returns domain.ErrCartLineNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CartLine, error)

	// ListByUser returns the user's cart lines joined with their products.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)

	// UpdateQuantity sets the quantity of a line owned by userID.
	// Returns domain.ErrCartLineNotFound if no such line exists for the user.
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*domain.CartLine, error)

	// Delete deletes a line owned by userID. Deleting an absent line is not an error.
	Delete(ctx context.Context, userID, lineID uuid.UUID) error

	// DeleteByUser deletes all lines of a user.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// =============================================================================
// Order Repository
// =============================================================================

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create creates an order together with all of its lines.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its lines.
	// Returns domain.ErrOrderNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// ListByUser returns the orders of a user, newest first, without lines.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)

	// List returns all orders, newest first, without lines.
	List(ctx context.Context) ([]*domain.Order, error)

	// UpdateStatus sets the status of an order and returns the updated order.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)

	// Totals returns the number of orders and the sum of their totals.
	Totals(ctx context.Context) (count int64, revenue decimal.Decimal, err error)
}

// =============================================================================
// Transaction Support
// =============================================================================

// TxManager defines the interface for transaction management.
type TxManager interface {
	// WithTx executes the given function within a transaction.
	// Repository calls made with the ctx passed to fn join the transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
