// Package repository defines data access interfaces for the storefront.
// This file contains the types shared by the backend factories.
package repository

import (
	"context"
)

// Repositories holds all repository instances of one backend.
type Repositories struct {
	User    UserRepository
	Session SessionRepository
	Product ProductRepository
	Cart    CartRepository
	Order   OrderRepository
	Tx      TxManager
}

// DatabaseHealth is an interface for database health checks and lifecycle.
// This interface satisfies handler.HealthChecker for health endpoints.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Migrate(ctx context.Context) error
	Version(ctx context.Context) (int, error)
	Close() error
}

// CreateRepositoriesResult contains the created repositories and database connection.
type CreateRepositoriesResult struct {
	Repos    *Repositories
	Database DatabaseHealth
	Driver   string
}
