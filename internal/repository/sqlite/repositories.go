package sqlite

import "github.com/prn-tf/storefront/internal/repository"

// NewRepositories wires every SQLite repository onto db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:    NewUserRepository(db),
		Session: NewSessionRepository(db),
		Product: NewProductRepository(db),
		Cart:    NewCartRepository(db),
		Order:   NewOrderRepository(db),
		Tx:      db,
	}
}
