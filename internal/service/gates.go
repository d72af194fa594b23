// Package service provides business logic services for the storefront.
// Every operation receives the calling principal explicitly; nil means anonymous.
package service

import (
	"github.com/prn-tf/storefront/internal/domain"
)

// RequireAuthenticated fails with domain.ErrUnauthenticated for anonymous callers.
func RequireAuthenticated(principal *domain.User) error {
	if principal == nil {
		return domain.ErrUnauthenticated
	}
	return nil
}

// RequireAdministrator fails with domain.ErrUnauthenticated for anonymous
// callers and domain.ErrAdminRequired for non-administrators.
func RequireAdministrator(principal *domain.User) error {
	if principal == nil {
		return domain.ErrUnauthenticated
	}
	if !principal.IsAdmin {
		return domain.ErrAdminRequired
	}
	return nil
}
