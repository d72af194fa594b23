// Package domain contains the core business entities for the storefront.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service operation matches exactly one
// of these with errors.Is, and the transport layer maps each kind to a status.
// Infrastructure failures (database, network, etc.) surface as ErrUnavailable.
var (
	// ErrDuplicateHandle indicates a registration with an already-used username.
	ErrDuplicateHandle = errors.New("username already exists")

	// ErrInvalidCredentials indicates authentication failed.
	// The message never says whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated indicates the operation needs a valid session.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden indicates a valid session lacking the required role or ownership.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed or out-of-range field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a would-be violation of a uniqueness or exclusivity rule.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates the system is temporarily unable to serve the request.
	ErrUnavailable = errors.New("service unavailable")
)

// Specific errors. Each wraps one of the kinds above.
var (
	// ===========================================
	// User Errors
	// ===========================================

	ErrUserNotFound     = NewDomainError(ErrNotFound, "user not found", "")
	ErrInvalidUsername  = NewDomainError(ErrInvalidInput, "username must be 3-255 characters", "")
	ErrInvalidPassword  = NewDomainError(ErrInvalidInput, "password must be at least 8 characters", "")
	ErrSessionNotFound  = NewDomainError(ErrUnauthenticated, "session not found or expired", "")
	ErrAdminRequired    = NewDomainError(ErrForbidden, "administrator access required", "")
	ErrNotResourceOwner = NewDomainError(ErrForbidden, "resource belongs to another user", "")

	// ===========================================
	// Catalog Errors
	// ===========================================

	ErrProductNotFound = NewDomainError(ErrNotFound, "product not found", "")
	ErrInvalidName     = NewDomainError(ErrInvalidInput, "name is required", "")
	ErrInvalidPrice    = NewDomainError(ErrInvalidInput, "price is required, non-negative, below 10000000000 and has at most two decimal places", "")
	ErrInvalidStock    = NewDomainError(ErrInvalidInput, "stock is required and must be non-negative", "")

	// ===========================================
	// Cart Errors
	// ===========================================

	ErrCartLineNotFound = NewDomainError(ErrNotFound, "cart item not found", "")
	ErrInvalidQuantity  = NewDomainError(ErrInvalidInput, "quantity must be between 1 and 10000", "")

	// ===========================================
	// Order Errors
	// ===========================================

	ErrOrderNotFound      = NewDomainError(ErrNotFound, "order not found", "")
	ErrInvalidStatus      = NewDomainError(ErrInvalidInput, "status must be one of Pending, Paid, Shipped, Delivered", "")
	ErrEmptyOrder         = NewDomainError(ErrInvalidInput, "order must contain at least one item", "")
	ErrInvalidCustomer    = NewDomainError(ErrInvalidInput, "customer name, email and shipping address are required", "")
	ErrInvalidEmail       = NewDomainError(ErrInvalidInput, "invalid email format", "")
	ErrCheckoutInProgress = NewDomainError(ErrConflict, "another checkout for this user is in progress", "")

	// ===========================================
	// Image Errors
	// ===========================================

	ErrUnsupportedImage = NewDomainError(ErrInvalidInput, "unsupported image format", "")
	ErrImageTooLarge    = NewDomainError(ErrInvalidInput, "image exceeds maximum size", "")
	ErrImagesDisabled   = NewDomainError(ErrUnavailable, "image storage is not configured", "")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying error kind.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., product ID).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Resource)
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same specific error, ignoring Resource.
// This lets WithResource copies still match their template.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Err == t.Err && e.Message == t.Message
}

// WithResource returns a copy of the error annotated with a resource identifier.
func (e *DomainError) WithResource(resource string) *DomainError {
	return &DomainError{Err: e.Err, Message: e.Message, Resource: resource}
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// Kind names, stable across releases.
const (
	KindDuplicateHandle    = "DuplicateHandle"
	KindInvalidCredentials = "InvalidCredentials"
	KindUnauthenticated    = "Unauthenticated"
	KindForbidden          = "Forbidden"
	KindNotFound           = "NotFound"
	KindInvalidInput       = "InvalidInput"
	KindConflict           = "Conflict"
	KindUnavailable        = "Unavailable"
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrDuplicateHandle, KindDuplicateHandle},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrInvalidInput, KindInvalidInput},
	{ErrConflict, KindConflict},
	{ErrUnavailable, KindUnavailable},
}

// KindOf returns the stable kind name of err.
// Errors that match no kind are reported as Unavailable.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return KindUnavailable
}
