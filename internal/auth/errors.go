// Package auth provides session tokens and request authentication for the storefront API.
package auth

import "errors"

// Token errors.
var (
	// ErrInvalidToken indicates the token is malformed, forged, or expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrMissingToken indicates the request carried no token.
	ErrMissingToken = errors.New("authorization token required")
)
