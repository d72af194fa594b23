package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/domain"
)

// AuthorizationHeader carries "Bearer <token>".
const AuthorizationHeader = "Authorization"

// PrincipalResolver resolves a session token to its user.
type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context, token string) (*domain.User, error)
}

// Config contains configuration for the auth middleware.
type Config struct {
	// Resolver resolves tokens to users.
	Resolver PrincipalResolver

	// Cookies is the optional cookie store consulted when no header is present.
	Cookies *CookieStore

	// OnError writes the response when resolution fails for a reason other
	// than a bad or stale token.
	OnError func(w http.ResponseWriter, r *http.Request, err error)

	Logger zerolog.Logger
}

type contextKey int

const (
	principalKey contextKey = iota
	tokenKey
)

// Middleware resolves the request's token, if any, and stores the principal
// and token in the request context. Requests without a valid token continue
// anonymously; operations decide whether a principal is required.
func Middleware(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, config.Cookies)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := config.Resolver.CurrentPrincipal(r.Context(), token)
			switch {
			case err == nil:
				ctx := WithPrincipal(r.Context(), user)
				ctx = WithToken(ctx, token)
				r = r.WithContext(ctx)

			case errors.Is(err, domain.ErrUnauthenticated):
				config.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")

			default:
				config.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("failed to resolve session")
				if config.OnError != nil {
					config.OnError(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken returns the bearer token, falling back to the session cookie.
func ExtractToken(r *http.Request, cookies *CookieStore) string {
	if header := r.Header.Get(AuthorizationHeader); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookies != nil {
		return cookies.Token(r)
	}
	return ""
}

// WithPrincipal returns a context carrying user as the calling principal.
func WithPrincipal(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFrom returns the calling principal, or nil for anonymous callers.
func PrincipalFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(principalKey).(*domain.User)
	return user
}

// WithToken returns a context carrying the resolved session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFrom returns the resolved session token, or "".
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
