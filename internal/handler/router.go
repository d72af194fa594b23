// Package handler provides the HTTP API of the storefront.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/service"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthService    *service.AuthService
	CatalogService *service.CatalogService
	CartService    *service.CartService
	OrderService   *service.OrderService
	AdminService   *service.AdminService

	// Cookies is optional; without it only bearer tokens are accepted.
	Cookies *auth.CookieStore

	// Metrics is optional; when set, requests are instrumented and
	// MetricsPath serves the registry.
	Metrics     *metrics.Metrics
	MetricsPath string

	Health       HealthChecker
	MaxImageSize int64
	Logger       zerolog.Logger
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(config RouterConfig) http.Handler {
	logger := config.Logger.With().Str("component", "router").Logger()

	authHandler := NewAuthHandler(config.AuthService, config.Cookies, config.Logger)
	productHandler := NewProductHandler(config.CatalogService, config.MaxImageSize, config.Logger)
	cartHandler := NewCartHandler(config.CartService, config.Logger)
	orderHandler := NewOrderHandler(config.OrderService, config.AdminService, config.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(config.Metrics.Middleware)

	r.Get("/health", handleHealth(config.Health, logger))
	if config.Metrics != nil {
		path := config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, config.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(auth.Config{
			Resolver: config.AuthService,
			Cookies:  config.Cookies,
			OnError: func(w http.ResponseWriter, r *http.Request, err error) {
				writeError(w, logger, err)
			},
			Logger: logger,
		}))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
			r.Put("/{id}/image", productHandler.UploadImage)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Post("/", cartHandler.Add)
			r.Delete("/", cartHandler.Clear)
			r.Put("/{id}", cartHandler.Update)
			r.Delete("/{id}", cartHandler.Remove)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Checkout)
			r.Get("/", orderHandler.ListMine)
			r.Get("/{id}", orderHandler.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", orderHandler.ListAll)
			r.Put("/orders/{id}", orderHandler.UpdateStatus)
			r.Get("/stats", orderHandler.Stats)
		})
	})

	return r
}

// handleHealth handles health check requests.
func handleHealth(health HealthChecker, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// accessLog logs one line per request.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
