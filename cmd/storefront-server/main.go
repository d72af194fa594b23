// Package main is the entry point for the storefront API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/config"
	"github.com/prn-tf/storefront/internal/handler"
	"github.com/prn-tf/storefront/internal/lock"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/pkg/logging"
	"github.com/prn-tf/storefront/internal/repository/factory"
	"github.com/prn-tf/storefront/internal/service"
	"github.com/prn-tf/storefront/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront-server: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront-server: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting storefront server")

	// Database
	result, err := factory.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer result.Database.Close()

	if err := result.Database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	repos := result.Repos

	// Locking
	var locker lock.Locker
	if cfg.Redis.Enabled {
		client, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client)
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using redis locks")
	} else {
		memLocker := lock.NewMemoryLocker()
		defer memLocker.Close()
		locker = memLocker
	}

	// Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Product images
	var images storage.ImageStore
	if cfg.Images.Enabled {
		client, err := storage.NewS3Client(ctx, cfg.Images)
		if err != nil {
			return fmt.Errorf("failed to create s3 client: %w", err)
		}
		images = storage.NewS3ImageStore(client, cfg.Images, logger)
		logger.Info().Str("bucket", cfg.Images.Bucket).Msg("product images enabled")
	}

	// Services
	authService := service.NewAuthService(
		repos.User,
		repos.Session,
		auth.NewTokenManager(cfg.Auth.TokenSecret),
		service.AuthConfig{BcryptCost: cfg.Auth.BcryptCost, SessionTTL: cfg.Auth.SessionTTL},
		m,
		logger,
	)

	catalogService := service.NewCatalogService(repos.Product, images, logger)

	orderConfig := service.DefaultOrderConfig()
	orderConfig.CheckoutLockTTL = cfg.Auth.CheckoutLockTTL

	router := handler.NewRouter(handler.RouterConfig{
		AuthService:    authService,
		CatalogService: catalogService,
		CartService:    service.NewCartService(repos.Cart, repos.Product, m, logger),
		OrderService:   service.NewOrderService(repos, locker, orderConfig, m, logger),
		AdminService:   service.NewAdminService(repos.User, repos.Order, logger),
		Cookies: auth.NewCookieStore(auth.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secret: cfg.Auth.GetCookieSecret(),
			Secure: cfg.Auth.CookieSecure,
			MaxAge: cfg.Auth.SessionTTL,
		}),
		Metrics:      m,
		MetricsPath:  cfg.Metrics.Path,
		Health:       result.Database,
		MaxImageSize: cfg.Images.MaxSize,
		Logger:       logger,
	})

	if cfg.Auth.SessionSweepInterval > 0 {
		go authService.RunSessionSweeper(ctx, locker, cfg.Auth.SessionSweepInterval)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      http.MaxBytesHandler(router, maxBody(cfg)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("driver", result.Driver).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// maxBody is the request size cap: the larger of the JSON limit and the image limit.
func maxBody(cfg *config.Config) int64 {
	if cfg.Images.MaxSize > cfg.Server.MaxBodySize {
		return cfg.Images.MaxSize
	}
	return cfg.Server.MaxBodySize
}
