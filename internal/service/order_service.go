package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/lock"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/repository"
)

// OrderConfig configures the OrderService.
type OrderConfig struct {
	// CheckoutLockTTL bounds how long one checkout may hold the user's lock.
	CheckoutLockTTL time.Duration

	// CheckoutRetry is how long a second checkout waits for the first.
	CheckoutRetry lock.RetryPolicy
}

// DefaultOrderConfig returns the default order configuration.
func DefaultOrderConfig() OrderConfig {
	return OrderConfig{
		CheckoutLockTTL: 30 * time.Second,
		CheckoutRetry:   lock.RetryPolicy{MaxRetries: 5, Delay: 100 * time.Millisecond},
	}
}

// OrderService handles checkout and order management.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	txManager   repository.TxManager
	locker      lock.Locker
	config      OrderConfig
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	repos *repository.Repositories,
	locker lock.Locker,
	config OrderConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *OrderService {
	if config.CheckoutLockTTL <= 0 {
		config.CheckoutLockTTL = DefaultOrderConfig().CheckoutLockTTL
	}
	return &OrderService{
		orderRepo:   repos.Order,
		productRepo: repos.Product,
		cartRepo:    repos.Cart,
		txManager:   repos.Tx,
		locker:      locker,
		config:      config,
		metrics:     m,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CheckoutInput contains the data needed to place an order.
type CheckoutInput struct {
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	Items           []domain.OrderItemInput
}

// Checkout places an order for the requested items at current catalog prices
// and clears the caller's cart. Either all of it happens or none of it does.
func (s *OrderService) Checkout(ctx context.Context, principal *domain.User, input CheckoutInput) (order *domain.Order, err error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	input, err = validateCheckout(input)
	if err != nil {
		return nil, err
	}

	defer func() {
		total := decimal.Zero
		if order != nil {
			total = order.Total
		}
		s.metrics.ObserveCheckout(total, err)
	}()

	l, err := lock.Obtain(ctx, s.locker, lock.Keys.Checkout(principal.ID), s.config.CheckoutLockTTL, s.config.CheckoutRetry)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, domain.ErrCheckoutInProgress.WithResource(principal.ID.String())
		}
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("failed to obtain checkout lock")
		return nil, fmt.Errorf("%w: failed to obtain checkout lock: %v", domain.ErrUnavailable, err)
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("key", l.Key()).Msg("failed to release checkout lock")
		}
	}()

	order = domain.NewOrder(principal.ID, input.CustomerName, input.CustomerEmail, input.ShippingAddress)

	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range input.Items {
			product, err := s.productRepo.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			order.AddLine(product, item.Quantity)
		}

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		return s.cartRepo.DeleteByUser(ctx, principal.ID)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("checkout failed")
		}
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", principal.ID.String()).
		Int("lines", len(order.Items)).
		Str("total", order.Total.String()).
		Msg("order placed")

	return order, nil
}

// UpdateStatus sets an order's status. Any status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, principal *domain.User, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if err := RequireAdministrator(principal); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus.WithResource(string(status))
	}

	order, err := s.orderRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("status", string(status)).
		Str("by", principal.ID.String()).
		Msg("order status updated")

	return order, nil
}

// Get returns an order with its lines.
// Administrators see any order. Other callers see only their own, and get
// domain.ErrForbidden for anything else, including unknown IDs.
func (s *OrderService) Get(ctx context.Context, principal *domain.User, id uuid.UUID) (*domain.Order, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if principal.IsAdmin {
		return order, err
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotResourceOwner.WithResource(id.String())
		}
		return nil, err
	}
	if !principal.Owns(order.UserID) {
		return nil, domain.ErrNotResourceOwner.WithResource(id.String())
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, principal *domain.User) ([]*domain.Order, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	return s.orderRepo.ListByUser(ctx, principal.ID)
}

// ListAll returns every order, newest first.
func (s *OrderService) ListAll(ctx context.Context, principal *domain.User) ([]*domain.Order, error) {
	if err := RequireAdministrator(principal); err != nil {
		return nil, err
	}
	return s.orderRepo.List(ctx)
}

func validateCheckout(input CheckoutInput) (CheckoutInput, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)

	if input.CustomerName == "" || input.ShippingAddress == "" || input.CustomerEmail == "" {
		return input, domain.ErrInvalidCustomer
	}

	addr, err := mail.ParseAddress(input.CustomerEmail)
	if err != nil || addr.Address != input.CustomerEmail {
		return input, domain.ErrInvalidEmail.WithResource(input.CustomerEmail)
	}

	if len(input.Items) == 0 {
		return input, domain.ErrEmptyOrder
	}
	for _, item := range input.Items {
		if !domain.ValidQuantity(item.Quantity) {
			return input, domain.ErrInvalidQuantity.WithResource(item.ProductID.String())
		}
	}
	return input, nil
}
