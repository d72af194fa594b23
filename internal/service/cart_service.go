package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/repository"
)

// CartService manages per-user carts.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewCartService creates a new CartService.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// AddItem adds quantity units of a product to the caller's cart.
// A quantity of zero means one. Adding a product already in the cart
// increases that line instead of creating a second one.
func (s *CartService) AddItem(ctx context.Context, principal *domain.User, productID uuid.UUID, quantity int) (*domain.CartLine, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	if quantity == 0 {
		quantity = 1
	}
	if !domain.ValidQuantity(quantity) {
		return nil, domain.ErrInvalidQuantity
	}

	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	line, err := s.cartRepo.UpsertIncrement(ctx, domain.NewCartLine(principal.ID, productID, quantity))
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", principal.ID.String()).
			Str("product_id", productID.String()).
			Msg("failed to add cart item")
		return nil, err
	}

	s.metrics.IncCartAdd()
	s.logger.Debug().
		Str("user_id", principal.ID.String()).
		Str("product_id", productID.String()).
		Int("quantity", line.Quantity).
		Msg("cart item added")

	return line, nil
}

// SetQuantity replaces the quantity of one of the caller's cart lines.
func (s *CartService) SetQuantity(ctx context.Context, principal *domain.User, lineID uuid.UUID, quantity int) (*domain.CartLine, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !domain.ValidQuantity(quantity) {
		return nil, domain.ErrInvalidQuantity
	}
	return s.cartRepo.UpdateQuantity(ctx, principal.ID, lineID, quantity)
}

// RemoveItem deletes one of the caller's cart lines. Removing an absent line succeeds.
func (s *CartService) RemoveItem(ctx context.Context, principal *domain.User, lineID uuid.UUID) error {
	if err := RequireAuthenticated(principal); err != nil {
		return err
	}
	return s.cartRepo.Delete(ctx, principal.ID, lineID)
}

// Clear empties the caller's cart.
func (s *CartService) Clear(ctx context.Context, principal *domain.User) error {
	if err := RequireAuthenticated(principal); err != nil {
		return err
	}
	return s.cartRepo.DeleteByUser(ctx, principal.ID)
}

// Snapshot returns the caller's cart with count and total computed now.
func (s *CartService) Snapshot(ctx context.Context, principal *domain.User) (*domain.Cart, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	items, err := s.cartRepo.ListByUser(ctx, principal.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("failed to list cart")
		return nil, err
	}
	return domain.NewCart(items), nil
}
