package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
)

// AdminService provides store-wide reporting.
type AdminService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	logger    zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(userRepo repository.UserRepository, orderRepo repository.OrderRepository, logger zerolog.Logger) *AdminService {
	return &AdminService{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		logger:    logger.With().Str("service", "admin").Logger(),
	}
}

// Stats returns user and order counts and total revenue.
func (s *AdminService) Stats(ctx context.Context, principal *domain.User) (*domain.Stats, error) {
	if err := RequireAdministrator(principal); err != nil {
		return nil, err
	}

	users, err := s.userRepo.Count(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count users")
		return nil, err
	}

	orders, revenue, err := s.orderRepo.Totals(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to total orders")
		return nil, err
	}

	return &domain.Stats{TotalUsers: users, TotalOrders: orders, Revenue: revenue}, nil
}
