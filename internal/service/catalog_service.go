package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/repository"
	"github.com/prn-tf/storefront/internal/storage"
)

// CatalogService manages the product catalog.
type CatalogService struct {
	productRepo repository.ProductRepository
	images      storage.ImageStore
	logger      zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
// images may be nil, in which case image uploads are rejected.
func NewCatalogService(productRepo repository.ProductRepository, images storage.ImageStore, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		images:      images,
		logger:      logger.With().Str("service", "catalog").Logger(),
	}
}

// CreateProductInput contains the fields of a new product.
// Price and Stock are required.
type CreateProductInput struct {
	Name        string
	Description *string
	Price       *decimal.Decimal
	Image       *string
	Category    *string
	Stock       *int64
}

// List returns all products.
func (s *CatalogService) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, err
	}
	return products, nil
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// Create adds a product to the catalog.
func (s *CatalogService) Create(ctx context.Context, principal *domain.User, input CreateProductInput) (*domain.Product, error) {
	if err := RequireAdministrator(principal); err != nil {
		return nil, err
	}
	if input.Price == nil {
		return nil, domain.ErrInvalidPrice
	}
	if input.Stock == nil {
		return nil, domain.ErrInvalidStock
	}

	product := domain.NewProduct(input.Name, *input.Price, *input.Stock)
	product.Description = input.Description
	product.Image = input.Image
	product.Category = input.Category

	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("name", product.Name).Msg("failed to create product")
		return nil, err
	}

	s.logger.Info().
		Str("product_id", product.ID.String()).
		Str("name", product.Name).
		Str("price", product.Price.String()).
		Msg("product created")

	return product, nil
}

// Update applies a partial update to a product.
func (s *CatalogService) Update(ctx context.Context, principal *domain.User, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if err := RequireAdministrator(principal); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(product)
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product")
		return nil, err
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product updated")
	return product, nil
}

// Delete removes a product. It reports whether a product was deleted.
// Cart lines referring to it go with it; order lines keep their snapshot.
func (s *CatalogService) Delete(ctx context.Context, principal *domain.User, id uuid.UUID) (bool, error) {
	if err := RequireAdministrator(principal); err != nil {
		return false, err
	}

	deleted, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to delete product")
		return false, err
	}

	if deleted {
		s.logger.Info().Str("product_id", id.String()).Msg("product deleted")
	}
	return deleted, nil
}

// SetImage uploads image bytes and points the product at the stored image.
func (s *CatalogService) SetImage(ctx context.Context, principal *domain.User, id uuid.UUID, data []byte) (*domain.Product, error) {
	if err := RequireAdministrator(principal); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, domain.ErrImagesDisabled
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Put(ctx, data)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", id.String()).Msg("failed to store product image")
		return nil, err
	}

	domain.ProductPatch{Image: &url}.Apply(product)
	if err := s.productRepo.Update(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product image")
		return nil, err
	}

	s.logger.Info().Str("product_id", id.String()).Str("image", url).Msg("product image updated")
	return product, nil
}
