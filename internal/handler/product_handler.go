package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/service"
)

// ProductHandler serves the catalog endpoints.
type ProductHandler struct {
	catalog      *service.CatalogService
	maxImageSize int64
	logger       zerolog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog *service.CatalogService, maxImageSize int64, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:      catalog,
		maxImageSize: maxImageSize,
		logger:       logger.With().Str("handler", "product").Logger(),
	}
}

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
	Stock       *int64           `json:"stock"`
}

type productResponse struct {
	Message string          `json:"message,omitempty"`
	Product *domain.Product `json:"product"`
}

// List handles GET /api/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{Product: product})
}

// Create handles POST /api/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	input := service.CreateProductInput{
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Stock:       req.Stock,
	}
	if req.Name != nil {
		input.Name = *req.Name
	}

	product, err := h.catalog.Create(r.Context(), auth.PrincipalFrom(r.Context()), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, productResponse{Message: "Product created", Product: product})
}

// Update handles PUT /api/products/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	product, err := h.catalog.Update(r.Context(), auth.PrincipalFrom(r.Context()), id, domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{Message: "Product updated", Product: product})
}

// Delete handles DELETE /api/products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	deleted, err := h.catalog.Delete(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, h.logger, domain.ErrProductNotFound.WithResource(id.String()))
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Product deleted"})
}

// UploadImage handles PUT /api/products/{id}/image. The body is the raw image.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := service.RequireAdministrator(principal); err != nil {
		writeError(w, h.logger, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxImageSize+1))
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: failed to read image: %v", domain.ErrInvalidInput, err))
		return
	}
	if int64(len(data)) > h.maxImageSize {
		writeError(w, h.logger, domain.ErrImageTooLarge)
		return
	}

	product, err := h.catalog.SetImage(r.Context(), principal, id, data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{Message: "Product image updated", Product: product})
}
