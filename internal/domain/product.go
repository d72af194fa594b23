package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxPrice is the exclusive upper bound of a product price (NUMERIC(12,2)).
var maxPrice = decimal.New(1, 10)

// Product is a sellable catalog entry, shared by all users.
type Product struct {
	// ID is the unique identifier for the product.
	ID uuid.UUID `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Description is optional free text.
	Description *string `json:"description"`

	// Price is the unit price. Always an exact decimal, never negative.
	Price decimal.Decimal `json:"price"`

	// Image is an optional reference (URL) to the product image.
	Image *string `json:"image"`

	// Category is an optional category label.
	Category *string `json:"category"`

	// Stock is the number of units on hand. Never negative.
	Stock int64 `json:"stock"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProduct creates a new Product with a fresh ID and timestamps.
func NewProduct(name string, price decimal.Decimal, stock int64) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.Price.IsNegative() || p.Price.GreaterThanOrEqual(maxPrice) {
		return ErrInvalidPrice
	}
	if !p.Price.Equal(p.Price.Truncate(2)) {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// ProductPatch holds a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Image       *string
	Category    *string
	Stock       *int64
}

// Apply copies the set fields of the patch onto p and stamps UpdatedAt.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Image != nil {
		p.Image = pp.Image
	}
	if pp.Category != nil {
		p.Category = pp.Category
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	p.UpdatedAt = time.Now().UTC()
}
