package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity a cart line or order line may hold.
const MaxQuantity = 10000

// ValidQuantity reports whether q is within [1, MaxQuantity].
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxQuantity
}

// CartLine is one product's accumulated quantity in one user's cart.
// There is at most one line per (UserID, ProductID).
type CartLine struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCartLine creates a cart line with a fresh ID.
func NewCartLine(userID, productID uuid.UUID, quantity int) *CartLine {
	now := time.Now().UTC()
	return &CartLine{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CartItem is a cart line joined with its product at read time.
type CartItem struct {
	CartLine
	Product *Product `json:"product"`
}

// Subtotal returns price × quantity for the line.
func (ci CartItem) Subtotal() decimal.Decimal {
	if ci.Product == nil {
		return decimal.Zero
	}
	return ci.Product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// Cart is a user's cart with derived values. Count and Total are computed on
// every read and never persisted.
type Cart struct {
	Items []CartItem      `json:"cartItems"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// NewCart builds a Cart and computes its derived values.
func NewCart(items []CartItem) *Cart {
	c := &Cart{Items: items, Total: decimal.Zero}
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	for _, item := range c.Items {
		c.Count += item.Quantity
		c.Total = c.Total.Add(item.Subtotal())
	}
	return c
}
