package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
// Any status may follow any other; no transition graph is enforced.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
)

// IsValid reports whether s is one of the defined statuses.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Order is an immutable purchase record. Only Status changes after creation.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	ShippingAddress string          `json:"shippingAddress"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	// Items is populated when the order is read together with its lines.
	Items []OrderLine `json:"items,omitempty"`
}

// OrderLine is a frozen line item. ProductName and ProductPrice are copies
// taken at checkout; later catalog edits or deletions never change them.
type OrderLine struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"orderId"`
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	Quantity     int             `json:"quantity"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// OrderItemInput is one requested line at checkout.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// NewOrder creates a Pending order for userID.
func NewOrder(userID uuid.UUID, customerName, customerEmail, shippingAddress string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		CustomerName:    customerName,
		CustomerEmail:   customerEmail,
		ShippingAddress: shippingAddress,
		Total:           decimal.Zero,
		Status:          OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AddLine snapshots product and quantity into a new line and adds its
// subtotal to the order total.
func (o *Order) AddLine(product *Product, quantity int) OrderLine {
	line := OrderLine{
		ID:           uuid.New(),
		OrderID:      o.ID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductPrice: product.Price,
		Quantity:     quantity,
		CreatedAt:    o.CreatedAt,
	}
	o.Items = append(o.Items, line)
	o.Total = o.Total.Add(line.Subtotal())
	return line
}

// Subtotal returns price × quantity for the line.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.ProductPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Stats summarizes the store for administrators.
type Stats struct {
	TotalUsers  int64           `json:"totalUsers"`
	TotalOrders int64           `json:"totalOrders"`
	Revenue     decimal.Decimal `json:"revenue"`
}
