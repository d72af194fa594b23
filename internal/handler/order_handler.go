package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/service"
)

// OrderHandler serves checkout and order endpoints.
type OrderHandler struct {
	orders *service.OrderService
	admin  *service.AdminService
	logger zerolog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders *service.OrderService, admin *service.AdminService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		admin:  admin,
		logger: logger.With().Str("handler", "order").Logger(),
	}
}

// checkoutRequest carries no total; the server always computes it.
type checkoutRequest struct {
	CustomerName    string                  `json:"customerName"`
	CustomerEmail   string                  `json:"customerEmail"`
	ShippingAddress string                  `json:"shippingAddress"`
	Items           []domain.OrderItemInput `json:"items"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type orderResponse struct {
	Message string             `json:"message,omitempty"`
	Order   *domain.Order      `json:"order"`
	Items   []domain.OrderLine `json:"items,omitempty"`
}

type ordersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// Checkout handles POST /api/orders.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if err := service.RequireAuthenticated(principal); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.orders.Checkout(r.Context(), principal, service.CheckoutInput{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		Items:           req.Items,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Message: "Order placed successfully", Order: order})
}

// ListMine handles GET /api/orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: nonNil(orders)})
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if err := service.RequireAuthenticated(principal); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.orders.Get(r.Context(), principal, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order, Items: order.Items})
}

// ListAll handles GET /api/admin/orders.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: nonNil(orders)})
}

// UpdateStatus handles PUT /api/admin/orders/{id}.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if err := service.RequireAdministrator(principal); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), principal, id, req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Message: "Order status updated", Order: order})
}

// Stats handles GET /api/admin/stats.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func nonNil(orders []*domain.Order) []*domain.Order {
	if orders == nil {
		return []*domain.Order{}
	}
	return orders
}
