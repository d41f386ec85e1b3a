package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest carries optional shipping details
type CheckoutRequest struct {
	Shipping *domain.ShippingInfo `json:"shipping" validate:"omitempty"`
}

// OrderHandler serves checkout and the customer's own orders
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes mounts checkout behind both auth and the cart session
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, session func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(session).Post("/api/checkout", h.Checkout)
		r.Get("/api/orders", h.ListMine)
		r.Get("/api/orders/{orderID}", h.Get)
	})
}

// Checkout places an order from the session cart. An empty cart redirects
// back to the cart instead of failing.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	session, ok := middleware.CartSessionFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart session unavailable")
		return
	}

	var req CheckoutRequest
	if r.ContentLength != 0 {
		if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
			middleware.RespondWithDecodeError(w, err)
			return
		}
	}

	order, err := h.orders.Checkout(r.Context(), principal.UserID, session, req.Shipping)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			http.Redirect(w, r, "/api/cart", http.StatusSeeOther)
			return
		}
		h.logger.Error("Checkout failed",
			zap.String("user_id", principal.UserID.String()),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Get answers 404 for orders that belong to somebody else, unless the caller is an admin
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	order, found, err := h.orders.FindByID(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.logger.Error("Failed to load order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if !found || (order.UserID != principal.UserID && !principal.IsAdmin()) {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
