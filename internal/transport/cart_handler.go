package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest adds one unit of a product to the cart
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// QuantityRequest sets the quantity of a cart line. Values below one are ignored.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartView is the cart as returned to clients; count and total are derived
type CartView struct {
	Items    []domain.CartLine `json:"items"`
	Count    int               `json:"count"`
	Total    int64             `json:"total"`
	Currency string            `json:"currency"`
}

func newCartView(cart *domain.Cart) CartView {
	items := cart.Lines
	if items == nil {
		items = []domain.CartLine{}
	}
	return CartView{
		Items:    items,
		Count:    cart.Count(),
		Total:    cart.Total(),
		Currency: cart.Currency(),
	}
}

// CartHandler exposes the session cart
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// RegisterRoutes expects session to be the cart session middleware
func (h *CartHandler) RegisterRoutes(r chi.Router, session func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(session)
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productID}", h.UpdateQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

func (h *CartHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.CartSessionFromContext(r.Context())
	if !ok {
		h.logger.Error("Cart session missing from context", zap.String("path", r.URL.Path))
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart session unavailable")
	}
	return id, ok
}

func (h *CartHandler) respond(w http.ResponseWriter, cart *domain.Cart, err error, action string) {
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Cart operation failed", zap.String("action", action), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to "+action)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(cart))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Get(r.Context(), session)
	h.respond(w, cart, err, "load cart")
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), session, uuid.MustParse(req.ProductID))
	h.respond(w, cart, err, "add item")
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req QuantityRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), session, productID, req.Quantity)
	h.respond(w, cart, err, "update quantity")
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), session, productID)
	h.respond(w, cart, err, "remove item")
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), session); err != nil {
		h.respond(w, nil, err, "clear cart")
		return
	}
	h.respond(w, domain.NewCart(nil), nil, "clear cart")
}
