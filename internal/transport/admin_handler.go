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

// StatusRequest advances an order to the named status
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ProductRequest is the admin product payload. Prices are minor units.
type ProductRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Slug        string   `json:"slug" validate:"omitempty,max=200"`
	Description string   `json:"description"`
	Price       int64    `json:"price" validate:"gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	Images      []string `json:"images"`
	CategoryID  string   `json:"category_id" validate:"required,uuid"`
	Inventory   int      `json:"inventory" validate:"gte=0"`
	Features    []string `json:"features"`
}

func (p ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		Images:      p.Images,
		CategoryID:  uuid.MustParse(p.CategoryID),
		Inventory:   p.Inventory,
		Features:    p.Features,
	}
}

// CategoryRequest is the admin category payload
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description"`
}

// BulkRow is one row of a bulk product import; features are ';'-separated
type BulkRow struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
	Category    string `json:"category" validate:"required"`
	Inventory   int    `json:"inventory" validate:"gte=0"`
	Image       string `json:"image"`
	Features    string `json:"features"`
}

// BulkRequest wraps the rows of a bulk import
type BulkRequest struct {
	Products []BulkRow `json:"products" validate:"required,min=1,dive"`
}

// AdminHandler serves the back-office
type AdminHandler struct {
	orders  service.OrderService
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(orders service.OrderService, catalog service.CatalogService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, catalog: catalog, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware, requireAdmin)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/orders", h.ListOrders)
		r.Post("/orders/{orderID}/status", h.AdvanceOrder)

		r.Post("/products", h.CreateProduct)
		r.Post("/products/bulk", h.BulkCreateProducts)
		r.Put("/products/{productID}", h.UpdateProduct)
		r.Delete("/products/{productID}", h.DeleteProduct)

		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{categoryID}", h.UpdateCategory)
		r.Delete("/categories/{categoryID}", h.DeleteCategory)
	})
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute order stats", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
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

func (h *AdminHandler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	target, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	orderID := chi.URLParam(r, "orderID")
	order, err := h.orders.Advance(r.Context(), orderID, target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, repository.ErrOrderVersionConflict):
			middleware.RespondWithError(w, http.StatusConflict, "order was modified concurrently, retry")
		default:
			h.logger.Error("Failed to advance order", zap.String("order_id", orderID), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// respondCatalogError maps catalog sentinel errors onto HTTP statuses
func (h *AdminHandler) respondCatalogError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, repository.ErrProductAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "product with this slug already exists")
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "category already exists")
	case errors.Is(err, repository.ErrCategoryInUse):
		middleware.RespondWithError(w, http.StatusConflict, "category still has products")
	case errors.Is(err, service.ErrNoValidProducts):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Catalog operation failed", zap.String("action", action), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.respondCatalogError(w, err, "create product")
		return
	}
	h.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("slug", product.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		h.respondCatalogError(w, err, "update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.respondCatalogError(w, err, "delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) BulkCreateProducts(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	rows := make([]service.BulkProductRow, 0, len(req.Products))
	for _, p := range req.Products {
		rows = append(rows, service.BulkProductRow{
			Name:        p.Name,
			Slug:        p.Slug,
			Description: p.Description,
			Price:       p.Price,
			Category:    p.Category,
			Inventory:   p.Inventory,
			Image:       p.Image,
			Features:    p.Features,
		})
	}

	result, err := h.catalog.BulkCreate(r.Context(), rows)
	if err != nil {
		h.respondCatalogError(w, err, "import products")
		return
	}
	h.logger.Info("Bulk product import",
		zap.Int("created", result.Created),
		zap.Int("ignored", result.Ignored),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), service.CategoryInput(req))
	if err != nil {
		h.respondCatalogError(w, err, "create category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, service.CategoryInput(req))
	if err != nil {
		h.respondCatalogError(w, err, "update category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.respondCatalogError(w, err, "delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
