package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/cartstore"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the external resources the server owns once constructed
type Dependencies struct {
	DB        database.Service
	Redis     *redis.Client
	Publisher events.Publisher
	Registry  *prometheus.Registry
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
	users  service.UserService
}

func newCartStore(cfg config.CartConfig, redisClient *redis.Client, logger *zap.Logger) cartstore.Store {
	if cfg.Store == "memory" {
		logger.Warn("Using in-memory cart store; carts are lost on restart")
		return cartstore.NewMemoryStore()
	}
	return cartstore.NewRedisStore(redisClient, cfg.TTL)
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	storeMetrics := metrics.NewStoreMetrics(deps.Registry)

	// Repositories
	db := deps.DB.DB()
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Services
	userService := service.NewUserService(
		userRepo,
		refreshTokenRepo,
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
	)
	catalogService := service.NewCatalogService(productRepo, categoryRepo)
	cartService := service.NewCartService(newCartStore(cfg.Cart, deps.Redis, logger), catalogService, storeMetrics, logger)
	orderService := service.NewOrderService(orderRepo, cartService, deps.Publisher, storeMetrics, logger)

	// Middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuth(cfg.JWT.Secret, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)
	cartSession := custommiddleware.CartSessionMiddleware(cfg.Cart.CookieName, cfg.Cart.TTL, !cfg.Server.IsDevelopment())
	rateLimit := custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
		Requests:  cfg.RateLimit.Requests,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: "ratelimit:auth",
	}, logger)

	s := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
		users:  userService,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware, rateLimit)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, cartSession)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware, cartSession)
	transport.NewAdminHandler(orderService, catalogService, logger).RegisterRoutes(router, authMiddleware, requireAdmin)
	transport.NewActivityHandler(userService, logger).RegisterRoutes(router, optionalAuth)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Users exposes the identity service for startup tasks such as the admin bootstrap
func (s *Server) Users() service.UserService {
	return s.users
}

// health reports database and redis status; any dependency down yields 503
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbHealth := s.deps.DB.Health()
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	redisHealth := map[string]string{"status": "up"}
	if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
		redisHealth = map[string]string{"status": "down", "error": err.Error()}
		if s.config.Cart.Store != "memory" {
			status = http.StatusServiceUnavailable
		}
	}

	custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
		"database": dbHealth,
		"redis":    redisHealth,
	})
}

// Close releases the database, redis and event publisher
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if closer, ok := s.deps.Publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
