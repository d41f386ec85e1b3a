package transport

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/cartstore"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const testJWTSecret = "transport-test-secret"

type memUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[string]*domain.User)}
}

func (m *memUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *memUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; !exists {
		return repository.ErrUserNotFound
	}
	m.users[user.Email] = user
	return nil
}

func (m *memUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type memRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMemRefreshTokenRepository() *memRefreshTokenRepository {
	return &memRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *memRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *memRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return t, nil
}

func (m *memRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (m *memRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type memOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemOrderRepository() *memOrderRepository {
	return &memOrderRepository{orders: make(map[string]domain.Order)}
}

func (m *memOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *memOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	dates := make(map[domain.OrderStatus]time.Time, len(o.StatusDates))
	for k, v := range o.StatusDates {
		dates[k] = v
	}
	o.StatusDates = dates
	return &o, nil
}

func (m *memOrderRepository) filter(keep func(domain.Order) bool) []*domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if keep(o) {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (m *memOrderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	return m.filter(func(domain.Order) bool { return true }), nil
}

func (m *memOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return m.filter(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (m *memOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if stored.Version != order.Version {
		return repository.ErrOrderVersionConflict
	}
	order.Version++
	m.orders[order.ID] = *order
	return nil
}

func (m *memOrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	var stats domain.OrderStats
	for _, o := range m.filter(func(domain.Order) bool { return true }) {
		stats.TotalOrders++
		stats.Revenue += o.Total
		if o.Status == domain.OrderStatusProcessing {
			stats.PendingShipments++
		}
	}
	return stats, nil
}

// stubCatalog implements the read side of CatalogService over a fixed product set.
// Methods it does not override panic through the nil embedded interface.
type stubCatalog struct {
	service.CatalogService
	category domain.Category
	products []*domain.Product
}

func newStubCatalog() *stubCatalog {
	category := domain.Category{ID: uuid.New(), Name: "Audio", Slug: "audio"}
	return &stubCatalog{
		category: category,
		products: []*domain.Product{
			{ID: uuid.New(), Name: "Wireless Headphones", Slug: "wireless-headphones", Price: 1000, Currency: domain.DefaultCurrency, CategoryID: category.ID, Inventory: 10},
			{ID: uuid.New(), Name: "Desk Speaker", Slug: "desk-speaker", Price: 500, Currency: domain.DefaultCurrency, CategoryID: category.ID, Inventory: 10},
		},
	}
}

func (c *stubCatalog) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	cat := c.category
	return []*domain.Category{&cat}, nil
}

func (c *stubCatalog) ListProducts(ctx context.Context, q service.ProductQuery) (*service.ProductPage, error) {
	if q.CategorySlug != "" && q.CategorySlug != c.category.Slug {
		return nil, repository.ErrCategoryNotFound
	}
	out := []*domain.Product{}
	for _, p := range c.products {
		if q.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			out = append(out, p)
		}
	}
	return &service.ProductPage{Products: out, Total: len(out), Page: q.Page, PageSize: q.PageSize}, nil
}

func (c *stubCatalog) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	for _, p := range c.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (c *stubCatalog) Snapshot(ctx context.Context, productID uuid.UUID) (domain.ProductSnapshot, error) {
	for _, p := range c.products {
		if p.ID == productID {
			return p.Snapshot(&c.category), nil
		}
	}
	return domain.ProductSnapshot{}, repository.ErrProductNotFound
}

// storeFixture wires real user, cart and order services behind a chi router
type storeFixture struct {
	router   *chi.Mux
	users    service.UserService
	carts    service.CartService
	orders   service.OrderService
	catalog  *stubCatalog
	orderLog *memOrderRepository
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())

	f := &storeFixture{
		catalog:  newStubCatalog(),
		orderLog: newMemOrderRepository(),
	}
	f.users = service.NewUserService(newMemUserRepository(), newMemRefreshTokenRepository(), testJWTSecret, 0, 0)
	f.carts = service.NewCartService(cartstore.NewMemoryStore(), f.catalog, m, logger)
	f.orders = service.NewOrderService(f.orderLog, f.carts, events.NewLogPublisher(logger), m, logger)

	auth := middleware.AuthMiddleware(testJWTSecret, logger)
	session := middleware.CartSessionMiddleware("cart_session", time.Hour, false)
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	NewUserHandler(f.users, logger).RegisterRoutes(r, auth, passthrough)
	NewCatalogHandler(f.catalog, logger).RegisterRoutes(r)
	NewCartHandler(f.carts, logger).RegisterRoutes(r, session)
	NewOrderHandler(f.orders, logger).RegisterRoutes(r, auth, session)
	NewAdminHandler(f.orders, f.catalog, logger).RegisterRoutes(r, auth, middleware.RequireAdmin(logger))
	NewActivityHandler(f.users, logger).RegisterRoutes(r, middleware.OptionalAuth(testJWTSecret, logger))
	f.router = r
	return f
}

// login registers (or promotes, for admins) an account and returns its access token
func (f *storeFixture) login(t *testing.T, email string, admin bool) (string, *domain.User) {
	t.Helper()
	ctx := context.Background()
	const password = "secret-pass"

	if admin {
		if _, err := f.users.EnsureAdmin(ctx, email, password); err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
	} else if _, err := f.users.Register(ctx, "Test User", email, password); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, _, user, err := f.users.Login(ctx, email, password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return token, user
}
