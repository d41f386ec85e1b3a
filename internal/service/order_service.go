package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orderIDLength   = 7
	orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderIDAttempts = 5
)

var (
	ErrOrderIDExhausted = errors.New("could not allocate a unique order id")
)

// OrderIDGenerator returns a new candidate order id
type OrderIDGenerator func() (string, error)

// NewOrderID returns a 7-character uppercase base-36 token from crypto/rand
func NewOrderID() (string, error) {
	base := big.NewInt(int64(len(orderIDAlphabet)))
	buf := make([]byte, orderIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate order id: %w", err)
		}
		buf[i] = orderIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// OrderService converts carts into orders and advances their status
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, sessionID string, shipping *domain.ShippingInfo) (*domain.Order, error)
	Advance(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error)
	FindByID(ctx context.Context, orderID string) (*domain.Order, bool, error)
	List(ctx context.Context) ([]*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	Stats(ctx context.Context) (domain.OrderStats, error)
}

type orderService struct {
	orders    repository.OrderRepository
	carts     CartService
	publisher events.Publisher
	metrics   *metrics.StoreMetrics
	logger    *zap.Logger

	newID OrderIDGenerator
	now   func() time.Time
}

// OrderServiceOption customizes an OrderService
type OrderServiceOption func(*orderService)

// WithOrderIDGenerator replaces the crypto/rand id generator
func WithOrderIDGenerator(gen OrderIDGenerator) OrderServiceOption {
	return func(s *orderService) { s.newID = gen }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *orderService) { s.now = now }
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	carts CartService,
	publisher events.Publisher,
	m *metrics.StoreMetrics,
	logger *zap.Logger,
	opts ...OrderServiceOption,
) OrderService {
	s := &orderService{
		orders:    orders,
		carts:     carts,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		newID:     NewOrderID,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout freezes the session cart into a Processing order owned by userID
// and clears the cart. An empty cart yields ErrEmptyCart.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, sessionID string, shipping *domain.ShippingInfo) (*domain.Order, error) {
	start := time.Now()

	var order *domain.Order
	err := s.carts.Checkout(ctx, sessionID, func(cart *domain.Cart) error {
		placed, err := s.place(ctx, userID, cart, shipping)
		if err != nil {
			return err
		}
		order = placed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderPlaced(order.Total, time.Since(start))
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID.String()),
		zap.Int64("total", order.Total),
		zap.Int("items", order.ItemCount()),
	)
	s.publish(ctx, events.OrderPlaced(order))

	return order, nil
}

// place inserts the order, regenerating the id when it collides with an existing one
func (s *orderService) place(ctx context.Context, userID uuid.UUID, cart *domain.Cart, shipping *domain.ShippingInfo) (*domain.Order, error) {
	for attempt := 1; attempt <= orderIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}

		order := domain.NewOrder(id, userID, cart, shipping, s.now())
		err = s.orders.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrOrderAlreadyExists) {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		s.logger.Warn("Order id collision, regenerating",
			zap.String("order_id", id),
			zap.Int("attempt", attempt),
		)
	}
	return nil, ErrOrderIDExhausted
}

// Advance applies a table-checked status transition guarded by the order version
func (s *orderService) Advance(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	now := s.now()
	if err := order.Advance(target, now); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(previous), string(target))
	s.logger.Info("Order status advanced",
		zap.String("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
	)
	s.publish(ctx, events.StatusChanged(order, previous, now))

	return order, nil
}

// FindByID reports a missing order as (nil, false, nil)
func (s *orderService) FindByID(ctx context.Context, orderID string) (*domain.Order, bool, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return order, true, nil
}

func (s *orderService) List(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.List(ctx, 0, 0)
}

func (s *orderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *orderService) Stats(ctx context.Context) (domain.OrderStats, error) {
	return s.orders.Stats(ctx)
}

// publish never fails the caller; the order is already stored
func (s *orderService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
