package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"storefront/internal/cartstore"
	"storefront/internal/domain"
	"storefront/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
)

const sessionLockStripes = 64

// ProductCatalog resolves product ids into cart snapshots
type ProductCatalog interface {
	Snapshot(ctx context.Context, productID uuid.UUID) (domain.ProductSnapshot, error)
}

// CartService manages the cart of each browsing session. Invalid mutations
// (unknown line, quantity below one) leave the cart unchanged and are not errors.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) error
	// Checkout runs place with the session cart held locked and clears the
	// cart once place succeeds. An empty cart yields ErrEmptyCart.
	Checkout(ctx context.Context, sessionID string, place func(cart *domain.Cart) error) error
}

type cartService struct {
	store   cartstore.Store
	catalog ProductCatalog
	metrics *metrics.StoreMetrics
	logger  *zap.Logger

	sfg   singleflight.Group
	locks [sessionLockStripes]sync.Mutex
}

// NewCartService creates a new instance of CartService
func NewCartService(store cartstore.Store, catalog ProductCatalog, m *metrics.StoreMetrics, logger *zap.Logger) CartService {
	return &cartService{
		store:   store,
		catalog: catalog,
		metrics: m,
		logger:  logger,
	}
}

func (s *cartService) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

// Get returns the session cart. Concurrent reads of one session share a single store load.
// The shared load is detached from any one caller's cancellation; each caller
// stops waiting when its own context ends.
func (s *cartService) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	ch := s.sfg.DoChan(sessionID, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), sessionID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return domain.NewCart(res.Val.([]domain.CartLine)), nil
	}
}

// load reads the persisted lines, substituting an empty cart for unreadable data
func (s *cartService) load(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	lines, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cartstore.ErrCorrupt) {
			s.logger.Warn("Discarding unreadable cart",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			s.metrics.RecordCartRecovery()
			return []domain.CartLine{}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return lines, nil
}

func (s *cartService) mutate(ctx context.Context, sessionID, op string, fn func(cart *domain.Cart) bool) (*domain.Cart, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cart := domain.NewCart(lines)

	if !fn(cart) {
		return cart, nil
	}

	if err := s.store.Save(ctx, sessionID, cart.Lines); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	s.metrics.RecordCartMutation(op)
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*domain.Cart, error) {
	snapshot, err := s.catalog.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, sessionID, "add", func(cart *domain.Cart) bool {
		cart.AddItem(snapshot)
		return true
	})
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "remove", func(cart *domain.Cart) bool {
		return cart.RemoveItem(productID)
	})
}

func (s *cartService) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "update_quantity", func(cart *domain.Cart) bool {
		return cart.UpdateQuantity(productID, quantity)
	})
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.metrics.RecordCartMutation("clear")
	return nil
}

func (s *cartService) Checkout(ctx context.Context, sessionID string, place func(cart *domain.Cart) error) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	lines, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	cart := domain.NewCart(lines)
	if cart.IsEmpty() {
		return ErrEmptyCart
	}

	if err := place(cart); err != nil {
		return err
	}

	// The order is already durable; a failed clear leaves a stale cart behind
	// but must not report the checkout as failed.
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil
	}
	s.metrics.RecordCartMutation("clear")
	return nil
}
