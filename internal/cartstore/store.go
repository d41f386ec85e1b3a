package cartstore

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var (
	// ErrCorrupt is returned by Load when the stored lines cannot be decoded
	ErrCorrupt = errors.New("stored cart is unreadable")
)

// Store persists the line sequence of one cart per session.
// Load returns an empty slice for sessions with no saved cart.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	Save(ctx context.Context, sessionID string, lines []domain.CartLine) error
	Delete(ctx context.Context, sessionID string) error
}

func cacheKey(sessionID string) string {
	return "cart:" + sessionID
}
