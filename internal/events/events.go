package events

import (
	"context"
	"time"

	"storefront/internal/domain"

	"go.uber.org/zap"
)

// Event types double as routing keys on the topic exchange
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the message published for order lifecycle changes
type Event struct {
	Type       string             `json:"type"`
	OrderID    string             `json:"order_id"`
	UserID     string             `json:"user_id"`
	Status     domain.OrderStatus `json:"status"`
	Previous   domain.OrderStatus `json:"previous_status,omitempty"`
	Total      int64              `json:"total"`
	Currency   string             `json:"currency"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// OrderPlaced builds the event emitted after checkout
func OrderPlaced(order *domain.Order) Event {
	return Event{
		Type:       TypeOrderPlaced,
		OrderID:    order.ID,
		UserID:     order.UserID.String(),
		Status:     order.Status,
		Total:      order.Total,
		Currency:   order.Currency,
		OccurredAt: order.Date,
	}
}

// StatusChanged builds the event emitted after a successful transition
func StatusChanged(order *domain.Order, previous domain.OrderStatus, at time.Time) Event {
	return Event{
		Type:       TypeOrderStatusChanged,
		OrderID:    order.ID,
		UserID:     order.UserID.String(),
		Status:     order.Status,
		Previous:   previous,
		Total:      order.Total,
		Currency:   order.Currency,
		OccurredAt: at,
	}
}

// Publisher delivers order events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type logPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher returns a Publisher that only logs events.
// It is used when no broker is configured.
func NewLogPublisher(logger *zap.Logger) Publisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("Order event",
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.String("status", string(event.Status)),
		zap.Int64("total", event.Total),
	)
	return nil
}
