package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
)

// transitions lists the only allowed next status for each state
var transitions = map[OrderStatus]OrderStatus{
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// ParseOrderStatus converts a wire value into an OrderStatus
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// CanTransition reports whether from -> to is in the transition table
func CanTransition(from, to OrderStatus) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Next returns the status that follows s, if any
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := transitions[s]
	return next, ok
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// ShippingInfo is the delivery address captured at checkout
type ShippingInfo struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	Zip     string `json:"zip" validate:"required,max=20"`
}

// Order is a frozen cart plus its status history
type Order struct {
	ID          string                    `json:"id"`
	UserID      uuid.UUID                 `json:"user_id"`
	Date        time.Time                 `json:"date"`
	Items       []CartLine                `json:"items"`
	Total       int64                     `json:"total"`
	Currency    string                    `json:"currency"`
	Status      OrderStatus               `json:"status"`
	StatusDates map[OrderStatus]time.Time `json:"statusDates,omitempty"`
	Shipping    *ShippingInfo             `json:"shipping,omitempty"`
	Version     int64                     `json:"-"`
}

// NewOrder freezes the cart into a Processing order. Lines and total are
// copied by value so later cart mutations never reach the order.
// StatusDates starts empty and only records statuses reached through Advance.
func NewOrder(id string, userID uuid.UUID, cart *Cart, shipping *ShippingInfo, now time.Time) *Order {
	o := &Order{
		ID:       id,
		UserID:   userID,
		Date:     now,
		Items:    cart.Snapshot(),
		Total:    cart.Total(),
		Currency: cart.Currency(),
		Status:   OrderStatusProcessing,
		StatusDates: map[OrderStatus]time.Time{},
	}
	if shipping != nil {
		s := *shipping
		o.Shipping = &s
	}
	return o
}

// Advance moves the order to target and records when it happened.
// Transitions outside the table return ErrInvalidTransition and leave the order untouched.
func (o *Order) Advance(target OrderStatus, now time.Time) error {
	if !CanTransition(o.Status, target) {
		if o.Status.IsTerminal() {
			return fmt.Errorf("%w: %s is final", ErrInvalidTransition, o.Status)
		}
		next, _ := o.Status.Next()
		return fmt.Errorf("%w: %s -> %s, next allowed is %s", ErrInvalidTransition, o.Status, target, next)
	}
	if o.StatusDates == nil {
		o.StatusDates = make(map[OrderStatus]time.Time)
	}
	o.Status = target
	o.StatusDates[target] = now
	return nil
}

// ItemCount is the number of units in the order
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Items {
		n += l.Quantity
	}
	return n
}

// OrderStats summarizes the order log for the admin dashboard
type OrderStats struct {
	TotalOrders      int   `json:"total_orders"`
	Revenue          int64 `json:"revenue"`
	PendingShipments int   `json:"pending_shipments"`
}
