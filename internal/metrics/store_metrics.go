package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds the counters for cart and order activity
type StoreMetrics struct {
	ordersPlaced     prometheus.Counter
	orderRevenue     prometheus.Counter
	transitions      *prometheus.CounterVec
	cartMutations    *prometheus.CounterVec
	cartRecoveries   prometheus.Counter
	checkoutDuration prometheus.Histogram
}

// NewStoreMetrics registers the store collectors with registerer,
// or with the default registerer when nil.
func NewStoreMetrics(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		ordersPlaced: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed at checkout",
		})),
		orderRevenue: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_order_revenue_minor_total",
			Help: "Sum of order totals in minor currency units",
		})),
		transitions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order status transitions applied",
		}, []string{"from", "to"})),
		cartMutations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation",
		}, []string{"op"})),
		cartRecoveries: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_recoveries_total",
			Help: "Unreadable carts replaced with an empty cart",
		})),
		checkoutDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		})),
	}
}

// register adds c to registerer. If an identical collector is already
// registered, the existing one is returned instead.
func register[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if err := registerer.Register(c); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return c
}

// RecordOrderPlaced counts a checkout and its revenue
func (m *StoreMetrics) RecordOrderPlaced(total int64, duration time.Duration) {
	m.ordersPlaced.Inc()
	if total > 0 {
		m.orderRevenue.Add(float64(total))
	}
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordTransition counts an applied status change
func (m *StoreMetrics) RecordTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordCartMutation counts a cart operation such as "add" or "clear"
func (m *StoreMetrics) RecordCartMutation(op string) {
	m.cartMutations.WithLabelValues(op).Inc()
}

// RecordCartRecovery counts a corrupt cart replaced by an empty one
func (m *StoreMetrics) RecordCartRecovery() {
	m.cartRecoveries.Inc()
}
