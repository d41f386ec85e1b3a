package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderAlreadyExists   = errors.New("order with this id already exists")
	ErrOrderVersionConflict = errors.New("order was modified concurrently")
)

const orderColumns = `id, user_id, items, total, currency, status, status_dates, shipping, version, created_at`

// OrderRepository is the append-only order log. Orders are never deleted;
// only their status moves forward.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, order *domain.Order) error
	Stats(ctx context.Context) (domain.OrderStats, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create appends an order. A primary key collision yields ErrOrderAlreadyExists
// so the caller can retry with a fresh id.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	items, err := toJSONB(order.Items)
	if err != nil {
		return err
	}
	statusDates, err := toJSONB(order.StatusDates)
	if err != nil {
		return err
	}
	var shipping []byte
	if order.Shipping != nil {
		if shipping, err = toJSONB(order.Shipping); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO orders (id, user_id, items, total, currency, status, status_dates, shipping, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		items,
		order.Total,
		order.Currency,
		string(order.Status),
		statusDates,
		shipping,
		order.Version,
		order.Date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOrderAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// FindByID retrieves a single order
func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return order, nil
}

// List returns orders newest first. A limit of zero returns everything.
func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListByUser returns the orders of one user, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	orders, err := r.queryOrders(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus persists status and status dates if the stored version still
// matches order.Version. On success order.Version is incremented.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	statusDates, err := toJSONB(order.StatusDates)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    status_dates = $3,
		    version = version + 1
		WHERE id = $1
		  AND version = $4
	`,
		order.ID,
		string(order.Status),
		statusDates,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrOrderVersionConflict
	}

	order.Version++
	return nil
}

// Stats aggregates order count, revenue and orders awaiting shipment
func (r *orderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	var stats domain.OrderStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0),
		       COUNT(*) FILTER (WHERE status = $1)
		FROM orders
	`, string(domain.OrderStatusProcessing)).Scan(&stats.TotalOrders, &stats.Revenue, &stats.PendingShipments)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("failed to compute order stats: %w", err)
	}
	return stats, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		items, statusDates, shipping []byte
		status                       string
		createdAt                    time.Time
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&items,
		&order.Total,
		&order.Currency,
		&status,
		&statusDates,
		&shipping,
		&order.Version,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	order.Date = createdAt.UTC()

	if err := fromJSONB(items, &order.Items); err != nil {
		return nil, err
	}
	if err := fromJSONB(statusDates, &order.StatusDates); err != nil {
		return nil, err
	}
	if len(shipping) > 0 {
		order.Shipping = &domain.ShippingInfo{}
		if err := fromJSONB(shipping, order.Shipping); err != nil {
			return nil, err
		}
	}

	return order, nil
}
