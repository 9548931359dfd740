package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osshop/checkout-api/internal/domain/coupon"
	"github.com/osshop/checkout-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, tracking_id, user_id, items, total, discount, coupon_code, status, shipping_address, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	orderColumns = `id, tracking_id, user_id, items, total, discount, coupon_code,
		status, shipping_address, phone_number, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// items are serialized to a JSONB column: the snapshot is written once and
// never updated, so there is nothing to query inside it relationally.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, consumes its coupon use, and clears the owning
// cart in one transaction. This is the placement workflow's local atomic
// unit: either the order exists with its cart cleared and coupon counted, or
// nothing happened.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.CouponCode != "" {
		if err := consumeCouponUse(ctx, tx, o.CouponCode); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.TrackingID, o.UserID, itemsJSON, o.TotalAmount, o.DiscountAmount,
		o.CouponCode, o.Status, o.ShippingAddress, o.PhoneNumber, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_tracking_id_key") {
			return order.ErrTrackingIDConflict
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if _, err := tx.Exec(ctx, clearCartSQL, o.UserID); err != nil {
		return fmt.Errorf("clearing cart for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order create: %w", err)
	}
	return nil
}

// GetByID returns a single order with its item snapshot.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus applies an unconditional status change and returns the
// updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.TrackingID, &o.UserID, &itemsJSON, &o.TotalAmount, &o.DiscountAmount,
		&o.CouponCode, &status, &o.ShippingAddress, &o.PhoneNumber, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	return o, nil
}

// consumeCouponUse performs the atomic check-and-increment inside the given
// transaction. Shared with the standalone coupon repository path.
func consumeCouponUse(ctx context.Context, ex executor, code string) error {
	tag, err := ex.Exec(ctx, consumeCouponUseSQL, code)
	if err != nil {
		return fmt.Errorf("consuming coupon %q: %w", code, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := ex.QueryRow(ctx, couponExistsSQL, code).Scan(&exists); err != nil {
		return fmt.Errorf("checking coupon %q: %w", code, err)
	}
	if exists {
		return coupon.ErrUsageLimitReached
	}
	return coupon.ErrNotFound
}
