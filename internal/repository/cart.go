package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/osshop/checkout-api/internal/domain/cart"
)

const (
	upsertCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	getCartSQL = `SELECT created_at FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT product_id, quantity, unit_price
		FROM cart_items WHERE user_id = $1 ORDER BY added_at, product_id`

	upsertCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	removeCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate loads the user's cart, creating it on first access. The create
// is an idempotent upsert, so two concurrent first reads cannot race a
// check-then-insert.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID int64) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, upsertCartSQL, userID); err != nil {
		return nil, fmt.Errorf("creating cart for user %d: %w", userID, err)
	}

	c := &cart.Cart{UserID: userID}
	if err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&c.CreatedAt); err != nil {
		return nil, fmt.Errorf("loading cart for user %d: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items for user %d: %w", userID, err)
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("scanning cart items for user %d: %w", userID, err)
	}
	c.Items = items
	return c, nil
}

// UpsertItem merges a line into the cart, accumulating quantity on conflict.
// The stored unit price is kept on merge — the snapshot from the first add
// stands. The cart row is ensured first to satisfy the FK on lazy access.
func (r *CartRepository) UpsertItem(ctx context.Context, userID, productID int64, quantity int, unitPrice decimal.Decimal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cart upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertCartSQL, userID); err != nil {
		return fmt.Errorf("creating cart for user %d: %w", userID, err)
	}
	if _, err := tx.Exec(ctx, upsertCartItemSQL, userID, productID, quantity, unitPrice); err != nil {
		return fmt.Errorf("upserting cart item %d for user %d: %w", productID, userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cart upsert: %w", err)
	}
	return nil
}

// RemoveItem deletes a line; deleting an absent line affects zero rows and
// is not an error.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID int64) error {
	if _, err := r.pool.Exec(ctx, removeCartItemSQL, userID, productID); err != nil {
		return fmt.Errorf("removing cart item %d for user %d: %w", productID, userID, err)
	}
	return nil
}

// Clear empties the cart's items.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice)
	return it, err
}
