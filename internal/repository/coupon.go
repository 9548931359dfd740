package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osshop/checkout-api/internal/domain/coupon"
)

const (
	couponColumns = `code, description, min_order_value, discount_amount,
		active, expires_at, usage_limit, used_count, created_at`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE code = $1 AND active = TRUE`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE active = TRUE
		  AND (expires_at IS NULL OR expires_at > now())
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		ORDER BY created_at DESC`

	insertCouponSQL = `INSERT INTO coupons
		(code, description, min_order_value, discount_amount, active, expires_at, usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateCouponSQL = `UPDATE coupons SET
		description = $2, min_order_value = $3, discount_amount = $4,
		active = $5, expires_at = $6, usage_limit = $7
		WHERE code = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`

	couponCodesSQL = `SELECT code FROM coupons`

	// consumeCouponUseSQL is the check-and-increment: the WHERE clause makes
	// the limit check and the bump a single atomic statement, so concurrent
	// consumers of a coupon's last use race on row locks, not on reads.
	consumeCouponUseSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND active = TRUE
		  AND (usage_limit IS NULL OR used_count < usage_limit)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1 AND active = TRUE)`
)

// executor is the query surface shared by *pgxpool.Pool and pgx.Tx, letting
// helpers run both standalone and inside a caller-owned transaction.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode returns the active coupon for code, or coupon.ErrNotFound.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

// ConsumeUse atomically increments used_count while enforcing the usage
// limit.
func (r *CouponRepository) ConsumeUse(ctx context.Context, code string) error {
	return consumeCouponUse(ctx, r.pool, code)
}

// List returns every coupon, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListActive returns the coupons currently redeemable: active, unexpired,
// and with uses remaining.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Create inserts a new coupon, returning coupon.ErrCodeExists on a taken
// code.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.Code, c.Description, c.MinOrderValue, c.DiscountAmount,
		c.Active, c.ExpiresAt, c.UsageLimit,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update overwrites the coupon's mutable fields. UsedCount is deliberately
// not writable here.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.Code, c.Description, c.MinOrderValue, c.DiscountAmount,
		c.Active, c.ExpiresAt, c.UsageLimit,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Codes returns every known code, active or not.
func (r *CouponRepository) Codes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, couponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.Code, &c.Description, &c.MinOrderValue, &c.DiscountAmount,
		&c.Active, &c.ExpiresAt, &c.UsageLimit, &c.UsedCount, &c.CreatedAt,
	)
	return c, err
}
