// Package coupon implements the discount coupon ledger: validation of codes
// against order totals and atomic consumption of limited-use coupons.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no active coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrUsageLimitReached is returned by Consume when the storage-level
	// check-and-increment finds the limit exhausted. Retryable from the
	// caller's point of view: validation may have passed moments earlier.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrCodeExists is returned when creating a coupon with a taken code.
	ErrCodeExists = errors.New("coupon code already exists")
)

// InvalidError carries the human-readable reason a coupon could not be
// applied during order placement.
type InvalidError struct {
	Code   string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

// Coupon is a discount voucher. UsedCount is mutated only through the
// ledger's atomic consume; everywhere else the struct is read-only.
type Coupon struct {
	Code           string
	Description    string
	MinOrderValue  decimal.Decimal
	DiscountAmount decimal.Decimal
	Active         bool
	ExpiresAt      *time.Time
	// UsageLimit nil means unlimited.
	UsageLimit *int
	UsedCount  int
	CreatedAt  time.Time
}

// ValidationResult is the outcome of checking a code against an order total.
type ValidationResult struct {
	Valid          bool
	Code           string
	DiscountAmount decimal.Decimal
	MinOrderValue  decimal.Decimal
	Description    string
	Message        string
}

// Repository defines coupon persistence. ConsumeUse must perform the limit
// check and the increment as a single storage-level atomic step: two
// concurrent consumers of a coupon with one use left must not both succeed.
type Repository interface {
	// FindByCode returns the active coupon for code, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// ConsumeUse atomically increments used_count while enforcing the usage
	// limit. Returns ErrUsageLimitReached when the limit is exhausted and
	// ErrNotFound when no active coupon matches.
	ConsumeUse(ctx context.Context, code string) error

	List(ctx context.Context) ([]Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error
	// Codes returns every known code, active or not. Used to warm the
	// negative-lookup filter.
	Codes(ctx context.Context) ([]string, error)
}
