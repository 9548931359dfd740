// Package order implements the placement-and-settlement workflow: snapshotting
// a cart into an immutable order, computing totals, and driving the order
// status machine.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/osshop/checkout-api/internal/client"
)

var (
	// ErrEmptyCart is returned by PlaceOrder when the cart has no items.
	// No order is created.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrTrackingIDConflict signals a tracking id collision on persist.
	// Retryable: the caller regenerates and tries again.
	ErrTrackingIDConflict = errors.New("tracking id already exists")
	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid order status")
)

// Status is the order lifecycle state.
//
// PENDING → PAID → {SHIPPED → DELIVERED} | CANCELLED. PAID is terminal with
// respect to payment: a paid order can never be paid again. The
// administrative transitions are externally triggered and unconstrained
// beyond the order existing.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
}

// Item is an immutable snapshot of a cart line at placement time. Price is
// the cart's unit price snapshot — the price the user saw when adding to
// cart is the price they pay, regardless of later catalog changes.
type Item struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`

	// Product is best-effort display enrichment; never persisted.
	Product *client.Product `json:"-"`
}

// Subtotal returns Price * Quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order is a settled cart. Once created, Items and TotalAmount are
// immutable; only Status changes afterwards.
type Order struct {
	ID              string
	TrackingID      string
	UserID          int64
	Items           []Item
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponCode      string
	Status          Status
	ShippingAddress string
	PhoneNumber     string
	CreatedAt       time.Time

	// User is best-effort identity enrichment for admin views and
	// notifications; never persisted.
	User *client.User
}

// Repository defines order persistence.
type Repository interface {
	// Create persists the order with status PENDING, consumes one use of its
	// coupon code when set, and clears the owning user's cart — all within
	// one atomic unit. Returns ErrTrackingIDConflict on a tracking id
	// collision and coupon.ErrUsageLimitReached when the coupon's limit is
	// exhausted; in both cases nothing is persisted.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateStatus sets the status unconditionally and returns the updated
	// order, or ErrNotFound. The PENDING→PAID transition does not go through
	// here: settlement uses the payment repository's conditional update.
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}
