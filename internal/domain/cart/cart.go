// Package cart implements the per-user shopping cart: the mutable source of
// truth for line items until an order snapshots them.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osshop/checkout-api/internal/client"
)

// Item is a single cart line. UnitPrice is the catalog price captured when
// the line was first added; it is never re-read on cart views, so totals stay
// stable even if the catalog price changes later.
type Item struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal

	// Product carries best-effort display enrichment. Nil when the catalog
	// lookup failed or was skipped; the price/quantity fields above remain
	// authoritative either way.
	Product *client.Product
}

// Subtotal returns UnitPrice * Quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart is one user's cart. There is exactly one per user, created lazily on
// first access.
type Cart struct {
	UserID    int64
	Items     []Item
	CreatedAt time.Time
}

// TotalAmount is recomputed on every read and never stored.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Repository defines cart persistence. GetOrCreate must be an atomic
// read-or-create upsert, not a check-then-insert pair.
type Repository interface {
	GetOrCreate(ctx context.Context, userID int64) (*Cart, error)
	// UpsertItem appends a new line or accumulates quantity into an existing
	// one, keeping the original unit price snapshot on merge.
	UpsertItem(ctx context.Context, userID, productID int64, quantity int, unitPrice decimal.Decimal) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}
