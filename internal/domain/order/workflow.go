package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/cart"
	"github.com/osshop/checkout-api/internal/domain/coupon"
)

// Tracking id collisions are rare (time component + random suffix) but not
// impossible; a conflicting persist is retried with a fresh id.
const maxPlaceAttempts = 3

// CouponValidator checks a code against an order total. Consumption is not
// part of this interface: the order repository burns the use inside the
// placement transaction.
type CouponValidator interface {
	Validate(ctx context.Context, code string, orderTotal decimal.Decimal) (*coupon.ValidationResult, error)
}

// Notifier receives fire-and-forget workflow events. Implementations must
// return immediately and contain their own failures.
type Notifier interface {
	OrderPlaced(o *Order, u *client.User)
}

// Enricher resolves display data for a batch of product ids, best-effort.
type Enricher interface {
	Products(ctx context.Context, ids []int64) map[int64]*client.Product
}

// PlaceRequest is the input for placing an order.
type PlaceRequest struct {
	ShippingAddress string
	PhoneNumber     string
	CouponCode      string
}

// Workflow drives order placement and the status machine.
type Workflow struct {
	carts    cart.Repository
	coupons  CouponValidator
	orders   Repository
	identity client.Identity
	enricher Enricher
	notifier Notifier

	now     func() time.Time
	randInt func(n int) int
}

// NewWorkflow creates the order workflow with its collaborators. identity,
// enricher, and notifier may be nil; the corresponding best-effort steps are
// skipped.
func NewWorkflow(
	carts cart.Repository,
	coupons CouponValidator,
	orders Repository,
	identity client.Identity,
	enricher Enricher,
	notifier Notifier,
) *Workflow {
	return &Workflow{
		carts:    carts,
		coupons:  coupons,
		orders:   orders,
		identity: identity,
		enricher: enricher,
		notifier: notifier,
		now:      time.Now,
		randInt:  rand.IntN,
	}
}

// PlaceOrder snapshots the user's cart into an immutable PENDING order.
//
// The money-bearing steps — coupon consumption, order insert, cart clear —
// run in one local atomic unit inside the repository. Identity enrichment and
// the notification trigger are best-effort and cannot fail placement.
func (w *Workflow) PlaceOrder(ctx context.Context, userID int64, req PlaceRequest) (*Order, error) {
	c, err := w.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart for user %d: %w", userID, err)
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// Snapshot: copy the cart's recorded prices, never a fresh catalog read.
	items := make([]Item, len(c.Items))
	subtotal := decimal.Zero
	for i, ci := range c.Items {
		items[i] = Item{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     ci.UnitPrice,
		}
		subtotal = subtotal.Add(ci.Subtotal())
	}

	discount := decimal.Zero
	if req.CouponCode != "" {
		vr, err := w.coupons.Validate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if !vr.Valid {
			return nil, &coupon.InvalidError{Code: req.CouponCode, Reason: vr.Message}
		}
		discount = vr.DiscountAmount
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)
	discount = discount.Round(2)

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           items,
		TotalAmount:     total,
		DiscountAmount:  discount,
		CouponCode:      req.CouponCode,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		CreatedAt:       w.now(),
	}

	for attempt := 0; ; attempt++ {
		o.TrackingID = w.newTrackingID()
		err = w.orders.Create(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTrackingIDConflict) && attempt < maxPlaceAttempts-1 {
			continue
		}
		if errors.Is(err, coupon.ErrUsageLimitReached) {
			return nil, &coupon.InvalidError{Code: req.CouponCode, Reason: "Coupon usage limit reached"}
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The order is committed and the cart cleared; everything below is
	// best-effort and must not surface failures to the caller.
	o.User = w.lookupUser(ctx, userID)

	if w.notifier != nil {
		w.notifier.OrderPlaced(o, o.User)
	}

	w.enrichItems(ctx, o.Items)
	return o, nil
}

// Get returns a single order with best-effort item enrichment.
func (w *Workflow) Get(ctx context.Context, id string) (*Order, error) {
	o, err := w.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	w.enrichItems(ctx, o.Items)
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (w *Workflow) ListForUser(ctx context.Context, userID int64) ([]Order, error) {
	list, err := w.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	w.enrichAll(ctx, list)
	return list, nil
}

// ListAll returns every order for the admin view, with best-effort user and
// product enrichment.
func (w *Workflow) ListAll(ctx context.Context) ([]Order, error) {
	list, err := w.orders.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list all orders")
	}
	w.enrichAll(ctx, list)
	for i := range list {
		list[i].User = w.lookupUser(ctx, list[i].UserID)
	}
	return list, nil
}

// UpdateStatus applies an administrative status transition.
func (w *Workflow) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	o, err := w.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	w.enrichItems(ctx, o.Items)
	return o, nil
}

func (w *Workflow) newTrackingID() string {
	return fmt.Sprintf("ORD-%d-%04d", w.now().UnixMilli(), w.randInt(10000))
}

// lookupUser resolves the user profile, degrading to nil on any failure.
func (w *Workflow) lookupUser(ctx context.Context, userID int64) *client.User {
	if w.identity == nil {
		return nil
	}
	u, err := w.identity.GetUser(ctx, userID)
	if err != nil {
		zctx.From(ctx).Warn("User enrichment degraded",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return u
}

func (w *Workflow) enrichItems(ctx context.Context, items []Item) {
	if w.enricher == nil || len(items) == 0 {
		return
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products := w.enricher.Products(ctx, ids)
	for i := range items {
		items[i].Product = products[items[i].ProductID]
	}
}

// enrichAll resolves products for a batch of orders in one fan-out.
func (w *Workflow) enrichAll(ctx context.Context, orders []Order) {
	if w.enricher == nil || len(orders) == 0 {
		return
	}
	var ids []int64
	for i := range orders {
		for _, it := range orders[i].Items {
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return
	}
	products := w.enricher.Products(ctx, ids)
	for i := range orders {
		for j := range orders[i].Items {
			orders[i].Items[j].Product = products[orders[i].Items[j].ProductID]
		}
	}
}
