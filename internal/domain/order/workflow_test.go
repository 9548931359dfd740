package order

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/cart"
	"github.com/osshop/checkout-api/internal/domain/coupon"
)

// --- Mock implementations ---

type mockCartRepo struct {
	cart    *cart.Cart
	getErr  error
	cleared int
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID int64) (*cart.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.cart != nil {
		return m.cart, nil
	}
	return &cart.Cart{UserID: userID}, nil
}

func (m *mockCartRepo) UpsertItem(_ context.Context, _, _ int64, _ int, _ decimal.Decimal) error {
	return nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, _, _ int64) error { return nil }

func (m *mockCartRepo) Clear(_ context.Context, _ int64) error {
	m.cleared++
	return nil
}

type mockCouponValidator struct {
	result *coupon.ValidationResult
	err    error
}

func (m *mockCouponValidator) Validate(_ context.Context, code string, _ decimal.Decimal) (*coupon.ValidationResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &coupon.ValidationResult{Valid: false, Message: "Invalid coupon code"}, nil
}

type mockOrderRepo struct {
	created   []*Order
	createErr []error // consumed one per Create call
	byID      map[string]*Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		if err != nil {
			return err
		}
	}
	snapshot := *o
	m.created = append(m.created, &snapshot)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ int64) ([]Order, error) { return nil, nil }
func (m *mockOrderRepo) ListAll(_ context.Context) ([]Order, error)             { return nil, nil }

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	return o, nil
}

type mockIdentity struct {
	user *client.User
	err  error
}

func (m *mockIdentity) GetUser(_ context.Context, _ int64) (*client.User, error) {
	return m.user, m.err
}

type mockNotifier struct {
	placed []*Order
	users  []*client.User
}

func (m *mockNotifier) OrderPlaced(o *Order, u *client.User) {
	m.placed = append(m.placed, o)
	m.users = append(m.users, u)
}

// --- Helpers ---

func testCart(userID int64, items ...cart.Item) *cart.Cart {
	return &cart.Cart{UserID: userID, Items: items}
}

func cartItem(productID int64, quantity int, price string) cart.Item {
	return cart.Item{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func newTestWorkflow(carts cart.Repository, coupons CouponValidator, orders Repository) *Workflow {
	return NewWorkflow(carts, coupons, orders, nil, nil, nil)
}

// --- Tests ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	repo := &mockOrderRepo{}
	w := newTestWorkflow(&mockCartRepo{}, &mockCouponValidator{}, repo)

	_, err := w.PlaceOrder(context.Background(), 1, PlaceRequest{ShippingAddress: "10 Main St"})

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, repo.created)
}

func TestPlaceOrder_SnapshotsCartPrices(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 2, "100.00"))}
	repo := &mockOrderRepo{}
	w := newTestWorkflow(carts, &mockCouponValidator{}, repo)

	o, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{ShippingAddress: "10 Main St"})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("200.00").Equal(o.TotalAmount))
	assert.True(t, decimal.Zero.Equal(o.DiscountAmount))
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(42), o.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("100.00").Equal(o.Items[0].Price))
	assert.True(t, strings.HasPrefix(o.TrackingID, "ORD-"))
	assert.NotEmpty(t, o.ID)
	require.Len(t, repo.created, 1)
}

func TestPlaceOrder_CouponApplied(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 2, "600.00"))}
	cv := &mockCouponValidator{result: &coupon.ValidationResult{
		Valid:          true,
		Code:           "OFFER1000",
		DiscountAmount: decimal.RequireFromString("200.00"),
	}}
	repo := &mockOrderRepo{}
	w := newTestWorkflow(carts, cv, repo)

	o, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{
		ShippingAddress: "10 Main St",
		CouponCode:      "OFFER1000",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1000.00").Equal(o.TotalAmount))
	assert.True(t, decimal.RequireFromString("200.00").Equal(o.DiscountAmount))
	assert.Equal(t, "OFFER1000", o.CouponCode)
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 1, "100.00"))}
	cv := &mockCouponValidator{result: &coupon.ValidationResult{
		Valid:   false,
		Message: "Coupon has expired",
	}}
	repo := &mockOrderRepo{}
	w := newTestWorkflow(carts, cv, repo)

	_, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{
		ShippingAddress: "10 Main St",
		CouponCode:      "OLD",
	})

	var invalid *coupon.InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Coupon has expired", invalid.Reason)
	assert.Empty(t, repo.created)
}

func TestPlaceOrder_DiscountFlooredAtZero(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 1, "50.00"))}
	cv := &mockCouponValidator{result: &coupon.ValidationResult{
		Valid:          true,
		DiscountAmount: decimal.RequireFromString("200.00"),
	}}
	w := newTestWorkflow(carts, cv, &mockOrderRepo{})

	o, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{
		ShippingAddress: "10 Main St",
		CouponCode:      "HUGE",
	})

	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(o.TotalAmount))
}

func TestPlaceOrder_TrackingConflictRetried(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 1, "10.00"))}
	repo := &mockOrderRepo{createErr: []error{ErrTrackingIDConflict}}
	w := newTestWorkflow(carts, &mockCouponValidator{}, repo)

	o, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{ShippingAddress: "10 Main St"})

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, o.ID, repo.created[0].ID)
}

func TestPlaceOrder_TrackingConflictExhausted(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 1, "10.00"))}
	repo := &mockOrderRepo{createErr: []error{
		ErrTrackingIDConflict, ErrTrackingIDConflict, ErrTrackingIDConflict,
	}}
	w := newTestWorkflow(carts, &mockCouponValidator{}, repo)

	_, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{ShippingAddress: "10 Main St"})

	require.ErrorIs(t, err, ErrTrackingIDConflict)
	assert.Empty(t, repo.created)
}

func TestPlaceOrder_UsageLimitRaceRejected(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 2, "600.00"))}
	cv := &mockCouponValidator{result: &coupon.ValidationResult{
		Valid:          true,
		DiscountAmount: decimal.RequireFromString("200.00"),
	}}
	repo := &mockOrderRepo{createErr: []error{coupon.ErrUsageLimitReached}}
	w := newTestWorkflow(carts, cv, repo)

	_, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{
		ShippingAddress: "10 Main St",
		CouponCode:      "OFFER1000",
	})

	var invalid *coupon.InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Coupon usage limit reached", invalid.Reason)
}

func TestPlaceOrder_IdentityFailureDoesNotBlock(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 1, "10.00"))}
	notifier := &mockNotifier{}
	w := NewWorkflow(carts, &mockCouponValidator{}, &mockOrderRepo{},
		&mockIdentity{err: errors.New("identity down")}, nil, notifier)

	o, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{ShippingAddress: "10 Main St"})

	require.NoError(t, err)
	assert.Nil(t, o.User)
	require.Len(t, notifier.placed, 1)
	assert.Nil(t, notifier.users[0])
}

func TestPlaceOrder_NotifierReceivesUser(t *testing.T) {
	carts := &mockCartRepo{cart: testCart(7, cartItem(42, 1, "10.00"))}
	notifier := &mockNotifier{}
	u := &client.User{ID: 7, Email: "a@b.c", FirstName: "Ada"}
	w := NewWorkflow(carts, &mockCouponValidator{}, &mockOrderRepo{},
		&mockIdentity{user: u}, nil, notifier)

	o, err := w.PlaceOrder(context.Background(), 7, PlaceRequest{ShippingAddress: "10 Main St"})

	require.NoError(t, err)
	assert.Equal(t, u, o.User)
	require.Len(t, notifier.users, 1)
	assert.Equal(t, u, notifier.users[0])
}

func TestGet_NotFound(t *testing.T) {
	w := newTestWorkflow(&mockCartRepo{}, &mockCouponValidator{}, &mockOrderRepo{})

	_, err := w.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{
		"o1": {ID: "o1", Status: StatusPaid},
	}}
	w := newTestWorkflow(&mockCartRepo{}, &mockCouponValidator{}, repo)

	o, err := w.UpdateStatus(context.Background(), "o1", StatusShipped)

	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("TELEPORTED")
	require.ErrorIs(t, err, ErrInvalidStatus)
}
