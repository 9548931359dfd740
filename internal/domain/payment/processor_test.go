package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osshop/checkout-api/internal/domain/order"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	snapshot := *o
	return &snapshot, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ int64) ([]order.Order, error) {
	return nil, nil
}
func (m *mockOrderRepo) ListAll(_ context.Context) ([]order.Order, error) { return nil, nil }

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, _ order.Status) (*order.Order, error) {
	return nil, order.ErrNotFound
}

type mockPaymentRepo struct {
	settled      []*Payment
	settleErr    error
	methods      map[string]*SavedMethod
	savedMethods []*SavedMethod
}

func (m *mockPaymentRepo) CreateSettlement(_ context.Context, p *Payment) error {
	if m.settleErr != nil {
		return m.settleErr
	}
	m.settled = append(m.settled, p)
	return nil
}

func (m *mockPaymentRepo) GetByOrder(_ context.Context, _ string) (*Payment, error) {
	return nil, order.ErrNotFound
}

func (m *mockPaymentRepo) SaveMethod(_ context.Context, sm *SavedMethod) error {
	m.savedMethods = append(m.savedMethods, sm)
	return nil
}

func (m *mockPaymentRepo) ListMethods(_ context.Context, _ int64) ([]SavedMethod, error) {
	return nil, nil
}

func (m *mockPaymentRepo) GetMethod(_ context.Context, _ int64, id string) (*SavedMethod, error) {
	sm, ok := m.methods[id]
	if !ok {
		return nil, ErrMethodNotFound
	}
	return sm, nil
}

func (m *mockPaymentRepo) DeleteMethod(_ context.Context, _ int64, _ string) error { return nil }

type mockNotifier struct {
	confirmed []*order.Order
}

func (m *mockNotifier) OrderConfirmed(o *order.Order) {
	m.confirmed = append(m.confirmed, o)
}

// --- Helpers ---

func pendingOrder(id, totalAmount string) *order.Order {
	return &order.Order{
		ID:          id,
		UserID:      7,
		Status:      order.StatusPending,
		TotalAmount: decimal.RequireFromString(totalAmount),
	}
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// --- Tests ---

func TestProcess_OrderNotFound(t *testing.T) {
	p := NewProcessor(&mockOrderRepo{}, &mockPaymentRepo{}, nil)

	_, err := p.Process(context.Background(), 7, Request{OrderID: "missing", Amount: amount("10.00")})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestProcess_AlreadyPaid(t *testing.T) {
	o := pendingOrder("o1", "200.00")
	o.Status = order.StatusPaid
	p := NewProcessor(&mockOrderRepo{orders: map[string]*order.Order{"o1": o}}, &mockPaymentRepo{}, nil)

	_, err := p.Process(context.Background(), 7, Request{OrderID: "o1", Amount: amount("200.00")})
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestProcess_MissingAmount(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	payments := &mockPaymentRepo{}
	p := NewProcessor(orders, payments, nil)

	_, err := p.Process(context.Background(), 7, Request{OrderID: "o1"})

	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, payments.settled)
}

func TestProcess_InsufficientAmount(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	payments := &mockPaymentRepo{}
	p := NewProcessor(orders, payments, nil)

	_, err := p.Process(context.Background(), 7, Request{OrderID: "o1", Amount: amount("199.99")})

	var insufficient *InsufficientAmountError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t,
		"Insufficient payment amount. Required: 200.00, Received: 199.99",
		insufficient.Error(),
	)
	assert.Empty(t, payments.settled)
}

func TestProcess_ExactAmount(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	payments := &mockPaymentRepo{}
	notifier := &mockNotifier{}
	p := NewProcessor(orders, payments, notifier)

	pay, err := p.Process(context.Background(), 7, Request{
		OrderID:       "o1",
		PaymentMethod: "CARD",
		Amount:        amount("200.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, pay.Status)
	assert.Equal(t, "o1", pay.OrderID)
	assert.Equal(t, "CARD", pay.PaymentMethod)
	assert.NotEmpty(t, pay.TransactionID)
	require.Len(t, payments.settled, 1)

	require.Len(t, notifier.confirmed, 1)
	assert.Equal(t, order.StatusPaid, notifier.confirmed[0].Status)
}

func TestProcess_OverPaymentAccepted(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	p := NewProcessor(orders, &mockPaymentRepo{}, nil)

	pay, err := p.Process(context.Background(), 7, Request{OrderID: "o1", Amount: amount("250.00")})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("250.00").Equal(pay.Amount))
}

func TestProcess_SavedMethodResolved(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	payments := &mockPaymentRepo{methods: map[string]*SavedMethod{
		"m1": {ID: "m1", UserID: 7, Type: "CARD", Provider: "Visa", MaskedNumber: "****4242"},
	}}
	p := NewProcessor(orders, payments, nil)

	pay, err := p.Process(context.Background(), 7, Request{
		OrderID:       "o1",
		SavedMethodID: "m1",
		Amount:        amount("200.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, "CARD (Visa ****4242)", pay.PaymentMethod)
}

func TestProcess_SavedMethodNotFound(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	p := NewProcessor(orders, &mockPaymentRepo{}, nil)

	_, err := p.Process(context.Background(), 7, Request{
		OrderID:       "o1",
		SavedMethodID: "missing",
		Amount:        amount("200.00"),
	})

	require.ErrorIs(t, err, ErrMethodNotFound)
}

func TestProcess_SettlementRaceLost(t *testing.T) {
	orders := &mockOrderRepo{orders: map[string]*order.Order{"o1": pendingOrder("o1", "200.00")}}
	payments := &mockPaymentRepo{settleErr: ErrAlreadyPaid}
	notifier := &mockNotifier{}
	p := NewProcessor(orders, payments, notifier)

	_, err := p.Process(context.Background(), 7, Request{OrderID: "o1", Amount: amount("200.00")})

	require.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Empty(t, notifier.confirmed)
}

func TestSaveMethod_AssignsID(t *testing.T) {
	payments := &mockPaymentRepo{}
	p := NewProcessor(&mockOrderRepo{}, payments, nil)

	m := &SavedMethod{UserID: 7, Type: "UPI", Provider: "GooglePay", MaskedNumber: "a@upi"}
	require.NoError(t, p.SaveMethod(context.Background(), m))

	assert.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())
	require.Len(t, payments.savedMethods, 1)
}
