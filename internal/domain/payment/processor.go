package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osshop/checkout-api/internal/domain/order"
)

// Notifier receives the settlement event. Confirmation messaging fires here,
// not at order creation: the user is notified only once money has moved.
type Notifier interface {
	OrderConfirmed(o *order.Order)
}

// Request is the input for processing a payment.
type Request struct {
	OrderID       string
	PaymentMethod string
	// SavedMethodID optionally references a stored instrument; its display
	// name then fills PaymentMethod.
	SavedMethodID string
	// Amount is nil when the request carried no amount at all, which is
	// rejected distinctly from an insufficient one.
	Amount *decimal.Decimal
}

// Processor validates payment requests and records settlements. No real
// gateway call happens; settlement success is assumed once validation
// passes. Swapping in a real processor later only touches the step between
// validation and CreateSettlement.
type Processor struct {
	orders   order.Repository
	payments Repository
	notifier Notifier

	now func() time.Time
}

// NewProcessor creates a payment Processor. notifier may be nil.
func NewProcessor(orders order.Repository, payments Repository, notifier Notifier) *Processor {
	return &Processor{
		orders:   orders,
		payments: payments,
		notifier: notifier,
		now:      time.Now,
	}
}

// Process validates the request against the order and records the
// settlement.
//
// The early status check gives a clean error on the common path; the
// conditional update inside CreateSettlement is what actually serializes
// concurrent attempts, so a race between two payers resolves with exactly
// one SUCCESS record.
func (p *Processor) Process(ctx context.Context, userID int64, req Request) (*Payment, error) {
	o, err := p.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if o.Status == order.StatusPaid {
		return nil, ErrAlreadyPaid
	}

	if req.Amount == nil {
		return nil, ErrInvalidAmount
	}

	// Compare at fixed 2-decimal precision, half-up on both sides.
	// Over-payment is accepted; under-payment is rejected.
	received := req.Amount.Round(2)
	required := o.TotalAmount.Round(2)
	if received.LessThan(required) {
		return nil, &InsufficientAmountError{Required: required, Received: received}
	}

	method := req.PaymentMethod
	if req.SavedMethodID != "" {
		m, err := p.payments.GetMethod(ctx, userID, req.SavedMethodID)
		if err != nil {
			return nil, err
		}
		method = fmt.Sprintf("%s (%s %s)", m.Type, m.Provider, m.MaskedNumber)
	}

	pay := &Payment{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		PaymentMethod: method,
		Amount:        *req.Amount,
		TransactionID: uuid.New().String(),
		Status:        StatusSuccess,
		PaymentDate:   p.now(),
	}

	if err := p.payments.CreateSettlement(ctx, pay); err != nil {
		return nil, errors.Wrap(err, "record settlement")
	}

	o.Status = order.StatusPaid
	if p.notifier != nil {
		p.notifier.OrderConfirmed(o)
	}
	return pay, nil
}

// SaveMethod stores a payment instrument for later checkouts.
func (p *Processor) SaveMethod(ctx context.Context, m *SavedMethod) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = p.now()
	return p.payments.SaveMethod(ctx, m)
}

// ListMethods returns the user's stored instruments.
func (p *Processor) ListMethods(ctx context.Context, userID int64) ([]SavedMethod, error) {
	return p.payments.ListMethods(ctx, userID)
}

// DeleteMethod removes a stored instrument owned by the user.
func (p *Processor) DeleteMethod(ctx context.Context, userID int64, id string) error {
	return p.payments.DeleteMethod(ctx, userID, id)
}
