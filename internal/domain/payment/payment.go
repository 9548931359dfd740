// Package payment implements settlement: validating a payment request against
// an order's total and recording the PENDING → PAID transition exactly once.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyPaid is returned when the order is already PAID. Payment is
	// idempotent by order status, not by transaction id: a second call is
	// rejected rather than silently succeeding, so no duplicate settlement
	// record can exist.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrInvalidAmount is returned when the payment amount or the order
	// total is absent.
	ErrInvalidAmount = errors.New("payment amount or order total is missing")
	// ErrMethodNotFound is returned for an unknown saved payment method.
	ErrMethodNotFound = errors.New("saved payment method not found")
)

// InsufficientAmountError is returned when the tendered amount, after
// 2-decimal half-up rounding, is below the order total.
type InsufficientAmountError struct {
	Required decimal.Decimal
	Received decimal.Decimal
}

func (e *InsufficientAmountError) Error() string {
	return fmt.Sprintf("Insufficient payment amount. Required: %s, Received: %s",
		e.Required.StringFixed(2), e.Received.StringFixed(2))
}

// Payment is a settlement record. Created at most once per order and never
// mutated afterwards.
type Payment struct {
	ID            string
	OrderID       string
	PaymentMethod string
	Amount        decimal.Decimal
	TransactionID string
	Status        string
	PaymentDate   time.Time
}

// StatusSuccess is the only status this core writes; a real gateway
// integration would introduce failure states at this seam.
const StatusSuccess = "SUCCESS"

// SavedMethod is a stored payment instrument reference. Only display data is
// kept; a gateway token would live here in a real integration.
type SavedMethod struct {
	ID           string
	UserID       int64
	Type         string // CARD, UPI, NET_BANKING
	Provider     string // Visa, Mastercard, GooglePay, ...
	MaskedNumber string
	HolderName   string
	Expiry       string
	CreatedAt    time.Time
}

// Repository defines settlement persistence.
type Repository interface {
	// CreateSettlement inserts the payment record and transitions its order
	// PENDING → PAID in one atomic unit, using a conditional update keyed on
	// the expected prior status. Returns ErrAlreadyPaid when the order is no
	// longer PENDING; nothing is persisted in that case.
	CreateSettlement(ctx context.Context, p *Payment) error
	GetByOrder(ctx context.Context, orderID string) (*Payment, error)

	SaveMethod(ctx context.Context, m *SavedMethod) error
	ListMethods(ctx context.Context, userID int64) ([]SavedMethod, error)
	GetMethod(ctx context.Context, userID int64, id string) (*SavedMethod, error)
	DeleteMethod(ctx context.Context, userID int64, id string) error
}
