package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osshop/checkout-api/internal/domain/order"
	"github.com/osshop/checkout-api/internal/domain/payment"
)

const (
	// markOrderPaidSQL flips PENDING to PAID only when the order is still
	// PENDING, so a concurrent second settlement affects zero rows instead
	// of double-charging.
	markOrderPaidSQL = `UPDATE orders SET status = 'PAID'
		WHERE id = $1 AND status = 'PENDING'`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	insertPaymentSQL = `INSERT INTO payments
		(id, order_id, payment_method, amount, transaction_id, status, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	paymentColumns = `id, order_id, payment_method, amount, transaction_id, status, payment_date`

	getPaymentByOrderSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

	savedMethodColumns = `id, user_id, type, provider, masked_number, holder_name, expiry, created_at`

	insertSavedMethodSQL = `INSERT INTO saved_payment_methods
		(id, user_id, type, provider, masked_number, holder_name, expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listSavedMethodsSQL = `SELECT ` + savedMethodColumns + ` FROM saved_payment_methods
		WHERE user_id = $1 ORDER BY created_at DESC`

	getSavedMethodSQL = `SELECT ` + savedMethodColumns + ` FROM saved_payment_methods
		WHERE user_id = $1 AND id = $2`

	deleteSavedMethodSQL = `DELETE FROM saved_payment_methods WHERE user_id = $1 AND id = $2`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// CreateSettlement records the payment and marks its order PAID in one
// transaction. The status flip is conditional on the order still being
// PENDING: when it affects no rows the settlement is rolled back and the
// caller gets ErrAlreadyPaid (or order.ErrNotFound if the order is gone).
func (r *PaymentRepository) CreateSettlement(ctx context.Context, p *payment.Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, markOrderPaidSQL, p.OrderID)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", p.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, orderExistsSQL, p.OrderID).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", p.OrderID, err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return payment.ErrAlreadyPaid
	}

	_, err = tx.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.PaymentMethod, p.Amount,
		p.TransactionID, p.Status, p.PaymentDate,
	)
	if err != nil {
		return fmt.Errorf("creating payment for order %q: %w", p.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}

// GetByOrder returns the settlement record for an order.
func (r *PaymentRepository) GetByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}
	return &p, nil
}

// SaveMethod stores a payment instrument reference.
func (r *PaymentRepository) SaveMethod(ctx context.Context, m *payment.SavedMethod) error {
	_, err := r.pool.Exec(ctx, insertSavedMethodSQL,
		m.ID, m.UserID, m.Type, m.Provider,
		m.MaskedNumber, m.HolderName, m.Expiry, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving payment method for user %d: %w", m.UserID, err)
	}
	return nil
}

// ListMethods returns the user's saved instruments, newest first.
func (r *PaymentRepository) ListMethods(ctx context.Context, userID int64) ([]payment.SavedMethod, error) {
	rows, err := r.pool.Query(ctx, listSavedMethodsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing payment methods for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanSavedMethod)
}

// GetMethod returns one saved instrument scoped to its owner.
func (r *PaymentRepository) GetMethod(ctx context.Context, userID int64, id string) (*payment.SavedMethod, error) {
	rows, err := r.pool.Query(ctx, getSavedMethodSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting payment method %q: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanSavedMethod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrMethodNotFound
		}
		return nil, fmt.Errorf("getting payment method %q: %w", id, err)
	}
	return &m, nil
}

// DeleteMethod removes a saved instrument, returning ErrMethodNotFound when
// it does not belong to the user.
func (r *PaymentRepository) DeleteMethod(ctx context.Context, userID int64, id string) error {
	tag, err := r.pool.Exec(ctx, deleteSavedMethodSQL, userID, id)
	if err != nil {
		return fmt.Errorf("deleting payment method %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrMethodNotFound
	}
	return nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount,
		&p.TransactionID, &p.Status, &p.PaymentDate,
	)
	return p, err
}

func scanSavedMethod(row pgx.CollectableRow) (payment.SavedMethod, error) {
	var m payment.SavedMethod
	err := row.Scan(
		&m.ID, &m.UserID, &m.Type, &m.Provider,
		&m.MaskedNumber, &m.HolderName, &m.Expiry, &m.CreatedAt,
	)
	return m, err
}
