// Package notify implements best-effort, at-most-once confirmation messaging.
// Every notification runs off the critical path in a detached task with its
// own error containment: nothing here can affect order or payment state, and
// nothing is retried.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/order"
)

// Sender delivers a rendered message to a contact address. Delivery itself
// is an external collaborator's concern; the default implementation just
// logs the hand-off.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender is the fire-and-forget default: it records the notification and
// drops it.
type LogSender struct {
	lg *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(lg *zap.Logger) *LogSender {
	return &LogSender{lg: lg}
}

// Send logs the outbound message.
func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.lg.Info("Notification dispatched",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// Dispatcher fans out order notifications. Each notification detaches from
// the triggering request: it gets its own timeout-bounded context, so a
// client abandoning the request cannot cancel a notification for an order
// that committed.
type Dispatcher struct {
	identity client.Identity
	enricher order.Enricher
	sender   Sender
	lg       *zap.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. identity and enricher may be nil;
// the corresponding enrichment degrades.
func NewDispatcher(identity client.Identity, enricher order.Enricher, sender Sender, lg *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		identity: identity,
		enricher: enricher,
		sender:   sender,
		lg:       lg,
		timeout:  timeout,
	}
}

// OrderPlaced sends a lightweight acknowledgement that the order was
// received. The full confirmation waits for settlement.
func (d *Dispatcher) OrderPlaced(o *order.Order, u *client.User) {
	snapshot := *o
	d.dispatch("order placed", &snapshot, func(ctx context.Context, user *client.User) (string, string) {
		return renderPlaced(&snapshot, user)
	}, u)
}

// OrderConfirmed sends the settlement confirmation with the full line-item
// breakdown. This is the point at which the user learns money has moved.
func (d *Dispatcher) OrderConfirmed(o *order.Order) {
	snapshot := *o
	d.dispatch("order confirmed", &snapshot, func(ctx context.Context, user *client.User) (string, string) {
		d.enrichItems(ctx, snapshot.Items)
		return renderConfirmed(&snapshot, user)
	}, o.User)
}

// Wait blocks until all in-flight notifications finish. Called during
// graceful shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// dispatch runs render+send in a detached goroutine. All failures — missing
// user, rendering, delivery, panic — are logged and swallowed.
func (d *Dispatcher) dispatch(kind string, o *order.Order, render func(context.Context, *client.User) (subject, body string), u *client.User) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.lg.Error("Notification panic contained",
					zap.String("kind", kind),
					zap.String("order_id", o.ID),
					zap.Any("panic", rec),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		user := u
		if user == nil {
			user = d.lookupUser(ctx, o.UserID)
		}
		if user == nil || user.Email == "" {
			d.lg.Warn("User contact unavailable, skipping notification",
				zap.String("kind", kind),
				zap.String("order_id", o.ID),
				zap.Int64("user_id", o.UserID),
			)
			return
		}

		subject, body := render(ctx, user)
		if err := d.sender.Send(ctx, user.Email, subject, body); err != nil {
			d.lg.Error("Notification delivery failed",
				zap.String("kind", kind),
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		}
	}()
}

func (d *Dispatcher) lookupUser(ctx context.Context, userID int64) *client.User {
	if d.identity == nil {
		return nil
	}
	u, err := d.identity.GetUser(ctx, userID)
	if err != nil {
		d.lg.Warn("Identity lookup failed for notification",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return u
}

func (d *Dispatcher) enrichItems(ctx context.Context, items []order.Item) {
	if d.enricher == nil || len(items) == 0 {
		return
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products := d.enricher.Products(ctx, ids)
	for i := range items {
		items[i].Product = products[items[i].ProductID]
	}
}
