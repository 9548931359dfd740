// Binary seed-db loads demo coupons and saved payment methods into an empty
// database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osshop/checkout-api/internal/domain/coupon"
	"github.com/osshop/checkout-api/internal/domain/payment"
	"github.com/osshop/checkout-api/internal/repository"
)

// demoUserID receives the seeded payment methods; it matches the first user
// the identity service provisions.
const demoUserID = 1

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewCouponRepository(pool)

	existing, err := repo.Codes(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing coupons")
	}
	if len(existing) > 0 {
		slog.Info("coupons already present, skipping", slog.Int("count", len(existing)))
		return nil
	}

	expiry := time.Now().AddDate(0, 6, 0)
	for _, c := range demoCoupons(expiry) {
		if err := repo.Create(ctx, &c); err != nil {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}
		slog.Info("coupon created", slog.String("code", c.Code))
	}

	payments := repository.NewPaymentRepository(pool)
	for _, m := range demoPaymentMethods() {
		if err := payments.SaveMethod(ctx, &m); err != nil {
			return errors.Wrapf(err, "save payment method %s", m.MaskedNumber)
		}
		slog.Info("payment method saved", slog.String("masked", m.MaskedNumber))
	}

	return nil
}

func demoPaymentMethods() []payment.SavedMethod {
	now := time.Now()
	return []payment.SavedMethod{
		{
			ID:           uuid.New().String(),
			UserID:       demoUserID,
			Type:         "CARD",
			Provider:     "Visa",
			MaskedNumber: "****4242",
			HolderName:   "Demo User",
			Expiry:       "12/27",
			CreatedAt:    now,
		},
		{
			ID:           uuid.New().String(),
			UserID:       demoUserID,
			Type:         "UPI",
			Provider:     "GooglePay",
			MaskedNumber: "demo@okbank",
			HolderName:   "Demo User",
			CreatedAt:    now,
		},
	}
}

func demoCoupons(expiry time.Time) []coupon.Coupon {
	limit := func(n int) *int { return &n }
	return []coupon.Coupon{
		{
			Code:           "OFFER1000",
			Description:    "200 OFF on orders above 1,000",
			MinOrderValue:  decimal.NewFromInt(1000),
			DiscountAmount: decimal.NewFromInt(200),
			Active:         true,
			ExpiresAt:      &expiry,
			UsageLimit:     limit(1000),
		},
		{
			Code:           "OFFER2000",
			Description:    "500 OFF on orders above 2,000",
			MinOrderValue:  decimal.NewFromInt(2000),
			DiscountAmount: decimal.NewFromInt(500),
			Active:         true,
			ExpiresAt:      &expiry,
			UsageLimit:     limit(1000),
		},
		{
			Code:           "MEGA5000",
			Description:    "1,200 OFF on orders above 5,000",
			MinOrderValue:  decimal.NewFromInt(5000),
			DiscountAmount: decimal.NewFromInt(1200),
			Active:         true,
			ExpiresAt:      &expiry,
			UsageLimit:     limit(500),
		},
	}
}
