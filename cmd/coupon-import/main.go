// Binary coupon-import bulk-loads coupon codes from a gzipped CSV export.
//
// Each line holds: code,description,min_order_value,discount_amount and
// optionally a usage limit as a fifth field. Codes already in the database
// are overwritten with the imported terms.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/osshop/checkout-api/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

const upsertCouponSQL = `INSERT INTO coupons
	(code, description, min_order_value, discount_amount, active, usage_limit)
	VALUES ($1, $2, $3, $4, TRUE, $5)
	ON CONFLICT (code) DO UPDATE SET
		description = EXCLUDED.description,
		min_order_value = EXCLUDED.min_order_value,
		discount_amount = EXCLUDED.discount_amount,
		active = TRUE,
		usage_limit = EXCLUDED.usage_limit`

type importRow struct {
	code           string
	description    string
	minOrderValue  decimal.Decimal
	discountAmount decimal.Decimal
	usageLimit     *int
}

func main() {
	var (
		file        string
		databaseURL string
		workers     int
	)

	flag.StringVar(&file, "file", "", "gzipped CSV file with coupon rows")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "concurrent database writers")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if file == "" {
		slog.Error("input file is required: set --file")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, file, databaseURL, workers); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, file, databaseURL string, workers int) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	rows := make(chan importRow, 1024)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rows)
		return streamRows(ctx, file, rows)
	})
	for range workers {
		g.Go(func() error {
			return writeRows(ctx, pool, rows)
		})
	}

	return g.Wait()
}

// streamRows reads the gzipped CSV and sends parsed rows downstream. A bloom
// filter drops duplicate codes within the file; a rare false positive only
// skips an upsert that an earlier line already performed.
func streamRows(ctx context.Context, path string, out chan<- importRow) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var total, skipped uint64

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		row, err := parseRow(line)
		if err != nil {
			return errors.Wrapf(err, "parse line %q", line)
		}

		if seen.TestString(row.code) {
			skipped++
			continue
		}
		seen.AddString(row.code)

		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}

		total++
		if total%progressEvery == 0 {
			slog.Info("import progress", slog.Uint64("rows", total))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("file read complete",
		slog.Uint64("rows", total),
		slog.Uint64("duplicates_skipped", skipped),
	)
	return nil
}

func parseRow(line string) (importRow, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return importRow{}, errors.New("expected at least 4 fields")
	}

	code := strings.ToUpper(strings.TrimSpace(fields[0]))
	if code == "" {
		return importRow{}, errors.New("empty coupon code")
	}

	minOrder, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		return importRow{}, errors.Wrap(err, "parse min order value")
	}
	discount, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
	if err != nil {
		return importRow{}, errors.Wrap(err, "parse discount amount")
	}

	row := importRow{
		code:           code,
		description:    strings.TrimSpace(fields[1]),
		minOrderValue:  minOrder,
		discountAmount: discount,
	}
	if len(fields) >= 5 && strings.TrimSpace(fields[4]) != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(fields[4]))
		if err != nil {
			return importRow{}, errors.Wrap(err, "parse usage limit")
		}
		row.usageLimit = &limit
	}
	return row, nil
}

func writeRows(ctx context.Context, pool *pgxpool.Pool, rows <-chan importRow) error {
	for row := range rows {
		_, err := pool.Exec(ctx, upsertCouponSQL,
			row.code, row.description, row.minOrderValue, row.discountAmount, row.usageLimit,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", row.code)
		}
	}
	return nil
}
