package coupon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Filter sizing: comfortably above any realistic coupon count so the false
// positive rate stays near the configured target.
const (
	filterCapacity = 1_000_000
	filterFPR      = 0.001
)

// Ledger validates and consumes coupons. A bloom filter over known codes
// short-circuits lookups of codes that were never issued, so bulk-imported
// coupon sets do not turn every typo into a database round trip. The filter
// is advisory only: a positive still goes to storage, and an unwarmed filter
// passes everything through.
type Ledger struct {
	repo Repository
	now  func() time.Time

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewLedger creates a Ledger backed by the given Repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// WarmFilter loads every known code into the negative-lookup filter. Safe to
// skip: without it the ledger simply hits storage for unknown codes too.
func (l *Ledger) WarmFilter(ctx context.Context) error {
	codes, err := l.repo.Codes(ctx)
	if err != nil {
		return errors.Wrap(err, "load coupon codes")
	}

	f := bloom.NewWithEstimates(filterCapacity, filterFPR)
	for _, code := range codes {
		f.AddString(normalizeCode(code))
	}

	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
	return nil
}

// Validate checks a code against an order total. Rule violations come back
// as a ValidationResult with Valid=false and a human-readable message; an
// error is returned only for storage failures.
func (l *Ledger) Validate(ctx context.Context, code string, orderTotal decimal.Decimal) (*ValidationResult, error) {
	code = normalizeCode(code)

	if l.knownMiss(code) {
		return invalid("Invalid coupon code"), nil
	}

	c, err := l.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("Invalid coupon code"), nil
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if c.ExpiresAt != nil && l.now().After(*c.ExpiresAt) {
		return invalid("Coupon has expired"), nil
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return invalid("Coupon usage limit reached"), nil
	}

	if orderTotal.LessThan(c.MinOrderValue) {
		return invalid(fmt.Sprintf("Coupon requires minimum order value of %s", c.MinOrderValue.StringFixed(2))), nil
	}

	return &ValidationResult{
		Valid:          true,
		Code:           c.Code,
		DiscountAmount: c.DiscountAmount,
		MinOrderValue:  c.MinOrderValue,
		Description:    c.Description,
		Message:        fmt.Sprintf("Coupon applied! You saved %s", c.DiscountAmount.StringFixed(2)),
	}, nil
}

// Consume burns one use of the coupon. The repository performs the limit
// check and the increment as one atomic step, so validation having passed
// earlier carries no guarantee here; callers must treat ErrUsageLimitReached
// as a normal rejection.
func (l *Ledger) Consume(ctx context.Context, code string) error {
	return l.repo.ConsumeUse(ctx, normalizeCode(code))
}

// List returns all coupons.
func (l *Ledger) List(ctx context.Context) ([]Coupon, error) {
	return l.repo.List(ctx)
}

// ListActive returns only active coupons.
func (l *Ledger) ListActive(ctx context.Context) ([]Coupon, error) {
	return l.repo.ListActive(ctx)
}

// Create registers a new coupon and adds its code to the filter.
func (l *Ledger) Create(ctx context.Context, c *Coupon) error {
	c.Code = normalizeCode(c.Code)
	if err := l.repo.Create(ctx, c); err != nil {
		return err
	}

	l.mu.Lock()
	if l.filter != nil {
		l.filter.AddString(c.Code)
	}
	l.mu.Unlock()
	return nil
}

// Update modifies an existing coupon's rule fields. UsedCount is not
// touched here; only ConsumeUse moves it.
func (l *Ledger) Update(ctx context.Context, c *Coupon) error {
	c.Code = normalizeCode(c.Code)
	return l.repo.Update(ctx, c)
}

// Delete removes a coupon. The filter keeps the code (bloom filters cannot
// unlearn); the storage lookup still rejects it.
func (l *Ledger) Delete(ctx context.Context, code string) error {
	return l.repo.Delete(ctx, normalizeCode(code))
}

// knownMiss reports whether the filter definitively excludes the code.
func (l *Ledger) knownMiss(code string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter != nil && !l.filter.TestString(code)
}

func invalid(message string) *ValidationResult {
	return &ValidationResult{Valid: false, Message: message}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
