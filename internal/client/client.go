// Package client holds the outbound collaborators of the checkout core: the
// product catalog and the user directory. Both are plain request/response HTTP
// services that can fail independently of any local transaction, so every
// call is bounded by a timeout and callers decide whether a failure is fatal
// (price capture) or degradable (display enrichment, notification lookups).
package client

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Product is the catalog's view of a purchasable item.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// User is the directory's view of a registered customer, limited to what
// confirmation messaging needs.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// UnavailableError indicates a collaborator could not serve a lookup. On
// mandatory paths it propagates as the failure of the enclosing operation;
// on best-effort paths it is logged and swallowed.
type UnavailableError struct {
	Collaborator string
	Err          error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// NewHTTPClient returns an instrumented http.Client with the given total
// request timeout. All collaborator calls go through it.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
