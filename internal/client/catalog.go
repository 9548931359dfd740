package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Catalog looks up products by id. Implemented over HTTP against the product
// service; a caching decorator is available via NewCachedCatalog.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
}

// HTTPCatalog is the product-service client.
type HTTPCatalog struct {
	baseURL string
	http    *http.Client
}

// NewHTTPCatalog creates a catalog client for the given base URL, e.g.
// "http://product-service:8081".
func NewHTTPCatalog(baseURL string, httpClient *http.Client) *HTTPCatalog {
	return &HTTPCatalog{baseURL: baseURL, http: httpClient}
}

// GetProduct fetches a single product. Any transport error, non-200 status,
// or undecodable body is reported as an UnavailableError so callers can apply
// their mandatory/best-effort policy uniformly.
func (c *HTTPCatalog) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{Collaborator: "catalog", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{
			Collaborator: "catalog",
			Err:          errors.Errorf("product %d: status %d", productID, resp.StatusCode),
		}
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &UnavailableError{Collaborator: "catalog", Err: errors.Wrap(err, "decode product")}
	}

	if p.ID == 0 {
		p.ID = productID
	}
	return &p, nil
}

// logCatalogMiss records a degraded enrichment lookup without failing the read.
func logCatalogMiss(ctx context.Context, productID int64, err error) {
	zctx.From(ctx).Debug("Catalog enrichment degraded",
		zap.Int64("product_id", productID),
		zap.Error(err),
	)
}
