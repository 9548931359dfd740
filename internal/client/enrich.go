package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Enricher resolves product display data for a batch of line items as a
// bounded-concurrency fan-out. Each lookup runs with its own timeout and
// failure isolation: a slow or failed lookup never blocks or fails the
// others, it just leaves that item unenriched.
type Enricher struct {
	catalog     Catalog
	concurrency int
	perLookup   time.Duration
}

// NewEnricher creates an Enricher. concurrency bounds the number of in-flight
// catalog calls per batch; perLookup bounds each individual call.
func NewEnricher(catalog Catalog, concurrency int, perLookup time.Duration) *Enricher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Enricher{
		catalog:     catalog,
		concurrency: concurrency,
		perLookup:   perLookup,
	}
}

// Products looks up the given product ids and returns whatever subset
// resolved in time. Duplicate ids are fetched once. The returned map is
// complete only when every collaborator call succeeded; callers must treat
// missing entries as degraded-but-safe.
func (e *Enricher) Products(ctx context.Context, ids []int64) map[int64]*Product {
	uniq := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	var (
		mu     sync.Mutex
		out    = make(map[int64]*Product, len(uniq))
		g, gtx = errgroup.WithContext(ctx)
	)
	g.SetLimit(e.concurrency)

	for _, id := range uniq {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(gtx, e.perLookup)
			defer cancel()

			p, err := e.catalog.GetProduct(lookupCtx, id)
			if err != nil {
				logCatalogMiss(ctx, id, err)
				return nil // degrade, never abort the batch
			}

			mu.Lock()
			out[id] = p
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return out
}
