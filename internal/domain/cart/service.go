package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/osshop/checkout-api/internal/client"
)

// ErrInvalidQuantity is returned when an add request carries a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Enricher resolves display data for a batch of product ids, best-effort.
type Enricher interface {
	Products(ctx context.Context, ids []int64) map[int64]*client.Product
}

// Service implements the cart operations. Reads enrich items with catalog
// display data on a degrade-on-failure basis; only the add-time price capture
// treats the catalog as mandatory.
type Service struct {
	carts    Repository
	catalog  client.Catalog
	enricher Enricher
}

// NewService creates a cart Service.
func NewService(carts Repository, catalog client.Catalog, enricher Enricher) *Service {
	return &Service{
		carts:    carts,
		catalog:  catalog,
		enricher: enricher,
	}
}

// Get returns the user's cart, creating an empty one on first access.
// Items are enriched best-effort; a failed lookup leaves the item's display
// fields unset with price and quantity intact.
func (s *Service) Get(ctx context.Context, userID int64) (*Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for user %d: %w", userID, err)
	}
	s.enrich(ctx, c)
	return c, nil
}

// AddItem captures the current catalog price and merges the line into the
// cart. The catalog call is mandatory here: without a price there is no
// snapshot to sell at, so a catalog failure fails the add.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "capture price for product %d", productID)
	}

	if err := s.carts.UpsertItem(ctx, userID, productID, quantity, p.Price); err != nil {
		return nil, fmt.Errorf("add product %d to cart: %w", productID, err)
	}

	return s.Get(ctx, userID)
}

// RemoveItem deletes the matching line. Removing a line that is not present
// is a no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (*Cart, error) {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, fmt.Errorf("remove product %d from cart: %w", productID, err)
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart for user %d: %w", userID, err)
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, c *Cart) {
	if s.enricher == nil || len(c.Items) == 0 {
		return
	}
	ids := make([]int64, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	products := s.enricher.Products(ctx, ids)
	for i := range c.Items {
		c.Items[i].Product = products[c.Items[i].ProductID]
	}
}
