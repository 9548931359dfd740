package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osshop/checkout-api/internal/client"
)

// --- Mock implementations ---

// memCartRepo mirrors the storage merge semantics: quantity accumulates,
// the first-add unit price wins.
type memCartRepo struct {
	items map[int64]*Item
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{items: make(map[int64]*Item)}
}

func (m *memCartRepo) GetOrCreate(_ context.Context, userID int64) (*Cart, error) {
	c := &Cart{UserID: userID}
	for _, it := range m.items {
		c.Items = append(c.Items, *it)
	}
	return c, nil
}

func (m *memCartRepo) UpsertItem(_ context.Context, _, productID int64, quantity int, unitPrice decimal.Decimal) error {
	if existing, ok := m.items[productID]; ok {
		existing.Quantity += quantity
		return nil
	}
	m.items[productID] = &Item{ProductID: productID, Quantity: quantity, UnitPrice: unitPrice}
	return nil
}

func (m *memCartRepo) RemoveItem(_ context.Context, _, productID int64) error {
	delete(m.items, productID)
	return nil
}

func (m *memCartRepo) Clear(_ context.Context, _ int64) error {
	m.items = make(map[int64]*Item)
	return nil
}

type mockCatalog struct {
	products map[int64]*client.Product
	err      error
}

func (m *mockCatalog) GetProduct(_ context.Context, productID int64) (*client.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, &client.UnavailableError{Collaborator: "catalog", Err: errors.New("not found")}
	}
	return p, nil
}

type mockEnricher struct {
	products map[int64]*client.Product
}

func (m *mockEnricher) Products(_ context.Context, ids []int64) map[int64]*client.Product {
	out := make(map[int64]*client.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out
}

// --- Helpers ---

func catalogWith(products ...*client.Product) *mockCatalog {
	byID := make(map[int64]*client.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockCatalog{products: byID}
}

func testProduct(id int64, name, price string) *client.Product {
	return &client.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

// --- Tests ---

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newMemCartRepo(), catalogWith(), nil)

	_, err := svc.AddItem(context.Background(), 1, 42, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), 1, 42, -3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_CapturesCatalogPrice(t *testing.T) {
	svc := NewService(newMemCartRepo(), catalogWith(testProduct(42, "Widget", "99.99")), nil)

	c, err := svc.AddItem(context.Background(), 1, 42, 2)

	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, decimal.RequireFromString("99.99").Equal(c.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("199.98").Equal(c.TotalAmount()))
}

func TestAddItem_CatalogDownFailsAdd(t *testing.T) {
	repo := newMemCartRepo()
	svc := NewService(repo, &mockCatalog{err: &client.UnavailableError{
		Collaborator: "catalog", Err: errors.New("connection refused"),
	}}, nil)

	_, err := svc.AddItem(context.Background(), 1, 42, 1)

	var unavailable *client.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Empty(t, repo.items)
}

func TestAddItem_MergeKeepsFirstPrice(t *testing.T) {
	repo := newMemCartRepo()
	catalog := catalogWith(testProduct(42, "Widget", "100.00"))
	svc := NewService(repo, catalog, nil)

	_, err := svc.AddItem(context.Background(), 1, 42, 1)
	require.NoError(t, err)

	// Catalog price changes between adds; the cart line keeps its snapshot.
	catalog.products[42] = testProduct(42, "Widget", "150.00")

	c, err := svc.AddItem(context.Background(), 1, 42, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("100.00").Equal(c.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("300.00").Equal(c.TotalAmount()))
}

func TestRemoveItem_AbsentIsNoOp(t *testing.T) {
	svc := NewService(newMemCartRepo(), catalogWith(), nil)

	c, err := svc.RemoveItem(context.Background(), 1, 999)

	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestGet_EnrichmentDegrades(t *testing.T) {
	repo := newMemCartRepo()
	catalog := catalogWith(testProduct(1, "Widget", "10.00"), testProduct(2, "Gadget", "20.00"))
	// Enricher only knows product 1; product 2's display data degrades to nil.
	enricher := &mockEnricher{products: map[int64]*client.Product{
		1: testProduct(1, "Widget", "10.00"),
	}}
	svc := NewService(repo, catalog, enricher)

	_, err := svc.AddItem(context.Background(), 1, 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), 1, 2, 1)
	require.NoError(t, err)

	c, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)

	byID := make(map[int64]Item)
	for _, it := range c.Items {
		byID[it.ProductID] = it
	}
	assert.NotNil(t, byID[1].Product)
	assert.Nil(t, byID[2].Product)
	// Price stays authoritative even when display data is missing.
	assert.True(t, decimal.RequireFromString("30.00").Equal(c.TotalAmount()))
}

func TestClear(t *testing.T) {
	repo := newMemCartRepo()
	svc := NewService(repo, catalogWith(testProduct(1, "Widget", "10.00")), nil)

	_, err := svc.AddItem(context.Background(), 1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), 1))

	c, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, decimal.Zero.Equal(c.TotalAmount()))
}
