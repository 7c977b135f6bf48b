package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/shopspring/decimal"
)

var errCatalogDown = errors.New("catalog down")

// fakeCatalog serves products from memory. Stock can be changed between calls.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*model.Product
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]*model.Product)}
}

func (c *fakeCatalog) put(id, name, price string, sizes ...model.SizeStock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id] = &model.Product{
		ID:     id,
		Name:   name,
		Price:  model.NewMoney(decimal.RequireFromString(price)),
		Images: []string{id + ".jpg"},
		Sizes:  sizes,
	}
}

func (c *fakeCatalog) setStock(id, size string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product := c.products[id]
	sizes := make([]model.SizeStock, 0, len(product.Sizes))
	found := false
	for _, s := range product.Sizes {
		if s.Size == size {
			s.Stock = stock
			s.Available = stock > 0
			found = true
		}
		sizes = append(sizes, s)
	}
	if !found {
		sizes = append(sizes, model.SizeStock{Size: size, Stock: stock, Available: stock > 0})
	}
	copied := *product
	copied.Sizes = sizes
	c.products[id] = &copied
}

func (c *fakeCatalog) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *fakeCatalog) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	product, ok := c.products[productID]
	if !ok {
		return nil, errors.New("product not found")
	}
	return product, nil
}

func sized(size string, stock int) model.SizeStock {
	return model.SizeStock{Size: size, Stock: stock, Available: true}
}

// flakySnapshotStore wraps a memory store and fails saves on demand.
type flakySnapshotStore struct {
	*storage.MemorySnapshotStore
	failSaves atomic.Bool
}

func (s *flakySnapshotStore) Save(ctx context.Context, key string, payload []byte) error {
	if s.failSaves.Load() {
		return errors.New("quota exceeded")
	}
	return s.MemorySnapshotStore.Save(ctx, key, payload)
}

type cartFixture struct {
	catalog   *fakeCatalog
	snapshots *flakySnapshotStore
	store     *CartStore
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	catalog := newFakeCatalog()
	catalog.put("p1", "Linen Shirt", "19.90", sized("S", 5), sized("M", 3))
	catalog.put("p2", "Canvas Tote", "5.00", sized(model.SingleUnitSize, 10))

	snapshots := &flakySnapshotStore{MemorySnapshotStore: storage.NewMemorySnapshotStore(time.Hour)}
	reconciler := NewStockReconciler(catalog, time.Second)
	store := NewCartStore("sess-1", snapshots, reconciler, 4)
	return &cartFixture{catalog: catalog, snapshots: snapshots, store: store}
}

// reload builds a fresh store for the same session from the stored snapshot.
func (f *cartFixture) reload(t *testing.T) *CartStore {
	t.Helper()
	store := NewCartStore("sess-1", f.snapshots, NewStockReconciler(f.catalog, time.Second), 4)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return store
}
