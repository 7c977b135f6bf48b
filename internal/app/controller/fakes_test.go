package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/shopspring/decimal"
)

const testSessionID = "0b7a3c1e-6a55-4d4e-9d0e-3f1b2c4d5e6f"

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*model.Product
}

func newFakeCatalog() *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]*model.Product)}
	c.put("p1", "Linen Shirt", "19.90", model.SizeStock{Size: "S", Stock: 5, Available: true}, model.SizeStock{Size: "M", Stock: 3, Available: true})
	c.put("p2", "Canvas Tote", "5.00", model.SizeStock{Size: model.SingleUnitSize, Stock: 10, Available: true})
	return c
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

func (c *fakeCatalog) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product, ok := c.products[productID]
	if !ok {
		return nil, api.ErrNotFound
	}
	copied := *product
	copied.Sizes = append([]model.SizeStock(nil), product.Sizes...)
	return &copied, nil
}

// fakeProvider records checkout payloads and confirms returns whose token is "ok".
type fakeProvider struct {
	mu        sync.Mutex
	method    model.PaymentMethod
	initiated []*model.OrderPayload
	abandoned []string
	initErr   error
}

func (p *fakeProvider) Method() model.PaymentMethod { return p.method }

func (p *fakeProvider) Initiate(ctx context.Context, payload *model.OrderPayload) (*model.PaymentRedirect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initiated = append(p.initiated, payload)
	if p.initErr != nil {
		return nil, p.initErr
	}
	return &model.PaymentRedirect{URL: "https://pay.example/" + payload.Reference}, nil
}

func (p *fakeProvider) Confirm(ctx context.Context, ret model.PaymentReturn) error {
	if ret.Token != "ok" {
		return service.ErrPaymentNotConfirmed
	}
	return nil
}

func (p *fakeProvider) Abandon(reference string) {
	p.mu.Lock()
	p.abandoned = append(p.abandoned, reference)
	p.mu.Unlock()
}

func (p *fakeProvider) initiatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.initiated)
}

type testEnv struct {
	catalog   *fakeCatalog
	snapshots storage.SnapshotStore
	carts     service.CartService
	provider  *fakeProvider
	checkout  service.CheckoutService
	router    *gin.Engine
}

func withSession(sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID != "" {
			c.Set(middleware.SessionIDKey, sessionID)
		}
		c.Next()
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		catalog:   newFakeCatalog(),
		snapshots: storage.NewMemorySnapshotStore(time.Hour),
		provider:  &fakeProvider{method: model.PaymentMethodKakaoPay},
	}
	env.carts = service.NewCartService(env.snapshots, service.NewStockReconciler(env.catalog, time.Second), 2)
	env.checkout = service.NewCheckoutService(true, env.provider)

	env.router = gin.New()
	env.router.Use(middleware.LoggingMiddleware(), withSession(testSessionID))
	return env
}

func (env *testEnv) cart(t *testing.T) *service.CartStore {
	t.Helper()
	store, release, err := env.carts.Cart(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}
	t.Cleanup(release)
	return store
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func modelSize(size string, stock int) model.SizeStock {
	return model.SizeStock{Size: size, Stock: stock, Available: stock > 0}
}
