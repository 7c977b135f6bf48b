package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeAdminGateway struct {
	mu       sync.Mutex
	products map[string]*model.Product
	orders   []model.Order
	nextID   int
}

func newFakeAdminGateway() *fakeAdminGateway {
	return &fakeAdminGateway{
		products: make(map[string]*model.Product),
		orders: []model.Order{
			{
				ID:            "o1",
				Reference:     "ORD-1",
				Items:         []model.OrderItem{{ProductID: "p1", Name: "Linen Shirt", Size: "M", Quantity: 2, Price: model.NewMoney(decimal.RequireFromString("19.90"))}},
				Customer:      model.Customer{Name: "Kim Minji", Email: "minji@example.com"},
				Total:         model.NewMoney(decimal.RequireFromString("39.80")),
				Status:        model.OrderStatusPending,
				PaymentStatus: model.PaymentStatusCompleted,
				PaymentMethod: model.PaymentMethodKakaoPay,
				CreatedAt:     time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
			},
		},
	}
}

func (g *fakeAdminGateway) CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	created := *product
	created.ID = "new-" + string(rune('0'+g.nextID))
	g.products[created.ID] = &created
	return &created, nil
}

func (g *fakeAdminGateway) UpdateProduct(ctx context.Context, productID string, product *model.Product) (*model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.products[productID]; !ok {
		return nil, &api.StatusError{StatusCode: http.StatusNotFound}
	}
	updated := *product
	updated.ID = productID
	g.products[productID] = &updated
	return &updated, nil
}

func (g *fakeAdminGateway) DeleteProduct(ctx context.Context, productID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.products[productID]; !ok {
		return api.ErrNotFound
	}
	delete(g.products, productID)
	return nil
}

func (g *fakeAdminGateway) ListOrders(ctx context.Context, q api.OrderQuery) ([]model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []model.Order
	for _, o := range g.orders {
		if q.Status == "" || o.Status == q.Status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (g *fakeAdminGateway) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.orders {
		if g.orders[i].ID == orderID {
			g.orders[i].Status = status
			order := g.orders[i]
			return &order, nil
		}
	}
	return nil, api.ErrNotFound
}

func setupAdminControllerTest(t *testing.T) (*gin.Engine, *fakeAdminGateway) {
	gin.SetMode(gin.TestMode)
	gateway := newFakeAdminGateway()
	ctrl := NewAdminController(service.NewAdminService(gateway, nil))

	router := gin.New()
	admin := router.Group("/admin")
	admin.POST("/products", ctrl.CreateProduct)
	admin.POST("/products/import", ctrl.ImportProducts)
	admin.PUT("/products/:id", ctrl.UpdateProduct)
	admin.DELETE("/products/:id", ctrl.DeleteProduct)
	admin.POST("/uploads/presigned-url", ctrl.PresignProductImage)
	admin.GET("/orders", ctrl.ListOrders)
	admin.GET("/orders/export", ctrl.ExportOrders)
	admin.PATCH("/orders/:id/status", ctrl.UpdateOrderStatus)
	return router, gateway
}

const productJSON = `{"name":"Wool Coat","price":129.00,"category":"clothing","images":["coat.jpg"],"sizes":[{"size":"M","stock":2,"available":true}]}`

func TestAdminController_ProductLifecycle(t *testing.T) {
	router, gateway := setupAdminControllerTest(t)

	w := doJSON(router, http.MethodPost, "/admin/products", productJSON)
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Wool Coat", created.Name)
	require.NotEmpty(t, created.ID)

	w = doJSON(router, http.MethodPut, "/admin/products/"+created.ID, strings.Replace(productJSON, "Wool Coat", "Wool Coat II", 1))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wool Coat II", gateway.products[created.ID].Name)

	w = doJSON(router, http.MethodPut, "/admin/products/missing", productJSON)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "상품을 찾을 수 없습니다")

	w = doJSON(router, http.MethodDelete, "/admin/products/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodDelete, "/admin/products/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminController_CreateProduct_Invalid(t *testing.T) {
	router, _ := setupAdminControllerTest(t)

	w := doJSON(router, http.MethodPost, "/admin/products", `{"name":"","price":0,"sizes":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "price")
	assert.Contains(t, body.Fields, "sizes")
}

func TestAdminController_Orders(t *testing.T) {
	router, _ := setupAdminControllerTest(t)

	w := doJSON(router, http.MethodGet, "/admin/orders?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = doJSON(router, http.MethodGet, "/admin/orders?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPatch, "/admin/orders/o1/status", `{"status":"shipping"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"shipping"`)

	w = doJSON(router, http.MethodPatch, "/admin/orders/o1/status", `{"status":"teleported"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPatch, "/admin/orders/nope/status", `{"status":"shipping"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminController_ExportOrders(t *testing.T) {
	router, _ := setupAdminControllerTest(t)

	w := doJSON(router, http.MethodGet, "/admin/orders/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Export-Rows"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "o1", rows[1][0])
	assert.Equal(t, "ORD-1", rows[1][1])
}

func TestAdminController_ImportProducts(t *testing.T) {
	router, gateway := setupAdminControllerTest(t)

	sheet := excelize.NewFile()
	name := sheet.GetSheetName(0)
	require.NoError(t, sheet.SetSheetRow(name, "A1", &[]interface{}{"name", "description", "category", "price", "images", "sizes", "featured"}))
	require.NoError(t, sheet.SetSheetRow(name, "A2", &[]interface{}{"Wool Coat", "warm", "clothing", "129.00", "coat.jpg", "S:1,M:2", "y"}))
	require.NoError(t, sheet.SetSheetRow(name, "A3", &[]interface{}{"Broken", "", "clothing", "abc", "", "", ""}))
	var xlsx bytes.Buffer
	_, err := sheet.WriteTo(&xlsx)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result service.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 3, result.Failed[0].Row)
	assert.Len(t, gateway.products, 1)
}

func TestAdminController_PresignWithoutBucket(t *testing.T) {
	router, _ := setupAdminControllerTest(t)

	w := doJSON(router, http.MethodPost, "/admin/uploads/presigned-url", `{"filename":"a.png","contentType":"image/png"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "UPLOAD_UNAVAILABLE")

	w = doJSON(router, http.MethodPost, "/admin/uploads/presigned-url", `{"filename":"a.png"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
