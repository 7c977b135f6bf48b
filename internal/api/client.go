package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

// Config holds the storefront API connection settings
type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Client talks to the remote storefront API. It owns no state beyond the
// connection settings; every call is a fresh request.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a storefront API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type authTokenKey struct{}

// WithAuthToken attaches the shopper's bearer token to ctx; requests made
// with the returned context forward it to the API.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, authTokenKey{}, token)
}

// AuthToken returns the bearer token attached by WithAuthToken.
func AuthToken(ctx context.Context) string {
	token, _ := ctx.Value(authTokenKey{}).(string)
	return token
}

// GetProduct fetches the current catalog data for one product
func (c *Client) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: empty product id", ErrInvalidRequest)
	}
	var product model.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil, nil, &product); err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", productID, err)
	}
	return &product, nil
}

// CurrentSession asks the API who the caller is. An anonymous caller is not
// an error: it yields a session with no user.
func (c *Client) CurrentSession(ctx context.Context) (*model.Session, error) {
	if AuthToken(ctx) == "" {
		return &model.Session{}, nil
	}
	var session model.Session
	err := c.do(ctx, http.MethodGet, "/auth/session", nil, nil, &session)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			return &model.Session{}, nil
		}
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	return &session, nil
}

// CreatePaymentIntent registers the order with the API and returns where
// the shopper must be redirected to pay.
func (c *Client) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/orders/payment-intent", nil, req, &intent); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	if intent.RedirectURL == "" {
		return nil, fmt.Errorf("%w: payment intent without redirect url", ErrInvalidResponse)
	}
	return &intent, nil
}

// GetOrder fetches one order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &order); err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	return &order, nil
}

// CreateProduct creates a catalog product (admin)
func (c *Client) CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	var created model.Product
	if err := c.do(ctx, http.MethodPost, "/products", nil, product, &created); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &created, nil
}

// UpdateProduct replaces a catalog product (admin)
func (c *Client) UpdateProduct(ctx context.Context, productID string, product *model.Product) (*model.Product, error) {
	var updated model.Product
	if err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(productID), nil, product, &updated); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", productID, err)
	}
	return &updated, nil
}

// DeleteProduct removes a catalog product (admin)
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	if err := c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(productID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", productID, err)
	}
	return nil
}

// ListOrders lists orders (admin)
func (c *Client) ListOrders(ctx context.Context, q OrderQuery) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/orders", q.values(), nil, &orders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to a new status (admin)
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	body := map[string]model.OrderStatus{"status": status}
	var order model.Order
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", nil, body, &order); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return &order, nil
}

// do performs one JSON request against the API
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceKey != "" {
		req.Header.Set("X-Service-Key", c.serviceKey)
	}
	if token := AuthToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Storefront API request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
