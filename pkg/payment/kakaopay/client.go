package kakaopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

// Client represents a Kakao Pay API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Kakao Pay client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// Ready initiates a payment process
func (c *Client) Ready(ctx context.Context, req ReadyRequest) (*ReadyResponse, error) {
	req.CID = c.config.CID

	// Use callback URLs from request if provided, otherwise use config defaults
	if req.ApprovalURL == "" {
		req.ApprovalURL = c.config.ApprovalURL
	}
	if req.FailURL == "" {
		req.FailURL = c.config.FailURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.config.CancelURL
	}

	var readyResp ReadyResponse
	if err := c.doRequest(ctx, "ready", req, &readyResp); err != nil {
		return nil, fmt.Errorf("failed to make ready request: %w", err)
	}
	if readyResp.TID == "" {
		return nil, fmt.Errorf("%w: ready response without tid", ErrPaymentFailed)
	}

	return &readyResp, nil
}

// Approve approves a payment process
func (c *Client) Approve(ctx context.Context, req ApproveRequest) (*ApproveResponse, error) {
	req.CID = c.config.CID

	var approveResp ApproveResponse
	if err := c.doRequest(ctx, "approve", req, &approveResp); err != nil {
		return nil, fmt.Errorf("failed to make approve request: %w", err)
	}

	return &approveResp, nil
}

// doRequest performs an HTTP request to the Kakao Pay API
func (c *Client) doRequest(ctx context.Context, endpoint string, payload, out interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)

	logger.Debug("Kakao Pay request", map[string]interface{}{
		"url":        url,
		"key_length": len(c.config.AdminKey),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "SECRET_KEY "+c.config.AdminKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("%w: unexpected status code %d", ErrPaymentFailed, resp.StatusCode)
		}

		logger.Warn("Kakao Pay API error", map[string]interface{}{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
			"code":     errResp.Code,
			"message":  errResp.Message,
		})

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, &errResp)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %v", ErrInvalidRequest, &errResp)
		default:
			return fmt.Errorf("%w: %v", ErrPaymentFailed, &errResp)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", endpoint, err)
	}
	return nil
}
