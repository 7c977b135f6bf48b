package kakaopay

import "fmt"

// Config represents the configuration for the Kakao Pay client
type Config struct {
	// AdminKey is the Kakao Pay secret key for API authentication
	AdminKey string

	// CID is the Client ID (merchant code)
	CID string

	// BaseURL is the Kakao Pay API base URL
	BaseURL string

	// ApprovalURL is the redirect URL for successful payment
	ApprovalURL string

	// FailURL is the redirect URL for failed payment
	FailURL string

	// CancelURL is the redirect URL for cancelled payment
	CancelURL string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"admin key", c.AdminKey},
		{"cid", c.CID},
		{"base url", c.BaseURL},
		{"approval url", c.ApprovalURL},
		{"fail url", c.FailURL},
		{"cancel url", c.CancelURL},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field.name)
		}
	}
	return nil
}
