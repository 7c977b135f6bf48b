package kakaopay

import (
	"encoding/json"
	"fmt"
	"time"
)

// kakaoTimeLayout is the zone-less timestamp format Kakao Pay answers with
const kakaoTimeLayout = "2006-01-02T15:04:05"

// Time decodes Kakao Pay timestamps, which carry no zone offset.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(kakaoTimeLayout, raw)
	if err != nil {
		var rfcErr error
		if parsed, rfcErr = time.Parse(time.RFC3339, raw); rfcErr != nil {
			return fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
		}
	}
	t.Time = parsed
	return nil
}

// ReadyRequest represents the request parameters for the Ready API
type ReadyRequest struct {
	CID            string `json:"cid"`
	PartnerOrderID string `json:"partner_order_id"`
	PartnerUserID  string `json:"partner_user_id"`
	ItemName       string `json:"item_name"`
	Quantity       int    `json:"quantity"`
	TotalAmount    int64  `json:"total_amount"`
	TaxFreeAmount  int64  `json:"tax_free_amount"`
	ApprovalURL    string `json:"approval_url"`
	FailURL        string `json:"fail_url"`
	CancelURL      string `json:"cancel_url"`
}

// ReadyResponse represents the response from the Ready API
type ReadyResponse struct {
	TID                   string `json:"tid"`
	NextRedirectAppURL    string `json:"next_redirect_app_url"`
	NextRedirectMobileURL string `json:"next_redirect_mobile_url"`
	NextRedirectPCURL     string `json:"next_redirect_pc_url"`
	CreatedAt             Time   `json:"created_at"`
}

// ApproveRequest represents the request parameters for the Approve API
type ApproveRequest struct {
	CID            string `json:"cid"`
	TID            string `json:"tid"`
	PartnerOrderID string `json:"partner_order_id"`
	PartnerUserID  string `json:"partner_user_id"`
	PgToken        string `json:"pg_token"`
}

// Amount represents payment amount information
type Amount struct {
	Total    int64 `json:"total"`
	TaxFree  int64 `json:"tax_free"`
	VAT      int64 `json:"vat"`
	Point    int64 `json:"point"`
	Discount int64 `json:"discount"`
}

// ApproveResponse represents the response from the Approve API
type ApproveResponse struct {
	AID               string `json:"aid"`
	TID               string `json:"tid"`
	CID               string `json:"cid"`
	PartnerOrderID    string `json:"partner_order_id"`
	PartnerUserID     string `json:"partner_user_id"`
	PaymentMethodType string `json:"payment_method_type"`
	Amount            Amount `json:"amount"`
	ItemName          string `json:"item_name"`
	Quantity          int    `json:"quantity"`
	CreatedAt         Time   `json:"created_at"`
	ApprovedAt        Time   `json:"approved_at"`
}

// ErrorResponse represents an error response from Kakao Pay API
type ErrorResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("kakao pay error: code=%d, msg=%s", e.Code, e.Message)
}
