package api

import (
	"net/url"
	"strconv"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
)

// PaymentIntentRequest is the order submission body for card checkout
type PaymentIntentRequest struct {
	Reference  string            `json:"reference"`
	Items      []model.OrderItem `json:"items"`
	Customer   model.Customer    `json:"customer"`
	Total      model.Money       `json:"total"`
	SuccessURL string            `json:"successUrl"`
	CancelURL  string            `json:"cancelUrl"`
}

// PaymentIntent is the API's answer to a payment intent request
type PaymentIntent struct {
	OrderID     string `json:"orderId"`
	RedirectURL string `json:"redirectUrl"`
}

// OrderQuery filters the admin order listing
type OrderQuery struct {
	Status model.OrderStatus
	Page   int
	Limit  int
}

func (q OrderQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}
