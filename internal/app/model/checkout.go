package model

type PaymentMethod string

const (
	PaymentMethodKakaoPay PaymentMethod = "kakaopay" // 카카오페이
	PaymentMethodCard     PaymentMethod = "card"     // 카드 결제 (스토어 API 결제 인텐트)
)

// Customer holds the shopper's contact and shipping fields.
type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Notes      string `json:"notes,omitempty"`
}

// CheckoutDraft is shopper-entered data for one checkout attempt. It is never persisted.
type CheckoutDraft struct {
	Customer      Customer      `json:"customer"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

type OrderItem struct {
	ProductID string `json:"product"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"`
}

// OrderPayload is what checkout submits to a payment provider.
type OrderPayload struct {
	Reference     string        `json:"reference"`
	SessionID     string        `json:"sessionId"`
	Items         []OrderItem   `json:"items"`
	Customer      Customer      `json:"customer"`
	Total         Money         `json:"total"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// ItemCount sums quantities over the payload items.
func (o OrderPayload) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// PaymentRedirect is where the shopper is sent to finish paying.
type PaymentRedirect struct {
	URL         string `json:"url"`
	ProviderRef string `json:"providerRef,omitempty"`
}

// PaymentReturn carries the query values a provider appends to its return URL.
type PaymentReturn struct {
	Reference string
	OrderID   string
	Token     string
	// SessionID is the cart session the shopper returned with.
	SessionID string
}
