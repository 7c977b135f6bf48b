package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

type CheckoutState string

const (
	CheckoutIdle             CheckoutState = "idle"
	CheckoutValidating       CheckoutState = "validating"
	CheckoutSubmitting       CheckoutState = "submitting"
	CheckoutProviderRedirect CheckoutState = "provider_redirect"
	CheckoutFailed           CheckoutState = "failed"
	CheckoutEmpty            CheckoutState = "empty" // 결제할 상품 없음
)

// CheckoutResult is where one checkout attempt ended.
type CheckoutResult struct {
	State       CheckoutState       `json:"state"`
	Reference   string              `json:"reference,omitempty"`
	Method      model.PaymentMethod `json:"paymentMethod,omitempty"`
	RedirectURL string              `json:"redirectUrl,omitempty"`
	Total       string              `json:"total,omitempty"`
}

// CheckoutService turns a cart plus a checkout draft into a provider redirect.
// It only reads the cart, except for clearing it after a confirmed payment.
type CheckoutService interface {
	Methods() []model.PaymentMethod
	Validate(draft model.CheckoutDraft) error
	Submit(ctx context.Context, cart *CartStore, draft model.CheckoutDraft) (*CheckoutResult, error)
	CompletePayment(ctx context.Context, cart *CartStore, method model.PaymentMethod, ret model.PaymentReturn) error
	AbandonPayment(ctx context.Context, cart *CartStore, method model.PaymentMethod, ret model.PaymentReturn)
}

type checkoutService struct {
	providers           map[model.PaymentMethod]PaymentProvider
	methods             []model.PaymentMethod
	refreshBeforeSubmit bool
}

func NewCheckoutService(refreshBeforeSubmit bool, providers ...PaymentProvider) CheckoutService {
	s := &checkoutService{
		providers:           make(map[model.PaymentMethod]PaymentProvider, len(providers)),
		refreshBeforeSubmit: refreshBeforeSubmit,
	}
	for _, p := range providers {
		if _, dup := s.providers[p.Method()]; !dup {
			s.methods = append(s.methods, p.Method())
		}
		s.providers[p.Method()] = p
	}
	return s
}

func (s *checkoutService) Methods() []model.PaymentMethod {
	return append([]model.PaymentMethod(nil), s.methods...)
}

// Validate reports every missing or malformed field at once.
func (s *checkoutService) Validate(draft model.CheckoutDraft) error {
	fields := make(map[string]string)
	c := draft.Customer

	required := []struct {
		name  string
		value string
	}{
		{"name", c.Name},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address", c.Address},
		{"city", c.City},
		{"postalCode", c.PostalCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			fields[field.name] = "required"
		}
	}

	if _, ok := fields["email"]; !ok {
		if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != strings.TrimSpace(c.Email) {
			fields["email"] = "invalid email address"
		}
	}

	switch {
	case draft.PaymentMethod == "":
		fields["paymentMethod"] = "required"
	case s.providers[draft.PaymentMethod] == nil:
		fields["paymentMethod"] = "unsupported payment method"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Submit runs one checkout attempt. An empty cart ends in CheckoutEmpty
// without contacting anything. Failures end in CheckoutFailed with the cart
// untouched. If ctx ends mid-way the context error is returned and the
// attempt is neither a success nor a failure.
func (s *checkoutService) Submit(ctx context.Context, cart *CartStore, draft model.CheckoutDraft) (*CheckoutResult, error) {
	log := logger.Get()
	sessionID := cart.SessionID()

	if cart.IsEmpty() {
		log.Info("Nothing to check out", map[string]interface{}{
			"session_id": sessionID,
		})
		return &CheckoutResult{State: CheckoutEmpty}, nil
	}

	s.transition(sessionID, CheckoutIdle, CheckoutValidating)
	if err := s.Validate(draft); err != nil {
		s.transition(sessionID, CheckoutValidating, CheckoutFailed)
		return &CheckoutResult{State: CheckoutFailed}, err
	}

	if s.refreshBeforeSubmit {
		if err := cart.RefreshAllStock(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !IsPersistenceOnly(err) {
				s.transition(sessionID, CheckoutValidating, CheckoutFailed)
				return &CheckoutResult{State: CheckoutFailed}, err
			}
			log.Warn("Cart refreshed but not persisted", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
		if conflicts := cart.Conflicts(); len(conflicts) > 0 {
			log.Warn("Checkout blocked by stock conflicts", map[string]interface{}{
				"session_id": sessionID,
				"conflicts":  len(conflicts),
			})
			s.transition(sessionID, CheckoutValidating, CheckoutFailed)
			return &CheckoutResult{State: CheckoutFailed}, &StockConflictError{Lines: conflicts}
		}
	}

	s.transition(sessionID, CheckoutValidating, CheckoutSubmitting)
	payload := buildOrderPayload(sessionID, cart.Lines(), draft)
	provider := s.providers[draft.PaymentMethod]

	redirect, err := provider.Initiate(ctx, payload)
	if ctx.Err() != nil {
		log.Info("Checkout abandoned during submit", map[string]interface{}{
			"session_id": sessionID,
			"reference":  payload.Reference,
		})
		return nil, ctx.Err()
	}
	if err == nil && redirect.URL == "" {
		err = errors.New("provider returned no redirect url")
	}
	if err != nil {
		log.Error("Payment initiation failed", err, map[string]interface{}{
			"session_id": sessionID,
			"reference":  payload.Reference,
			"method":     draft.PaymentMethod,
		})
		s.transition(sessionID, CheckoutSubmitting, CheckoutFailed)
		return &CheckoutResult{State: CheckoutFailed, Reference: payload.Reference, Method: draft.PaymentMethod},
			&PaymentInitiationError{Method: draft.PaymentMethod, Err: err}
	}

	s.transition(sessionID, CheckoutSubmitting, CheckoutProviderRedirect)
	log.Info("Checkout submitted", map[string]interface{}{
		"session_id": sessionID,
		"reference":  payload.Reference,
		"method":     draft.PaymentMethod,
		"items":      payload.ItemCount(),
		"total":      payload.Total.String(),
	})

	return &CheckoutResult{
		State:       CheckoutProviderRedirect,
		Reference:   payload.Reference,
		Method:      draft.PaymentMethod,
		RedirectURL: redirect.URL,
		Total:       payload.Total.StringFixed(2),
	}, nil
}

// CompletePayment handles a success return. The cart is cleared only after
// the provider confirms the payment.
func (s *checkoutService) CompletePayment(ctx context.Context, cart *CartStore, method model.PaymentMethod, ret model.PaymentReturn) error {
	provider, ok := s.providers[method]
	if !ok {
		return ErrUnknownPaymentMethod
	}

	ret.SessionID = cart.SessionID()
	if err := provider.Confirm(ctx, ret); err != nil {
		logger.Warn("Payment return not confirmed", map[string]interface{}{
			"session_id": cart.SessionID(),
			"method":     method,
			"reference":  ret.Reference,
			"error":      err.Error(),
		})
		return err
	}

	logger.Info("Payment confirmed, clearing cart", map[string]interface{}{
		"session_id": cart.SessionID(),
		"method":     method,
		"reference":  ret.Reference,
	})
	return cart.Clear(ctx)
}

// AbandonPayment handles a failure or cancel return. The cart stays as it is.
func (s *checkoutService) AbandonPayment(ctx context.Context, cart *CartStore, method model.PaymentMethod, ret model.PaymentReturn) {
	if provider, ok := s.providers[method].(abandoner); ok {
		provider.Abandon(ret.Reference)
	}
	logger.Info("Payment abandoned, cart kept", map[string]interface{}{
		"session_id": cart.SessionID(),
		"method":     method,
		"reference":  ret.Reference,
		"items":      cart.ItemCount(),
	})
}

func (s *checkoutService) transition(sessionID string, from, to CheckoutState) {
	logger.Debug("Checkout state change", map[string]interface{}{
		"session_id": sessionID,
		"from":       from,
		"to":         to,
	})
}

func buildOrderPayload(sessionID string, lines model.CartSnapshot, draft model.CheckoutDraft) *model.OrderPayload {
	items := make([]model.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = model.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		}
	}
	customer := draft.Customer
	customer.Email = strings.TrimSpace(customer.Email)

	return &model.OrderPayload{
		Reference:     fmt.Sprintf("ORD-%s", uuid.NewString()),
		SessionID:     sessionID,
		Items:         items,
		Customer:      customer,
		Total:         model.NewMoney(lines.Total()),
		PaymentMethod: draft.PaymentMethod,
	}
}
