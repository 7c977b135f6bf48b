package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/ikkim/udonggeum-storefront/pkg/payment/kakaopay"
)

// PaymentProvider is one interchangeable payment path. Initiate returns where
// the shopper is sent to pay; Confirm verifies a success return before the
// cart may be cleared.
type PaymentProvider interface {
	Method() model.PaymentMethod
	Initiate(ctx context.Context, payload *model.OrderPayload) (*model.PaymentRedirect, error)
	Confirm(ctx context.Context, ret model.PaymentReturn) error
}

// abandoner is implemented by providers that keep per-attempt state.
type abandoner interface {
	Abandon(reference string)
}

// KakaoPayGateway is the part of the Kakao Pay client the provider uses.
type KakaoPayGateway interface {
	Ready(ctx context.Context, req kakaopay.ReadyRequest) (*kakaopay.ReadyResponse, error)
	Approve(ctx context.Context, req kakaopay.ApproveRequest) (*kakaopay.ApproveResponse, error)
	GetConfig() kakaopay.Config
}

const pendingPaymentTTL = time.Hour

// pendingPayment is one initiated payment waiting for its success return.
type pendingPayment struct {
	sessionID string
	tid       string
	orderID   string
	amount    int64
	createdAt time.Time
}

// pendingPayments tracks initiated payments by checkout reference. A
// reference is confirmed at most once; entries older than
// pendingPaymentTTL are dropped.
type pendingPayments struct {
	mu    sync.Mutex
	byRef map[string]pendingPayment
}

func newPendingPayments() *pendingPayments {
	return &pendingPayments{byRef: make(map[string]pendingPayment)}
}

func (p *pendingPayments) add(reference string, pending pendingPayment) {
	now := time.Now()
	pending.createdAt = now

	p.mu.Lock()
	defer p.mu.Unlock()
	for ref, existing := range p.byRef {
		if now.Sub(existing.createdAt) > pendingPaymentTTL {
			delete(p.byRef, ref)
		}
	}
	p.byRef[reference] = pending
}

// lookup returns the pending payment of reference started by sessionID.
func (p *pendingPayments) lookup(reference, sessionID string) (pendingPayment, error) {
	if reference == "" {
		return pendingPayment{}, fmt.Errorf("%w: missing reference", ErrPaymentNotConfirmed)
	}

	p.mu.Lock()
	pending, ok := p.byRef[reference]
	p.mu.Unlock()
	if !ok || time.Since(pending.createdAt) > pendingPaymentTTL {
		return pendingPayment{}, fmt.Errorf("%w: no pending payment for %s", ErrPaymentNotConfirmed, reference)
	}
	if pending.sessionID != sessionID {
		return pendingPayment{}, fmt.Errorf("%w: %s was started by another session", ErrPaymentNotConfirmed, reference)
	}
	return pending, nil
}

func (p *pendingPayments) remove(reference string) {
	p.mu.Lock()
	delete(p.byRef, reference)
	p.mu.Unlock()
}

type kakaoPayProvider struct {
	client  KakaoPayGateway
	pending *pendingPayments
}

func NewKakaoPayProvider(client KakaoPayGateway) PaymentProvider {
	return &kakaoPayProvider{
		client:  client,
		pending: newPendingPayments(),
	}
}

func (p *kakaoPayProvider) Method() model.PaymentMethod {
	return model.PaymentMethodKakaoPay
}

func (p *kakaoPayProvider) Initiate(ctx context.Context, payload *model.OrderPayload) (*model.PaymentRedirect, error) {
	amount := payload.Total.Round(0).IntPart()
	if amount <= 0 {
		return nil, fmt.Errorf("invalid payment amount %s", payload.Total)
	}

	itemName := "주문 결제"
	if len(payload.Items) == 1 {
		itemName = payload.Items[0].Name
	} else if len(payload.Items) > 1 {
		itemName = fmt.Sprintf("%s 외 %d건", payload.Items[0].Name, len(payload.Items)-1)
	}

	cfg := p.client.GetConfig()
	req := kakaopay.ReadyRequest{
		PartnerOrderID: payload.Reference,
		PartnerUserID:  payload.SessionID,
		ItemName:       itemName,
		Quantity:       payload.ItemCount(),
		TotalAmount:    amount,
		ApprovalURL:    withReference(cfg.ApprovalURL, payload.Reference),
		FailURL:        withReference(cfg.FailURL, payload.Reference),
		CancelURL:      withReference(cfg.CancelURL, payload.Reference),
	}

	resp, err := p.client.Ready(ctx, req)
	if err != nil {
		return nil, err
	}

	p.pending.add(payload.Reference, pendingPayment{
		sessionID: payload.SessionID,
		tid:       resp.TID,
		amount:    amount,
	})

	logger.Info("Kakao Pay payment ready", map[string]interface{}{
		"reference": payload.Reference,
		"tid":       resp.TID,
		"amount":    amount,
	})

	return &model.PaymentRedirect{URL: resp.NextRedirectPCURL, ProviderRef: resp.TID}, nil
}

func (p *kakaoPayProvider) Confirm(ctx context.Context, ret model.PaymentReturn) error {
	if ret.Token == "" {
		return fmt.Errorf("%w: missing pg_token", ErrPaymentNotConfirmed)
	}

	pending, err := p.pending.lookup(ret.Reference, ret.SessionID)
	if err != nil {
		return err
	}

	resp, err := p.client.Approve(ctx, kakaopay.ApproveRequest{
		TID:            pending.tid,
		PartnerOrderID: ret.Reference,
		PartnerUserID:  pending.sessionID,
		PgToken:        ret.Token,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrPaymentNotConfirmed, err)
	}

	p.Abandon(ret.Reference)

	logger.Info("Kakao Pay payment approved", map[string]interface{}{
		"reference": ret.Reference,
		"tid":       resp.TID,
		"aid":       resp.AID,
		"amount":    resp.Amount.Total,
	})
	return nil
}

func (p *kakaoPayProvider) Abandon(reference string) {
	p.pending.remove(reference)
}

// OrderGateway is the part of the storefront API the card provider uses.
type OrderGateway interface {
	CreatePaymentIntent(ctx context.Context, req api.PaymentIntentRequest) (*api.PaymentIntent, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
}

type cardProvider struct {
	orders     OrderGateway
	successURL string
	failURL    string
	pending    *pendingPayments
}

// NewCardProvider pays through a payment intent registered with the storefront API.
func NewCardProvider(orders OrderGateway, successURL, failURL string) PaymentProvider {
	return &cardProvider{
		orders:     orders,
		successURL: successURL,
		failURL:    failURL,
		pending:    newPendingPayments(),
	}
}

func (p *cardProvider) Method() model.PaymentMethod {
	return model.PaymentMethodCard
}

func (p *cardProvider) Initiate(ctx context.Context, payload *model.OrderPayload) (*model.PaymentRedirect, error) {
	intent, err := p.orders.CreatePaymentIntent(ctx, api.PaymentIntentRequest{
		Reference:  payload.Reference,
		Items:      payload.Items,
		Customer:   payload.Customer,
		Total:      payload.Total,
		SuccessURL: withReference(p.successURL, payload.Reference),
		CancelURL:  withReference(p.failURL, payload.Reference),
	})
	if err != nil {
		return nil, err
	}

	p.pending.add(payload.Reference, pendingPayment{
		sessionID: payload.SessionID,
		orderID:   intent.OrderID,
	})

	logger.Info("Card payment intent created", map[string]interface{}{
		"reference": payload.Reference,
		"order_id":  intent.OrderID,
	})
	return &model.PaymentRedirect{URL: intent.RedirectURL, ProviderRef: intent.OrderID}, nil
}

// Confirm accepts only an order this provider created for the returning
// session's checkout, and trusts only the API's view of its payment.
func (p *cardProvider) Confirm(ctx context.Context, ret model.PaymentReturn) error {
	pending, err := p.pending.lookup(ret.Reference, ret.SessionID)
	if err != nil {
		return err
	}
	if ret.OrderID != "" && ret.OrderID != pending.orderID {
		return fmt.Errorf("%w: order %s belongs to another checkout", ErrPaymentNotConfirmed, ret.OrderID)
	}

	order, err := p.orders.GetOrder(ctx, pending.orderID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("%w: order %s not found", ErrPaymentNotConfirmed, pending.orderID)
		}
		return fmt.Errorf("%w: %v", ErrPaymentNotConfirmed, err)
	}
	if order.Reference != "" && order.Reference != ret.Reference {
		return fmt.Errorf("%w: order %s belongs to another checkout", ErrPaymentNotConfirmed, pending.orderID)
	}
	if order.PaymentStatus != model.PaymentStatusCompleted {
		return fmt.Errorf("%w: order %s payment is %s", ErrPaymentNotConfirmed, pending.orderID, order.PaymentStatus)
	}

	p.pending.remove(ret.Reference)
	return nil
}

func (p *cardProvider) Abandon(reference string) {
	p.pending.remove(reference)
}

// withReference appends the checkout reference to a return URL.
func withReference(base, reference string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("ref", reference)
	u.RawQuery = q.Encode()
	return u.String()
}
