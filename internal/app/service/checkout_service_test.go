package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	method     model.PaymentMethod
	initiateFn func(ctx context.Context, payload *model.OrderPayload) (*model.PaymentRedirect, error)
	confirmErr error
	initiated  atomic.Int32
	confirmed  atomic.Int32
	abandoned  []string
	last       *model.OrderPayload
	lastReturn model.PaymentReturn
}

func (p *fakeProvider) Method() model.PaymentMethod { return p.method }

func (p *fakeProvider) Initiate(ctx context.Context, payload *model.OrderPayload) (*model.PaymentRedirect, error) {
	p.initiated.Add(1)
	p.last = payload
	if p.initiateFn != nil {
		return p.initiateFn(ctx, payload)
	}
	return &model.PaymentRedirect{URL: "https://pay.test/" + payload.Reference}, nil
}

func (p *fakeProvider) Confirm(ctx context.Context, ret model.PaymentReturn) error {
	p.confirmed.Add(1)
	p.lastReturn = ret
	return p.confirmErr
}

func (p *fakeProvider) Abandon(reference string) {
	p.abandoned = append(p.abandoned, reference)
}

func validDraft() model.CheckoutDraft {
	return model.CheckoutDraft{
		Customer: model.Customer{
			Name:       "Kim Minji",
			Email:      "minji@shop.test",
			Phone:      "010-1234-5678",
			Address:    "12 Teheran-ro",
			City:       "Seoul",
			PostalCode: "06234",
		},
		PaymentMethod: model.PaymentMethodCard,
	}
}

func TestCheckout_Validate(t *testing.T) {
	svc := NewCheckoutService(false, &fakeProvider{method: model.PaymentMethodCard})

	assert.NoError(t, svc.Validate(validDraft()))

	draft := validDraft()
	draft.Customer.Name = " "
	draft.Customer.City = ""
	draft.Customer.Email = "not-an-email"
	draft.PaymentMethod = model.PaymentMethodKakaoPay

	err := svc.Validate(draft)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "required", validationErr.Fields["name"])
	assert.Equal(t, "required", validationErr.Fields["city"])
	assert.Equal(t, "invalid email address", validationErr.Fields["email"])
	assert.Equal(t, "unsupported payment method", validationErr.Fields["paymentMethod"])
	assert.NotContains(t, validationErr.Fields, "phone")
}

func TestCheckout_Submit_EmptyCart(t *testing.T) {
	f := newCartFixture(t)
	provider := &fakeProvider{method: model.PaymentMethodCard}
	svc := NewCheckoutService(true, provider)

	result, err := svc.Submit(context.Background(), f.store, validDraft())
	require.NoError(t, err)
	assert.Equal(t, CheckoutEmpty, result.State)
	assert.Equal(t, int32(0), provider.initiated.Load())
	assert.Equal(t, int32(0), f.catalog.calls.Load())
}

func TestCheckout_Submit_Redirect(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddItem(ctx, "p1", "M", 2))
	require.NoError(t, f.store.AddItem(ctx, "p2", "", 1))

	provider := &fakeProvider{method: model.PaymentMethodCard}
	svc := NewCheckoutService(true, provider)

	result, err := svc.Submit(ctx, f.store, validDraft())
	require.NoError(t, err)
	assert.Equal(t, CheckoutProviderRedirect, result.State)
	assert.Equal(t, "https://pay.test/"+result.Reference, result.RedirectURL)
	assert.Equal(t, "44.80", result.Total)

	payload := provider.last
	require.NotNil(t, payload)
	assert.Equal(t, "sess-1", payload.SessionID)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, "p1", payload.Items[0].ProductID)
	assert.Equal(t, 2, payload.Items[0].Quantity)
	assert.Equal(t, 3, payload.ItemCount())

	// initiating a redirect never clears the cart
	assert.Equal(t, 3, f.store.ItemCount())
}

func TestCheckout_Submit_ProviderFailureLeavesCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddItem(ctx, "p1", "M", 2))
	total, count := f.store.Total(), f.store.ItemCount()

	provider := &fakeProvider{
		method: model.PaymentMethodCard,
		initiateFn: func(context.Context, *model.OrderPayload) (*model.PaymentRedirect, error) {
			return nil, errors.New("gateway timeout")
		},
	}
	svc := NewCheckoutService(false, provider)

	result, err := svc.Submit(ctx, f.store, validDraft())
	var initErr *PaymentInitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, model.PaymentMethodCard, initErr.Method)
	assert.Equal(t, CheckoutFailed, result.State)

	assert.True(t, total.Equal(f.store.Total()))
	assert.Equal(t, count, f.store.ItemCount())
}

func TestCheckout_Submit_InvalidDraftNeverContactsProvider(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddItem(ctx, "p1", "M", 1))

	provider := &fakeProvider{method: model.PaymentMethodCard}
	svc := NewCheckoutService(true, provider)

	draft := validDraft()
	draft.Customer.PostalCode = ""
	result, err := svc.Submit(ctx, f.store, draft)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, CheckoutFailed, result.State)
	assert.Equal(t, int32(0), provider.initiated.Load())
}

func TestCheckout_Submit_StockConflictBlocks(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddItem(ctx, "p1", "M", 3))
	f.catalog.setStock("p1", "M", 1)

	provider := &fakeProvider{method: model.PaymentMethodCard}
	svc := NewCheckoutService(true, provider)

	result, err := svc.Submit(ctx, f.store, validDraft())
	var conflictErr *StockConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Lines, 1)
	assert.Equal(t, 1, conflictErr.Lines[0].MaxStock)
	assert.Equal(t, CheckoutFailed, result.State)
	assert.Equal(t, int32(0), provider.initiated.Load())
	assert.Equal(t, 3, f.store.ItemCount())
}

func TestCheckout_Submit_CancelledIsNeitherSuccessNorFailure(t *testing.T) {
	f := newCartFixture(t)
	require.NoError(t, f.store.AddItem(context.Background(), "p1", "M", 1))

	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{
		method: model.PaymentMethodCard,
		initiateFn: func(ctx context.Context, _ *model.OrderPayload) (*model.PaymentRedirect, error) {
			cancel()
			return nil, ctx.Err()
		},
	}
	svc := NewCheckoutService(false, provider)

	result, err := svc.Submit(ctx, f.store, validDraft())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	var initErr *PaymentInitiationError
	assert.False(t, errors.As(err, &initErr))
	assert.Equal(t, 1, f.store.ItemCount())
}

func TestCheckout_CompletePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed payment clears the cart", func(t *testing.T) {
		f := newCartFixture(t)
		require.NoError(t, f.store.AddItem(ctx, "p1", "M", 1))
		provider := &fakeProvider{method: model.PaymentMethodCard}
		svc := NewCheckoutService(false, provider)

		require.NoError(t, svc.CompletePayment(ctx, f.store, model.PaymentMethodCard, model.PaymentReturn{Reference: "r1", OrderID: "o1"}))
		assert.Equal(t, "sess-1", provider.lastReturn.SessionID)
		assert.Equal(t, 0, f.store.ItemCount())
		assert.True(t, f.reload(t).IsEmpty())
	})

	t.Run("unconfirmed payment keeps the cart", func(t *testing.T) {
		f := newCartFixture(t)
		require.NoError(t, f.store.AddItem(ctx, "p1", "M", 1))
		provider := &fakeProvider{method: model.PaymentMethodCard, confirmErr: ErrPaymentNotConfirmed}
		svc := NewCheckoutService(false, provider)

		err := svc.CompletePayment(ctx, f.store, model.PaymentMethodCard, model.PaymentReturn{OrderID: "o1"})
		assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
		assert.Equal(t, 1, f.store.ItemCount())
	})

	t.Run("unknown method", func(t *testing.T) {
		f := newCartFixture(t)
		svc := NewCheckoutService(false, &fakeProvider{method: model.PaymentMethodCard})
		err := svc.CompletePayment(ctx, f.store, model.PaymentMethodKakaoPay, model.PaymentReturn{})
		assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
	})
}

func TestCheckout_AbandonPayment(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddItem(ctx, "p1", "M", 1))
	provider := &fakeProvider{method: model.PaymentMethodKakaoPay}
	svc := NewCheckoutService(false, provider)

	svc.AbandonPayment(ctx, f.store, model.PaymentMethodKakaoPay, model.PaymentReturn{Reference: "r9"})
	assert.Equal(t, []string{"r9"}, provider.abandoned)
	assert.Equal(t, 1, f.store.ItemCount())
	assert.Equal(t, int32(0), provider.confirmed.Load())
}

func TestCheckout_Methods(t *testing.T) {
	svc := NewCheckoutService(false,
		&fakeProvider{method: model.PaymentMethodKakaoPay},
		&fakeProvider{method: model.PaymentMethodCard},
	)
	assert.Equal(t, []model.PaymentMethod{model.PaymentMethodKakaoPay, model.PaymentMethodCard}, svc.Methods())
}
