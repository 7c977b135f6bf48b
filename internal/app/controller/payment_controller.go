package controller

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
)

// PaymentController serves the provider return points. Every outcome ends in
// a redirect back to a storefront page.
type PaymentController struct {
	cartService     service.CartService
	checkoutService service.CheckoutService
	successPageURL  string
	cartPageURL     string
}

func NewPaymentController(cartService service.CartService, checkoutService service.CheckoutService, successPageURL, cartPageURL string) *PaymentController {
	return &PaymentController{
		cartService:     cartService,
		checkoutService: checkoutService,
		successPageURL:  successPageURL,
		cartPageURL:     cartPageURL,
	}
}

// PaymentSuccess confirms the payment with the provider, then clears the cart
// GET /api/v1/payments/:method/success
func (ctrl *PaymentController) PaymentSuccess(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	method := model.PaymentMethod(c.Param("method"))
	ret := paymentReturn(c)

	store, release, ok := ctrl.returnCart(c, ret)
	if !ok {
		return
	}
	defer release()

	err := ctrl.checkoutService.CompletePayment(c.Request.Context(), store, method, ret)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, withQuery(ctrl.successPageURL, "ref", ret.Reference))
	case service.IsPersistenceOnly(err):
		log.Warn("Payment confirmed but cleared cart not saved", map[string]interface{}{
			"session_id": store.SessionID(),
			"reference":  ret.Reference,
			"error":      err.Error(),
		})
		c.Redirect(http.StatusFound, withQuery(ctrl.successPageURL, "ref", ret.Reference))
	default:
		log.Warn("Payment success return not confirmed", map[string]interface{}{
			"session_id": store.SessionID(),
			"method":     method,
			"reference":  ret.Reference,
			"error":      err.Error(),
		})
		c.Redirect(http.StatusFound, withQuery(ctrl.cartPageURL, "payment", "unconfirmed"))
	}
}

// PaymentFail keeps the cart and sends the shopper back to it
// GET /api/v1/payments/:method/fail
func (ctrl *PaymentController) PaymentFail(c *gin.Context) {
	ctrl.abandon(c, "failed")
}

// PaymentCancel keeps the cart and sends the shopper back to it
// GET /api/v1/payments/:method/cancel
func (ctrl *PaymentController) PaymentCancel(c *gin.Context) {
	ctrl.abandon(c, "cancelled")
}

func (ctrl *PaymentController) abandon(c *gin.Context, outcome string) {
	method := model.PaymentMethod(c.Param("method"))
	ret := paymentReturn(c)

	store, release, ok := ctrl.returnCart(c, ret)
	if !ok {
		return
	}
	defer release()

	ctrl.checkoutService.AbandonPayment(c.Request.Context(), store, method, ret)
	c.Redirect(http.StatusFound, withQuery(ctrl.cartPageURL, "payment", outcome))
}

// returnCart resolves the session's cart; without one the shopper is sent
// back to the cart page.
func (ctrl *PaymentController) returnCart(c *gin.Context, ret model.PaymentReturn) (*service.CartStore, func(), bool) {
	sessionID, ok := middleware.GetSessionID(c)
	if ok {
		store, release, err := ctrl.cartService.Cart(c.Request.Context(), sessionID)
		if err == nil {
			return store, release, true
		}
		middleware.GetLoggerFromContext(c).Error("Failed to load cart on payment return", err, map[string]interface{}{
			"session_id": sessionID,
			"reference":  ret.Reference,
		})
	}
	c.Redirect(http.StatusFound, withQuery(ctrl.cartPageURL, "payment", "unconfirmed"))
	return nil, nil, false
}

func paymentReturn(c *gin.Context) model.PaymentReturn {
	return model.PaymentReturn{
		Reference: c.Query("ref"),
		OrderID:   c.Query("orderId"),
		Token:     c.Query("pg_token"),
	}
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil || value == "" {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
