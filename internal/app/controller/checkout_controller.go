package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	apperrors "github.com/ikkim/udonggeum-storefront/internal/errors"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
)

type CheckoutController struct {
	cartService     service.CartService
	checkoutService service.CheckoutService
}

func NewCheckoutController(cartService service.CartService, checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		cartService:     cartService,
		checkoutService: checkoutService,
	}
}

// GetPaymentMethods lists the enabled payment methods
// GET /api/v1/checkout/methods
func (ctrl *CheckoutController) GetPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"methods": ctrl.checkoutService.Methods(),
	})
}

// ValidateCheckout checks the checkout form without submitting it
// POST /api/v1/checkout/validate
func (ctrl *CheckoutController) ValidateCheckout(c *gin.Context) {
	var draft model.CheckoutDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"body": "요청 형식이 올바르지 않습니다"})
		return
	}

	if err := ctrl.checkoutService.Validate(draft); err != nil {
		apperrors.ParseAndRespond(c, err, "결제 정보 확인")
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// SubmitCheckout starts payment for the session's cart
// POST /api/v1/checkout
func (ctrl *CheckoutController) SubmitCheckout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var draft model.CheckoutDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"body": "요청 형식이 올바르지 않습니다"})
		return
	}

	store, release, ok := resolveCart(c, ctrl.cartService)
	if !ok {
		return
	}
	defer release()

	result, err := ctrl.checkoutService.Submit(c.Request.Context(), store, draft)
	if err != nil {
		log.Warn("Checkout failed", map[string]interface{}{
			"session_id": store.SessionID(),
			"error":      err.Error(),
		})
		apperrors.ParseAndRespond(c, err, "checkout")
		return
	}

	if result.State == service.CheckoutEmpty {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   apperrors.CartNothingToOrder,
			"message": "주문할 상품이 없습니다",
			"state":   result.State,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
