package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	apperrors "github.com/ikkim/udonggeum-storefront/internal/errors"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

type cartLineResponse struct {
	model.CartLine
	Subtotal  string `json:"subtotal"`
	OverLimit bool   `json:"overLimit,omitempty"`
}

type cartWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type cartResponse struct {
	Items     []cartLineResponse `json:"items"`
	Count     int                `json:"count"`
	Total     string             `json:"total"`
	Conflicts int                `json:"conflicts"`
	Warning   *cartWarning       `json:"warning,omitempty"`
}

// GetCart returns the session's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	store, release, ok := ctrl.cart(c)
	if !ok {
		return
	}
	defer release()
	c.JSON(http.StatusOK, buildCartResponse(store, nil))
}

// AddToCart adds an item to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, map[string]string{"body": err.Error()})
		return
	}

	store, release, ok := ctrl.cart(c)
	if !ok {
		return
	}
	defer release()

	err := store.AddItem(c.Request.Context(), req.ProductID, req.Size, req.Quantity)
	ctrl.respondMutation(c, store, err, "장바구니 추가")
}

// UpdateCartItem sets the quantity of one line
// PUT /api/v1/cart/items/:productId/:size
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"quantity": "수량은 1개 이상이어야 합니다"})
		return
	}

	store, release, ok := ctrl.cart(c)
	if !ok {
		return
	}
	defer release()

	err := store.UpdateQuantity(c.Request.Context(), c.Param("productId"), c.Param("size"), req.Quantity)
	ctrl.respondMutation(c, store, err, "장바구니 수정")
}

// RemoveFromCart removes one line
// DELETE /api/v1/cart/items/:productId/:size
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	store, release, ok := ctrl.cart(c)
	if !ok {
		return
	}
	defer release()

	err := store.RemoveItem(c.Request.Context(), c.Param("productId"), c.Param("size"))
	ctrl.respondMutation(c, store, err, "장바구니 삭제")
}

// RefreshStock re-reads stock for every line
// POST /api/v1/cart/refresh
func (ctrl *CartController) RefreshStock(c *gin.Context) {
	store, release, ok := ctrl.cart(c)
	if !ok {
		return
	}
	defer release()

	err := store.RefreshAllStock(c.Request.Context())
	ctrl.respondMutation(c, store, err, "재고 확인")
}

// GetAvailableStock returns the cached stock ceiling for one line
// GET /api/v1/cart/items/:productId/:size/stock
func (ctrl *CartController) GetAvailableStock(c *gin.Context) {
	store, release, ok := ctrl.cart(c)
	if !ok {
		return
	}
	defer release()

	c.JSON(http.StatusOK, gin.H{
		"productId": c.Param("productId"),
		"size":      c.Param("size"),
		"available": store.AvailableStock(c.Param("productId"), c.Param("size")),
	})
}

func (ctrl *CartController) cart(c *gin.Context) (*service.CartStore, func(), bool) {
	return resolveCart(c, ctrl.cartService)
}

// respondMutation answers with the cart as it stands after the operation. A
// change that applied but was not saved still succeeds, with a warning.
func (ctrl *CartController) respondMutation(c *gin.Context, store *service.CartStore, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	if err == nil {
		c.JSON(http.StatusOK, buildCartResponse(store, nil))
		return
	}

	if service.IsPersistenceOnly(err) {
		log.Warn("Cart changed but not saved", map[string]interface{}{
			"session_id": store.SessionID(),
			"error":      err.Error(),
		})
		info := apperrors.ParseError(err, context)
		c.JSON(http.StatusOK, buildCartResponse(store, &cartWarning{Code: info.Code, Message: info.Message}))
		return
	}

	log.Warn("Cart operation rejected", map[string]interface{}{
		"session_id": store.SessionID(),
		"context":    context,
		"error":      err.Error(),
	})
	apperrors.ParseAndRespond(c, err, context)
}

// resolveCart loads the cart of the request's session. On success the caller
// must call release when the request is done with the store.
func resolveCart(c *gin.Context, carts service.CartService) (*service.CartStore, func(), bool) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		apperrors.ParseAndRespond(c, service.ErrEmptySession, "장바구니")
		return nil, nil, false
	}

	store, release, err := carts.Cart(c.Request.Context(), sessionID)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to load cart", err, map[string]interface{}{
			"session_id": sessionID,
		})
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.CartLoadFailed, "장바구니를 불러오지 못했습니다. 잠시 후 다시 시도해주세요")
		return nil, nil, false
	}
	return store, release, true
}

func buildCartResponse(store *service.CartStore, warning *cartWarning) cartResponse {
	lines := store.Lines()
	items := make([]cartLineResponse, len(lines))
	conflicts := 0
	for i, line := range lines {
		items[i] = cartLineResponse{
			CartLine:  line,
			Subtotal:  line.Subtotal().StringFixed(2),
			OverLimit: line.OverLimit(),
		}
		if line.OverLimit() {
			conflicts++
		}
	}
	return cartResponse{
		Items:     items,
		Count:     lines.ItemCount(),
		Total:     lines.Total().StringFixed(2),
		Conflicts: conflicts,
		Warning:   warning,
	}
}
