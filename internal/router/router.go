package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/ikkim/udonggeum-storefront/internal/app/controller"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
)

type Router struct {
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	paymentController  *controller.PaymentController
	adminController    *controller.AdminController
	sessionMiddleware  *middleware.SessionMiddleware
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	paymentController *controller.PaymentController,
	adminController *controller.AdminController,
	sessionMiddleware *middleware.SessionMiddleware,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:     cartController,
		checkoutController: checkoutController,
		paymentController:  paymentController,
		adminController:    adminController,
		sessionMiddleware:  sessionMiddleware,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORS(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "UDONGGEUM storefront is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		shopper := v1.Group("", r.sessionMiddleware.CartSession())

		cart := shopper.Group("/cart")
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items/:productId/:size", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:productId/:size", r.cartController.RemoveFromCart)
			cart.GET("/items/:productId/:size/stock", r.cartController.GetAvailableStock)
			cart.POST("/refresh", r.cartController.RefreshStock)
		}

		checkout := shopper.Group("/checkout")
		{
			checkout.GET("/methods", r.checkoutController.GetPaymentMethods)
			checkout.POST("/validate", r.checkoutController.ValidateCheckout)
			checkout.POST("", r.checkoutController.SubmitCheckout)
		}

		// Provider return points
		payments := shopper.Group("/payments/:method")
		{
			payments.GET("/success", r.paymentController.PaymentSuccess)
			payments.GET("/fail", r.paymentController.PaymentFail)
			payments.GET("/cancel", r.paymentController.PaymentCancel)
		}

		admin := v1.Group("/admin", r.authMiddleware.AdminAuth())
		{
			admin.POST("/products", r.adminController.CreateProduct)
			admin.POST("/products/import", r.adminController.ImportProducts)
			admin.PUT("/products/:id", r.adminController.UpdateProduct)
			admin.DELETE("/products/:id", r.adminController.DeleteProduct)
			admin.POST("/uploads/presigned-url", r.adminController.PresignProductImage)
			admin.GET("/orders", r.adminController.ListOrders)
			admin.GET("/orders/export", r.adminController.ExportOrders)
			admin.PATCH("/orders/:id/status", r.adminController.UpdateOrderStatus)
		}
	}

	return router
}
