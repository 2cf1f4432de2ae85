package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/config"
	"github.com/ikkim/bazaar-backend/internal/app/controller"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/middleware"
)

type Router struct {
	orderController        *controller.OrderController
	refundController       *controller.RefundController
	replacementController  *controller.ReplacementController
	shoppingListController *controller.ShoppingListController
	deliveryController     *controller.DeliveryController
	reportController       *controller.ReportController
	trackingController     *controller.TrackingController
	authMiddleware         *middleware.AuthMiddleware
	rateLimiter            *middleware.RateLimiter
	config                 *config.Config
}

func NewRouter(
	orderController *controller.OrderController,
	refundController *controller.RefundController,
	replacementController *controller.ReplacementController,
	shoppingListController *controller.ShoppingListController,
	deliveryController *controller.DeliveryController,
	reportController *controller.ReportController,
	trackingController *controller.TrackingController,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		orderController:        orderController,
		refundController:       refundController,
		replacementController:  replacementController,
		shoppingListController: shoppingListController,
		deliveryController:     deliveryController,
		reportController:       reportController,
		trackingController:     trackingController,
		authMiddleware:         authMiddleware,
		rateLimiter:            rateLimiter,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Bazaar fulfillment API is running",
		})
	})

	v1 := router.Group("/api/v1")
	if r.rateLimiter != nil {
		v1.Use(r.rateLimiter.Middleware())
	}

	adminOnly := r.authMiddleware.RequireRole(model.RoleAdmin)

	{
		v1.POST("/delivery-fee/quote", r.deliveryController.Quote)

		// 비회원 주문 허용
		v1.POST("/orders", r.authMiddleware.OptionalAuthenticate(), r.orderController.PlaceOrder)

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.GetMyOrders)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.POST("/:id/cancel", r.orderController.Cancel)
			orders.POST("/:id/refund-requests", r.refundController.RequestRefund)
			orders.POST("/:id/replacement-proposals/verify", r.replacementController.VerifyReplacement)

			orders.POST("/:id/status", adminOnly, r.orderController.SetStatus)
			orders.POST("/:id/payment/complete", adminOnly, r.orderController.MarkPaymentCompleted)
			orders.POST("/:id/refund-requests/resolve", adminOnly, r.refundController.ResolveRefundRequest)
			orders.POST("/:id/refunds", adminOnly, r.refundController.DirectRefund)
			orders.POST("/:id/replacement-proposals", adminOnly, r.replacementController.ProposeReplacement)
			orders.POST("/:id/replacements/apply", adminOnly, r.replacementController.ApplyReplacement)
		}

		lists := v1.Group("/shopping-lists")
		{
			lists.POST("", r.authMiddleware.OptionalAuthenticate(), r.shoppingListController.Submit)
			lists.POST("/photos/presign", r.authMiddleware.OptionalAuthenticate(), r.shoppingListController.PresignPhoto)
			lists.GET("/:id", r.authMiddleware.Authenticate(), r.shoppingListController.GetShoppingList)

			lists.POST("/:id/price", r.authMiddleware.Authenticate(), adminOnly, r.shoppingListController.Price)
			lists.POST("/:id/convert", r.authMiddleware.Authenticate(), adminOnly, r.shoppingListController.Convert)
			lists.POST("/:id/cancel", r.authMiddleware.Authenticate(), adminOnly, r.shoppingListController.Cancel)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), adminOnly)
		{
			admin.GET("/orders", r.orderController.ListOrders)
			admin.GET("/shopping-lists", r.shoppingListController.ListShoppingLists)
			admin.GET("/reports/refunds.xlsx", r.reportController.RefundLedger)
		}

		// 브라우저 WebSocket은 ?token= 으로 인증
		v1.GET("/ws/orders/:id", r.authMiddleware.Authenticate(), r.trackingController.TrackOrder)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Idempotency-Key, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
