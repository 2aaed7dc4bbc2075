package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarte-commerce/ecomm-shipping-sub000/controllers"
	"github.com/smarte-commerce/ecomm-shipping-sub000/metrics"
	"github.com/smarte-commerce/ecomm-shipping-sub000/middleware"
)

// RegisterHealthRoutes exposes liveness and Prometheus endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "shipping-service"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// RegisterQuoteRoutes sets up the quote calculation routes. Quotes are
// requested anonymously from cart and checkout pages; only the provider
// probe needs an admin.
func RegisterQuoteRoutes(r *gin.Engine, qc *controllers.QuoteController) {
	quotes := r.Group("/quotes")

	quotes.POST("/calculate", qc.Calculate)
	quotes.POST("/cart/review", qc.ReviewCart)
	quotes.POST("/checkout/calculate", qc.CalculateCheckout)
	quotes.POST("/quick-estimate", qc.QuickEstimate)
	quotes.POST("/validate", qc.Validate)

	quotes.GET("/providers", qc.Providers)
	quotes.GET("/providers/status", qc.ProviderStatuses)
	quotes.POST("/providers/test-connectivity",
		middleware.AuthMiddleware(),
		middleware.RequireRole("admin"),
		qc.TestConnectivity,
	)
}

// RegisterShippingRoutes sets up all shipment routes.
func RegisterShippingRoutes(r *gin.Engine, sc *controllers.ShippingController) {
	shipping := r.Group("/shipping")
	shipping.Use(middleware.AuthMiddleware())

	shipping.GET("/track/:tracking_code", sc.TrackShipment)
	shipping.GET("/shipments", sc.ListShipments)

	// Internal/admin: labels are bought after an order is placed.
	shipping.POST("/labels", middleware.RequireRole("admin", "service"), sc.CreateLabel)
}
