package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pharmadirect/pharmacy-backend/common/logger"
	"github.com/pharmadirect/pharmacy-backend/controllers"
)

// Controllers bundles everything the router needs.
type Controllers struct {
	Cart          *controllers.CartController
	Orders        *controllers.OrderController
	Payments      *controllers.PaymentController
	Prescriptions *controllers.PrescriptionController
	Products      *controllers.ProductController
	Addresses     *controllers.AddressController
	Dashboard     *controllers.DashboardController
}

// SetupRouter wires the HTTP surface. Authentication and role checks
// happen at the gateway; this service trusts the X-User-ID header it is
// handed. The webhook route is the one deliberately unauthenticated
// entry point, guarded by signature verification instead.
func SetupRouter(c Controllers, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cart := r.Group("/cart")
	{
		cart.GET("", c.Cart.GetCart)
		cart.DELETE("", c.Cart.ClearCart)
		cart.POST("/items", c.Cart.AddItem)
		cart.PUT("/items/:product_id", c.Cart.UpdateItem)
		cart.DELETE("/items/:product_id", c.Cart.RemoveItem)
	}

	orders := r.Group("/orders")
	{
		orders.POST("", c.Orders.CreateOrder)
		orders.GET("", c.Orders.GetOrders)
		orders.GET("/:id", c.Orders.GetOrderByID)
		orders.DELETE("/:id", c.Orders.CancelOrder)
		orders.POST("/:id/checkout-session", c.Payments.CreateCheckoutSession)
		orders.POST("/:id/approve", c.Orders.ApproveOrder)
		orders.POST("/:id/complete", c.Orders.CompleteOrder)
		orders.GET("/:id/prescriptions", c.Prescriptions.OrderPrescriptions)
	}

	payments := r.Group("/payments")
	{
		payments.GET("/confirm", c.Payments.ConfirmPayment)
		payments.POST("/webhook", c.Payments.StripeWebhook)
	}

	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.POST("", c.Prescriptions.Upload)
		prescriptions.GET("", c.Prescriptions.MyPrescriptions)
		prescriptions.GET("/available", c.Prescriptions.LatestAvailable)
		prescriptions.GET("/:id/file", c.Prescriptions.Download)
	}

	products := r.Group("/products")
	{
		products.GET("", c.Products.GetProducts)
		products.GET("/:id", c.Products.GetProductByID)
	}

	addresses := r.Group("/addresses")
	{
		addresses.GET("", c.Addresses.GetAddresses)
		addresses.POST("", c.Addresses.CreateAddress)
		addresses.POST("/:id/default", c.Addresses.SetDefault)
	}

	admin := r.Group("/admin")
	{
		admin.GET("/orders", c.Orders.GetAllOrders)
		admin.GET("/dashboard", c.Dashboard.GetDashboard)
		admin.GET("/prescriptions/pending", c.Prescriptions.PendingReview)
		admin.GET("/prescriptions/has-pending", c.Prescriptions.HasPending)
		admin.POST("/prescriptions/:id/verify", c.Prescriptions.Verify)
		admin.POST("/prescriptions/:id/request-info", c.Prescriptions.RequireInfo)
	}

	return r
}
