package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/services"
)

type PaymentController struct {
	Payments services.PaymentService
	Gateway  *services.StripeGateway
	Logger   *zap.Logger
}

func NewPaymentController(payments services.PaymentService, gateway *services.StripeGateway, logger *zap.Logger) *PaymentController {
	return &PaymentController{Payments: payments, Gateway: gateway, Logger: logger}
}

// CreateCheckoutSession opens a processor session for the order and
// hands the redirect URL back to the client.
func (pc *PaymentController) CreateCheckoutSession(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req struct {
		SuccessURL string `json:"success_url" binding:"required"`
		CancelURL  string `json:"cancel_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	handle, err := pc.Payments.CreateCheckoutSession(c.Request.Context(), orderID, req.SuccessURL, req.CancelURL)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, handle)
}

// ConfirmPayment is the browser-redirect confirmation path. It shares
// the idempotent confirmation with the webhook, so double delivery is
// harmless.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	confirmed, err := pc.Payments.ConfirmPayment(c.Request.Context(), sessionID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": confirmed})
}

// StripeWebhook verifies the event signature and feeds completed
// checkout sessions into the confirmation path. Unknown event types are
// acknowledged and dropped; Stripe retries anything not answered 2xx.
func (pc *PaymentController) StripeWebhook(c *gin.Context) {
	event, err := pc.Gateway.ParseWebhook(c.Request)
	if err != nil {
		pc.Logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	if event.Type == "checkout.session.completed" {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			pc.Logger.Warn("webhook event decode failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event data"})
			return
		}
		if _, err := pc.Payments.ConfirmPayment(c.Request.Context(), sess.ID); err != nil {
			// Non-2xx makes Stripe redeliver, which is exactly what we
			// want for a transient storage or processor failure.
			apperrors.Respond(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
