package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/orders"
)

// signatureHeader returns the provider-specific signature header value.
func signatureHeader(c *gin.Context, provider string) string {
	switch provider {
	case "stripe":
		return c.GetHeader("Stripe-Signature")
	case "razorpay":
		return c.GetHeader("X-Razorpay-Signature")
	default:
		return c.GetHeader("X-Webhook-Signature")
	}
}

// PaymentWebhook receives asynchronous provider events. The acknowledgement
// is only sent after the status change is durably persisted; duplicate
// deliveries are acknowledged without further side effects.
func PaymentWebhook(svc *orders.Service, provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /webhooks/payment"
		defer handlePanic(c, route)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable body")
			return
		}

		if err := svc.HandleWebhook(c.Request.Context(), payload, signatureHeader(c, provider)); err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
