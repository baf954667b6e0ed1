package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/middleware"
	"backend/internal/orders"
)

// CreateCheckoutSession validates the cart, creates the pending order and
// returns the provider session the client continues with.
func CreateCheckoutSession(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/checkout-session"
		defer handlePanic(c, route)

		customerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req orders.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		result, err := svc.Checkout(c.Request.Context(), customerID, req)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"ok":          true,
			"orderId":     result.Order.ID.Hex(),
			"sessionId":   result.SessionID,
			"checkoutUrl": result.CheckoutURL,
		})
	}
}

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

// VerifyPayment is the client-confirm path after redirect back from the
// provider. Repeating the call for a completed order is harmless.
func VerifyPayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/verify"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		order, err := svc.VerifyPayment(c.Request.Context(), orderID, req.SessionID)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}

// CancelOrder is the authenticated customer cancellation.
func CancelOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/cancel"
		defer handlePanic(c, route)

		customerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		order, err := svc.Cancel(c.Request.Context(), customerID, orderID)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}

type paymentCancelRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// PaymentCancelCallback handles the provider cancel redirect. No caller
// identity; only orders with pending payment can be cancelled here.
func PaymentCancelCallback(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/payment-cancel"
		defer handlePanic(c, route)

		var req paymentCancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "orderId is required")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(req.OrderID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		order, err := svc.HandlePaymentCancel(c.Request.Context(), orderID)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the farmer-driven transition endpoint.
func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /farmer/orders/:id/status"
		defer handlePanic(c, route)

		farmerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "status is required")
			return
		}

		order, err := svc.UpdateStatus(c.Request.Context(), farmerID, orderID, req.Status)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}

type feedbackRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// SubmitFeedback records post-delivery feedback, once per order.
func SubmitFeedback(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/feedback"
		defer handlePanic(c, route)

		customerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req feedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "rating is required")
			return
		}

		order, err := svc.SubmitFeedback(c.Request.Context(), customerID, orderID, req.Rating, req.Comment)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}

// GetOrders lists the authenticated customer's orders.
func GetOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		customerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		list, err := svc.OrdersForCustomer(c.Request.Context(), customerID, page, limit)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "orders": list})
	}
}

// GetFarmerOrders lists orders placed against the farmer's products.
func GetFarmerOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /farmer/orders"
		defer handlePanic(c, route)

		farmerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		list, err := svc.OrdersForFarmer(c.Request.Context(), farmerID, page, limit)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "orders": list})
	}
}

// GetOrder returns one order to its customer, its farmer, or an admin.
func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		requesterID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}
		role := c.GetString("role")

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		order, err := svc.GetOrder(c.Request.Context(), requesterID, role, orderID)
		if err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}
