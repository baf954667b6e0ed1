package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/orders"
)

// DeleteOrder hard-deletes an order. Admin tooling only; orders are never
// deleted in normal operation.
func DeleteOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		if err := svc.DeleteOrder(c.Request.Context(), orderID); err != nil {
			respondWorkflowError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "order deleted"})
	}
}
