package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/orders"
	"backend/internal/payment"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		logger.L().Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	logger.L().Warn("request rejected",
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("error", message))
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": message})
}

// respondWorkflowError maps the workflow error taxonomy onto HTTP
// statuses and the {ok:false, error} response shape.
func respondWorkflowError(c *gin.Context, route string, err error) {
	var stockErr orders.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"ok":        false,
			"error":     "insufficient stock",
			"productId": stockErr.ProductID.Hex(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}

	var providerErr *payment.ProviderError
	if errors.As(err, &providerErr) {
		logger.L().Error("payment provider error",
			zap.String("route", route),
			zap.String("provider", providerErr.Provider),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"ok":    false,
			"error": "payment provider error: " + providerErr.Message,
		})
		return
	}

	var (
		validationErr  orders.ValidationError
		notFoundErr    orders.NotFoundError
		unavailableErr orders.UnavailableError
		authErr        orders.AuthorizationError
		incompleteErr  orders.PaymentIncompleteError
		feedbackErr    orders.FeedbackExistsError
	)

	switch {
	case errors.As(err, &notFoundErr):
		respondWithError(c, http.StatusNotFound, route, notFoundErr.Error())
	case errors.As(err, &authErr):
		respondWithError(c, http.StatusForbidden, route, authErr.Error())
	case errors.As(err, &validationErr):
		respondWithError(c, http.StatusBadRequest, route, validationErr.Error())
	case errors.As(err, &unavailableErr):
		respondWithError(c, http.StatusBadRequest, route, unavailableErr.Error())
	case errors.As(err, &incompleteErr):
		respondWithError(c, http.StatusBadRequest, route, incompleteErr.Error())
	case errors.As(err, &feedbackErr):
		respondWithError(c, http.StatusBadRequest, route, feedbackErr.Error())
	case errors.Is(err, payment.ErrInvalidSignature):
		respondWithError(c, http.StatusBadRequest, route, "invalid signature")
	default:
		logger.L().Error("internal error", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
	}
}
