package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/payment"
)

func deliveredOrder(t *testing.T, env *testEnv) *models.Order {
	t.Helper()
	order := confirmedOrder(t, env)
	_, err := env.svc.UpdateStatus(context.Background(), order.FarmerID, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	delivered, err := env.svc.UpdateStatus(context.Background(), order.FarmerID, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	return delivered
}

func TestSubmitFeedback(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	order := deliveredOrder(t, env)

	updated, err := env.svc.SubmitFeedback(context.Background(), order.CustomerID, order.ID, 5, "  beautiful produce  ")
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, 5, updated.Feedback.Rating)
	assert.Equal(t, "beautiful produce", updated.Feedback.Comment)
	assert.False(t, updated.Feedback.CreatedAt.IsZero())
}

func TestSubmitFeedbackOnlyOnce(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	order := deliveredOrder(t, env)

	_, err := env.svc.SubmitFeedback(context.Background(), order.CustomerID, order.ID, 4, "good")
	require.NoError(t, err)

	_, err = env.svc.SubmitFeedback(context.Background(), order.CustomerID, order.ID, 1, "changed my mind")
	var existsErr FeedbackExistsError
	require.ErrorAs(t, err, &existsErr)

	stored, gerr := env.store.Orders().Get(context.Background(), order.ID)
	require.NoError(t, gerr)
	assert.Equal(t, 4, stored.Feedback.Rating, "first feedback must stand")
}

func TestSubmitFeedbackRequiresDeliveredOrder(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	order := confirmedOrder(t, env)

	_, err := env.svc.SubmitFeedback(context.Background(), order.CustomerID, order.ID, 3, "")
	var vErr ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSubmitFeedbackRequiresOwnership(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	order := deliveredOrder(t, env)

	_, err := env.svc.SubmitFeedback(context.Background(), primitive.NewObjectID(), order.ID, 3, "")
	var authErr AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestSubmitFeedbackRatingBounds(t *testing.T) {
	env := newTestEnv(t, payment.NewTest(""))
	order := deliveredOrder(t, env)

	for _, rating := range []int{0, -1, 6} {
		_, err := env.svc.SubmitFeedback(context.Background(), order.CustomerID, order.ID, rating, "")
		var vErr ValidationError
		require.ErrorAs(t, err, &vErr, "rating %d must be rejected", rating)
	}
}
