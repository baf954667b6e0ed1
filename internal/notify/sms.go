package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"backend/internal/logger"
)

// OrderConfirmation is the message sent to a customer after payment.
type OrderConfirmation struct {
	CustomerName string
	OrderID      string
	TotalAmount  float64
	PaymentMode  string
	PlacedAt     time.Time
}

func (m OrderConfirmation) body() string {
	return fmt.Sprintf(
		"Hi %s, your order %s for ₹%.2f (%s) was confirmed on %s. Thank you for shopping with us!",
		m.CustomerName, m.OrderID, m.TotalAmount, m.PaymentMode,
		m.PlacedAt.Format("02 Jan 2006 15:04"),
	)
}

// Sender is the messaging sink. Implementations are best-effort; the
// order workflow never fails on a send error.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, phone string, msg OrderConfirmation) error
}

// TwilioSender sends confirmations over Twilio SMS.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilio(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: from}
}

func (s *TwilioSender) SendOrderConfirmation(_ context.Context, phone string, msg OrderConfirmation) error {
	params := &api.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(msg.body())

	_, err := s.client.Api.CreateMessage(params)
	return err
}

// LogSender stands in when no SMS provider is configured.
type LogSender struct{}

func (LogSender) SendOrderConfirmation(_ context.Context, phone string, msg OrderConfirmation) error {
	logger.L().Info("sms sender unconfigured, logging confirmation instead",
		zap.String("phone", phone),
		zap.String("order_id", msg.OrderID))
	return nil
}
