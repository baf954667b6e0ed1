package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port      string
	Env       string
	MongoURI  string
	DBName    string
	JWTSecret string

	// Payment provider selection: "stripe", "razorpay" or "" for test mode.
	PaymentProvider       string
	Currency              string
	StripeSecretKey       string
	StripeWebhookSecret   string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	CheckoutSuccessURL    string
	CheckoutCancelURL     string
	ProviderTimeout       time.Duration

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	RedisAddr          string
	RedisDB            int
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:      getEnvOrDefault("PORT", "8080"),
		Env:       getEnvOrDefault("ENV", "development"),
		MongoURI:  getEnvOrDefault("MONGO_URI", ""),
		DBName:    getEnvOrDefault("DB_NAME", "farmmarket"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", ""),

		PaymentProvider:       getEnvOrDefault("PAYMENT_PROVIDER", ""),
		Currency:              strings.ToLower(getEnvOrDefault("CURRENCY", "inr")),
		StripeSecretKey:       getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		RazorpayKeyID:         getEnvOrDefault("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnvOrDefault("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnvOrDefault("RAZORPAY_WEBHOOK_SECRET", ""),
		CheckoutSuccessURL:    getEnvOrDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/payment/success"),
		CheckoutCancelURL:     getEnvOrDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
		ProviderTimeout:       getDurationEnv("PROVIDER_TIMEOUT_SECONDS", 20, time.Second),

		TwilioAccountSID: getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnvOrDefault("TWILIO_FROM_NUMBER", ""),

		RedisAddr:          getEnvOrDefault("REDIS_ADDR", ""),
		RedisDB:            getIntEnv("REDIS_DB", 0),
		CheckoutRateLimit:  getIntEnv("CHECKOUT_RATE_LIMIT", 20),
		CheckoutRateWindow: getDurationEnv("CHECKOUT_RATE_WINDOW_SECONDS", 60, time.Second),

		KafkaBrokers: splitCSV(getEnvOrDefault("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
