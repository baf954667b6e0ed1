package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/events"
	"backend/internal/handlers"
	"backend/internal/logger"
	"backend/internal/middleware"
	"backend/internal/notify"
	"backend/internal/orders"
	"backend/internal/payment"
	"backend/internal/store"
)

func main() {
	config.Load()

	if err := logger.Init(config.AppEnv.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L()

	st := selectStore(log)
	gateway := selectGateway(log)
	sms := selectSMSSender(log)

	publisher := events.NewPublisher(config.AppEnv.KafkaBrokers, config.AppEnv.KafkaTopic)
	if publisher != nil {
		defer publisher.Close()
		log.Info("kafka order events enabled", zap.Strings("brokers", config.AppEnv.KafkaBrokers))
	}

	svc := orders.NewService(st, gateway, sms, publisher, orders.Config{
		Currency:   config.AppEnv.Currency,
		SuccessURL: config.AppEnv.CheckoutSuccessURL,
		CancelURL:  config.AppEnv.CheckoutCancelURL,
	})
	defer svc.WaitSideEffects()

	if config.AppEnv.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/products", handlers.GetProducts(st))
	r.GET("/products/:id", handlers.GetProduct(st))

	secret := config.AppEnv.JWTSecret

	checkout := r.Group("/orders")
	checkout.Use(middleware.CustomerAuth(secret))
	if rdb := redisClient(log); rdb != nil {
		checkout.Use(middleware.RedisRateLimit(rdb, config.AppEnv.CheckoutRateLimit, config.AppEnv.CheckoutRateWindow))
	}
	{
		checkout.POST("/checkout-session", handlers.CreateCheckoutSession(svc))
		checkout.GET("", handlers.GetOrders(svc))
		checkout.POST("/:id/verify", handlers.VerifyPayment(svc))
		checkout.POST("/:id/cancel", handlers.CancelOrder(svc))
		checkout.POST("/:id/feedback", handlers.SubmitFeedback(svc))
	}

	r.GET("/orders/:id", middleware.AuthGuard(secret), handlers.GetOrder(svc))
	r.POST("/orders/payment-cancel", handlers.PaymentCancelCallback(svc))
	r.POST("/webhooks/payment", handlers.PaymentWebhook(svc, gateway.Name()))

	farmer := r.Group("/farmer")
	farmer.Use(middleware.FarmerAuth(secret))
	{
		farmer.GET("/orders", handlers.GetFarmerOrders(svc))
		farmer.PUT("/orders/:id/status", handlers.UpdateOrderStatus(svc))

		farmer.GET("/products", handlers.GetFarmerProducts(st))
		farmer.POST("/products", handlers.CreateProduct(st))
		farmer.PUT("/products/:id", handlers.UpdateProduct(st))
		farmer.DELETE("/products/:id", handlers.DeleteProduct(st))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(secret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
		admin.DELETE("/orders/:id", handlers.DeleteOrder(svc))
	}

	log.Info("listening", zap.String("port", config.AppEnv.Port))
	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// selectStore picks the storage backend once at startup: Mongo when
// reachable, the in-memory fallback otherwise. Handlers never see which
// one is active.
func selectStore(log *zap.Logger) store.Store {
	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Warn("mongodb unreachable, falling back to in-memory store", zap.Error(err))
		return store.NewMemory()
	}

	db := client.Database(config.AppEnv.DBName)
	log.Info("mongodb connected", zap.String("db", db.Name()))

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Warn("product index warning", zap.Error(err))
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Warn("order index warning", zap.Error(err))
	}
	if err := database.EnsureNotificationIndexes(db); err != nil {
		log.Warn("notification index warning", zap.Error(err))
	}

	return store.NewMongo(db)
}

// selectGateway picks the configured provider, degrading to the test-mode
// gateway when no credentials are present so the order pipeline stays
// exercisable.
func selectGateway(log *zap.Logger) payment.Gateway {
	cfg := config.AppEnv
	switch {
	case cfg.PaymentProvider == "stripe" && cfg.StripeSecretKey != "":
		log.Info("payment provider: stripe")
		return payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.ProviderTimeout)
	case cfg.PaymentProvider == "razorpay" && cfg.RazorpayKeyID != "":
		log.Info("payment provider: razorpay")
		return payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret, cfg.ProviderTimeout)
	default:
		log.Warn("payment provider unconfigured, running in test mode")
		return payment.NewTest("")
	}
}

func selectSMSSender(log *zap.Logger) notify.Sender {
	cfg := config.AppEnv
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		log.Info("sms sender: twilio")
		return notify.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	return notify.LogSender{}
}

func redisClient(log *zap.Logger) *rd.Client {
	if config.AppEnv.RedisAddr == "" {
		return nil
	}
	log.Info("redis rate limiting enabled", zap.String("addr", config.AppEnv.RedisAddr))
	return rd.NewClient(&rd.Options{
		Addr: config.AppEnv.RedisAddr,
		DB:   config.AppEnv.RedisDB,
	})
}
