package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"paygate/internal/api"
	"paygate/internal/config"
	"paygate/internal/db"
	"paygate/internal/gateway"
	"paygate/internal/logger"
	"paygate/internal/middleware"
	"paygate/internal/payment"
	"paygate/internal/transport"
	"paygate/internal/webhook"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	merchant, err := gateway.NewMerchant(cfg.AppID, cfg.MerchantPrivateKey, cfg.ProviderPublicKey, cfg.SignType)
	if err != nil {
		logger.L().Fatal("merchant setup", zap.Error(err))
	}

	client := gateway.NewClient(merchant, cfg.GatewayURL, transport.NewClient(15*time.Second)).
		WithPolling(cfg.PollInterval, cfg.PollCount)

	repo := payment.NewRepository(database)
	svc := payment.NewService(repo)

	apiHandler := api.NewHandler(client, svc, cfg.NotifyURL, cfg.ReturnURL)
	webhookHandler := webhook.NewHandler(client, svc)

	router := setupRouter(apiHandler, webhookHandler, cfg.JWTSecret)

	logger.L().Info("server listening", zap.String("port", cfg.AppPort))
	if err := http.ListenAndServe(":"+cfg.AppPort, router); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

// setupRouter wires routes and the middleware chain. Auth runs before the
// rate limiter so authenticated operators get per-operator buckets.
func setupRouter(apiHandler *api.Handler, webhookHandler *webhook.Handler, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", apiHandler.Healthz)
	mux.HandleFunc("POST /webhook/payment", webhookHandler.PaymentNotification)

	protect := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireOperator(h)
	}
	mux.Handle("POST /api/payments", protect(apiHandler.CreatePayment))
	mux.Handle("POST /api/payments/barcode", protect(apiHandler.CreateBarcodePayment))
	mux.Handle("GET /api/payments/{out_trade_no}", protect(apiHandler.GetPayment))
	mux.Handle("POST /api/payments/{out_trade_no}/refund", protect(apiHandler.RefundPayment))

	var handler http.Handler = mux
	handler = middleware.RateLimitMiddleware(handler)
	handler = middleware.AuthMiddleware(jwtSecret)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}
