package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/marketplace-payments/api/controllers"
	"github.com/angelmondragon/marketplace-payments/api/routes"
	"github.com/angelmondragon/marketplace-payments/internal/checkout"
	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/internal/gateway/processors"
	"github.com/angelmondragon/marketplace-payments/internal/orders"
	"github.com/angelmondragon/marketplace-payments/internal/payments"
	"github.com/angelmondragon/marketplace-payments/internal/pricing"
	"github.com/angelmondragon/marketplace-payments/internal/sellers"
	"github.com/angelmondragon/marketplace-payments/internal/shipments"
	"github.com/angelmondragon/marketplace-payments/internal/webhooks"
	"github.com/angelmondragon/marketplace-payments/pkg/config"
	"github.com/angelmondragon/marketplace-payments/pkg/db"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/metrics"
	"github.com/angelmondragon/marketplace-payments/pkg/migrate"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
	"github.com/angelmondragon/marketplace-payments/pkg/pubsub"
	"github.com/angelmondragon/marketplace-payments/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ready := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}
	if strings.TrimSpace(cfg.GCP.ProjectID) != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		ready["pubsub"] = pubsubClient
	}

	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	paymentSvc, err := payments.NewService(dbClient, payments.NewRepository(conn), outboxSvc, logg)
	if err != nil {
		return err
	}
	sellerSvc, err := sellers.NewService(dbClient, sellers.NewRepository(conn))
	if err != nil {
		return err
	}
	pricingSvc, err := pricing.NewService(dbClient, pricing.NewRepository(conn))
	if err != nil {
		return err
	}
	shipmentSvc, err := shipments.NewService(shipments.NewRepository(conn), logg)
	if err != nil {
		return err
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn))
	if err != nil {
		return err
	}

	processor, err := processors.New(ctx, cfg, logg)
	if err != nil {
		return err
	}
	gatewaySvc, err := gateway.NewService(gateway.ServiceParams{
		Processor: processor,
		Payments:  paymentSvc,
		Sellers:   sellerSvc,
		Timeout:   cfg.Gateway.Timeout,
		Metrics:   metrics.NewGatewayMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	var checkoutSvc checkout.Service
	if strings.TrimSpace(cfg.PayPal.ClientID) != "" {
		checkoutSvc, err = checkout.NewService(orderSvc, checkout.Preferences{
			ClientID:               cfg.PayPal.ClientID,
			DisplayCreditMessaging: cfg.FeatureFlags.DisplayCreditMessaging,
		})
		if err != nil {
			return err
		}
	}

	var paypalExec *paypal.HTTPExecutor
	if strings.TrimSpace(cfg.PayPal.WebhookID) != "" {
		paypalExec, err = paypal.NewHTTPExecutor(ctx, cfg.PayPal, cfg.Gateway.Timeout)
		if err != nil {
			return err
		}
	}

	reconciler, err := webhooks.NewReconciler(paymentSvc, shipmentSvc, logg)
	if err != nil {
		return err
	}
	guard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL)
	if err != nil {
		return err
	}
	webhookSvc, err := webhooks.NewService(webhooks.ServiceParams{
		Reconciler: reconciler,
		Guard:      guard,
		DB:         dbClient,
		Outbox:     outboxSvc,
		Metrics:    metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"processor": string(processor.Name()),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:      cfg,
			Logger:      logg,
			Ready:       ready,
			Idempotency: redisClient,
			Payments:    paymentSvc,
			Gateway:     gatewaySvc,
			Sellers:     sellerSvc,
			Pricing:     pricingSvc,
			Shipments:   shipmentSvc,
			Checkout:    checkoutSvc,
			Webhooks:    webhookSvc,
			PayPal:      paypalExec,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
