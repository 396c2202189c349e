package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketplace-payments/api/controllers"
	checkoutcontrollers "github.com/angelmondragon/marketplace-payments/api/controllers/checkout"
	paymentcontrollers "github.com/angelmondragon/marketplace-payments/api/controllers/payments"
	pricingcontrollers "github.com/angelmondragon/marketplace-payments/api/controllers/pricing"
	sellercontrollers "github.com/angelmondragon/marketplace-payments/api/controllers/sellers"
	shipmentcontrollers "github.com/angelmondragon/marketplace-payments/api/controllers/shipments"
	webhookcontrollers "github.com/angelmondragon/marketplace-payments/api/controllers/webhooks"
	"github.com/angelmondragon/marketplace-payments/api/middleware"
	"github.com/angelmondragon/marketplace-payments/internal/checkout"
	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/internal/payments"
	"github.com/angelmondragon/marketplace-payments/internal/pricing"
	"github.com/angelmondragon/marketplace-payments/internal/sellers"
	"github.com/angelmondragon/marketplace-payments/internal/shipments"
	"github.com/angelmondragon/marketplace-payments/internal/webhooks"
	"github.com/angelmondragon/marketplace-payments/pkg/config"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
	pkgredis "github.com/angelmondragon/marketplace-payments/pkg/redis"
)

// Dependencies are the services the HTTP API routes to. Nil services make
// their endpoints answer 500.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Ready       map[string]controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Payments    payments.Service
	Gateway     gateway.Service
	Sellers     sellers.Service
	Pricing     pricing.Service
	Shipments   shipments.Service
	Checkout    checkout.Service
	Webhooks    *webhooks.Service
	PayPal      *paypal.HTTPExecutor
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, deps.Ready))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var receiver webhookcontrollers.DeliveryReceiver
	if deps.Webhooks != nil {
		receiver = deps.Webhooks
	}
	var paypalExec webhookcontrollers.PayPalExecutor
	if deps.PayPal != nil {
		paypalExec = deps.PayPal
	}
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paypal", webhookcontrollers.PayPalWebhook(receiver, paypalExec, cfg.PayPal.WebhookID, logg))
		r.Post("/square", webhookcontrollers.SquareWebhook(receiver, cfg.Square, logg))
	})

	r.Get("/api/v1/orders/{orderId}/checkout/sdk-url", checkoutcontrollers.SDKURL(deps.Checkout, logg))

	// Groups, not sub-routers: idempotency keys on the full route pattern,
	// which chi only knows once the endpoint is matched.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/api/v1/payments/{paymentId}/authorize", paymentcontrollers.Authorize(deps.Payments, deps.Gateway, logg))
		r.Post("/api/v1/payments/{paymentId}/capture", paymentcontrollers.Capture(deps.Payments, deps.Gateway, logg))
		r.Post("/api/v1/payments/{paymentId}/void", paymentcontrollers.Void(deps.Payments, deps.Gateway, logg))
		r.Post("/api/v1/payments/{paymentId}/purchase", paymentcontrollers.Purchase(deps.Payments, deps.Gateway, logg))
		r.Post("/api/v1/payments/{paymentId}/sync", paymentcontrollers.Sync(deps.Payments, deps.Gateway, logg))
		r.Post("/api/v1/payments/{paymentId}/refunds", paymentcontrollers.Refund(deps.Payments, deps.Gateway, logg))
		r.Post("/api/v1/sellers", sellercontrollers.Create(deps.Sellers, logg))
		r.Post("/api/v1/shipments/{shipmentId}/cancel", shipmentcontrollers.Cancel(deps.Shipments, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleSeller))

		r.Get("/api/v1/prices/{priceId}/seller-stock", pricingcontrollers.GetSellerStock(deps.Pricing, logg))
		r.Put("/api/v1/prices/{priceId}/seller-stock", pricingcontrollers.UpdateSellerStock(deps.Pricing, logg))
	})

	return r
}
