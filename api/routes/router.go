package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lc3lx/backend-zouhal/api/controllers"
	webhookcontrollers "github.com/lc3lx/backend-zouhal/api/controllers/webhooks"
	"github.com/lc3lx/backend-zouhal/api/middleware"
	"github.com/lc3lx/backend-zouhal/internal/exchangerates"
	"github.com/lc3lx/backend-zouhal/internal/orders"
	"github.com/lc3lx/backend-zouhal/internal/rechargecodes"
	"github.com/lc3lx/backend-zouhal/internal/settlement"
	"github.com/lc3lx/backend-zouhal/internal/wallet"
	stripewebhook "github.com/lc3lx/backend-zouhal/internal/webhooks/stripe"
	"github.com/lc3lx/backend-zouhal/pkg/config"
	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
	"github.com/lc3lx/backend-zouhal/pkg/redis"
	"github.com/lc3lx/backend-zouhal/pkg/stripe"
)

const (
	rechargeRateLimit  = 10
	rechargeRateWindow = time.Minute
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database *db.Client,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	settlementService settlement.Service,
	ordersService orders.Service,
	walletService wallet.Service,
	rechargeService rechargecodes.Service,
	ratesService exchangerates.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1/exchange-rates", func(r chi.Router) {
		r.Get("/current", controllers.CurrentRate(ratesService, logg))
		r.Get("/convert", controllers.ConvertAmount(ratesService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireAnyRole(logg, enums.RoleAdmin))
			r.Get("/", controllers.ListRates(ratesService, logg))
			r.Get("/history", controllers.RateHistory(ratesService, logg))
			r.Post("/", controllers.UpsertRate(ratesService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		// The first path segment under /orders is a cart id on POST and
		// an order id elsewhere; chi requires one wildcard name per
		// position, so both go by {id}.
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Post("/{id}", controllers.CreateCashOrder(settlementService, logg))
			r.Post("/transfer/{cartId}", controllers.CreateTransferOrder(settlementService, logg))
			r.Post("/wallet/{cartId}", controllers.CreateWalletOrder(settlementService, logg))
			r.Get("/checkout-session/{cartId}", controllers.CreateCheckoutSession(settlementService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, enums.RoleAdmin))
				r.Get("/transfer/pending", controllers.ListPendingTransfers(ordersService, logg))
				r.Put("/{id}/approve-payment", controllers.ApproveTransferPayment(ordersService, logg))
				r.Put("/{id}/reject-payment", controllers.RejectTransferPayment(ordersService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, enums.RoleAdmin, enums.RoleManager))
				r.Put("/{id}/pay", controllers.MarkOrderPaid(ordersService, logg))
				r.Put("/{id}/deliver", controllers.MarkOrderDelivered(ordersService, logg))
			})

			r.Get("/{id}", controllers.GetOrder(ordersService, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.GetWallet(walletService, logg))
			r.Post("/", controllers.CreateWallet(walletService, logg))
			r.Get("/balance", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
			r.With(middleware.RateLimit(redisClient, "recharge", rechargeRateLimit, rechargeRateWindow, logg)).
				Post("/recharge", controllers.RechargeWallet(rechargeService, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, enums.RoleAdmin))
				r.Get("/all", controllers.AdminListWallets(walletService, logg))
				r.Get("/{userId}", controllers.AdminGetWallet(walletService, logg))
				r.Put("/{userId}/adjust", controllers.AdminAdjustWallet(walletService, logg))
			})
		})

		r.Route("/recharge-codes", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, enums.RoleAdmin))
			r.Post("/", controllers.GenerateCodes(rechargeService, logg))
			r.Get("/", controllers.ListCodes(rechargeService, logg))
			r.Get("/stats", controllers.CodeStats(rechargeService, logg))
			r.Post("/bulk-delete", controllers.BulkDeleteCodes(rechargeService, logg))
			r.Post("/purge-expired", controllers.PurgeExpiredCodes(rechargeService, logg))
			r.Get("/{id}", controllers.GetCode(rechargeService, logg))
			r.Delete("/{id}", controllers.DeleteCode(rechargeService, logg))
		})
	})

	return r
}
