package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lc3lx/backend-zouhal/api/routes"
	"github.com/lc3lx/backend-zouhal/internal/carts"
	"github.com/lc3lx/backend-zouhal/internal/exchangerates"
	"github.com/lc3lx/backend-zouhal/internal/inventory"
	"github.com/lc3lx/backend-zouhal/internal/orders"
	"github.com/lc3lx/backend-zouhal/internal/products"
	"github.com/lc3lx/backend-zouhal/internal/rechargecodes"
	"github.com/lc3lx/backend-zouhal/internal/settlement"
	"github.com/lc3lx/backend-zouhal/internal/wallet"
	stripewebhook "github.com/lc3lx/backend-zouhal/internal/webhooks/stripe"
	"github.com/lc3lx/backend-zouhal/pkg/config"
	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
	"github.com/lc3lx/backend-zouhal/pkg/metrics"
	"github.com/lc3lx/backend-zouhal/pkg/migrate"
	"github.com/lc3lx/backend-zouhal/pkg/redis"
	"github.com/lc3lx/backend-zouhal/pkg/stripe"
)

const webhookEventTTL = 7 * 24 * time.Hour

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var stripeClient *stripe.Client
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe api key not set, card payments disabled")
	}

	registry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	cartRepo := carts.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	stock := inventory.NewManager()

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo, dbClient, stock, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	rechargeService, err := rechargecodes.NewService(rechargecodes.NewRepository(dbClient.DB()), dbClient, walletService, cfg.RechargeCodes)
	if err != nil {
		logg.Error(context.Background(), "failed to create recharge code service", err)
		os.Exit(1)
	}

	ratesService, err := exchangerates.NewService(exchangerates.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange rate service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(
		cartRepo,
		productRepo,
		orderRepo,
		stock,
		walletService,
		dbClient,
		cfg.Pricing,
		settlement.NewStripeCheckoutClient(stripeClient),
		settlementMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(settlementService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookEventTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			settlementService,
			ordersService,
			walletService,
			rechargeService,
			ratesService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
