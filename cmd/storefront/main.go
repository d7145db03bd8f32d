package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/domain"
	api "storefront/internal/http"
	"storefront/internal/http/middleware"
	"storefront/internal/logging"
	"storefront/internal/notify"
	"storefront/internal/repo"
	"storefront/internal/service"
	"storefront/internal/telemetry"
	"storefront/internal/worker"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and <env>.yaml")
	flag.Parse()

	if err := run(*configDir); err != nil {
		slog.Error("storefront stopped", "err", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	cfg, err := config.Load(configDir, env("APP_ENV", "local"))
	if err != nil {
		return err
	}
	logging.Init(cfg.App.Name, cfg.App.LogLevel, cfg.App.LogFile)
	log := logging.New("main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.App.Name, cfg.Tracing.Enabled, cfg.Tracing.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store, err := database.Open(ctx, cfg, logging.New("database"))
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}
	db := store.DB()

	// Repositories
	products := repo.NewProductRepo(db)
	categories := repo.NewCategoryRepo(db)
	cartRepo := repo.NewCartRepo(db)
	orderRepo := repo.NewOrderRepo(db)
	watchlistRepo := repo.NewWatchlistRepo(db)
	reviewRepo := repo.NewReviewRepo(db)
	users := repo.NewUserRepo(db)
	admins := repo.NewAdminRepo(db)

	// Realtime fan-out
	metrics := notify.NewMetrics(prometheus.DefaultRegisterer)
	hub := notify.NewHub(logging.New("notify"), metrics)
	go hub.Run(ctx)

	var notifier notify.Notifier = hub
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		relay := notify.NewRedisRelay(rdb, cfg.Redis.Channel, hub, logging.New("relay"))
		notifier = relay
		go relay.Run(ctx)
	}

	// Services
	limits := service.PageLimits{Default: cfg.Search.DefaultPageSize, Max: cfg.Search.MaxPageSize}
	catalog := service.NewCatalogService(products, categories, limits)
	cart := service.NewCartService(cartRepo, products, logging.New("cart"))
	orders := service.NewOrderService(repo.NewTransactor(db), orderRepo, products, cartRepo, notifier, service.OrderOptions{
		Rules:        cfg.CheckoutRules(),
		Policy:       domain.NewTransitionPolicy(cfg.Orders.StrictTransitions),
		StrictTotals: cfg.Checkout.StrictTotals,
		Limits:       limits,
	}, logging.New("orders"))
	watchlist := service.NewWatchlistService(watchlistRepo, products, cart)
	reviews := service.NewReviewService(reviewRepo, products, users, limits)
	content := service.NewContentService(repo.NewBannerRepo(db), repo.NewSubscriberRepo(db), repo.NewContactRepo(db), limits)
	auth := service.NewAuthService(users, admins, service.TokenConfig{
		Secret:   cfg.Security.JWTSecret,
		Issuer:   cfg.Security.Issuer,
		TTL:      cfg.Security.TTL,
		AdminTTL: cfg.Security.AdminTTL,
	})
	admin := service.NewAdminService(users, products, orderRepo, limits)

	reconciler := worker.NewReconciliationWorker(orderRepo, orders, cfg.Orders.PaymentTimeout, cfg.Orders.SweepInterval, logging.New("worker"))
	go reconciler.Run(ctx)

	router := api.NewRouter(api.RouterDeps{
		Log:            logging.New("http"),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Authn:          middleware.NewAuthn(auth),
		Health:         store,
		Realtime: notify.NewWSServer(hub, auth, notify.WSOptions{
			AllowedOrigins:     cfg.CORS.AllowedOrigins,
			AllowAnonymousJoin: cfg.Realtime.AllowAnonymousJoin,
			SendBuffer:         cfg.Realtime.SendBuffer,
		}, metrics, logging.New("ws")),
		Auth:      api.NewAuthHandler(auth, admin),
		Catalog:   api.NewCatalogHandler(catalog),
		Cart:      api.NewCartHandler(cart),
		Orders:    api.NewOrderHandler(orders),
		Watchlist: api.NewWatchlistHandler(watchlist),
		Reviews:   api.NewReviewHandler(reviews),
		Content:   api.NewContentHandler(content),
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      telemetry.Handler(router, cfg.App.Name),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", cfg.App.HTTPAddr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	log.Info("storefront shutdown complete")
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
