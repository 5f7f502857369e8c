package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/admin"
	"storefront/internal/archive"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/orders"
	"storefront/internal/remote"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Money is served as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Order log: the durable system of record
	orderLog, closeLog, err := openOrderLog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize order log: %w", err)
	}
	defer closeLog()

	// Cart session snapshots
	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cart sessions: %w", err)
	}
	defer closeSnapshots()

	// Remote catalogue API
	api := remote.New(remote.Config{
		BaseURL:         cfg.Remote.BaseURL,
		Timeout:         cfg.Remote.Timeout,
		BreakerFailures: uint32(cfg.Remote.BreakerFailures),
		BreakerCooldown: cfg.Remote.BreakerCooldown,
	}, nil, m, logger)

	// Order archive with S3 and local fallback
	archiveStore := openArchiveStore(ctx, cfg, logger)

	// Initialize services
	catalogService := catalog.NewService(api.Products, logger)
	checkoutService := checkout.NewService(checkout.Config{
		TaxRate:     cfg.Checkout.TaxRate,
		ShippingFee: cfg.Checkout.ShippingFee,
	}, api.Products, orderLog, api.Orders, m, logger)

	customerOrders := orders.NewReadModel(orderLog, api.Orders, model.StrictTransitions, m, logger)
	adminPolicy := model.AnyTransition
	if cfg.Admin.StrictTransitions {
		adminPolicy = model.StrictTransitions
	}
	adminOrders := orders.NewReadModel(orderLog, api.Orders, adminPolicy, m, logger)

	cartService := service.NewCartService(cart.NewSessions(snapshots, logger), catalogService, checkoutService, logger)
	orderService := service.NewOrderService(customerOrders, logger)
	adminService := admin.NewService(api.Products, api.Users, adminOrders, cfg.Checkout.LowStockThreshold, logger)
	archiver := archive.NewArchiver(orderLog, archiveStore, m, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(catalogService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Admin:    handler.NewAdminHandler(adminService, archiver, logger),
	}, cfg.Auth.APIKey, reg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("remote_api", cfg.Remote.BaseURL).
			Str("order_log", cfg.OrderLog.Driver).
			Str("sessions", cfg.Session.Driver).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func openOrderLog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.OrderLog, func(), error) {
	if cfg.OrderLog.Driver == "memory" {
		logger.Warn().Msg("using in-memory order log, orders are lost on restart")
		return repository.NewMemoryOrderLog(), func() {}, nil
	}

	pool, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewOrderRepository(pool, logger), pool.Close, nil
}

func openSnapshots(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cart.SnapshotStore, func(), error) {
	if cfg.Session.Driver != "redis" {
		return cart.NewMemorySnapshots(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
	}

	logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Session.TTL).Msg("cart snapshots stored in redis")
	return cart.NewRedisSnapshots(client, cfg.Session.TTL), func() { client.Close() }, nil
}

func openArchiveStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) archive.Store {
	local := archive.NewLocalStore(cfg.Archive.Dir, logger)
	if !cfg.S3.Enabled {
		logger.Info().Str("dir", cfg.Archive.Dir).Msg("using local file system for order archives (S3 disabled)")
		return local
	}

	s3Store, err := archive.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 archive store, falling back to local file system only")
		return local
	}
	return archive.NewFallbackStore(s3Store, local, true, logger)
}
