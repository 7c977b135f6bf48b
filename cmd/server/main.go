package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/controller"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/consumer"
	"github.com/ikkim/udonggeum-storefront/internal/db"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	"github.com/ikkim/udonggeum-storefront/internal/router"
	"github.com/ikkim/udonggeum-storefront/internal/scheduler"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/ikkim/udonggeum-storefront/pkg/payment/kakaopay"
	"github.com/ikkim/udonggeum-storefront/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting UDONGGEUM Storefront", map[string]interface{}{
		"environment":    cfg.Server.Environment,
		"port":           cfg.Server.Port,
		"storage_driver": cfg.Storage.Driver,
		"log_level":      logLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Snapshot store
	snapshots, purger, closeStore := openSnapshotStore(cfg)
	defer closeStore()

	// Storefront API
	apiClient := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		ServiceKey: cfg.API.ServiceKey,
		Timeout:    cfg.API.Timeout,
	})

	// Initialize services
	reconciler := service.NewStockReconciler(apiClient, cfg.Cart.StockCheckTimeout)
	cartService := service.NewCartService(snapshots, reconciler, cfg.Cart.RefreshConcurrency)
	checkoutService := service.NewCheckoutService(cfg.Cart.RefreshBeforeSubmit, paymentProviders(cfg, apiClient)...)
	adminService := service.NewAdminService(apiClient, imagePresigner(ctx, cfg))

	if len(checkoutService.Methods()) == 0 {
		logger.Warn("No payment method is enabled; checkout will reject every submission", nil)
	}

	// Initialize controllers
	cartController := controller.NewCartController(cartService)
	checkoutController := controller.NewCheckoutController(cartService, checkoutService)
	paymentController := controller.NewPaymentController(cartService, checkoutService, cfg.Payment.SuccessPageURL, cfg.Payment.CartPageURL)
	adminController := controller.NewAdminController(adminService)

	// Initialize middleware
	sessionMiddleware := middleware.NewSessionMiddleware(
		cfg.Session.Secret,
		cfg.Session.CookieName,
		cfg.Session.CookieDomain,
		cfg.Session.Secure,
		cfg.Cart.SnapshotTTL,
	)
	authMiddleware := middleware.NewAuthMiddleware(apiClient)

	// Setup router
	r := router.NewRouter(
		cartController,
		checkoutController,
		paymentController,
		adminController,
		sessionMiddleware,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Background jobs
	cleanup := scheduler.NewCartCleanupScheduler(cfg.Scheduler.CleanupSpec, purger, cartService, cfg.Cart.IdleEviction)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cart cleanup scheduler", err)
	}
	defer cleanup.Stop()

	if cfg.Kafka.ConsumerEnabled {
		payments := consumer.NewPaymentConsumer(cartService, cfg.Kafka.Brokers, cfg.Kafka.PaymentTopic, cfg.Kafka.ConsumerGroupID)
		defer payments.Close()
		go payments.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown did not complete", err)
	}
	logger.Info("Server stopped successfully")
}

// openSnapshotStore picks the cart snapshot backend. The returned purger is
// nil for backends that expire entries on their own.
func openSnapshotStore(cfg *config.Config) (storage.SnapshotStore, scheduler.ExpiredPurger, func()) {
	ttl := cfg.Cart.SnapshotTTL

	switch cfg.Storage.Driver {
	case "redis":
		client, err := redis.Init(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		return storage.NewRedisSnapshotStore(client, ttl), nil, func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}

	case "postgres":
		gormDB, err := db.Initialize(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize database", err)
		}
		if err := db.Migrate(gormDB); err != nil {
			logger.Fatal("Failed to run migrations", err)
		}
		store := storage.NewGormSnapshotStore(gormDB, ttl)
		return store, store, func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database connection", err)
			}
		}

	case "memory":
		logger.Warn("Using in-memory cart snapshots; carts are lost on restart", nil)
		store := storage.NewMemorySnapshotStore(ttl)
		return store, store, func() {}
	}

	logger.Fatal("Unknown cart storage driver", fmt.Errorf("driver %q", cfg.Storage.Driver))
	return nil, nil, nil
}

func paymentProviders(cfg *config.Config, apiClient *api.Client) []service.PaymentProvider {
	var providers []service.PaymentProvider

	if kp := cfg.Payment.KakaoPay; kp.Enabled {
		client, err := kakaopay.NewClient(kakaopay.Config{
			AdminKey:    kp.AdminKey,
			CID:         kp.CID,
			BaseURL:     kp.BaseURL,
			ApprovalURL: kp.ApprovalURL,
			FailURL:     kp.FailURL,
			CancelURL:   kp.CancelURL,
		})
		if err != nil {
			logger.Warn("Kakao Pay disabled: invalid configuration", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			providers = append(providers, service.NewKakaoPayProvider(client))
		}
	}

	if card := cfg.Payment.Card; card.Enabled {
		providers = append(providers, service.NewCardProvider(apiClient, card.SuccessURL, card.FailURL))
	}

	return providers
}

func imagePresigner(ctx context.Context, cfg *config.Config) service.ImagePresigner {
	if cfg.S3.AccessKeyID == "" || cfg.S3.Bucket == "" {
		logger.Info("S3 credentials not set; product image upload disabled", nil)
		return nil
	}
	return storage.NewS3Storage(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
}
