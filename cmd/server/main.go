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

	"github.com/ikkim/bazaar-backend/config"
	"github.com/ikkim/bazaar-backend/internal/app/controller"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	"github.com/ikkim/bazaar-backend/internal/db"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/ikkim/bazaar-backend/internal/router"
	"github.com/ikkim/bazaar-backend/internal/scheduler"
	"github.com/ikkim/bazaar-backend/internal/storage"
	ws "github.com/ikkim/bazaar-backend/internal/websocket"
	"github.com/ikkim/bazaar-backend/pkg/cache"
	"github.com/ikkim/bazaar-backend/pkg/delivery"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/ikkim/bazaar-backend/pkg/notify"
	"github.com/ikkim/bazaar-backend/pkg/redis"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.Config{
		Level:       cfg.Server.LogLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting Bazaar fulfillment server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Server.LogLevel,
	})

	fees, err := deliverySettings(cfg.Delivery)
	if err != nil {
		logger.Fatal("Invalid delivery fee configuration", err)
	}

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if cfg.Server.Environment == "development" {
		if err := db.Seed(); err != nil {
			logger.Warn("Failed to seed database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 중복 발송 방지용 claim 저장소. Redis가 없으면 프로세스 메모리 사용
	var claims service.ClaimStore
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		claims = redis.NewClaimStore(redis.GetClient(), "bazaar:")
	} else {
		claims = cache.NewMemoryClaimStore(cfg.Outbox.DedupTTL, 10*time.Minute)
		logger.Warn("Redis disabled, follow-up claims are kept in memory", nil)
	}

	// Notification gateways: live tracking feed plus email when a relay is configured
	hub := ws.NewHub()
	go hub.Run(ctx)

	gateways := service.MultiNotifier{hub}
	if cfg.Notification.RelayURL != "" {
		mailer, err := notify.NewClient(notify.Config{
			BaseURL: cfg.Notification.RelayURL,
			APIKey:  cfg.Notification.APIKey,
			From:    cfg.Notification.FromEmail,
			Timeout: cfg.Notification.Timeout,
		})
		if err != nil {
			logger.Fatal("Failed to initialize email relay client", err)
		}
		gateways = append(gateways, service.NewEmailNotifier(mailer, cfg.Notification.AdminEmail))
	} else {
		logger.Warn("Email relay not configured, notifications go to the tracking feed only", nil)
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db.GetDB())
	listRepo := repository.NewShoppingListRepository(db.GetDB())
	creditRepo := repository.NewCreditAccountRepository(db.GetDB())
	outboxRepo := repository.NewOutboxRepository(db.GetDB())

	// Initialize services
	dispatcher := service.NewOutboxDispatcher(
		outboxRepo,
		orderRepo,
		service.NewShoppingListSync(listRepo),
		gateways,
		claims,
		service.DispatcherConfig{
			Timeout:     cfg.Outbox.DispatchTimeout,
			MaxAttempts: cfg.Outbox.MaxAttempts,
			BatchSize:   cfg.Outbox.BatchSize,
			ClaimTTL:    cfg.Outbox.DedupTTL,
			Async:       true,
		},
	)
	lifecycle := service.NewOrderLifecycleService(db.GetDB(), orderRepo, creditRepo, outboxRepo, dispatcher)
	checkout := service.NewCheckoutService(db.GetDB(), orderRepo, creditRepo, outboxRepo, dispatcher, fees,
		service.StoreLocation{Latitude: cfg.Delivery.StoreLatitude, Longitude: cfg.Delivery.StoreLongitude})
	refunds := service.NewRefundService(db.GetDB(), orderRepo, outboxRepo, dispatcher)
	replacements := service.NewReplacementService(db.GetDB(), orderRepo, outboxRepo, dispatcher)
	lists := service.NewShoppingListService(db.GetDB(), listRepo, checkout, dispatcher)

	// S3 is optional: without a bucket there are no photo uploads and no ledger archive
	var (
		uploader service.ReportUploader
		photos   controller.PhotoPresigner
		archiver scheduler.LedgerArchiver
	)
	if cfg.S3.Bucket != "" {
		s3Storage := storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
		uploader = s3Storage
		photos = s3Storage
	}
	reports := service.NewReportService(orderRepo, uploader, cfg.S3.ReportPrefix)
	if uploader != nil {
		archiver = reports
	}

	jobs := scheduler.NewFulfillmentScheduler(dispatcher, archiver, scheduler.Schedules{
		OutboxRetry:   cfg.Outbox.RetrySchedule,
		RefundArchive: cfg.S3.ReportSchedule,
	})
	if err := jobs.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", err)
	}
	defer jobs.Stop()

	// Setup router
	r := router.NewRouter(
		controller.NewOrderController(lifecycle, checkout),
		controller.NewRefundController(refunds, lifecycle),
		controller.NewReplacementController(replacements, lifecycle),
		controller.NewShoppingListController(lists, photos),
		controller.NewDeliveryController(checkout),
		controller.NewReportController(reports),
		controller.NewTrackingController(lifecycle, hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.ClientTTL),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
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
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}

// deliverySettings parses the decimal fee settings from the environment
func deliverySettings(cfg config.DeliveryConfig) (delivery.Settings, error) {
	parse := func(name, value string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", name, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("%s must not be negative", name)
		}
		return d, nil
	}

	baseFee, err := parse("DELIVERY_BASE_FEE", cfg.BaseFee)
	if err != nil {
		return delivery.Settings{}, err
	}
	perKm, err := parse("DELIVERY_PER_KM_FEE", cfg.PerKmFee)
	if err != nil {
		return delivery.Settings{}, err
	}
	threshold, err := parse("DELIVERY_FREE_THRESHOLD", cfg.FreeDeliveryThreshold)
	if err != nil {
		return delivery.Settings{}, err
	}

	return delivery.Settings{
		BaseFee:               baseFee,
		BaseDistanceKm:        cfg.BaseDistanceKm,
		PerKmFee:              perKm,
		FreeDeliveryThreshold: threshold,
		MaxDistanceKm:         cfg.MaxDistanceKm,
	}, nil
}
