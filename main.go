// File: homely/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homely/clock"
	"homely/config"
	"homely/cron"
	"homely/database"
	bookingRepo "homely/database/repository/booking"
	deviceRepo "homely/database/repository/device"
	providerRepo "homely/database/repository/provider"
	"homely/handlers"
	"homely/routes"
	"homely/services/booking"
	"homely/services/notification"
	"homely/services/payment"
	"homely/services/tasks"
	"homely/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	bkRepo := bookingRepo.NewMongoBookingRepo()
	directory := providerRepo.NewMongoProviderDirectory()
	devices := deviceRepo.NewMongoDeviceTokenRepo()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bkRepo.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}

	// Timer queue client for offer and payment windows.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTimerQueueDB,
	})
	defer asynqClient.Close()
	timerClient := tasks.NewTimerClient(asynqClient)

	notificationService := notification.NewDefaultNotificationService(devices, logger)

	bookingService := &booking.DefaultBookingService{
		Repo:                 bkRepo,
		Directory:            directory,
		Charger:              payment.NewStripeCharger(logger),
		Notifier:             notificationService,
		Timers:               timerClient,
		Clock:                clock.NewSystem(),
		Logger:               logger,
		Cache:                booking.NewRedisSnapshotCache(utils.GetSnapshotCacheClient()),
		CacheTTL:             time.Duration(config.AppConfig.SnapshotCacheTTLSeconds) * time.Second,
		OfferWindow:          time.Duration(config.AppConfig.OfferWindowSeconds) * time.Second,
		InitialPaymentWindow: time.Duration(config.AppConfig.InitialPaymentWindowSeconds) * time.Second,
		Currency:             config.AppConfig.Currency,
	}

	// Background workers: timer callbacks and the reconciliation sweep.
	cron.InitTimerWorker(bookingService)
	poller := &booking.Poller{
		Svc:      bookingService,
		Repo:     bkRepo,
		Clock:    clock.NewSystem(),
		Interval: time.Duration(config.AppConfig.ReconcileIntervalSeconds) * time.Second,
		Logger:   logger,
	}
	go poller.Run(ctx)

	utils.StartHealthMonitor(utils.GetSnapshotCacheClient(), database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	providerHandler := handlers.NewProviderHandler(directory, logger)
	deviceHandler := handlers.NewDeviceHandler(devices, logger)
	routes.RegisterRoutes(router, bookingHandler, providerHandler, deviceHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
