package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/app"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/handler"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	internalRedis "github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository/postgres"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, worker := wireServer(db, redisClient, nrApp, cfg)

	// Start the async processor.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Start(workerCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// background task worker.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.Worker) {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	taskQueue := internalRedis.NewTaskQueue(redisClient)
	broadcaster := internalRedis.NewBroadcaster(redisClient)

	// Initialize repositories.
	transactionRepo := postgres.NewTransactionRepository(db)

	// Initialize provider gateways.
	registry := provider.NewRegistry(
		provider.NewMTNGateway(cfg.MTN),
		provider.NewAirtelGateway(cfg.Airtel),
	)

	// Initialize event sinks.
	notifier := service.LogNotificationSink{}
	analytics := service.LogEventSink{}
	alerter := service.LogAlerter{}

	// Initialize services.
	engine := service.NewEngine(
		&cfg.Payment, transactionRepo, registry,
		cacheStore, lockStore, taskQueue, broadcaster,
		notifier, analytics, alerter,
	)
	paymentService := service.NewPaymentService(
		&cfg.Payment, transactionRepo, registry,
		cacheStore, taskQueue, engine, notifier, analytics,
	)
	worker := service.NewWorker(&cfg.Payment, transactionRepo, taskQueue, lockStore, engine)

	// Initialize handlers.
	paymentHandler := handler.NewPaymentHandler(paymentService)
	webhookHandler := handler.NewWebhookHandler(engine, cfg.Payment.WebhookSecret)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		PaymentHandler: paymentHandler,
		WebhookHandler: webhookHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, worker
}
