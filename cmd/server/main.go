package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	httpapi "rental-modification-backend/internal/api/http"
	"rental-modification-backend/internal/config"
	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/jobs"
	"rental-modification-backend/internal/lock"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/payment"
	"rental-modification-backend/internal/repository"
	"rental-modification-backend/internal/repository/memory"
	"rental-modification-backend/internal/repository/postgres"
	"rental-modification-backend/internal/scheduler"
	"rental-modification-backend/internal/security"
	"rental-modification-backend/internal/service"
	"rental-modification-backend/internal/shipment"
)

type shipmentStore interface {
	service.ShipmentStatusReader
	httpapi.ShipmentRecorder
}

// backend is the storage the services run against.
type backend struct {
	tx           repository.Transactor
	agreements   repository.RentalAgreementRepository
	earlyReturns repository.EarlyReturnRepository
	extensions   repository.ExtensionRepository
	users        repository.UserRepository
	notes        repository.NotificationRepository
	wallets      repository.WalletRepository
	shipments    shipmentStore
	close        func()
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Modification Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())

	store, err := openBackend(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "type", cfg.Database.Type, "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.close()

	// Sub-order lock
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Error("Failed to ping redis", "addr", cfg.Redis.Addr, "error", err)
			log.Fatalf("Failed to ping redis: %v", err)
		}
		locker = lock.NewRedisLocker(client,
			time.Duration(cfg.Redis.LockTTLMillis)*time.Millisecond,
			time.Duration(cfg.Redis.LockWaitMs)*time.Millisecond)
		logger.Info("Using redis sub-order lock", "addr", cfg.Redis.Addr)
	} else {
		logger.Warn("Using in-process sub-order lock; run a single replica only")
	}

	// Payments
	var gateway *payment.RazorpayProcessor
	if cfg.Payment.RazorpayKey != "" {
		gateway = payment.NewRazorpayProcessor(cfg.Payment.RazorpayKey, cfg.Payment.RazorpaySecret, cfg.Payment.Currency)
	} else {
		logger.Warn("Razorpay is not configured; gateway payments will fail")
	}
	payments := payment.NewRouter(payment.NewWalletProcessor(store.wallets), gateway)

	// Notifications
	var email service.EmailSender
	if cfg.SendGrid.APIKey != "" {
		email = service.NewSendGridEmailSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Warn("SendGrid is not configured; notifications are stored but not emailed")
	}
	notifier := service.NewNotifier(store.notes, store.users, email)

	policy := service.Policy{
		FallbackDailyRate: domain.Amount(cfg.Pricing.FallbackDailyRate),
		CaptureOnApprove:  make(map[domain.PaymentMethod]bool),
	}
	for method, capture := range cfg.CapturePolicy() {
		policy.CaptureOnApprove[domain.PaymentMethod(method)] = capture
	}

	// Initialize Services
	quoter := shipment.NewFlatRateQuoter(cfg.Shipping.ReturnAddressChangeFee, cfg.Shipping.CrossRegionSurcharge)
	earlyReturnSvc := service.NewEarlyReturnService(store.tx, store.agreements, store.earlyReturns, store.extensions,
		store.users, locker, payments, store.shipments, quoter, notifier)
	extensionSvc := service.NewExtensionService(store.tx, store.agreements, store.extensions, store.earlyReturns,
		locker, payments, notifier, policy)
	querySvc := service.NewQueryService(store.agreements, store.earlyReturns, store.extensions)
	noteSvc := service.NewNotificationService(store.notes)

	// The cronjob binary cannot see an in-process store, so the sweeps run here.
	if cfg.Database.Type == "memory" {
		cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(store.earlyReturns, earlyReturnSvc, cfg))
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	// Initialize HTTP handlers
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)
	router := httpapi.NewRouter(httpapi.Handlers{
		EarlyReturns: httpapi.NewEarlyReturnHandler(earlyReturnSvc, querySvc),
		Extensions:   httpapi.NewExtensionHandler(extensionSvc, querySvc),
		SubOrders:    httpapi.NewSubOrderHandler(querySvc, noteSvc),
		Shipments:    httpapi.NewShipmentHandler(store.shipments, earlyReturnSvc),
	}, httpapi.NewAuthMiddleware(tokenManager))

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to serve HTTP", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

func openBackend(cfg *config.Config) (*backend, error) {
	if cfg.Database.Type == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		if cfg.Database.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.Database.SeedFile); err != nil {
				return nil, err
			}
			logger.Info("Loaded seed data", "file", cfg.Database.SeedFile)
		}
		return &backend{
			tx:           store.Transactor(),
			agreements:   store.Agreements(),
			earlyReturns: store.EarlyReturns(),
			extensions:   store.Extensions(),
			users:        store.Users(),
			notes:        store.Notifications(),
			wallets:      store.Wallets(),
			shipments:    shipment.NewMemoryTracker(),
			close:        func() {},
		}, nil
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(context.Background(), db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	store := postgres.NewStore(db)
	return &backend{
		tx:           store.Transactor,
		agreements:   store.RentalAgreementRepository,
		earlyReturns: store.EarlyReturnRepository,
		extensions:   store.ExtensionRepository,
		users:        store.UserRepository,
		notes:        store.NotificationRepository,
		wallets:      store.WalletRepository,
		shipments:    shipment.NewPostgresTracker(db),
		close:        func() { db.Close() },
	}, nil
}
