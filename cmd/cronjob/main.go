package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"rental-modification-backend/internal/config"
	"rental-modification-backend/internal/jobs"
	"rental-modification-backend/internal/lock"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/payment"
	"rental-modification-backend/internal/repository/postgres"
	"rental-modification-backend/internal/scheduler"
	"rental-modification-backend/internal/service"
	"rental-modification-backend/internal/shipment"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'auto-complete-early-returns', 'sync-shipment-signals', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Modification Cronjob Runner...", "log_level", cfg.Log.Level)

	if cfg.Database.Type != "postgres" {
		log.Fatalf("The cronjob runner needs a shared database; database type %q runs its sweeps inside the server", cfg.Database.Type)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Jobs mutate the same sub-orders as the API, so they must share its lock.
	if cfg.Redis.Addr == "" {
		log.Fatalf("The cronjob runner needs redis.addr to share the sub-order lock with the server")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	locker := lock.NewRedisLocker(client,
		time.Duration(cfg.Redis.LockTTLMillis)*time.Millisecond,
		time.Duration(cfg.Redis.LockWaitMs)*time.Millisecond)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Error("Failed to ping redis", "error", err)
		log.Fatalf("Failed to ping redis: %v", err)
	}

	// Initialize Services
	var gateway *payment.RazorpayProcessor
	if cfg.Payment.RazorpayKey != "" {
		gateway = payment.NewRazorpayProcessor(cfg.Payment.RazorpayKey, cfg.Payment.RazorpaySecret, cfg.Payment.Currency)
	}
	payments := payment.NewRouter(payment.NewWalletProcessor(store.WalletRepository), gateway)

	var email service.EmailSender
	if cfg.SendGrid.APIKey != "" {
		email = service.NewSendGridEmailSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	}
	notifier := service.NewNotifier(store.NotificationRepository, store.UserRepository, email)

	earlyReturnService := service.NewEarlyReturnService(
		store.Transactor,
		store.RentalAgreementRepository,
		store.EarlyReturnRepository,
		store.ExtensionRepository,
		store.UserRepository,
		locker,
		payments,
		shipment.NewPostgresTracker(db),
		shipment.NewFlatRateQuoter(cfg.Shipping.ReturnAddressChangeFee, cfg.Shipping.CrossRegionSurcharge),
		notifier,
	)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.EarlyReturnRepository, earlyReturnService, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "auto-complete-early-returns":
		jobRunner.AutoCompleteEarlyReturns()
	case "sync-shipment-signals":
		jobRunner.SyncShipmentSignals()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - auto-complete-early-returns\n")
		fmt.Printf("  - sync-shipment-signals\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
