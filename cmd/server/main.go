package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	netHttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"online-admission/config"
	"online-admission/db"
	"online-admission/http"
	"online-admission/http/handlers"
	"online-admission/logger"
	"online-admission/repository"
	"online-admission/services"
	"online-admission/services/kafka"
	"online-admission/services/placement"
	"online-admission/services/storage"
)

const dlqRetryInterval = 5 * time.Minute

func main() {
	// Determine project root by searching upward for go.mod
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal("Error getting current working directory:", err)
	}

	absProjectRoot := findProjectRoot(cwd)
	if absProjectRoot == "" {
		log.Fatalf("Could not locate project root (go.mod) from %s", cwd)
	}

	if err := os.Chdir(absProjectRoot); err != nil {
		log.Fatal("Error changing to project root:", err)
	}

	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig
	logger.SetDefault(logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Output: os.Stdout,
		Pretty: cfg.LogPretty,
	}))
	logger.Info("Working directory set to project root: %s", absProjectRoot)

	store, locker, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Error initializing store: %v", err)
	}

	docs, err := storage.New(cfg)
	if err != nil {
		logger.Fatal("Error initializing document storage: %v", err)
	}

	clock := services.NewClock(cfg.TimeAPIURL)
	importer := placement.NewImporter(store,
		placement.WithLocker(locker),
		placement.WithClock(clock),
		placement.WithNotifier(services.NewImportNotifier(store)),
		placement.WithLogger(logger.Default()),
	)

	h := handlers.New(
		services.NewSchoolService(store, docs, importer, clock),
		services.NewStudentService(store, docs, clock),
		services.NewPaymentService(store, cfg),
		cfg.MaxUploadMB,
	)

	// Initialize Kafka (non-fatal)
	kafka.InitProducer()
	kafka.InitDLQProducer()
	services.RegisterEmailProcessor()
	if err := kafka.InitConsumer(cfg.KafkaTopicEmails); err != nil {
		logger.Error("Error initializing Kafka consumer: %v", err)
	}
	kafka.StartConsumer()
	kafka.StartDLQAutoRetry(dlqRetryInterval)

	server := &netHttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           http.NewHandler(h, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, netHttp.ErrServerClosed) {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received, draining requests...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down server: %v", err)
	}

	if err := kafka.StopConsumer(); err != nil {
		logger.Error("Error stopping Kafka consumer: %v", err)
	}
	kafka.StopDLQAutoRetry()
	if err := kafka.Close(); err != nil {
		logger.Error("Error closing Kafka producer: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("Error closing store: %v", err)
	}

	logger.Info("Server shutdown complete")
}

// openStore connects the configured STORE_DRIVER and picks the per-school
// lock that matches it.
func openStore(cfg config.Config) (repository.Store, placement.Locker, error) {
	var locker placement.Locker = placement.NewKeyedMutex()

	switch cfg.StoreDriver {
	case "postgres":
		if err := db.InitDB(); err != nil {
			return nil, nil, err
		}
		kafka.SetDLQStore(kafka.NewPostgresDLQ(db.DB))
		if cfg.SchoolLockMode == "postgres" {
			locker = repository.NewAdvisoryLocker(db.DB)
		}
		return repository.NewPostgres(db.DB), locker, nil
	case "mongo":
		client, err := db.InitMongo(context.Background())
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMongo(client, db.Mongo, cfg.MongoTransactions), locker, nil
	case "memory":
		logger.Warn("Using the in-memory store, data is lost on restart")
		return repository.NewMemory(), locker, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// findProjectRoot walks up from start and returns the first directory containing go.mod
func findProjectRoot(start string) string {
	dir := start
	for {
		// check for go.mod
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		// move up
		parent := filepath.Dir(dir)
		if parent == dir || strings.HasSuffix(dir, ":\\") || parent == "" {
			break
		}
		dir = parent
	}
	return ""
}
