package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"billing-service/internal/config"
	"billing-service/internal/database/minio"
	"billing-service/internal/database/postgres"
	"billing-service/internal/database/redis"
	"billing-service/internal/event"
	"billing-service/internal/handlers"
	"billing-service/internal/repository"
	"billing-service/internal/services"
	"billing-service/internal/worker"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/atlas", "log", "billing_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, file), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()

	slog.Info("Connecting to PostgreSQL",
		"host", cfg.PostgresCfg.Host,
		"port", cfg.PostgresCfg.Port,
		"user", cfg.PostgresCfg.Username,
		"dbname", cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		slog.Error("failed to connect to database, retrying until available", "error", err)
		postgres.RetryConnectOnFailed(10*time.Second, &db, cfg.PostgresCfg)
	}
	defer db.Close()

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}
	defer minioClient.Close()

	redisClient, err := redis.NewRedisClient(
		cfg.RedisCfg.Host,
		cfg.RedisCfg.Port,
		cfg.RedisCfg.Password,
		cfg.RedisCfg.DB,
	)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	transport, err := event.ConnectTransport(cfg.RabbitMQCfg)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer transport.Close()

	// Storage and pipeline wiring
	policyRepo := repository.NewPolicyRepository(db)
	userRepo := repository.NewUserRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	stats := services.NewPipelineStats()
	calculator := services.NewProrationCalculator()
	renderer := services.NewInvoicePDFRenderer(cfg.BillingCfg.CompanyName)
	documents := services.NewInvoiceDocumentService(minioClient, cfg.BillingCfg.InvoiceBucket)

	generator := services.NewInvoiceGenerator(policyRepo, userRepo, invoiceRepo,
		renderer, documents, cfg.BillingCfg.CompanyName, cfg.BillingCfg.InvoiceDueDays)
	issuer := services.WithIssuerInstrumentation(generator, stats)

	publisher := event.NewPublisher(transport)
	sender := services.WithSenderInstrumentation(publisher, stats)

	orchestrator := services.NewBillingOrchestrator(policyRepo, issuer, sender,
		calculator, cfg.BillingCfg.NotificationQueue)
	pipeline := services.WithPipelineInstrumentation(orchestrator, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queue consumer for on-demand billing requests
	consumer := event.NewBillingRequestConsumer(transport, pipeline, cfg.BillingCfg)
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start billing request consumer: %v", err)
	}
	defer consumer.Close()

	// Worker pool plus the monthly schedule
	var poolWg sync.WaitGroup
	pool := worker.NewWorkingPool(cfg.BillingCfg.WorkerCount, cfg.BillingCfg.JobQueueSize)
	poolWg.Add(1)
	go pool.Start(ctx, &poolWg)

	scheduler := worker.NewBillingScheduler(pipeline, pool, redis.NewBatchLock(redisClient), cfg.BillingCfg)
	go scheduler.Run(ctx)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Billing service is healthy")
	})

	billingHandler := handlers.NewBillingHandler(pipeline, publisher, invoiceRepo,
		documents, stats, cfg.BillingCfg)
	billingHandler.Register(app)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-shutdownChan
	slog.Info("Shutting down billing service")
	cancel()
	poolWg.Wait()

	if err := app.Shutdown(); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}
}
