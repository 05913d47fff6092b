package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/importer"
	"catalog-service/internal/jobs"
	"catalog-service/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Catalog Import API
// @version 1.0.0
// @description Bulk catalog ingestion from CSV and Excel files

// @host localhost:8087
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	backend, err := config.OpenCatalogStore(rootCtx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to catalog store:", err)
	}
	defer backend.Close()

	checks := map[string]handlers.Pinger{
		"catalog_store": backend.Ping,
	}

	// Redis backs async jobs and checkpoints; without it only synchronous imports run
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (async imports disabled)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (async imports disabled)", err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
			checks["redis"] = func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}
		}
		cancel()
	}

	source := importer.RoutingSource{Local: importer.LocalSource{}}
	s3Client, err := config.NewS3Client(rootCtx, cfg)
	if err != nil {
		log.Printf("WARNING: %v (s3:// imports disabled)", err)
	} else {
		source.S3 = importer.S3Source{Client: s3Client}
	}

	importerOpts := []importer.Option{
		importer.WithSource(source),
		importer.WithLogger(logger),
	}
	var checkpoints importer.Checkpointer
	if redisClient != nil {
		checkpoints = importer.NewRedisCheckpointer(redisClient)
		importerOpts = append(importerOpts, importer.WithCheckpointer(checkpoints))
	}
	catalogImporter := importer.New(backend.Store, importerOpts...)

	// Initialize event publisher only if NATS_URL is set
	var publisher jobs.EventPublisher
	if cfg.NATSURL != "" {
		eventsPublisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
			publisher = eventsPublisher
			defer eventsPublisher.Close()
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}

	var jobQueue handlers.JobQueue
	var worker *jobs.Worker
	if redisClient != nil {
		jobStore := jobs.NewStore(redisClient)
		jobQueue = jobStore
		worker = jobs.NewWorker(jobStore, catalogImporter, jobs.WorkerConfig{
			Publisher:   publisher,
			Checkpoints: checkpoints,
			Concurrency: cfg.ImportWorkers,
			SampleLimit: cfg.ImportSampleLimit,
			StorageDir:  cfg.BulkStorageDir,
		}, logger)
		worker.Start(rootCtx)
		log.Printf("✓ Import worker started (%d workers)", cfg.ImportWorkers)
	}

	importHandler := handlers.NewImportHandler(catalogImporter, jobQueue, cfg.BulkStorageDir, cfg.ImportSampleLimit, logger)
	healthHandler := handlers.NewHealthHandler(checks)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)

	api := router.Group("/api/v1")
	{
		catalog := api.Group("/catalog")
		catalog.GET("/import/template", importHandler.GetImportTemplate)
		catalog.POST("/import", importHandler.ImportCatalog)
		catalog.GET("/import/jobs/:id", importHandler.GetImportJob)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// interrupted jobs are requeued by the worker and resume from their checkpoints
	stop()
	if worker != nil {
		worker.Wait()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Catalog service stopped")
}
