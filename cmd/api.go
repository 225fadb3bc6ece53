package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/api"
	"example.com/backstage/services/shipment/internal/cache"
	"example.com/backstage/services/shipment/internal/carrier"
	"example.com/backstage/services/shipment/internal/database"
	"example.com/backstage/services/shipment/internal/locks"
	"example.com/backstage/services/shipment/internal/messaging"
	"example.com/backstage/services/shipment/internal/metrics"
	"example.com/backstage/services/shipment/internal/repositories"
	"example.com/backstage/services/shipment/internal/search"
	"example.com/backstage/services/shipment/internal/services"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for shipment management and manual sync triggers`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database connection
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		elasticClient = search.NewDisabledClient()
	}

	// Initialize Service Bus publisher
	publisher, err := messaging.NewServiceBusClient(cfg.Azure)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize repositories, carrier gateway and lock coordinator
	shipmentRepo := repositories.NewShipmentRepository(db)
	syncLogRepo := repositories.NewSyncLogRepository(db)
	carrierClient := carrier.NewClient(cfg.Carrier)
	lockCoordinator := locks.NewCoordinator()

	// Initialize services
	shipmentService := services.NewShipmentService(shipmentRepo, carrierClient, redisCache, publisher, elasticClient, tracer)
	syncService := services.NewSyncService(
		shipmentRepo, syncLogRepo, carrierClient, lockCoordinator,
		publisher, elasticClient, metricsCollector, tracer, cfg.Sync.Concurrency,
	)

	// Initialize and start the server
	server := api.NewServer(cfg, shipmentService, syncService, syncLogRepo, elasticClient, lockCoordinator, metricsCollector, tracer)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
