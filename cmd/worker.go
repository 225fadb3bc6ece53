package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/carrier"
	"example.com/backstage/services/shipment/internal/database"
	"example.com/backstage/services/shipment/internal/locks"
	"example.com/backstage/services/shipment/internal/messaging"
	"example.com/backstage/services/shipment/internal/metrics"
	"example.com/backstage/services/shipment/internal/repositories"
	"example.com/backstage/services/shipment/internal/scheduler"
	"example.com/backstage/services/shipment/internal/search"
	"example.com/backstage/services/shipment/internal/services"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that syncs shipment statuses with the carrier on a schedule`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database connection
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

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

	// Initialize the sync service
	syncService := services.NewSyncService(
		shipmentRepo, syncLogRepo, carrierClient, lockCoordinator,
		publisher, elasticClient, metricsCollector, tracer, cfg.Sync.Concurrency,
	)

	// Start the sync scheduler
	g.Go(func() error {
		sched := scheduler.New(cfg.Sync, syncService)
		if err := sched.Start(ctx); err != nil {
			return err
		}

		// Wait for context cancellation
		<-ctx.Done()

		sched.Stop()
		return nil
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
