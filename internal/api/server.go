package api

import (
	"context"
	"net/http"
	"time"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/api/handlers"
	"example.com/backstage/services/shipment/internal/locks"
	"example.com/backstage/services/shipment/internal/metrics"
	"example.com/backstage/services/shipment/internal/search"
	"example.com/backstage/services/shipment/internal/services"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config          config.Config
	router          *gin.Engine
	httpServer      *http.Server
	shipmentService *services.ShipmentService
	syncService     *services.SyncService
	syncLogs        services.SyncLogStore
	searchClient    *search.ElasticClient
	locks           *locks.Coordinator
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	shipmentService *services.ShipmentService,
	syncService *services.SyncService,
	syncLogs services.SyncLogStore,
	searchClient *search.ElasticClient,
	lockCoordinator *locks.Coordinator,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:          cfg,
		shipmentService: shipmentService,
		syncService:     syncService,
		syncLogs:        syncLogs,
		searchClient:    searchClient,
		locks:           lockCoordinator,
		metrics:         m,
		tracer:          tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.Default()

	router.Use(gin.Recovery())

	shipmentHandler := handlers.NewShipmentHandler(s.shipmentService, s.searchClient, s.tracer)
	shipmentHandler.RegisterRoutes(router)

	syncHandler := handlers.NewSyncHandler(s.syncService, s.syncLogs, s.tracer)
	syncHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.locks, s.tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
