package handlers

import (
	"net/http"
	"runtime"

	"example.com/backstage/services/shipment/internal/locks"
	"example.com/backstage/services/shipment/internal/metrics"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/gin-gonic/gin"
)

// MetricsHandler exposes service metrics and the health rollup
type MetricsHandler struct {
	metrics *metrics.Metrics
	locks   *locks.Coordinator
	tracer  tracing.Tracer
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics, coordinator *locks.Coordinator, tracer tracing.Tracer) *MetricsHandler {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	return &MetricsHandler{
		metrics: m,
		locks:   coordinator,
		tracer:  tracer,
	}
}

// HandleGetMetrics returns all metrics, refreshing the runtime and sync gauges first
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	txn := h.tracer.StartTransaction("get-metrics")
	defer h.tracer.EndTransaction(txn)

	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))

	if h.locks != nil {
		h.metrics.SetGauge("sync.locked_shipments", int64(h.locks.LockedShipmentCount()))
		var sweepActive int64
		if h.locks.IsGlobalLocked() {
			sweepActive = 1
		}
		h.metrics.SetGauge("sync.fleet_sweep_active", sweepActive)
	}

	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// HandleGetHealthCheck returns the per-component health rollup
func (h *MetricsHandler) HandleGetHealthCheck(c *gin.Context) {
	healthChecks := h.metrics.GetHealthChecks()

	healthy := true
	for _, status := range healthChecks {
		if !status {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	sync := gin.H{}
	if h.locks != nil {
		sync["fleet_sweep_active"] = h.locks.IsGlobalLocked()
		sync["locked_shipments"] = h.locks.LockedShipmentCount()
	}

	c.JSON(status, gin.H{
		"status":  healthy,
		"details": healthChecks,
		"sync":    sync,
	})
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealthCheck)
}
