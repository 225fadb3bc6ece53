package handlers

import (
	"net/http"
	"strconv"

	"example.com/backstage/services/shipment/internal/locks"
	"example.com/backstage/services/shipment/internal/repositories"
	"example.com/backstage/services/shipment/internal/services"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SyncHandler exposes manual sync triggers and the sync audit log
type SyncHandler struct {
	syncService *services.SyncService
	syncLogs    services.SyncLogStore
	tracer      tracing.Tracer
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *services.SyncService, syncLogs services.SyncLogStore, tracer tracing.Tracer) *SyncHandler {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	return &SyncHandler{
		syncService: syncService,
		syncLogs:    syncLogs,
		tracer:      tracer,
	}
}

// HandleSyncAll triggers a whole-fleet sync. Returns 409 when a fleet sync
// is already running.
func (h *SyncHandler) HandleSyncAll(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-sync-all")
	defer h.tracer.EndTransaction(txn)

	result, err := h.syncService.SyncAll(c)
	if err != nil {
		if errors.Is(err, locks.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Fleet sync failed")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleSyncOne triggers a sync for a single shipment
func (h *SyncHandler) HandleSyncOne(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-sync-one")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment ID"})
		return
	}
	h.tracer.AddAttribute(txn, "shipment_id", id.String())

	result, err := h.syncService.SyncOne(c, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "shipment not found"})
			return
		}
		log.Error().Err(err).Str("shipment_id", id.String()).Msg("Shipment sync failed")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleListSyncLogs returns recent sync audit records
func (h *SyncHandler) HandleListSyncLogs(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-sync-logs")
	defer h.tracer.EndTransaction(txn)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.syncLogs.FindRecent(c, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sync logs")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// HandleShipmentSyncLogs returns the sync history of one shipment
func (h *SyncHandler) HandleShipmentSyncLogs(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-shipment-sync-logs")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment ID"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.syncLogs.FindByShipmentID(c, id, limit)
	if err != nil {
		log.Error().Err(err).Str("shipment_id", id.String()).Msg("Failed to list shipment sync logs")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// RegisterRoutes registers the handler's routes
func (h *SyncHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/sync", h.HandleSyncAll)
		api.GET("/sync/logs", h.HandleListSyncLogs)
		api.POST("/shipments/:id/sync", h.HandleSyncOne)
		api.GET("/shipments/:id/sync/logs", h.HandleShipmentSyncLogs)
	}
}
