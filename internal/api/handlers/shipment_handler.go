package handlers

import (
	"net/http"
	"strconv"

	"example.com/backstage/services/shipment/internal/carrier"
	"example.com/backstage/services/shipment/internal/models"
	"example.com/backstage/services/shipment/internal/repositories"
	"example.com/backstage/services/shipment/internal/search"
	"example.com/backstage/services/shipment/internal/services"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ShipmentHandler handles shipment-related HTTP requests
type ShipmentHandler struct {
	shipmentService *services.ShipmentService
	searchClient    *search.ElasticClient
	tracer          tracing.Tracer
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(shipmentService *services.ShipmentService, searchClient *search.ElasticClient, tracer tracing.Tracer) *ShipmentHandler {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	return &ShipmentHandler{
		shipmentService: shipmentService,
		searchClient:    searchClient,
		tracer:          tracer,
	}
}

// CreateShipmentRequest represents an incoming shipment creation request
type CreateShipmentRequest struct {
	OrderID      string `json:"order_id" binding:"required"`
	CustomerName string `json:"customer_name" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
	Status       string `json:"status"`
}

// UpdateShipmentRequest represents a shipment update request; omitted fields
// are left unchanged
type UpdateShipmentRequest struct {
	CustomerName *string `json:"customer_name"`
	Destination  *string `json:"destination"`
	Status       *string `json:"status"`
}

// HandleListShipments returns a page of shipments, optionally filtered by status
func (h *ShipmentHandler) HandleListShipments(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-shipments")
	defer h.tracer.EndTransaction(txn)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var status *models.ShipmentStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ShipmentStatus(raw)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		status = &s
	}

	list, err := h.shipmentService.List(c, status, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list shipments")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, list)
}

// HandleGetShipment returns a single shipment by ID
func (h *ShipmentHandler) HandleGetShipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-shipment")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment ID"})
		return
	}
	h.tracer.AddAttribute(txn, "shipment_id", id.String())

	shipment, err := h.shipmentService.Get(c, id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// HandleCreateShipment creates a shipment and registers it with the carrier
func (h *ShipmentHandler) HandleCreateShipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-shipment")
	defer h.tracer.EndTransaction(txn)

	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.StatusPending
	if req.Status != "" {
		status = models.ShipmentStatus(req.Status)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}

	h.tracer.AddAttribute(txn, "order_id", req.OrderID)

	shipment, err := h.shipmentService.Create(c, services.CreateShipmentInput{
		OrderID:      req.OrderID,
		CustomerName: req.CustomerName,
		Destination:  req.Destination,
		Status:       status,
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("Failed to create shipment")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, shipment)
}

// HandleUpdateShipment applies a partial update to a shipment
func (h *ShipmentHandler) HandleUpdateShipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-shipment")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment ID"})
		return
	}

	var req UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateShipmentInput{
		CustomerName: req.CustomerName,
		Destination:  req.Destination,
	}
	if req.Status != nil {
		s := models.ShipmentStatus(*req.Status)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		input.Status = &s
	}

	shipment, err := h.shipmentService.Update(c, id, input)
	if err != nil {
		log.Error().Err(err).Str("shipment_id", id.String()).Msg("Failed to update shipment")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// HandleDeleteShipment deletes a shipment
func (h *ShipmentHandler) HandleDeleteShipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-delete-shipment")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment ID"})
		return
	}

	if err := h.shipmentService.Delete(c, id); err != nil {
		log.Error().Err(err).Str("shipment_id", id.String()).Msg("Failed to delete shipment")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleSearchShipments runs a full-text search over the shipment index
func (h *ShipmentHandler) HandleSearchShipments(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-search-shipments")
	defer h.tracer.EndTransaction(txn)

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	results, err := h.searchClient.SearchShipments(c, query, c.Query("status"), limit)
	if err != nil {
		if errors.Is(err, search.ErrSearchDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not enabled"})
			return
		}
		log.Error().Err(err).Str("query", query).Msg("Shipment search failed")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// RegisterRoutes registers the handler's routes
func (h *ShipmentHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/shipments", h.HandleListShipments)
		api.GET("/shipments/search", h.HandleSearchShipments)
		api.GET("/shipments/:id", h.HandleGetShipment)
		api.POST("/shipments", h.HandleCreateShipment)
		api.PUT("/shipments/:id", h.HandleUpdateShipment)
		api.DELETE("/shipments/:id", h.HandleDeleteShipment)
	}
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	var apiErr *carrier.APIError

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "shipment not found"})
	case errors.Is(err, services.ErrOrderIDExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
