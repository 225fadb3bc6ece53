package services

import (
	"context"
	"time"

	"example.com/backstage/services/shipment/internal/cache"
	"example.com/backstage/services/shipment/internal/carrier"
	"example.com/backstage/services/shipment/internal/models"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrOrderIDExists is returned when creating a shipment whose order ID is
// already taken.
var ErrOrderIDExists = errors.New("shipment with this order ID already exists")

const shipmentCacheTTL = 5 * time.Minute

// CreateShipmentInput carries the fields accepted at shipment creation.
type CreateShipmentInput struct {
	OrderID      string
	CustomerName string
	Destination  string
	Status       models.ShipmentStatus
}

// UpdateShipmentInput carries the user-editable fields; nil means unchanged.
type UpdateShipmentInput struct {
	CustomerName *string
	Destination  *string
	Status       *models.ShipmentStatus
}

// ShipmentList is one page of shipments with pagination metadata.
type ShipmentList struct {
	Shipments  []models.Shipment `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// ShipmentService handles shipment CRUD. Carrier registration on create and
// status pushes on update are best-effort; the local write always wins and
// the sync sweep repairs any divergence.
type ShipmentService struct {
	shipments ShipmentStore
	gateway   CarrierGateway
	cache     *cache.RedisCache
	publisher EventPublisher
	indexer   ShipmentIndexer
	tracer    tracing.Tracer
}

// NewShipmentService creates a shipment service. cache, publisher and indexer
// may be nil when the corresponding integration is disabled.
func NewShipmentService(
	shipments ShipmentStore,
	gateway CarrierGateway,
	redisCache *cache.RedisCache,
	publisher EventPublisher,
	indexer ShipmentIndexer,
	tracer tracing.Tracer,
) *ShipmentService {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}

	return &ShipmentService{
		shipments: shipments,
		gateway:   gateway,
		cache:     redisCache,
		publisher: publisher,
		indexer:   indexer,
		tracer:    tracer,
	}
}

// List returns a page of shipments, optionally filtered by status.
func (s *ShipmentService) List(ctx context.Context, status *models.ShipmentStatus, page, limit int) (*ShipmentList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	shipments, total, err := s.shipments.FindAll(ctx, status, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ShipmentList{
		Shipments:  shipments,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Get returns one shipment, read through the cache when available.
func (s *ShipmentService) Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	if s.cache != nil {
		var cached models.Shipment
		if err := s.cache.Get(ctx, cache.GetShipmentCacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheShipment(ctx, shipment)
	return shipment, nil
}

// Create stores a new shipment and registers it with the carrier. A carrier
// failure leaves carrierRef unset; the next sync sweep registers it then.
func (s *ShipmentService) Create(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error) {
	txn := s.tracer.StartTransaction("create-shipment")
	defer s.tracer.EndTransaction(txn)

	if _, err := s.shipments.FindByOrderID(ctx, input.OrderID); err == nil {
		return nil, ErrOrderIDExists
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}

	shipment := &models.Shipment{
		ID:           uuid.New(),
		OrderID:      input.OrderID,
		CustomerName: input.CustomerName,
		Destination:  input.Destination,
		Status:       status,
	}

	log.Info().Str("order_id", input.OrderID).Msg("Creating shipment")

	if err := s.shipments.Create(ctx, shipment); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	carrierResp, err := s.gateway.Register(ctx, models.CarrierShipmentRequest{
		OrderID:      shipment.OrderID,
		CustomerName: shipment.CustomerName,
		Destination:  shipment.Destination,
		Status:       carrier.MapInternalStatusToCarrier(shipment.Status),
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to register shipment with carrier")
	} else {
		if err := s.shipments.UpdateCarrierRef(ctx, shipment.ID, carrierResp.ID); err != nil {
			log.Warn().
				Err(err).
				Str("shipment_id", shipment.ID.String()).
				Msg("Failed to store carrier ref")
		} else {
			shipment.CarrierRef = &carrierResp.ID
			log.Info().
				Str("shipment_id", shipment.ID.String()).
				Str("carrier_ref", carrierResp.ID).
				Msg("Shipment registered with carrier")
		}
	}

	s.index(ctx, shipment)
	return shipment, nil
}

// Update applies user edits. A status change on a carrier-registered shipment
// is pushed to the carrier best-effort and published as an event.
func (s *ShipmentService) Update(ctx context.Context, id uuid.UUID, input UpdateShipmentInput) (*models.Shipment, error) {
	existing, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := existing.Status
	if input.CustomerName != nil {
		existing.CustomerName = *input.CustomerName
	}
	if input.Destination != nil {
		existing.Destination = *input.Destination
	}
	if input.Status != nil {
		existing.Status = *input.Status
	}

	log.Info().Str("shipment_id", id.String()).Msg("Updating shipment")

	if err := s.shipments.Update(ctx, existing); err != nil {
		return nil, err
	}

	statusChanged := input.Status != nil && *input.Status != oldStatus
	if statusChanged && existing.CarrierRef != nil {
		_, pushErr := s.gateway.Push(ctx, *existing.CarrierRef, models.CarrierShipmentRequest{
			Status: carrier.MapInternalStatusToCarrier(existing.Status),
		})
		if pushErr != nil {
			log.Warn().
				Err(pushErr).
				Str("shipment_id", id.String()).
				Msg("Failed to update shipment with carrier")
		} else {
			log.Info().Str("shipment_id", id.String()).Msg("Shipment updated with carrier")
		}
	}

	if statusChanged && s.publisher != nil {
		err := s.publisher.PublishStatusChange(ctx, models.StatusChangeEvent{
			ShipmentID: existing.ID,
			OrderID:    existing.OrderID,
			OldStatus:  oldStatus,
			NewStatus:  existing.Status,
			Source:     models.SourceLocal,
			OccurredAt: time.Now(),
		})
		if err != nil {
			log.Warn().
				Err(err).
				Str("shipment_id", id.String()).
				Msg("Failed to publish status change event")
		}
	}

	s.invalidate(ctx, id)
	s.index(ctx, existing)
	return existing, nil
}

// Delete removes a shipment locally. The carrier-side record is left alone.
func (s *ShipmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.shipments.FindByID(ctx, id); err != nil {
		return err
	}

	log.Info().Str("shipment_id", id.String()).Msg("Deleting shipment")

	if err := s.shipments.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	if s.indexer != nil {
		if err := s.indexer.DeleteShipment(ctx, id); err != nil {
			log.Warn().
				Err(err).
				Str("shipment_id", id.String()).
				Msg("Failed to remove shipment from search index")
		}
	}
	return nil
}

func (s *ShipmentService) cacheShipment(ctx context.Context, shipment *models.Shipment) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.GetShipmentCacheKey(shipment.ID), shipment, shipmentCacheTTL); err != nil {
		log.Warn().
			Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to cache shipment")
	}
}

func (s *ShipmentService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.GetShipmentCacheKey(id)); err != nil {
		log.Warn().
			Err(err).
			Str("shipment_id", id.String()).
			Msg("Failed to invalidate cached shipment")
	}
}

func (s *ShipmentService) index(ctx context.Context, shipment *models.Shipment) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexShipment(ctx, shipment); err != nil {
		log.Warn().
			Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to index shipment")
	}
}
