package services

import (
	"context"
	"time"

	"example.com/backstage/services/shipment/internal/models"

	"github.com/google/uuid"
)

// ShipmentStore is the persistence contract the services depend on. The gorm
// repository satisfies it in production; tests substitute mocks.
type ShipmentStore interface {
	FindAll(ctx context.Context, status *models.ShipmentStatus, page, limit int) ([]models.Shipment, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Shipment, error)
	FindAllForSync(ctx context.Context) ([]models.Shipment, error)
	Create(ctx context.Context, shipment *models.Shipment) error
	Update(ctx context.Context, shipment *models.Shipment) error
	UpdateCarrierRef(ctx context.Context, id uuid.UUID, carrierRef string) error
	UpdateWithSync(ctx context.Context, id uuid.UUID, status models.ShipmentStatus, carrierRef string, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SyncLogStore is the append-only audit log contract.
type SyncLogStore interface {
	Create(ctx context.Context, entry *models.SyncLog) error
	FindByShipmentID(ctx context.Context, shipmentID uuid.UUID, limit int) ([]models.SyncLog, error)
	FindRecent(ctx context.Context, limit int) ([]models.SyncLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CarrierGateway is the abstract contract to the external carrier. The
// concrete client owns timeouts and retry; callers only see exhausted or
// non-retryable failures.
type CarrierGateway interface {
	FetchStatus(ctx context.Context, carrierRef string) (*models.CarrierShipment, error)
	Register(ctx context.Context, req models.CarrierShipmentRequest) (*models.CarrierShipment, error)
	Push(ctx context.Context, carrierRef string, req models.CarrierShipmentRequest) (*models.CarrierShipment, error)
}

// EventPublisher emits shipment status-change events. Implementations must be
// safe to call when publishing is disabled.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, event models.StatusChangeEvent) error
}

// ShipmentIndexer maintains the search index. Indexing is best-effort
// everywhere; a failed index write never fails the owning operation.
type ShipmentIndexer interface {
	IndexShipment(ctx context.Context, shipment *models.Shipment) error
	DeleteShipment(ctx context.Context, id uuid.UUID) error
}
