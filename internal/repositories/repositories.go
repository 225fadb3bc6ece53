package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/shipment/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ShipmentRepository provides access to shipment data
type ShipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository creates a new shipment repository
func NewShipmentRepository(db *gorm.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// FindAll returns a page of shipments, optionally filtered by status,
// newest first, together with the total count for the filter.
func (r *ShipmentRepository) FindAll(ctx context.Context, status *models.ShipmentStatus, page, limit int) ([]models.Shipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Shipment{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count shipments")
	}

	var shipments []models.Shipment
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&shipments).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list shipments")
	}

	return shipments, total, nil
}

// FindByID gets a shipment by ID
func (r *ShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get shipment by ID")
	}
	return &shipment, nil
}

// FindByOrderID gets a shipment by its external order ID
func (r *ShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get shipment by order ID")
	}
	return &shipment, nil
}

// FindAllForSync returns every shipment not in a terminal status. Terminal
// shipments are excluded from fleet sweeps but can still be synced manually.
func (r *ShipmentRepository) FindAllForSync(ctx context.Context) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []models.ShipmentStatus{models.StatusDelivered, models.StatusFailed}).
		Find(&shipments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shipments for sync")
	}
	return shipments, nil
}

// Create inserts a new shipment
func (r *ShipmentRepository) Create(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	if shipment.Status == "" {
		shipment.Status = models.StatusPending
	}

	if err := r.db.WithContext(ctx).Create(shipment).Error; err != nil {
		return errors.Wrap(err, "failed to create shipment")
	}
	return nil
}

// Update persists user-editable fields of a shipment. Every write bumps the
// version so a sync update holding an older snapshot fails its version check
// instead of overwriting the edit.
func (r *ShipmentRepository) Update(ctx context.Context, shipment *models.Shipment) error {
	result := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", shipment.ID).
		Updates(map[string]interface{}{
			"customer_name": shipment.CustomerName,
			"destination":   shipment.Destination,
			"status":        shipment.Status,
			"updated_at":    time.Now(),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update shipment")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	shipment.Version++
	return nil
}

// UpdateCarrierRef stores the carrier-assigned reference for a shipment. Bumps
// the version like every other write.
func (r *ShipmentRepository) UpdateCarrierRef(ctx context.Context, id uuid.UUID, carrierRef string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"carrier_ref": carrierRef,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update carrier ref")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWithSync applies a sync outcome as a single conditional write: the
// row is touched only if it still carries expectedVersion, and the write
// stamps lastSyncedAt and increments the version. A zero-row result means a
// concurrent edit won the race and surfaces as ErrVersionMismatch.
// An empty carrierRef leaves the stored reference unchanged.
func (r *ShipmentRepository) UpdateWithSync(ctx context.Context, id uuid.UUID, status models.ShipmentStatus, carrierRef string, expectedVersion int) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":         status,
		"last_synced_at": now,
		"updated_at":     now,
		"version":        gorm.Expr("version + 1"),
	}
	if carrierRef != "" {
		updates["carrier_ref"] = carrierRef
	}

	result := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to apply sync update")
	}
	if result.RowsAffected == 0 {
		return ErrVersionMismatch
	}
	return nil
}

// Delete removes a shipment. Deletion is local only; there is no cross-system
// undo.
func (r *ShipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Shipment{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete shipment")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SyncLogRepository provides access to the append-only sync audit log
type SyncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create appends one sync attempt record
func (r *SyncLogRepository) Create(ctx context.Context, entry *models.SyncLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(err, "failed to create sync log")
	}
	return nil
}

// FindByShipmentID returns the most recent sync attempts for one shipment
func (r *SyncLogRepository) FindByShipmentID(ctx context.Context, shipmentID uuid.UUID, limit int) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("synced_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sync logs for shipment")
	}
	return logs, nil
}

// FindRecent returns the most recent sync attempts across all shipments
func (r *SyncLogRepository) FindRecent(ctx context.Context, limit int) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	err := r.db.WithContext(ctx).
		Order("synced_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent sync logs")
	}
	return logs, nil
}

// DeleteOlderThan prunes audit records older than the cutoff and returns the
// number removed.
func (r *SyncLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("synced_at < ?", cutoff).
		Delete(&models.SyncLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to prune sync logs")
	}
	return result.RowsAffected, nil
}
