package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"example.com/backstage/services/shipment/internal/carrier"
	"example.com/backstage/services/shipment/internal/locks"
	"example.com/backstage/services/shipment/internal/metrics"
	"example.com/backstage/services/shipment/internal/models"
	"example.com/backstage/services/shipment/internal/repositories"
	"example.com/backstage/services/shipment/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SyncService reconciles local shipment records with the carrier's records.
// It owns the two sync entry points: a fleet-wide sweep and a single-shipment
// sync. The per-shipment reconciliation itself is stateless; everything it
// needs arrives through its collaborators.
type SyncService struct {
	shipments   ShipmentStore
	syncLogs    SyncLogStore
	gateway     CarrierGateway
	locks       *locks.Coordinator
	publisher   EventPublisher
	indexer     ShipmentIndexer
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	concurrency int
}

// NewSyncService creates a sync service. publisher and indexer may be nil
// when the corresponding integration is disabled.
func NewSyncService(
	shipments ShipmentStore,
	syncLogs SyncLogStore,
	gateway CarrierGateway,
	lockCoordinator *locks.Coordinator,
	publisher EventPublisher,
	indexer ShipmentIndexer,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	concurrency int,
) *SyncService {
	if concurrency < 1 {
		concurrency = 1
	}
	if tracer == nil {
		tracer = tracing.NewNoop()
	}

	return &SyncService{
		shipments:   shipments,
		syncLogs:    syncLogs,
		gateway:     gateway,
		locks:       lockCoordinator,
		publisher:   publisher,
		indexer:     indexer,
		metrics:     metricsCollector,
		tracer:      tracer,
		concurrency: concurrency,
	}
}

// SyncAll reconciles every non-terminal shipment under the global sync lock.
// A second fleet sync while one is running fails immediately with
// locks.ErrSyncInProgress. Individual shipment failures are collected into
// the result, never propagated; one audit record covers the whole sweep.
func (s *SyncService) SyncAll(ctx context.Context) (*models.SyncResult, error) {
	start := time.Now()

	var result *models.SyncResult
	err := s.locks.WithGlobalLock(func() error {
		txn := s.tracer.StartTransaction("sync-all-shipments")
		defer s.tracer.EndTransaction(txn)

		log.Info().Msg("Starting sync for all shipments")

		shipments, err := s.shipments.FindAllForSync(ctx)
		if err != nil {
			s.tracer.RecordError(txn, err)
			return errors.Wrap(err, "failed to load shipments for sync")
		}

		var (
			mu         sync.Mutex
			synced     int
			syncErrors = make([]models.SyncError, 0)
		)

		g := new(errgroup.Group)
		g.SetLimit(s.concurrency)

		for i := range shipments {
			shipment := shipments[i]
			g.Go(func() error {
				syncErr := s.locks.WithShipmentLock(ctx, shipment.ID, func() error {
					return s.reconcile(ctx, &shipment)
				})

				mu.Lock()
				defer mu.Unlock()
				if syncErr != nil {
					log.Error().
						Err(syncErr).
						Str("shipment_id", shipment.ID.String()).
						Msg("Failed to sync shipment")
					syncErrors = append(syncErrors, models.SyncError{
						ShipmentID: shipment.ID,
						Error:      syncErr.Error(),
					})
				} else {
					synced++
				}
				// Failures stay in the aggregate; returning them here would
				// abort the remaining shipments.
				return nil
			})
		}
		_ = g.Wait()

		failed := len(syncErrors)
		duration := time.Since(start).Milliseconds()

		syncStatus := models.SyncStatusSuccess
		if failed > 0 {
			if synced == 0 {
				syncStatus = models.SyncStatusFailed
			} else {
				syncStatus = models.SyncStatusPartial
			}
		}

		var errorMessage *string
		if failed > 0 {
			msg := fmt.Sprintf("%d shipment(s) failed to sync", failed)
			errorMessage = &msg
		}

		if err := s.syncLogs.Create(ctx, &models.SyncLog{
			SyncType:     models.SyncTypeScheduled,
			Status:       syncStatus,
			ErrorMessage: errorMessage,
			Duration:     duration,
		}); err != nil {
			log.Warn().Err(err).Msg("Failed to record fleet sync attempt")
		}

		if s.metrics != nil {
			s.metrics.IncrementCounterBy("sync.shipments_synced", int64(synced))
			s.metrics.IncrementCounterBy("sync.shipments_failed", int64(failed))
			s.metrics.RecordTimer("sync.fleet_sweep", duration)
		}

		log.Info().
			Int("synced", synced).
			Int("failed", failed).
			Int("total", len(shipments)).
			Int("concurrency", s.concurrency).
			Int64("duration_ms", duration).
			Msg("Sync completed")

		result = &models.SyncResult{
			Synced:   synced,
			Failed:   failed,
			Errors:   syncErrors,
			Duration: duration,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SyncOne reconciles a single shipment under its per-shipment lock. The call
// fails with repositories.ErrNotFound for an unknown id; a reconciliation
// failure is reported inside the result, not returned as an error.
func (s *SyncService) SyncOne(ctx context.Context, shipmentID uuid.UUID) (*models.SyncResult, error) {
	start := time.Now()

	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	var result *models.SyncResult
	lockErr := s.locks.WithShipmentLock(ctx, shipmentID, func() error {
		txn := s.tracer.StartTransaction("sync-single-shipment")
		defer s.tracer.EndTransaction(txn)
		s.tracer.AddAttribute(txn, "shipment_id", shipmentID.String())

		syncErr := s.reconcile(ctx, shipment)
		duration := time.Since(start).Milliseconds()

		entry := &models.SyncLog{
			ShipmentID: &shipmentID,
			SyncType:   models.SyncTypeManual,
			Status:     models.SyncStatusSuccess,
			Duration:   duration,
		}

		if syncErr != nil {
			s.tracer.RecordError(txn, syncErr)
			msg := syncErr.Error()
			entry.Status = models.SyncStatusFailed
			entry.ErrorMessage = &msg

			result = &models.SyncResult{
				Synced:   0,
				Failed:   1,
				Errors:   []models.SyncError{{ShipmentID: shipmentID, Error: msg}},
				Duration: duration,
			}
		} else {
			result = &models.SyncResult{
				Synced:   1,
				Failed:   0,
				Errors:   []models.SyncError{},
				Duration: duration,
			}
		}

		if err := s.syncLogs.Create(ctx, entry); err != nil {
			log.Warn().
				Err(err).
				Str("shipment_id", shipmentID.String()).
				Msg("Failed to record sync attempt")
		}

		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return result, nil
}

// reconcile converges one shipment with the carrier. It is purely a function
// of the local and carrier snapshots at call time; the caller holds the
// shipment's lock.
func (s *SyncService) reconcile(ctx context.Context, shipment *models.Shipment) error {
	log.Debug().Str("shipment_id", shipment.ID.String()).Msg("Syncing shipment")

	if shipment.CarrierRef == nil || *shipment.CarrierRef == "" {
		return s.registerWithCarrier(ctx, shipment, "")
	}

	carrierData, err := s.gateway.FetchStatus(ctx, *shipment.CarrierRef)
	if err != nil {
		if carrier.IsNotFound(err) {
			// The carrier lost or purged the record; the stored ref is stale.
			log.Warn().
				Str("shipment_id", shipment.ID.String()).
				Str("stale_carrier_ref", *shipment.CarrierRef).
				Msg("Carrier shipment not found, re-registering")
			return s.registerWithCarrier(ctx, shipment, *shipment.CarrierRef)
		}
		return err
	}

	resolution := ResolveConflict(shipment, carrierData)

	persistStatus := shipment.Status
	if resolution.ShouldUpdate {
		persistStatus = resolution.Status
	}

	applied, err := s.applySync(ctx, shipment, persistStatus, "")
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if resolution.ShouldUpdate {
		log.Info().
			Str("shipment_id", shipment.ID.String()).
			Str("source", string(resolution.Source)).
			Str("new_status", string(resolution.Status)).
			Msg("Shipment synced")

		s.publishStatusChange(ctx, shipment, resolution.Status, resolution.Source)
		s.reindex(ctx, shipment, persistStatus)
	} else {
		log.Debug().Str("shipment_id", shipment.ID.String()).Msg("Shipment already up to date")
	}

	if resolution.ShouldPushToCarrier {
		_, pushErr := s.gateway.Push(ctx, *shipment.CarrierRef, models.CarrierShipmentRequest{
			Status: carrier.MapInternalStatusToCarrier(shipment.Status),
		})
		if pushErr != nil {
			// Best effort: the local record is authoritative here and the
			// next sweep will retry.
			log.Warn().
				Err(pushErr).
				Str("shipment_id", shipment.ID.String()).
				Msg("Failed to push local status to carrier")
		} else {
			log.Info().
				Str("shipment_id", shipment.ID.String()).
				Str("status", string(shipment.Status)).
				Msg("Pushed local status to carrier")
		}
	}

	return nil
}

// registerWithCarrier creates the shipment at the carrier and stores the
// returned reference. staleRef is non-empty when replacing a reference the
// carrier no longer recognizes.
func (s *SyncService) registerWithCarrier(ctx context.Context, shipment *models.Shipment, staleRef string) error {
	carrierResp, err := s.gateway.Register(ctx, models.CarrierShipmentRequest{
		OrderID:      shipment.OrderID,
		CustomerName: shipment.CustomerName,
		Destination:  shipment.Destination,
		Status:       carrier.MapInternalStatusToCarrier(shipment.Status),
	})
	if err != nil {
		return err
	}

	if _, err := s.applySync(ctx, shipment, shipment.Status, carrierResp.ID); err != nil {
		return err
	}

	if staleRef != "" {
		log.Info().
			Str("shipment_id", shipment.ID.String()).
			Str("old_carrier_ref", staleRef).
			Str("new_carrier_ref", carrierResp.ID).
			Msg("Shipment re-registered with carrier")
	} else {
		log.Info().
			Str("shipment_id", shipment.ID.String()).
			Str("carrier_ref", carrierResp.ID).
			Msg("Shipment registered with carrier during sync")
	}

	return nil
}

// applySync persists a sync outcome with the version check. A mismatch means
// a user edit won the race; the sync becomes a no-op for this cycle and the
// next sweep sees the fresh state.
func (s *SyncService) applySync(ctx context.Context, shipment *models.Shipment, status models.ShipmentStatus, carrierRef string) (bool, error) {
	err := s.shipments.UpdateWithSync(ctx, shipment.ID, status, carrierRef, shipment.Version)
	if err != nil {
		if errors.Is(err, repositories.ErrVersionMismatch) {
			log.Debug().
				Str("shipment_id", shipment.ID.String()).
				Int("expected_version", shipment.Version).
				Msg("Concurrent edit detected, skipping sync update this cycle")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SyncService) publishStatusChange(ctx context.Context, shipment *models.Shipment, newStatus models.ShipmentStatus, source models.ConflictSource) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishStatusChange(ctx, models.StatusChangeEvent{
		ShipmentID: shipment.ID,
		OrderID:    shipment.OrderID,
		OldStatus:  shipment.Status,
		NewStatus:  newStatus,
		Source:     source,
		OccurredAt: time.Now(),
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to publish status change event")
	}
}

func (s *SyncService) reindex(ctx context.Context, shipment *models.Shipment, status models.ShipmentStatus) {
	if s.indexer == nil {
		return
	}

	updated := *shipment
	updated.Status = status
	if err := s.indexer.IndexShipment(ctx, &updated); err != nil {
		log.Warn().
			Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to update search index")
	}
}

// ResolveConflict decides the next action for one (local, carrier) snapshot
// pair. Matching statuses need no change; otherwise the strictly fresher side
// wins. An exact updatedAt tie goes to the carrier so both sides converge on
// the same answer regardless of which one runs the comparison.
func ResolveConflict(local *models.Shipment, carrierData *models.CarrierShipment) models.ConflictResolution {
	carrierStatus := carrier.MapCarrierStatusToInternal(carrierData.Status)

	if carrierStatus == local.Status {
		return models.ConflictResolution{
			Source:              models.SourceNone,
			Status:              local.Status,
			ShouldUpdate:        false,
			ShouldPushToCarrier: false,
		}
	}

	if carrierData.UpdatedAt.After(local.UpdatedAt) {
		return models.ConflictResolution{
			Source:              models.SourceCarrier,
			Status:              carrierStatus,
			ShouldUpdate:        true,
			ShouldPushToCarrier: false,
		}
	}

	if local.UpdatedAt.After(carrierData.UpdatedAt) {
		return models.ConflictResolution{
			Source:              models.SourceLocal,
			Status:              local.Status,
			ShouldUpdate:        false,
			ShouldPushToCarrier: true,
		}
	}

	return models.ConflictResolution{
		Source:              models.SourceCarrier,
		Status:              carrierStatus,
		ShouldUpdate:        true,
		ShouldPushToCarrier: false,
	}
}
