package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ShipmentStatus is the internal status vocabulary for a shipment.
type ShipmentStatus string

const (
	StatusPending   ShipmentStatus = "PENDING"
	StatusInTransit ShipmentStatus = "IN_TRANSIT"
	StatusDelivered ShipmentStatus = "DELIVERED"
	StatusFailed    ShipmentStatus = "FAILED"
)

// IsTerminal reports whether the status excludes the shipment from fleet sweeps.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// IsValid reports whether the status is one of the defined values.
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// SyncType distinguishes scheduled fleet sweeps from manual triggers
type SyncType string

const (
	SyncTypeScheduled SyncType = "SCHEDULED"
	SyncTypeManual    SyncType = "MANUAL"
)

// SyncStatus is the outcome recorded for a sync attempt
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// Shipment is the unit of reconciliation between the local record and the
// carrier's record. Version backs the optimistic-concurrency discipline: every
// mutation increments it and sync-driven writes carry a version check.
type Shipment struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	OrderID      string         `gorm:"column:order_id;not null;uniqueIndex" json:"order_id"`
	CustomerName string         `gorm:"not null" json:"customer_name"`
	Destination  string         `gorm:"not null" json:"destination"`
	Status       ShipmentStatus `gorm:"not null;default:PENDING" json:"status"`
	CarrierRef   *string        `gorm:"index" json:"carrier_ref"`
	LastSyncedAt *time.Time     `json:"last_synced_at"`
	Version      int            `gorm:"not null;default:0" json:"version"`
}

// SyncLog is an append-only audit record of one sync unit of work. A nil
// ShipmentID marks a whole-fleet sweep.
type SyncLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ShipmentID   *uuid.UUID `gorm:"type:uuid;index" json:"shipment_id"`
	SyncType     SyncType   `gorm:"not null" json:"sync_type"`
	Status       SyncStatus `gorm:"not null" json:"status"`
	ErrorMessage *string    `json:"error_message"`
	Duration     int64      `gorm:"not null;default:0" json:"duration_ms"`
	SyncedAt     time.Time  `gorm:"autoCreateTime;index" json:"synced_at"`
}

// CarrierShipment is the carrier's view of a shipment. It is never persisted
// locally; the status string is untrusted free text.
type CarrierShipment struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"orderId"`
	Status            string    `json:"status"`
	Location          string    `json:"location,omitempty"`
	EstimatedDelivery string    `json:"estimatedDelivery,omitempty"`
	DeliveredAt       string    `json:"deliveredAt,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CarrierShipmentRequest is the payload sent when registering or updating a
// shipment with the carrier.
type CarrierShipmentRequest struct {
	OrderID      string `json:"orderId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	Destination  string `json:"destination,omitempty"`
	Status       string `json:"status,omitempty"`
}

// ConflictSource identifies which side won a reconciliation comparison.
type ConflictSource string

const (
	SourceCarrier ConflictSource = "carrier"
	SourceLocal   ConflictSource = "local"
	SourceNone    ConflictSource = "none"
)

// ConflictResolution is the ephemeral outcome of comparing a local shipment
// with its carrier record. Consumed immediately by the orchestrator.
type ConflictResolution struct {
	Source              ConflictSource
	Status              ShipmentStatus
	ShouldUpdate        bool
	ShouldPushToCarrier bool
}

// SyncError describes one shipment's failure inside a sync result.
type SyncError struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	Error      string    `json:"error"`
}

// SyncResult is the aggregate outcome of a sync operation. It is always
// returned to the caller; per-shipment failures never escape as errors.
type SyncResult struct {
	Synced   int         `json:"synced"`
	Failed   int         `json:"failed"`
	Errors   []SyncError `json:"errors"`
	Duration int64       `json:"duration_ms"`
}

// StatusChangeEvent is published to the service bus when a shipment's status
// changes, whether user-initiated or sync-driven.
type StatusChangeEvent struct {
	ShipmentID uuid.UUID      `json:"shipment_id"`
	OrderID    string         `json:"order_id"`
	OldStatus  ShipmentStatus `json:"old_status"`
	NewStatus  ShipmentStatus `json:"new_status"`
	Source     ConflictSource `json:"source"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Shipment{},
		&SyncLog{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
