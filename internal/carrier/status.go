package carrier

import (
	"strings"

	"example.com/backstage/services/shipment/internal/models"
)

// carrierToInternal maps normalized carrier status strings to the internal
// vocabulary. Anything not listed maps to PENDING.
var carrierToInternal = map[string]models.ShipmentStatus{
	"pending":     models.StatusPending,
	"in_transit":  models.StatusInTransit,
	"in_progress": models.StatusInTransit,
	"shipped":     models.StatusInTransit,
	"delivered":   models.StatusDelivered,
	"completed":   models.StatusDelivered,
	"failed":      models.StatusFailed,
	"cancelled":   models.StatusFailed,
	"error":       models.StatusFailed,
}

// internalToCarrier is the total inverse mapping, one carrier string per
// internal status.
var internalToCarrier = map[models.ShipmentStatus]string{
	models.StatusPending:   "pending",
	models.StatusInTransit: "in_transit",
	models.StatusDelivered: "delivered",
	models.StatusFailed:    "failed",
}

// normalizeStatus lower-cases the carrier status and rewrites hyphens and
// whitespace to underscores before table lookup.
func normalizeStatus(status string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, strings.ToLower(status))
}

// MapCarrierStatusToInternal translates a carrier status string to the
// internal vocabulary. The mapping is total: unknown or empty input yields
// PENDING.
func MapCarrierStatusToInternal(carrierStatus string) models.ShipmentStatus {
	if carrierStatus == "" {
		return models.StatusPending
	}

	if status, ok := carrierToInternal[normalizeStatus(carrierStatus)]; ok {
		return status
	}
	return models.StatusPending
}

// MapInternalStatusToCarrier translates an internal status to the carrier's
// vocabulary.
func MapInternalStatusToCarrier(internalStatus models.ShipmentStatus) string {
	return internalToCarrier[internalStatus]
}
