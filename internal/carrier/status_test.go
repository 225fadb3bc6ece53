package carrier

import (
	"testing"

	"example.com/backstage/services/shipment/internal/models"

	"github.com/stretchr/testify/require"
)

func TestMapCarrierStatusToInternal(t *testing.T) {
	cases := []struct {
		carrierStatus string
		expected      models.ShipmentStatus
	}{
		{"pending", models.StatusPending},
		{"in_transit", models.StatusInTransit},
		{"in_progress", models.StatusInTransit},
		{"shipped", models.StatusInTransit},
		{"delivered", models.StatusDelivered},
		{"completed", models.StatusDelivered},
		{"failed", models.StatusFailed},
		{"cancelled", models.StatusFailed},
		{"error", models.StatusFailed},

		// Case and separator variants normalize before lookup
		{"In-Transit", models.StatusInTransit},
		{"IN TRANSIT", models.StatusInTransit},
		{"Shipped", models.StatusInTransit},
		{"DELIVERED", models.StatusDelivered},

		// Anything unrecognized is treated as not yet progressed
		{"on_hold", models.StatusPending},
		{"", models.StatusPending},
		{"garbage-value", models.StatusPending},
	}

	for _, tc := range cases {
		require.Equal(t, tc.expected, MapCarrierStatusToInternal(tc.carrierStatus),
			"carrier status %q", tc.carrierStatus)
	}
}

func TestMapInternalStatusToCarrier(t *testing.T) {
	cases := []struct {
		status   models.ShipmentStatus
		expected string
	}{
		{models.StatusPending, "pending"},
		{models.StatusInTransit, "in_transit"},
		{models.StatusDelivered, "delivered"},
		{models.StatusFailed, "failed"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.expected, MapInternalStatusToCarrier(tc.status))
	}
}

func TestStatusMappingRoundTrip(t *testing.T) {
	for _, status := range []models.ShipmentStatus{
		models.StatusPending,
		models.StatusInTransit,
		models.StatusDelivered,
		models.StatusFailed,
	} {
		require.Equal(t, status, MapCarrierStatusToInternal(MapInternalStatusToCarrier(status)))
	}
}
