package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/models"

	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(config.CarrierConfig{
		BaseURL:          baseURL,
		Timeout:          time.Second,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    5 * time.Millisecond,
		RetryJitter:      0.1,
	})
}

func TestFetchStatusReturnsCarrierRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/carrier/shipments/CR-1", r.URL.Path)

		json.NewEncoder(w).Encode(models.CarrierShipment{
			ID:        "CR-1",
			OrderID:   "ORD-1",
			Status:    "in_transit",
			UpdatedAt: time.Now(),
		})
	}))
	defer server.Close()

	shipment, err := testClient(server.URL).FetchStatus(context.Background(), "CR-1")
	require.NoError(t, err)
	require.Equal(t, "CR-1", shipment.ID)
	require.Equal(t, "in_transit", shipment.Status)
}

func TestFetchStatusNotFound(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchStatus(context.Background(), "gone")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&requests), "404 must not be retried")
}

func TestFetchStatusRetriesServerErrors(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(models.CarrierShipment{ID: "CR-2", Status: "delivered"})
	}))
	defer server.Close()

	shipment, err := testClient(server.URL).FetchStatus(context.Background(), "CR-2")
	require.NoError(t, err)
	require.Equal(t, "delivered", shipment.Status)
	require.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetchStatusGivesUpAfterMaxAttempts(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchStatus(context.Background(), "CR-3")
	require.Error(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&requests))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestRegisterSendsShipmentPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/carrier/shipments", r.URL.Path)

		var req models.CarrierShipmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ORD-42", req.OrderID)
		require.Equal(t, "pending", req.Status)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.CarrierShipment{ID: "CR-42", OrderID: req.OrderID, Status: req.Status})
	}))
	defer server.Close()

	shipment, err := testClient(server.URL).Register(context.Background(), models.CarrierShipmentRequest{
		OrderID:      "ORD-42",
		CustomerName: "Jane Doe",
		Destination:  "Nairobi",
		Status:       "pending",
	})
	require.NoError(t, err)
	require.Equal(t, "CR-42", shipment.ID)
}

func TestPushSendsPartialUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/carrier/shipments/CR-9", r.URL.Path)

		var req models.CarrierShipmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "delivered", req.Status)
		require.Empty(t, req.OrderID)

		json.NewEncoder(w).Encode(models.CarrierShipment{ID: "CR-9", Status: req.Status})
	}))
	defer server.Close()

	_, err := testClient(server.URL).Push(context.Background(), "CR-9", models.CarrierShipmentRequest{
		Status: "delivered",
	})
	require.NoError(t, err)
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	// Point at a closed server so every request fails at the transport level
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := testClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "CR-X")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 0, apiErr.StatusCode)
	require.True(t, isRetryable(apiErr))
}
