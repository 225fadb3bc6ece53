package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const serviceName = "Carrier"

// Client calls the external carrier API. Every call carries the configured
// timeout and transient failures are retried per the retry policy before an
// error reaches the caller.
type Client struct {
	httpc   *http.Client
	baseURL string
	policy  RetryPolicy
}

// NewClient creates a carrier API client from configuration.
func NewClient(cfg config.CarrierConfig) *Client {
	return &Client{
		httpc: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		policy: RetryPolicy{
			MaxAttempts:  cfg.RetryMaxAttempts,
			BaseDelay:    cfg.RetryBaseDelay,
			MaxDelay:     cfg.RetryMaxDelay,
			JitterFactor: cfg.RetryJitter,
		},
	}
}

// FetchStatus retrieves the carrier's current record for carrierRef.
func (c *Client) FetchStatus(ctx context.Context, carrierRef string) (*models.CarrierShipment, error) {
	log.Debug().Str("carrier_ref", carrierRef).Msg("Fetching shipment status from carrier")
	return c.call(ctx, "fetch-status", http.MethodGet, "/carrier/shipments/"+carrierRef, nil)
}

// Register creates the shipment at the carrier and returns the carrier record,
// whose ID becomes the local carrier reference.
func (c *Client) Register(ctx context.Context, req models.CarrierShipmentRequest) (*models.CarrierShipment, error) {
	log.Debug().Str("order_id", req.OrderID).Msg("Registering shipment with carrier")
	return c.call(ctx, "register", http.MethodPost, "/carrier/shipments", &req)
}

// Push sends a partial update for carrierRef to the carrier.
func (c *Client) Push(ctx context.Context, carrierRef string, req models.CarrierShipmentRequest) (*models.CarrierShipment, error) {
	log.Debug().Str("carrier_ref", carrierRef).Msg("Pushing shipment update to carrier")
	return c.call(ctx, "push", http.MethodPatch, "/carrier/shipments/"+carrierRef, &req)
}

// call performs one logical carrier request under the retry policy.
func (c *Client) call(ctx context.Context, operation, method, path string, body *models.CarrierShipmentRequest) (*models.CarrierShipment, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal carrier request")
		}
	}

	var result *models.CarrierShipment
	err := c.policy.Do(ctx, operation, isRetryable, func() error {
		shipment, err := c.doRequest(ctx, method, path, payload)
		if err != nil {
			return err
		}
		result = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) (*models.CarrierShipment, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build carrier request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Network-level failure, no HTTP status available
		return nil, &APIError{Service: serviceName, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 512)); readErr == nil && len(data) > 0 {
			msg = string(data)
		}
		return nil, &APIError{Service: serviceName, StatusCode: resp.StatusCode, Message: msg}
	}

	var shipment models.CarrierShipment
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return nil, errors.Wrap(err, "failed to decode carrier response")
	}

	return &shipment, nil
}

// isRetryable classifies carrier failures. Network-level errors, rate limiting
// and server-side failures are transient; other HTTP statuses (404 included)
// surface immediately.
func isRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.StatusCode == 0 {
		return true
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
