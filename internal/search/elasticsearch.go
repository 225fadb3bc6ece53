package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSearchDisabled is returned by queries when no Elasticsearch backend is
// configured. Index writes silently no-op instead.
var ErrSearchDisabled = errors.New("search is disabled")

// ElasticClient maintains the shipment search index
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// NewDisabledClient returns a client that no-ops index writes and reports
// ErrSearchDisabled on queries. Used as the fallback when client construction
// fails, so callers never hold a nil client.
func NewDisabledClient() *ElasticClient {
	return &ElasticClient{enabled: false}
}

// IndexShipment writes the shipment document, replacing any previous version
func (c *ElasticClient) IndexShipment(ctx context.Context, shipment *models.Shipment) error {
	if !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":            shipment.ID.String(),
		"order_id":      shipment.OrderID,
		"customer_name": shipment.CustomerName,
		"destination":   shipment.Destination,
		"status":        string(shipment.Status),
		"created_at":    shipment.CreatedAt,
		"updated_at":    shipment.UpdatedAt,
	}
	if shipment.CarrierRef != nil {
		doc["carrier_ref"] = *shipment.CarrierRef
	}
	if shipment.LastSyncedAt != nil {
		doc["last_synced_at"] = *shipment.LastSyncedAt
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal shipment document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: shipment.ID.String(),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("shipment_id", shipment.ID.String()).Msg("Shipment indexed")
	return nil
}

// DeleteShipment removes the shipment document from the index
func (c *ElasticClient) DeleteShipment(ctx context.Context, id uuid.UUID) error {
	if !c.enabled {
		return nil
	}

	req := esapi.DeleteRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: id.String(),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	// A missing document is fine; the index may simply not have seen it
	if res.IsError() && res.StatusCode != 404 {
		return errors.Errorf("Elasticsearch delete error: %s", res.Status())
	}

	return nil
}

// SearchShipments runs a free-text query over order id, customer name and
// destination, optionally filtered by status.
func (c *ElasticClient) SearchShipments(ctx context.Context, query string, status string, limit int) ([]map[string]interface{}, error) {
	if !c.enabled {
		return nil, ErrSearchDisabled
	}

	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"order_id", "customer_name", "destination"},
			},
		},
	}
	if status != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, c.config.Index)},
		Body:  bytes.NewReader(bodyJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}
	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		docs = append(docs, source)
	}

	return docs, nil
}
