package messaging

import (
	"context"
	"encoding/json"

	"example.com/backstage/services/shipment/config"
	"example.com/backstage/services/shipment/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ServiceBusClient publishes shipment events to Azure Service Bus
type ServiceBusClient interface {
	PublishStatusChange(ctx context.Context, event models.StatusChangeEvent) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	enabled   bool
}

// NewServiceBusClient creates a new Azure Service Bus client. When publishing
// is disabled in configuration the returned client drops events silently.
func NewServiceBusClient(cfg config.AzureConfig) (ServiceBusClient, error) {
	if !cfg.Enabled {
		return &serviceBusClient{enabled: false}, nil
	}

	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusClient{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		enabled:   true,
	}, nil
}

// PublishStatusChange sends one status-change event to the queue
func (s *serviceBusClient) PublishStatusChange(ctx context.Context, event models.StatusChangeEvent) error {
	if !s.enabled {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal status change event")
	}

	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
	}

	if err := s.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrap(err, "failed to send status change event")
	}

	log.Debug().
		Str("shipment_id", event.ShipmentID.String()).
		Str("queue", s.queueName).
		Msg("Status change event published")

	return nil
}

// Close releases the sender and connection
func (s *serviceBusClient) Close() error {
	if !s.enabled {
		return nil
	}

	ctx := context.Background()
	if s.sender != nil {
		if err := s.sender.Close(ctx); err != nil {
			return errors.Wrap(err, "failed to close Service Bus sender")
		}
	}
	if s.client != nil {
		if err := s.client.Close(ctx); err != nil {
			return errors.Wrap(err, "failed to close Service Bus client")
		}
	}

	return nil
}
