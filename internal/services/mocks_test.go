package services

import (
	"context"
	"time"

	"example.com/backstage/services/shipment/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock ShipmentStore for testing
type MockShipmentStore struct {
	mock.Mock
}

func (m *MockShipmentStore) FindAll(ctx context.Context, status *models.ShipmentStatus, page, limit int) ([]models.Shipment, int64, error) {
	args := m.Called(ctx, status, page, limit)
	return args.Get(0).([]models.Shipment), args.Get(1).(int64), args.Error(2)
}

func (m *MockShipmentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockShipmentStore) FindByOrderID(ctx context.Context, orderID string) (*models.Shipment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockShipmentStore) FindAllForSync(ctx context.Context) ([]models.Shipment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Shipment), args.Error(1)
}

func (m *MockShipmentStore) Create(ctx context.Context, shipment *models.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentStore) Update(ctx context.Context, shipment *models.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentStore) UpdateCarrierRef(ctx context.Context, id uuid.UUID, carrierRef string) error {
	args := m.Called(ctx, id, carrierRef)
	return args.Error(0)
}

func (m *MockShipmentStore) UpdateWithSync(ctx context.Context, id uuid.UUID, status models.ShipmentStatus, carrierRef string, expectedVersion int) error {
	args := m.Called(ctx, id, status, carrierRef, expectedVersion)
	return args.Error(0)
}

func (m *MockShipmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock SyncLogStore for testing
type MockSyncLogStore struct {
	mock.Mock
}

func (m *MockSyncLogStore) Create(ctx context.Context, entry *models.SyncLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSyncLogStore) FindByShipmentID(ctx context.Context, shipmentID uuid.UUID, limit int) ([]models.SyncLog, error) {
	args := m.Called(ctx, shipmentID, limit)
	return args.Get(0).([]models.SyncLog), args.Error(1)
}

func (m *MockSyncLogStore) FindRecent(ctx context.Context, limit int) ([]models.SyncLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.SyncLog), args.Error(1)
}

func (m *MockSyncLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// Mock CarrierGateway for testing
type MockCarrierGateway struct {
	mock.Mock
}

func (m *MockCarrierGateway) FetchStatus(ctx context.Context, carrierRef string) (*models.CarrierShipment, error) {
	args := m.Called(ctx, carrierRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CarrierShipment), args.Error(1)
}

func (m *MockCarrierGateway) Register(ctx context.Context, req models.CarrierShipmentRequest) (*models.CarrierShipment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CarrierShipment), args.Error(1)
}

func (m *MockCarrierGateway) Push(ctx context.Context, carrierRef string, req models.CarrierShipmentRequest) (*models.CarrierShipment, error) {
	args := m.Called(ctx, carrierRef, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CarrierShipment), args.Error(1)
}

// Mock EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishStatusChange(ctx context.Context, event models.StatusChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Mock ShipmentIndexer for testing
type MockShipmentIndexer struct {
	mock.Mock
}

func (m *MockShipmentIndexer) IndexShipment(ctx context.Context, shipment *models.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentIndexer) DeleteShipment(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
