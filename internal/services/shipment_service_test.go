package services

import (
	"context"
	"net/http"
	"testing"

	"example.com/backstage/services/shipment/internal/carrier"
	"example.com/backstage/services/shipment/internal/models"
	"example.com/backstage/services/shipment/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestShipmentService(store *MockShipmentStore, gateway *MockCarrierGateway) *ShipmentService {
	return NewShipmentService(store, gateway, nil, nil, nil, nil)
}

func TestCreateShipmentRegistersWithCarrier(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)

	store.On("FindByOrderID", mock.Anything, "ORD-10").Return(nil, repositories.ErrNotFound)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.Shipment")).Return(nil)
	gateway.On("Register", mock.Anything, mock.AnythingOfType("models.CarrierShipmentRequest")).
		Return(&models.CarrierShipment{ID: "CR-10", Status: "pending"}, nil)
	store.On("UpdateCarrierRef", mock.Anything, mock.AnythingOfType("uuid.UUID"), "CR-10").Return(nil)

	shipment, err := newTestShipmentService(store, gateway).Create(context.Background(), CreateShipmentInput{
		OrderID:      "ORD-10",
		CustomerName: "Jane Doe",
		Destination:  "Nakuru",
	})

	require.NoError(t, err)
	require.Equal(t, models.StatusPending, shipment.Status, "empty status defaults to pending")
	require.NotNil(t, shipment.CarrierRef)
	require.Equal(t, "CR-10", *shipment.CarrierRef)
	store.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestCreateShipmentSurvivesCarrierOutage(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)

	store.On("FindByOrderID", mock.Anything, "ORD-11").Return(nil, repositories.ErrNotFound)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.Shipment")).Return(nil)
	gateway.On("Register", mock.Anything, mock.AnythingOfType("models.CarrierShipmentRequest")).
		Return(nil, &carrier.APIError{Service: "Carrier", StatusCode: http.StatusBadGateway, Message: "down"})

	shipment, err := newTestShipmentService(store, gateway).Create(context.Background(), CreateShipmentInput{
		OrderID:      "ORD-11",
		CustomerName: "Sam Omondi",
		Destination:  "Eldoret",
		Status:       models.StatusPending,
	})

	require.NoError(t, err, "a carrier outage must not fail shipment creation")
	require.Nil(t, shipment.CarrierRef, "the ref stays unset until a sync sweep registers it")
	store.AssertNotCalled(t, "UpdateCarrierRef", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateShipmentRejectsDuplicateOrderID(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)

	store.On("FindByOrderID", mock.Anything, "ORD-12").
		Return(&models.Shipment{ID: uuid.New(), OrderID: "ORD-12"}, nil)

	_, err := newTestShipmentService(store, gateway).Create(context.Background(), CreateShipmentInput{
		OrderID:      "ORD-12",
		CustomerName: "Jane Doe",
		Destination:  "Thika",
	})

	require.ErrorIs(t, err, ErrOrderIDExists)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateShipmentPushesStatusChange(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)
	publisher := new(MockEventPublisher)

	id := uuid.New()
	existing := &models.Shipment{
		ID:         id,
		OrderID:    "ORD-13",
		Status:     models.StatusPending,
		CarrierRef: strPtr("CR-13"),
	}

	store.On("FindByID", mock.Anything, id).Return(existing, nil)
	store.On("Update", mock.Anything, mock.AnythingOfType("*models.Shipment")).Return(nil)
	gateway.On("Push", mock.Anything, "CR-13", models.CarrierShipmentRequest{
		Status: "in_transit",
	}).Return(&models.CarrierShipment{ID: "CR-13", Status: "in_transit"}, nil)
	publisher.On("PublishStatusChange", mock.Anything, mock.AnythingOfType("models.StatusChangeEvent")).Return(nil)

	service := NewShipmentService(store, gateway, nil, publisher, nil, nil)

	newStatus := models.StatusInTransit
	updated, err := service.Update(context.Background(), id, UpdateShipmentInput{Status: &newStatus})

	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, updated.Status)
	gateway.AssertExpectations(t)

	event := publisher.Calls[0].Arguments.Get(1).(models.StatusChangeEvent)
	require.Equal(t, models.StatusPending, event.OldStatus)
	require.Equal(t, models.StatusInTransit, event.NewStatus)
	require.Equal(t, models.SourceLocal, event.Source)
}

func TestUpdateShipmentWithoutStatusChangeSkipsCarrier(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)

	id := uuid.New()
	store.On("FindByID", mock.Anything, id).Return(&models.Shipment{
		ID:         id,
		Status:     models.StatusInTransit,
		CarrierRef: strPtr("CR-14"),
	}, nil)
	store.On("Update", mock.Anything, mock.AnythingOfType("*models.Shipment")).Return(nil)

	name := "New Name"
	_, err := newTestShipmentService(store, gateway).Update(context.Background(), id, UpdateShipmentInput{
		CustomerName: &name,
	})

	require.NoError(t, err)
	gateway.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteShipmentUnknownID(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)

	id := uuid.New()
	store.On("FindByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

	err := newTestShipmentService(store, gateway).Delete(context.Background(), id)

	require.ErrorIs(t, err, repositories.ErrNotFound)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestListClampsPagination(t *testing.T) {
	store := new(MockShipmentStore)
	gateway := new(MockCarrierGateway)

	store.On("FindAll", mock.Anything, (*models.ShipmentStatus)(nil), 1, 20).
		Return([]models.Shipment{}, int64(45), nil)

	list, err := newTestShipmentService(store, gateway).List(context.Background(), nil, -3, 500)

	require.NoError(t, err)
	require.Equal(t, 1, list.Page)
	require.Equal(t, 20, list.Limit)
	require.Equal(t, 3, list.TotalPages)
	store.AssertExpectations(t)
}
