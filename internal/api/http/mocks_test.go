package http_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/service"
)

type MockEarlyReturnService struct {
	mock.Mock
}

func (m *MockEarlyReturnService) Create(ctx context.Context, in service.CreateEarlyReturnInput) (*domain.EarlyReturnRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarlyReturnRequest), args.Error(1)
}

func (m *MockEarlyReturnService) Update(ctx context.Context, in service.UpdateEarlyReturnInput) (*domain.EarlyReturnRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarlyReturnRequest), args.Error(1)
}

func (m *MockEarlyReturnService) Cancel(ctx context.Context, requestID, requesterID, reason string) (*service.EarlyReturnCancellation, error) {
	args := m.Called(ctx, requestID, requesterID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EarlyReturnCancellation), args.Error(1)
}

func (m *MockEarlyReturnService) Delete(ctx context.Context, requestID, requesterID string) (*service.EarlyReturnCancellation, error) {
	args := m.Called(ctx, requestID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EarlyReturnCancellation), args.Error(1)
}

func (m *MockEarlyReturnService) ConfirmReturn(ctx context.Context, requestID, ownerID, notes string, qc domain.QualityCheck) (*domain.EarlyReturnRequest, error) {
	args := m.Called(ctx, requestID, ownerID, notes, qc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarlyReturnRequest), args.Error(1)
}

func (m *MockEarlyReturnService) AutoComplete(ctx context.Context, requestID string) (*domain.EarlyReturnRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarlyReturnRequest), args.Error(1)
}

func (m *MockEarlyReturnService) ApplyShipmentSignal(ctx context.Context, subOrderID string) (*domain.EarlyReturnRequest, error) {
	args := m.Called(ctx, subOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarlyReturnRequest), args.Error(1)
}

type MockExtensionService struct {
	mock.Mock
}

func (m *MockExtensionService) Request(ctx context.Context, in service.RequestExtensionInput) (*domain.ExtensionRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtensionRequest), args.Error(1)
}

func (m *MockExtensionService) Approve(ctx context.Context, requestID, ownerID string) (*domain.ExtensionRequest, error) {
	args := m.Called(ctx, requestID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtensionRequest), args.Error(1)
}

func (m *MockExtensionService) Reject(ctx context.Context, requestID, ownerID, reason string) (*domain.ExtensionRequest, error) {
	args := m.Called(ctx, requestID, ownerID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtensionRequest), args.Error(1)
}

func (m *MockExtensionService) Cancel(ctx context.Context, requestID, renterID string) (*domain.ExtensionRequest, error) {
	args := m.Called(ctx, requestID, renterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtensionRequest), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) ListEarlyReturnsForRenter(ctx context.Context, renterID string, page, limit int32, statuses []domain.EarlyReturnStatus) ([]domain.EarlyReturnRequest, int32, error) {
	args := m.Called(ctx, renterID, page, limit, statuses)
	return args.Get(0).([]domain.EarlyReturnRequest), args.Get(1).(int32), args.Error(2)
}

func (m *MockQueryService) ListEarlyReturnsForOwner(ctx context.Context, ownerID string, page, limit int32, statuses []domain.EarlyReturnStatus) ([]domain.EarlyReturnRequest, int32, error) {
	args := m.Called(ctx, ownerID, page, limit, statuses)
	return args.Get(0).([]domain.EarlyReturnRequest), args.Get(1).(int32), args.Error(2)
}

func (m *MockQueryService) GetEarlyReturn(ctx context.Context, actorID, requestID string) (*domain.EarlyReturnRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarlyReturnRequest), args.Error(1)
}

func (m *MockQueryService) ListExtensionsForRenter(ctx context.Context, renterID string, page, limit int32, statuses []domain.ExtensionStatus) ([]domain.ExtensionRequest, int32, error) {
	args := m.Called(ctx, renterID, page, limit, statuses)
	return args.Get(0).([]domain.ExtensionRequest), args.Get(1).(int32), args.Error(2)
}

func (m *MockQueryService) ListExtensionsForOwner(ctx context.Context, ownerID string, page, limit int32, statuses []domain.ExtensionStatus) ([]domain.ExtensionRequest, int32, error) {
	args := m.Called(ctx, ownerID, page, limit, statuses)
	return args.Get(0).([]domain.ExtensionRequest), args.Get(1).(int32), args.Error(2)
}

func (m *MockQueryService) GetExtension(ctx context.Context, actorID, requestID string) (*domain.ExtensionRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtensionRequest), args.Error(1)
}

func (m *MockQueryService) GetSubOrder(ctx context.Context, actorID, subOrderID string) (*domain.RentalAgreement, error) {
	args := m.Called(ctx, actorID, subOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalAgreement), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID string, notificationID int64) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

type MockShipmentRecorder struct {
	mock.Mock
}

func (m *MockShipmentRecorder) Record(ctx context.Context, subOrderID string, status domain.ShipmentAckStatus) error {
	args := m.Called(ctx, subOrderID, status)
	return args.Error(0)
}
