package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/lock"
	"rental-modification-backend/internal/repository/memory"
	"rental-modification-backend/internal/service"
	"rental-modification-backend/internal/shipment"
)

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) Capture(ctx context.Context, req domain.CaptureRequest) (*domain.PaymentResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*domain.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPayments) Refund(ctx context.Context, req domain.RefundRequest) (*domain.PaymentResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*domain.PaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, toName, subject, body string) error {
	args := m.Called(ctx, to, toName, subject, body)
	return args.Error(0)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNotificationRepo) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id int64, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

const (
	subOrderID = "so-1"
	renterID   = "renter-1"
	ownerID    = "owner-1"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.Local)
}

func ok(txID string) *domain.PaymentResult {
	return &domain.PaymentResult{Success: true, TransactionID: txID}
}

// fixture wires both workflows against the in-memory store with a rental of
// 2025-01-01..2025-01-10 worth 900,000 and two items with 5,000 deposit each.
type fixture struct {
	store      *memory.Store
	shipments  *shipment.MemoryTracker
	payments   *MockPayments
	earlyRet   service.EarlyReturnService
	extensions service.ExtensionService
	queries    service.QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(&domain.User{ID: renterID, Name: "Renter", Email: "renter@test.com",
		Address: &domain.Address{Line1: "1 Main St", City: "Pune", Region: "MH"}})
	store.PutUser(&domain.User{ID: ownerID, Name: "Owner", Email: "owner@test.com"})
	store.PutAgreement(&domain.RentalAgreement{
		ID:                subOrderID,
		MasterOrderID:     "mo-1",
		OwnerID:           ownerID,
		RenterID:          renterID,
		Status:            domain.SubOrderStatusActive,
		RentalPeriod:      domain.RentalPeriod{StartDate: day(1), EndDate: day(10)},
		PricingSnapshot:   &domain.PricingSnapshot{TotalRental: 900000, TotalDeposit: 10000},
		DepositPaymentRef: "pay_deposit",
		LineItems: []domain.RentalLineItem{
			{ID: "li-1", ProductRef: "drill", Quantity: 1, DailyRate: 60000, DepositAmount: 5000, ProductStatus: domain.ProductStatusActive, EndDate: day(10)},
			{ID: "li-2", ProductRef: "ladder", Quantity: 1, DailyRate: 40000, DepositAmount: 5000, ProductStatus: domain.ProductStatusActive, EndDate: day(10)},
		},
	})

	tracker := shipment.NewMemoryTracker()
	payments := new(MockPayments)
	locker := lock.NewKeyedMutex()
	notifier := service.NewNotifier(store.Notifications(), store.Users(), nil)
	policy := service.Policy{FallbackDailyRate: 50000}

	earlyRet := service.NewEarlyReturnService(store.Transactor(), store.Agreements(), store.EarlyReturns(),
		store.Extensions(), store.Users(), locker, payments, tracker, shipment.NewFlatRateQuoter(15000, 5000), notifier)
	extensions := service.NewExtensionService(store.Transactor(), store.Agreements(), store.Extensions(),
		store.EarlyReturns(), locker, payments, notifier, policy)

	return &fixture{
		store:      store,
		shipments:  tracker,
		payments:   payments,
		earlyRet:   earlyRet,
		extensions: extensions,
		queries:    service.NewQueryService(store.Agreements(), store.EarlyReturns(), store.Extensions()),
	}
}

func (f *fixture) agreement(t *testing.T) *domain.RentalAgreement {
	t.Helper()
	a, err := f.store.Agreements().GetByID(context.Background(), subOrderID)
	if err != nil {
		t.Fatalf("load agreement: %v", err)
	}
	return a
}

func (f *fixture) createEarlyReturn(t *testing.T, d int) *domain.EarlyReturnRequest {
	t.Helper()
	req, err := f.earlyRet.Create(context.Background(), service.CreateEarlyReturnInput{
		SubOrderID:          subOrderID,
		RenterID:            renterID,
		RequestedReturnDate: day(d),
		UseOriginalAddress:  true,
	})
	if err != nil {
		t.Fatalf("create early return: %v", err)
	}
	return req
}
