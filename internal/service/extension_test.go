package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/lock"
	"rental-modification-backend/internal/service"
	"rental-modification-backend/internal/utils"
)

func (f *fixture) requestExtension(t *testing.T, d int, method domain.PaymentMethod) *domain.ExtensionRequest {
	t.Helper()
	req, err := f.extensions.Request(context.Background(), service.RequestExtensionInput{
		SubOrderID:        subOrderID,
		RenterID:          renterID,
		NewEndDate:        day(d),
		Reason:            "project overran",
		PaymentMethod:     method,
		GatewayPaymentRef: "pay_ext",
	})
	require.NoError(t, err)
	return req
}

func TestExtensionService_Request(t *testing.T) {
	f := newFixture(t)

	req := f.requestExtension(t, 13, domain.PaymentMethodWallet)

	assert.Equal(t, domain.ExtensionStatusPending, req.Status)
	assert.Equal(t, domain.PaymentStatusPending, req.PaymentStatus)
	assert.Equal(t, 3, req.ExtensionDays)
	assert.Equal(t, domain.Amount(100000), req.RentalRate)
	assert.Equal(t, domain.Amount(300000), req.ExtensionCost)
	assert.Equal(t, domain.Amount(1200000), req.TotalCost)
	assert.False(t, req.IsEstimate)
	assert.Equal(t, "2025-01-10", utils.FormatDate(req.CurrentEndDate))

	assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
	f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)

	notes := f.store.NotificationsFor(ownerID)
	require.Len(t, notes, 1)
	assert.Equal(t, "300000", notes[0].Attributes["extension_cost"])
}

func TestExtensionService_Request_Rejections(t *testing.T) {
	ctx := context.Background()
	input := func(d int) service.RequestExtensionInput {
		return service.RequestExtensionInput{SubOrderID: subOrderID, RenterID: renterID, NewEndDate: day(d), PaymentMethod: domain.PaymentMethodWallet}
	}

	t.Run("end date not after current end", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.extensions.Request(ctx, input(10))
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		f := newFixture(t)
		first := f.requestExtension(t, 12, domain.PaymentMethodWallet)
		_, err := f.extensions.Request(ctx, input(15))
		assert.ErrorIs(t, err, domain.ErrDuplicateActiveRequest)
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, first.ID, de.ConflictID)
	})

	t.Run("early return in progress", func(t *testing.T) {
		f := newFixture(t)
		f.createEarlyReturn(t, 6)
		_, err := f.extensions.Request(ctx, input(15))
		assert.ErrorIs(t, err, domain.ErrConflictingRequest)
	})

	t.Run("sub-order not active", func(t *testing.T) {
		f := newFixture(t)
		a := f.agreement(t)
		a.Status = domain.SubOrderStatusCompleted
		f.store.PutAgreement(a)
		_, err := f.extensions.Request(ctx, input(15))
		assert.ErrorIs(t, err, domain.ErrNotEditable)
	})

	t.Run("gateway needs a payment reference", func(t *testing.T) {
		f := newFixture(t)
		in := input(15)
		in.PaymentMethod = domain.PaymentMethodGateway
		_, err := f.extensions.Request(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("only the renter", func(t *testing.T) {
		f := newFixture(t)
		in := input(15)
		in.RenterID = ownerID
		_, err := f.extensions.Request(ctx, in)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestExtensionService_Approve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.requestExtension(t, 13, domain.PaymentMethodWallet)

	f.payments.On("Capture", mock.Anything, mock.MatchedBy(func(r domain.CaptureRequest) bool {
		return r.Amount == 300000 && r.Method == domain.PaymentMethodWallet && r.PayerID == renterID &&
			r.IdempotencyKey == req.ID+":capture"
	})).Return(ok("wallet-9"), nil).Once()

	approved, err := f.extensions.Approve(ctx, req.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusApproved, approved.Status)
	assert.Equal(t, domain.PaymentStatusPaid, approved.PaymentStatus)
	assert.Equal(t, "wallet-9", approved.TransactionID)
	assert.NotNil(t, approved.RespondedAt)

	a := f.agreement(t)
	assert.Equal(t, "2025-01-13", utils.FormatDate(a.RentalPeriod.EndDate))
	for _, item := range a.LineItems {
		assert.Equal(t, "2025-01-13", utils.FormatDate(item.EndDate))
	}

	again, err := f.extensions.Approve(ctx, req.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "wallet-9", again.TransactionID)

	notes := f.store.NotificationsFor(renterID)
	require.Len(t, notes, 1)
	assert.Equal(t, string(domain.EventExtensionApproved), notes[0].Attributes["event"])
	f.payments.AssertExpectations(t)
}

func TestExtensionService_BackToBackExtensions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.payments.On("Capture", mock.Anything, mock.Anything).Return(ok("wallet-1"), nil)

	first := f.requestExtension(t, 13, domain.PaymentMethodWallet)
	_, err := f.extensions.Approve(ctx, first.ID, ownerID)
	require.NoError(t, err)

	second := f.requestExtension(t, 16, domain.PaymentMethodWallet)
	assert.Equal(t, "2025-01-13", utils.FormatDate(second.CurrentEndDate))
	assert.Equal(t, 3, second.ExtensionDays)
	assert.Equal(t, domain.Amount(100000), second.RentalRate)
	assert.Equal(t, domain.Amount(300000), second.ExtensionCost)
	assert.Equal(t, domain.Amount(1500000), second.TotalCost)

	approved, err := f.extensions.Approve(ctx, second.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(300000), approved.ExtensionCost)
	assert.Equal(t, domain.Amount(1500000), approved.TotalCost)

	a := f.agreement(t)
	assert.Equal(t, "2025-01-16", utils.FormatDate(a.RentalPeriod.EndDate))
	assert.Equal(t, "2025-01-10", utils.FormatDate(a.ContractPeriod.EndDate))
}

func TestExtensionService_Approve_CaptureFailure(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.PaymentResult
		err    error
	}{
		{"capture error", nil, errors.New("insufficient wallet balance")},
		{"capture declined", &domain.PaymentResult{Success: false}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			req := f.requestExtension(t, 13, domain.PaymentMethodWallet)
			f.payments.On("Capture", mock.Anything, mock.Anything).Return(tt.result, tt.err).Once()

			_, err := f.extensions.Approve(ctx, req.ID, ownerID)
			assert.ErrorIs(t, err, domain.ErrPaymentCaptureFailed)

			stored, err := f.store.Extensions().GetByID(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.ExtensionStatusPending, stored.Status)
			assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
			assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
			assert.Empty(t, f.store.NotificationsFor(renterID))
		})
	}
}

func TestExtensionService_Approve_CashOnDeliveryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("deferred by default", func(t *testing.T) {
		f := newFixture(t)
		req := f.requestExtension(t, 12, domain.PaymentMethodCashOnDelivery)

		approved, err := f.extensions.Approve(ctx, req.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, domain.ExtensionStatusApproved, approved.Status)
		assert.Equal(t, domain.PaymentStatusPending, approved.PaymentStatus)
		assert.Equal(t, "2025-01-12", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
		f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	})

	t.Run("captured when configured", func(t *testing.T) {
		f := newFixture(t)
		svc := service.NewExtensionService(f.store.Transactor(), f.store.Agreements(), f.store.Extensions(),
			f.store.EarlyReturns(), lock.NewKeyedMutex(), f.payments, service.NewNotifier(f.store.Notifications(), f.store.Users(), nil),
			service.Policy{CaptureOnApprove: map[domain.PaymentMethod]bool{domain.PaymentMethodCashOnDelivery: true}})
		req := f.requestExtension(t, 12, domain.PaymentMethodCashOnDelivery)
		f.payments.On("Capture", mock.Anything, mock.MatchedBy(func(r domain.CaptureRequest) bool {
			return r.Method == domain.PaymentMethodCashOnDelivery && r.Amount == 200000
		})).Return(ok("cod-1"), nil).Once()

		approved, err := svc.Approve(ctx, req.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, approved.PaymentStatus)
		f.payments.AssertExpectations(t)
	})
}

func TestExtensionService_Approve_Stale(t *testing.T) {
	ctx := context.Background()

	t.Run("end date moved", func(t *testing.T) {
		f := newFixture(t)
		req := f.requestExtension(t, 13, domain.PaymentMethodWallet)
		a := f.agreement(t)
		a.SetEndDate(day(11))
		f.store.PutAgreement(a)

		_, err := f.extensions.Approve(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, domain.ErrStaleRequest)
		f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	})

	t.Run("sub-order completed", func(t *testing.T) {
		f := newFixture(t)
		req := f.requestExtension(t, 13, domain.PaymentMethodWallet)
		a := f.agreement(t)
		a.Status = domain.SubOrderStatusCompleted
		f.store.PutAgreement(a)

		_, err := f.extensions.Approve(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, domain.ErrStaleRequest)
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, string(domain.SubOrderStatusCompleted), de.ConflictState)
	})

	t.Run("estimate is never charged", func(t *testing.T) {
		f := newFixture(t)
		a := f.agreement(t)
		a.PricingSnapshot = nil
		f.store.PutAgreement(a)
		req := f.requestExtension(t, 13, domain.PaymentMethodWallet)
		assert.True(t, req.IsEstimate)
		assert.Equal(t, domain.Amount(150000), req.ExtensionCost)

		_, err := f.extensions.Approve(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, domain.ErrStaleRequest)
		f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	})

	t.Run("only the owner", func(t *testing.T) {
		f := newFixture(t)
		req := f.requestExtension(t, 13, domain.PaymentMethodWallet)
		_, err := f.extensions.Approve(ctx, req.ID, renterID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestExtensionService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.requestExtension(t, 13, domain.PaymentMethodWallet)

	_, err := f.extensions.Reject(ctx, req.ID, ownerID, "   ")
	assert.ErrorIs(t, err, domain.ErrReasonRequired)

	_, err = f.extensions.Reject(ctx, req.ID, renterID, "no")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	rejected, err := f.extensions.Reject(ctx, req.ID, ownerID, "needed for another booking")
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusRejected, rejected.Status)
	require.NotNil(t, rejected.OwnerResponse)
	assert.Equal(t, "needed for another booking", rejected.OwnerResponse.RejectionReason)

	again, err := f.extensions.Reject(ctx, req.ID, ownerID, "other")
	require.NoError(t, err)
	assert.Equal(t, "needed for another booking", again.OwnerResponse.RejectionReason)

	_, err = f.extensions.Approve(ctx, req.ID, ownerID)
	assert.ErrorIs(t, err, domain.ErrNotEditable)

	notes := f.store.NotificationsFor(renterID)
	require.Len(t, notes, 1)
	assert.True(t, strings.Contains(notes[0].Message, "needed for another booking"))
	f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	f.payments.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestExtensionService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.requestExtension(t, 13, domain.PaymentMethodWallet)

	_, err := f.extensions.Cancel(ctx, req.ID, ownerID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	cancelled, err := f.extensions.Cancel(ctx, req.ID, renterID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusCancelled, cancelled.Status)

	again, err := f.extensions.Cancel(ctx, req.ID, renterID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusCancelled, again.Status)
	assert.Len(t, f.store.NotificationsFor(ownerID), 2)

	next := f.requestExtension(t, 14, domain.PaymentMethodWallet)
	assert.NotEqual(t, req.ID, next.ID)
}

func TestExtensionService_CancelAfterApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.requestExtension(t, 12, domain.PaymentMethodCashOnDelivery)
	_, err := f.extensions.Approve(ctx, req.ID, ownerID)
	require.NoError(t, err)

	_, err = f.extensions.Cancel(ctx, req.ID, renterID)
	assert.ErrorIs(t, err, domain.ErrNotEditable)
}
