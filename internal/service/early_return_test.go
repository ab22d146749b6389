package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/service"
	"rental-modification-backend/internal/utils"
)

func TestEarlyReturnService_Create(t *testing.T) {
	f := newFixture(t)

	req := f.createEarlyReturn(t, 9)

	assert.Equal(t, domain.EarlyReturnStatusPending, req.Status)
	assert.Equal(t, "2025-01-09", utils.FormatDate(req.RequestedReturnDate))
	assert.Equal(t, "2025-01-01", utils.FormatDate(req.OriginalPeriod.StartDate))
	assert.Equal(t, "2025-01-10", utils.FormatDate(req.OriginalPeriod.EndDate))
	assert.Equal(t, domain.Amount(0), req.ShippingFeeDelta)
	assert.Equal(t, domain.ShippingFeeStatusNone, req.ShippingFeePayment.Status)
	assert.Equal(t, domain.ShipmentAckPending, req.ExternalShipmentAckStatus)

	a := f.agreement(t)
	assert.Equal(t, "2025-01-09", utils.FormatDate(a.RentalPeriod.EndDate))
	for _, item := range a.LineItems {
		assert.Equal(t, "2025-01-09", utils.FormatDate(item.EndDate))
	}

	notes := f.store.NotificationsFor(ownerID)
	require.Len(t, notes, 1)
	assert.Equal(t, string(domain.EventEarlyReturnRequested), notes[0].Attributes["event"])
	assert.Equal(t, req.ID, notes[0].Attributes["request_id"])
	f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
}

func TestEarlyReturnService_Create_DateBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		date    time.Time
		wantErr bool
	}{
		{"start date", day(1), false},
		{"day before end", day(9), false},
		{"end date", day(10), true},
		{"after end", day(11), true},
		{"before start", time.Date(2024, 12, 31, 0, 0, 0, 0, time.Local), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.earlyRet.Create(context.Background(), service.CreateEarlyReturnInput{
				SubOrderID:          subOrderID,
				RenterID:            renterID,
				RequestedReturnDate: tt.date,
				UseOriginalAddress:  true,
			})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "requested_return_date", de.Field)
			assert.Equal(t, utils.FormatDate(tt.date), de.Value)
			assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
		})
	}
}

func TestEarlyReturnService_Create_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("not the renter", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
			SubOrderID: subOrderID, RenterID: ownerID, RequestedReturnDate: day(5), UseOriginalAddress: true,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("unknown sub-order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
			SubOrderID: "missing", RenterID: renterID, RequestedReturnDate: day(5), UseOriginalAddress: true,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("second request is a duplicate", func(t *testing.T) {
		f := newFixture(t)
		first := f.createEarlyReturn(t, 8)
		_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
			SubOrderID: subOrderID, RenterID: renterID, RequestedReturnDate: day(5), UseOriginalAddress: true,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateActiveRequest)
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, first.ID, de.ConflictID)
		assert.Equal(t, string(domain.EarlyReturnStatusPending), de.ConflictState)
	})

	t.Run("address required when not using the original", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
			SubOrderID: subOrderID, RenterID: renterID, RequestedReturnDate: day(5),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("pending extension conflicts", func(t *testing.T) {
		f := newFixture(t)
		ext, err := f.extensions.Request(ctx, service.RequestExtensionInput{
			SubOrderID: subOrderID, RenterID: renterID, NewEndDate: day(13), PaymentMethod: domain.PaymentMethodWallet,
		})
		require.NoError(t, err)

		_, err = f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
			SubOrderID: subOrderID, RenterID: renterID, RequestedReturnDate: day(5), UseOriginalAddress: true,
		})
		assert.ErrorIs(t, err, domain.ErrConflictingRequest)
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, ext.ID, de.ConflictID)
	})

	t.Run("no active items", func(t *testing.T) {
		f := newFixture(t)
		a := f.agreement(t)
		for i := range a.LineItems {
			a.LineItems[i].ProductStatus = domain.ProductStatusReturned
		}
		f.store.PutAgreement(a)
		_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
			SubOrderID: subOrderID, RenterID: renterID, RequestedReturnDate: day(5), UseOriginalAddress: true,
		})
		assert.ErrorIs(t, err, domain.ErrNoActiveItems)
	})
}

func TestEarlyReturnService_Create_ConcurrentRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, duplicates := 0, 0
	for d := 2; d <= 9; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
				SubOrderID: subOrderID, RenterID: renterID, RequestedReturnDate: day(d), UseOriginalAddress: true,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrDuplicateActiveRequest):
				duplicates++
			}
		}(d)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, duplicates)
	live, err := f.store.EarlyReturns().FindLiveBySubOrder(ctx, subOrderID)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, utils.FormatDate(live.RequestedReturnDate), utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
}

func TestEarlyReturnService_AddressOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.payments.On("Capture", mock.Anything, mock.MatchedBy(func(r domain.CaptureRequest) bool {
		return r.Amount == 20000 && r.Method == domain.PaymentMethodWallet && r.PayerID == renterID &&
			strings.HasSuffix(r.IdempotencyKey, ":shipping") && strings.HasPrefix(r.IdempotencyKey, r.SubjectID)
	})).Return(ok("wallet-1"), nil).Once()

	req, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
		SubOrderID:          subOrderID,
		RenterID:            renterID,
		RequestedReturnDate: day(6),
		ReturnAddress:       &domain.Address{Line1: "9 Hill Rd", City: "Bengaluru", Region: "KA"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(20000), req.ShippingFeeDelta)
	assert.Equal(t, domain.ShippingFeeStatusPaid, req.ShippingFeePayment.Status)
	assert.Equal(t, "wallet-1", req.ShippingFeePayment.TransactionID)
	require.NotNil(t, req.ReturnAddress)
	assert.Equal(t, "KA", req.ReturnAddress.Region)

	f.payments.On("Refund", mock.Anything, mock.MatchedBy(func(r domain.RefundRequest) bool {
		return r.Amount == 20000 && r.PayeeID == renterID && r.IdempotencyKey == req.ID+":shipping-refund" && r.PaymentRef == ""
	})).Return(ok("wallet-2"), nil).Once()

	res, err := f.earlyRet.Cancel(ctx, req.ID, renterID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(20000), res.RefundedAmount)
	assert.Equal(t, "wallet-2", res.RefundTransactionID)
	assert.Equal(t, domain.EarlyReturnStatusCancelled, res.Request.Status)
	assert.Equal(t, domain.ShippingFeeStatusRefunded, res.Request.ShippingFeePayment.Status)
	assert.Equal(t, "plans changed", res.Request.CancelReason)
	assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))

	notes := f.store.NotificationsFor(ownerID)
	require.Len(t, notes, 2)
	assert.Equal(t, "20000", notes[1].Attributes["refunded_amount"])

	f.payments.AssertExpectations(t)
}

func TestEarlyReturnService_AddressMatchingTheOneOnFile(t *testing.T) {
	f := newFixture(t)

	req, err := f.earlyRet.Create(context.Background(), service.CreateEarlyReturnInput{
		SubOrderID:          subOrderID,
		RenterID:            renterID,
		RequestedReturnDate: day(6),
		ReturnAddress:       &domain.Address{Line1: "1 main st ", City: "Pune", Region: "MH"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(0), req.ShippingFeeDelta)
	assert.Equal(t, domain.ShippingFeeStatusNone, req.ShippingFeePayment.Status)
	f.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
}

func TestEarlyReturnService_Create_CaptureFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.payments.On("Capture", mock.Anything, mock.Anything).Return(nil, errors.New("insufficient wallet balance")).Once()

	_, err := f.earlyRet.Create(ctx, service.CreateEarlyReturnInput{
		SubOrderID:          subOrderID,
		RenterID:            renterID,
		RequestedReturnDate: day(6),
		ReturnAddress:       &domain.Address{Line1: "2 Main St", City: "Pune", Region: "MH"},
	})
	assert.ErrorIs(t, err, domain.ErrPaymentCaptureFailed)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.True(t, de.Retryable)

	live, err := f.store.EarlyReturns().FindLiveBySubOrder(ctx, subOrderID)
	require.NoError(t, err)
	assert.Nil(t, live)
	assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
	assert.Empty(t, f.store.NotificationsFor(ownerID))
}

func TestEarlyReturnService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the end date", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 5)
		newDate := day(7)
		notes := "leaving town"

		updated, err := f.earlyRet.Update(ctx, service.UpdateEarlyReturnInput{
			RequestID: req.ID, RequesterID: renterID, NewReturnDate: &newDate, Notes: &notes,
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-01-07", utils.FormatDate(updated.RequestedReturnDate))
		assert.Equal(t, "leaving town", updated.RenterNotes)
		assert.Equal(t, "2025-01-07", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
	})

	t.Run("validates against the original period", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 5)
		newDate := day(10)

		_, err := f.earlyRet.Update(ctx, service.UpdateEarlyReturnInput{RequestID: req.ID, RequesterID: renterID, NewReturnDate: &newDate})
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
		assert.Equal(t, "2025-01-05", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
	})

	t.Run("not editable once the shipment is acknowledged", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 5)
		require.NoError(t, f.shipments.Record(ctx, subOrderID, domain.ShipmentAckAcknowledged))
		newDate := day(6)

		_, err := f.earlyRet.Update(ctx, service.UpdateEarlyReturnInput{RequestID: req.ID, RequesterID: renterID, NewReturnDate: &newDate})
		assert.ErrorIs(t, err, domain.ErrNotEditable)

		stored, err := f.store.EarlyReturns().GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, "2025-01-05", utils.FormatDate(stored.RequestedReturnDate))
	})

	t.Run("owner cannot edit", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 5)
		notes := "x"
		_, err := f.earlyRet.Update(ctx, service.UpdateEarlyReturnInput{RequestID: req.ID, RequesterID: ownerID, Notes: &notes})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestEarlyReturnService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 4)

		first, err := f.earlyRet.Cancel(ctx, req.ID, renterID, "changed my mind")
		require.NoError(t, err)
		second, err := f.earlyRet.Cancel(ctx, req.ID, renterID, "another reason")
		require.NoError(t, err)

		assert.Equal(t, domain.EarlyReturnStatusCancelled, second.Request.Status)
		assert.Equal(t, "changed my mind", second.Request.CancelReason)
		assert.Equal(t, first.Request.UpdatedAt, second.Request.UpdatedAt)
		assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
		assert.Len(t, f.store.NotificationsFor(ownerID), 2)
	})

	t.Run("frees the slot for a new request", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 4)
		_, err := f.earlyRet.Cancel(ctx, req.ID, renterID, "")
		require.NoError(t, err)

		again := f.createEarlyReturn(t, 6)
		assert.NotEqual(t, req.ID, again.ID)
	})

	t.Run("not after acknowledgment", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 4)
		require.NoError(t, f.shipments.Record(ctx, subOrderID, domain.ShipmentAckAcknowledged))

		_, err := f.earlyRet.Cancel(ctx, req.ID, renterID, "")
		assert.ErrorIs(t, err, domain.ErrNotEditable)
		assert.Equal(t, "2025-01-04", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
	})

	t.Run("only the renter", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 4)
		_, err := f.earlyRet.Cancel(ctx, req.ID, ownerID, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestEarlyReturnService_DeleteRestoresOriginalPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.agreement(t).RentalPeriod

	req := f.createEarlyReturn(t, 3)
	_, err := f.earlyRet.Delete(ctx, req.ID, renterID)
	require.NoError(t, err)

	after := f.agreement(t)
	assert.Equal(t, utils.FormatDate(before.EndDate), utils.FormatDate(after.RentalPeriod.EndDate))
	assert.Equal(t, utils.FormatDate(req.OriginalPeriod.EndDate), utils.FormatDate(after.RentalPeriod.EndDate))
	for _, item := range after.LineItems {
		assert.Equal(t, "2025-01-10", utils.FormatDate(item.EndDate))
	}

	_, err = f.queries.GetEarlyReturn(ctx, renterID, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.earlyRet.Delete(ctx, req.ID, renterID)
	assert.NoError(t, err)

	items, total, err := f.queries.ListEarlyReturnsForRenter(ctx, renterID, 1, 10, []domain.EarlyReturnStatus{domain.EarlyReturnStatusCancelled})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(0), total)
}

func TestEarlyReturnService_DeleteAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.createEarlyReturn(t, 3)
	_, err := f.earlyRet.Cancel(ctx, req.ID, renterID, "")
	require.NoError(t, err)
	_, err = f.earlyRet.Delete(ctx, req.ID, renterID)
	require.NoError(t, err)

	stored, err := f.store.EarlyReturns().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.Equal(t, "2025-01-10", utils.FormatDate(f.agreement(t).RentalPeriod.EndDate))
}

func TestEarlyReturnService_ShipmentSignalAndConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createEarlyReturn(t, 8)

	require.NoError(t, f.shipments.Record(ctx, subOrderID, domain.ShipmentAckAcknowledged))
	changed, err := f.earlyRet.ApplyShipmentSignal(ctx, subOrderID)
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.Equal(t, domain.EarlyReturnStatusAcknowledged, changed.Status)
	assert.Equal(t, domain.ShipmentAckAcknowledged, changed.ExternalShipmentAckStatus)

	renterNotes := f.store.NotificationsFor(renterID)
	require.Len(t, renterNotes, 1)
	assert.Equal(t, string(domain.EventEarlyReturnAcknowledged), renterNotes[0].Attributes["event"])

	unchanged, err := f.earlyRet.ApplyShipmentSignal(ctx, subOrderID)
	require.NoError(t, err)
	assert.Nil(t, unchanged)

	f.payments.On("Refund", mock.Anything, mock.MatchedBy(func(r domain.RefundRequest) bool {
		return r.Amount == 8000 && r.PaymentRef == "pay_deposit" && r.IdempotencyKey == req.ID+":deposit"
	})).Return(ok("rfnd_1"), nil).Once()

	qc := domain.QualityCheck{Condition: domain.ItemConditionDamaged, Notes: "cracked casing", DeductionAmount: 2000}
	confirmed, err := f.earlyRet.ConfirmReturn(ctx, req.ID, ownerID, "checked", qc)
	require.NoError(t, err)
	assert.Equal(t, domain.EarlyReturnStatusCompleted, confirmed.Status)
	assert.Equal(t, domain.DepositRefund{Amount: 8000, Status: domain.RefundStatusCompleted, TransactionID: "rfnd_1"}, confirmed.DepositRefund)
	require.NotNil(t, confirmed.OwnerConfirmation)
	assert.Equal(t, qc, confirmed.OwnerConfirmation.QualityCheck)
	assert.NotNil(t, confirmed.CompletedAt)

	a := f.agreement(t)
	assert.Equal(t, domain.SubOrderStatusCompleted, a.Status)
	for _, item := range a.LineItems {
		assert.Equal(t, domain.ProductStatusReturned, item.ProductStatus)
	}

	again, err := f.earlyRet.ConfirmReturn(ctx, req.ID, ownerID, "checked", qc)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", again.DepositRefund.TransactionID)
	f.payments.AssertExpectations(t)
}

func TestEarlyReturnService_ConfirmReturn_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("still pending", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 8)
		_, err := f.earlyRet.ConfirmReturn(ctx, req.ID, ownerID, "", domain.QualityCheck{Condition: domain.ItemConditionGood})
		assert.ErrorIs(t, err, domain.ErrNotEditable)
	})

	t.Run("renter cannot confirm", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 8)
		_, err := f.earlyRet.ConfirmReturn(ctx, req.ID, renterID, "", domain.QualityCheck{Condition: domain.ItemConditionGood})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("deduction needs damage", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 8)
		require.NoError(t, f.shipments.Record(ctx, subOrderID, domain.ShipmentAckAcknowledged))
		_, err := f.earlyRet.ApplyShipmentSignal(ctx, subOrderID)
		require.NoError(t, err)

		_, err = f.earlyRet.ConfirmReturn(ctx, req.ID, ownerID, "", domain.QualityCheck{Condition: domain.ItemConditionWorn, DeductionAmount: 100})
		assert.ErrorIs(t, err, domain.ErrInvalidDeduction)
		f.payments.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	})

	t.Run("refund failure leaves state untouched", func(t *testing.T) {
		f := newFixture(t)
		req := f.createEarlyReturn(t, 8)
		require.NoError(t, f.shipments.Record(ctx, subOrderID, domain.ShipmentAckAcknowledged))
		_, err := f.earlyRet.ApplyShipmentSignal(ctx, subOrderID)
		require.NoError(t, err)
		f.payments.On("Refund", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout")).Once()

		_, err = f.earlyRet.ConfirmReturn(ctx, req.ID, ownerID, "", domain.QualityCheck{Condition: domain.ItemConditionGood})
		assert.ErrorIs(t, err, domain.ErrRefundFailed)

		stored, err := f.store.EarlyReturns().GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EarlyReturnStatusAcknowledged, stored.Status)
		assert.Equal(t, domain.RefundStatusPending, stored.DepositRefund.Status)
		assert.Equal(t, domain.SubOrderStatusActive, f.agreement(t).Status)
	})
}

func TestEarlyReturnService_AutoComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createEarlyReturn(t, 8)

	_, err := f.earlyRet.AutoComplete(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotEditable)

	require.NoError(t, f.shipments.Record(ctx, subOrderID, domain.ShipmentAckCompleted))
	returned, err := f.earlyRet.ApplyShipmentSignal(ctx, subOrderID)
	require.NoError(t, err)
	require.NotNil(t, returned)
	assert.Equal(t, domain.EarlyReturnStatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnedAt)

	f.payments.On("Refund", mock.Anything, mock.MatchedBy(func(r domain.RefundRequest) bool {
		return r.Amount == 10000 && r.IdempotencyKey == req.ID+":deposit"
	})).Return(ok("rfnd_2"), nil).Once()

	completed, err := f.earlyRet.AutoComplete(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EarlyReturnStatusAutoCompleted, completed.Status)
	assert.Equal(t, domain.Amount(10000), completed.DepositRefund.Amount)
	assert.Nil(t, completed.OwnerConfirmation)

	again, err := f.earlyRet.AutoComplete(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EarlyReturnStatusAutoCompleted, again.Status)

	last := func(userID string) domain.Notification {
		notes := f.store.NotificationsFor(userID)
		require.NotEmpty(t, notes)
		return notes[len(notes)-1]
	}
	assert.Equal(t, string(domain.EventEarlyReturnAutoCompleted), last(renterID).Attributes["event"])
	assert.Equal(t, string(domain.EventEarlyReturnAutoCompleted), last(ownerID).Attributes["event"])
	assert.Equal(t, "10000", last(ownerID).Attributes["refund_amount"])
	f.payments.AssertExpectations(t)
}
