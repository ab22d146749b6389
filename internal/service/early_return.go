package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/lock"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
	"rental-modification-backend/internal/utils"
)

type earlyReturnService struct {
	tx           repository.Transactor
	agreements   repository.RentalAgreementRepository
	earlyReturns repository.EarlyReturnRepository
	extensions   repository.ExtensionRepository
	users        repository.UserRepository
	locker       lock.Locker
	payments     PaymentProcessor
	shipments    ShipmentStatusReader
	quoter       ShippingQuoter
	notifier     Notifier
}

func NewEarlyReturnService(
	tx repository.Transactor,
	agreements repository.RentalAgreementRepository,
	earlyReturns repository.EarlyReturnRepository,
	extensions repository.ExtensionRepository,
	users repository.UserRepository,
	locker lock.Locker,
	payments PaymentProcessor,
	shipments ShipmentStatusReader,
	quoter ShippingQuoter,
	notifier Notifier,
) EarlyReturnService {
	return &earlyReturnService{
		tx:           tx,
		agreements:   agreements,
		earlyReturns: earlyReturns,
		extensions:   extensions,
		users:        users,
		locker:       locker,
		payments:     payments,
		shipments:    shipments,
		quoter:       quoter,
		notifier:     notifier,
	}
}

// validateReturnDate enforces start <= requested <= end-1 against the period
// snapshotted when the request was created.
func validateReturnDate(requested time.Time, period domain.RentalPeriod) error {
	lastAllowed := utils.AddDays(period.EndDate, -1)
	if utils.IsBefore(requested, period.StartDate) || utils.IsBefore(lastAllowed, requested) {
		return domain.NewInvalidDateRange("requested_return_date", requested,
			fmt.Sprintf("return date must be between %s and %s", utils.FormatDate(period.StartDate), utils.FormatDate(lastAllowed)))
	}
	return nil
}

func (s *earlyReturnService) Create(ctx context.Context, in CreateEarlyReturnInput) (*domain.EarlyReturnRequest, error) {
	logger.EnterMethod("earlyReturnService.Create", "subOrderID", in.SubOrderID, "renterID", in.RenterID,
		"requestedReturnDate", utils.FormatDate(in.RequestedReturnDate))

	if !in.UseOriginalAddress && in.ReturnAddress == nil {
		err := domain.NewInvalidArgument("return_address", "", "a return address is required when not using the original address")
		logger.ExitMethodWithError("earlyReturnService.Create", err)
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentMethodWallet
	}
	if !in.PaymentMethod.IsValid() {
		err := domain.NewInvalidArgument("payment_method", string(in.PaymentMethod), "unsupported payment method")
		logger.ExitMethodWithError("earlyReturnService.Create", err)
		return nil, err
	}
	requested := utils.NormalizeDate(in.RequestedReturnDate)

	var created *domain.EarlyReturnRequest
	err := withSubOrderLock(ctx, s.locker, in.SubOrderID, func() error {
		agreement, err := s.agreements.GetByID(ctx, in.SubOrderID)
		if err != nil {
			return err
		}
		if agreement.RenterID != in.RenterID {
			return domain.NewUnauthorized("only the renter of this sub-order can request an early return")
		}
		// A live request has already moved the end date, so it is checked
		// before the date is validated against the current period.
		if live, err := s.earlyReturns.FindLiveBySubOrder(ctx, agreement.ID); err != nil {
			return err
		} else if live != nil {
			return domain.NewDuplicateActiveRequest(live.ID, string(live.Status))
		}
		if pending, err := s.extensions.FindPendingBySubOrder(ctx, agreement.ID); err != nil {
			return err
		} else if pending != nil {
			return domain.NewConflictingRequest("an extension request is pending for this sub-order", pending.ID, string(pending.Status))
		}
		if !agreement.HasActiveItems() {
			return domain.NewNoActiveItems(agreement.ID)
		}
		original := agreement.RentalPeriod
		if err := validateReturnDate(requested, original); err != nil {
			return err
		}

		now := time.Now()
		req := &domain.EarlyReturnRequest{
			ID:                        uuid.NewString(),
			SubOrderID:                agreement.ID,
			RenterID:                  agreement.RenterID,
			OwnerID:                   agreement.OwnerID,
			Status:                    domain.EarlyReturnStatusPending,
			RequestedReturnDate:       requested,
			OriginalPeriod:            original,
			UseOriginalAddress:        in.UseOriginalAddress,
			DepositRefund:             domain.DepositRefund{Status: domain.RefundStatusPending},
			ShippingFeePayment:        domain.ShippingFeePayment{Status: domain.ShippingFeeStatusNone},
			RenterNotes:               in.Notes,
			ExternalShipmentAckStatus: domain.ShipmentAckPending,
			CreatedAt:                 now,
			UpdatedAt:                 now,
		}

		if !in.UseOriginalAddress {
			address := *in.ReturnAddress
			req.ReturnAddress = &address
			quote, err := s.quoteShipping(ctx, agreement, address)
			if err != nil {
				return err
			}
			req.ShippingFeeDelta = utils.ShippingFeeDelta(false, quote)
		}

		if req.ShippingFeeDelta > 0 {
			result, err := s.payments.Capture(ctx, domain.CaptureRequest{
				Amount:         req.ShippingFeeDelta,
				Method:         in.PaymentMethod,
				SubjectID:      req.ID,
				PayerID:        req.RenterID,
				PaymentRef:     in.PaymentRef,
				IdempotencyKey: req.ID + ":shipping",
				Description:    "Early return shipping fee for sub-order " + agreement.ID,
			})
			if err != nil {
				return domain.NewPaymentCaptureFailed("shipping fee capture failed", err)
			}
			if !result.Success {
				return domain.NewPaymentCaptureFailed("shipping fee capture was declined", nil)
			}
			req.ShippingFeePayment = domain.ShippingFeePayment{
				Method:        in.PaymentMethod,
				Status:        domain.ShippingFeeStatusPaid,
				TransactionID: result.TransactionID,
			}
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.earlyReturns.Create(ctx, req); err != nil {
				return err
			}
			agreement.SetEndDate(requested)
			return s.agreements.Update(ctx, agreement)
		})
		if err != nil {
			if req.ShippingFeePayment.Status == domain.ShippingFeeStatusPaid {
				s.compensateShippingCapture(ctx, req)
			}
			return err
		}

		created = req
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("earlyReturnService.Create", err, "subOrderID", in.SubOrderID)
		return nil, err
	}

	s.notifier.Notify(ctx, created.OwnerID, domain.EventEarlyReturnRequested, earlyReturnPayload(created))
	logger.ExitMethod("earlyReturnService.Create", "requestID", created.ID, "shippingFeeDelta", created.ShippingFeeDelta)
	return created, nil
}

func (s *earlyReturnService) quoteShipping(ctx context.Context, agreement *domain.RentalAgreement, to domain.Address) (domain.Amount, error) {
	var onFile *domain.Address
	renter, err := s.users.GetByID(ctx, agreement.RenterID)
	switch {
	case err == nil:
		onFile = renter.Address
	case domain.KindOf(err) == domain.KindNotFound:
	default:
		return 0, err
	}
	quote, err := s.quoter.QuoteReturnShipping(ctx, agreement.ID, onFile, to)
	if err != nil {
		return 0, fmt.Errorf("quote return shipping: %w", err)
	}
	return quote, nil
}

// compensateShippingCapture returns a shipping fee whose request could not be persisted.
func (s *earlyReturnService) compensateShippingCapture(ctx context.Context, req *domain.EarlyReturnRequest) {
	_, err := s.payments.Refund(ctx, s.shippingRefund(req))
	if err != nil {
		logger.Error("Failed to refund shipping fee of unpersisted early return", "requestID", req.ID,
			"amount", req.ShippingFeeDelta, "transactionID", req.ShippingFeePayment.TransactionID, "error", err)
	}
}

func (s *earlyReturnService) shippingRefund(req *domain.EarlyReturnRequest) domain.RefundRequest {
	refund := domain.RefundRequest{
		Amount:         req.ShippingFeeDelta,
		SubjectID:      req.ID,
		PayeeID:        req.RenterID,
		IdempotencyKey: req.ID + ":shipping-refund",
		Description:    "Early return shipping fee refund for sub-order " + req.SubOrderID,
	}
	if req.ShippingFeePayment.Method == domain.PaymentMethodGateway {
		refund.PaymentRef = req.ShippingFeePayment.TransactionID
	}
	return refund
}

// loadLocked reads a request to learn its sub-order, then runs fn under that
// sub-order's lock with a fresh copy of the request.
func (s *earlyReturnService) loadLocked(ctx context.Context, requestID string, fn func(req *domain.EarlyReturnRequest) error) error {
	req, err := s.earlyReturns.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	return withSubOrderLock(ctx, s.locker, req.SubOrderID, func() error {
		fresh, err := s.earlyReturns.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		return fn(fresh)
	})
}

// mayEdit checks the mutability window, asking the shipment subsystem for
// the live acknowledgment status and falling back to the mirrored one.
func (s *earlyReturnService) mayEdit(ctx context.Context, req *domain.EarlyReturnRequest) error {
	if req.Status != domain.EarlyReturnStatusPending {
		return domain.NewNotEditable("status", string(req.Status), "request can only be changed while PENDING")
	}
	ack := req.ExternalShipmentAckStatus
	if live, err := s.shipments.AcknowledgedStatus(ctx, req.SubOrderID); err != nil {
		logger.Warn("Shipment status unavailable, using mirrored status", "subOrderID", req.SubOrderID, "error", err)
	} else {
		ack = live
	}
	if ack != domain.ShipmentAckPending {
		return domain.NewNotEditable("external_shipment_ack_status", string(ack), "the return shipment has already been acknowledged")
	}
	return nil
}

func (s *earlyReturnService) Update(ctx context.Context, in UpdateEarlyReturnInput) (*domain.EarlyReturnRequest, error) {
	logger.EnterMethod("earlyReturnService.Update", "requestID", in.RequestID, "requesterID", in.RequesterID)

	var updated *domain.EarlyReturnRequest
	err := s.loadLocked(ctx, in.RequestID, func(req *domain.EarlyReturnRequest) error {
		if req.IsDeleted() {
			return domain.NewNotFound("early return request", req.ID)
		}
		if req.RenterID != in.RequesterID {
			return domain.NewUnauthorized("only the renter can update this early return")
		}
		if err := s.mayEdit(ctx, req); err != nil {
			return err
		}

		var newDate time.Time
		dateChanged := false
		if in.NewReturnDate != nil {
			newDate = utils.NormalizeDate(*in.NewReturnDate)
			if err := validateReturnDate(newDate, req.OriginalPeriod); err != nil {
				return err
			}
			dateChanged = !utils.SameDay(newDate, req.RequestedReturnDate)
			req.RequestedReturnDate = newDate
		}
		if in.Notes != nil {
			req.RenterNotes = *in.Notes
		}
		req.UpdatedAt = time.Now()

		if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.earlyReturns.Update(ctx, req); err != nil {
				return err
			}
			if !dateChanged {
				return nil
			}
			agreement, err := s.agreements.GetByID(ctx, req.SubOrderID)
			if err != nil {
				return err
			}
			agreement.SetEndDate(newDate)
			return s.agreements.Update(ctx, agreement)
		}); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("earlyReturnService.Update", err, "requestID", in.RequestID)
		return nil, err
	}

	s.notifier.Notify(ctx, updated.OwnerID, domain.EventEarlyReturnUpdated, earlyReturnPayload(updated))
	logger.ExitMethod("earlyReturnService.Update", "requestID", updated.ID)
	return updated, nil
}

func (s *earlyReturnService) Cancel(ctx context.Context, requestID, requesterID, reason string) (*EarlyReturnCancellation, error) {
	return s.terminate(ctx, requestID, requesterID, reason, false)
}

func (s *earlyReturnService) Delete(ctx context.Context, requestID, requesterID string) (*EarlyReturnCancellation, error) {
	return s.terminate(ctx, requestID, requesterID, "", true)
}

// terminate cancels (and for delete, tombstones) a request. The paid shipping
// fee is refunded before anything is persisted, and the sub-order's end date
// goes back to the snapshotted original.
func (s *earlyReturnService) terminate(ctx context.Context, requestID, requesterID, reason string, remove bool) (*EarlyReturnCancellation, error) {
	method := "earlyReturnService.Cancel"
	if remove {
		method = "earlyReturnService.Delete"
	}
	logger.EnterMethod(method, "requestID", requestID, "requesterID", requesterID)

	var result *EarlyReturnCancellation
	notify := false
	err := s.loadLocked(ctx, requestID, func(req *domain.EarlyReturnRequest) error {
		if req.RenterID != requesterID {
			return domain.NewUnauthorized("only the renter can cancel or delete this early return")
		}

		result = &EarlyReturnCancellation{Request: req}
		if req.IsDeleted() || (req.Status == domain.EarlyReturnStatusCancelled && !remove) {
			return nil
		}
		if req.Status == domain.EarlyReturnStatusCancelled {
			// Already cancelled and restored; delete only hides it.
			now := time.Now()
			req.DeletedAt = &now
			req.UpdatedAt = now
			return s.earlyReturns.Update(ctx, req)
		}
		if err := s.mayEdit(ctx, req); err != nil {
			return err
		}

		if req.ShippingFeePayment.Status == domain.ShippingFeeStatusPaid && req.ShippingFeeDelta > 0 {
			if req.ShippingFeePayment.Method != domain.PaymentMethodCashOnDelivery {
				refund, err := s.payments.Refund(ctx, s.shippingRefund(req))
				if err != nil {
					return domain.NewRefundFailed("shipping fee refund failed", err)
				}
				if !refund.Success {
					return domain.NewRefundFailed("shipping fee refund was declined", nil)
				}
				result.RefundedAmount = req.ShippingFeeDelta
				result.RefundTransactionID = refund.TransactionID
			}
			req.ShippingFeePayment.Status = domain.ShippingFeeStatusRefunded
		}

		now := time.Now()
		req.Status = domain.EarlyReturnStatusCancelled
		req.CancelReason = reason
		req.UpdatedAt = now
		if remove {
			req.DeletedAt = &now
		}

		if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			agreement, err := s.agreements.GetByID(ctx, req.SubOrderID)
			if err != nil {
				return err
			}
			agreement.SetEndDate(req.OriginalPeriod.EndDate)
			if err := s.agreements.Update(ctx, agreement); err != nil {
				return err
			}
			return s.earlyReturns.Update(ctx, req)
		}); err != nil {
			return err
		}
		notify = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "requestID", requestID)
		return nil, err
	}

	if notify {
		event := domain.EventEarlyReturnCancelled
		if remove {
			event = domain.EventEarlyReturnDeleted
		}
		payload := earlyReturnPayload(result.Request)
		if result.RefundedAmount > 0 {
			payload["refunded_amount"] = fmt.Sprintf("%d", result.RefundedAmount)
		}
		s.notifier.Notify(ctx, result.Request.OwnerID, event, payload)
	}
	logger.ExitMethod(method, "requestID", requestID, "refundedAmount", result.RefundedAmount)
	return result, nil
}

func (s *earlyReturnService) ConfirmReturn(ctx context.Context, requestID, ownerID, notes string, qc domain.QualityCheck) (*domain.EarlyReturnRequest, error) {
	logger.EnterMethod("earlyReturnService.ConfirmReturn", "requestID", requestID, "ownerID", ownerID, "condition", qc.Condition)

	var confirmed *domain.EarlyReturnRequest
	notify := false
	err := s.loadLocked(ctx, requestID, func(req *domain.EarlyReturnRequest) error {
		if req.IsDeleted() {
			return domain.NewNotFound("early return request", req.ID)
		}
		if req.OwnerID != ownerID {
			return domain.NewUnauthorized("only the owner of this sub-order can confirm the return")
		}
		if req.Status == domain.EarlyReturnStatusCompleted {
			confirmed = req
			return nil
		}
		if req.Status != domain.EarlyReturnStatusAcknowledged && req.Status != domain.EarlyReturnStatusReturned {
			return domain.NewNotEditable("status", string(req.Status), "return can only be confirmed once the shipment is acknowledged")
		}

		now := time.Now()
		confirmation := &domain.OwnerConfirmation{ReturnedAt: now, QualityCheck: qc, Notes: notes}
		if err := s.complete(ctx, req, domain.EarlyReturnStatusCompleted, &qc, confirmation); err != nil {
			return err
		}
		confirmed = req
		notify = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("earlyReturnService.ConfirmReturn", err, "requestID", requestID)
		return nil, err
	}

	if notify {
		s.notifier.Notify(ctx, confirmed.RenterID, domain.EventEarlyReturnCompleted, earlyReturnPayload(confirmed))
	}
	logger.ExitMethod("earlyReturnService.ConfirmReturn", "requestID", requestID, "depositRefund", confirmed.DepositRefund.Amount)
	return confirmed, nil
}

func (s *earlyReturnService) AutoComplete(ctx context.Context, requestID string) (*domain.EarlyReturnRequest, error) {
	logger.EnterMethod("earlyReturnService.AutoComplete", "requestID", requestID)

	var completed *domain.EarlyReturnRequest
	notify := false
	err := s.loadLocked(ctx, requestID, func(req *domain.EarlyReturnRequest) error {
		if req.IsDeleted() {
			return domain.NewNotFound("early return request", req.ID)
		}
		if req.Status == domain.EarlyReturnStatusAutoCompleted {
			completed = req
			return nil
		}
		if req.Status != domain.EarlyReturnStatusReturned {
			return domain.NewNotEditable("status", string(req.Status), "only RETURNED requests can be auto-completed")
		}
		if err := s.complete(ctx, req, domain.EarlyReturnStatusAutoCompleted, nil, nil); err != nil {
			return err
		}
		completed = req
		notify = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("earlyReturnService.AutoComplete", err, "requestID", requestID)
		return nil, err
	}

	if notify {
		payload := earlyReturnPayload(completed)
		s.notifier.Notify(ctx, completed.RenterID, domain.EventEarlyReturnAutoCompleted, payload)
		s.notifier.Notify(ctx, completed.OwnerID, domain.EventEarlyReturnAutoCompleted, payload)
	}
	logger.ExitMethod("earlyReturnService.AutoComplete", "requestID", requestID)
	return completed, nil
}

// complete refunds the deposit and only then records the terminal state,
// marking the returned items and, when none stay active, the sub-order.
func (s *earlyReturnService) complete(ctx context.Context, req *domain.EarlyReturnRequest, status domain.EarlyReturnStatus,
	qc *domain.QualityCheck, confirmation *domain.OwnerConfirmation) error {

	agreement, err := s.agreements.GetByID(ctx, req.SubOrderID)
	if err != nil {
		return err
	}
	items := agreement.ActiveLineItems()
	amount, err := utils.DepositRefund(items, qc)
	if err != nil {
		return err
	}

	refund := domain.DepositRefund{Amount: amount, Status: domain.RefundStatusCompleted}
	if amount > 0 {
		result, err := s.payments.Refund(ctx, domain.RefundRequest{
			Amount:         amount,
			SubjectID:      req.ID,
			PayeeID:        req.RenterID,
			PaymentRef:     agreement.DepositPaymentRef,
			IdempotencyKey: req.ID + ":deposit",
			Description:    "Deposit refund for sub-order " + req.SubOrderID,
		})
		if err != nil {
			return domain.NewRefundFailed("deposit refund failed", err)
		}
		if !result.Success {
			return domain.NewRefundFailed("deposit refund was declined", nil)
		}
		refund.TransactionID = result.TransactionID
	}

	now := time.Now()
	req.Status = status
	req.DepositRefund = refund
	req.OwnerConfirmation = confirmation
	req.CompletedAt = &now
	if req.ReturnedAt == nil {
		req.ReturnedAt = &now
	}
	req.UpdatedAt = now

	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		agreement.MarkItemsReturned(itemIDs)
		if err := s.agreements.Update(ctx, agreement); err != nil {
			return err
		}
		return s.earlyReturns.Update(ctx, req)
	})
}

func (s *earlyReturnService) ApplyShipmentSignal(ctx context.Context, subOrderID string) (*domain.EarlyReturnRequest, error) {
	logger.EnterMethod("earlyReturnService.ApplyShipmentSignal", "subOrderID", subOrderID)

	var changed *domain.EarlyReturnRequest
	var event domain.EventType
	err := withSubOrderLock(ctx, s.locker, subOrderID, func() error {
		req, err := s.earlyReturns.FindLiveBySubOrder(ctx, subOrderID)
		if err != nil || req == nil {
			return err
		}
		status, err := s.shipments.AcknowledgedStatus(ctx, subOrderID)
		if err != nil {
			return fmt.Errorf("read shipment status: %w", err)
		}

		dirty := req.ExternalShipmentAckStatus != status
		req.ExternalShipmentAckStatus = status
		if req.Status == domain.EarlyReturnStatusPending && status != domain.ShipmentAckPending {
			req.Status = domain.EarlyReturnStatusAcknowledged
			event = domain.EventEarlyReturnAcknowledged
			dirty = true
		}
		if req.Status == domain.EarlyReturnStatusAcknowledged && status == domain.ShipmentAckCompleted {
			now := time.Now()
			req.Status = domain.EarlyReturnStatusReturned
			req.ReturnedAt = &now
			event = domain.EventEarlyReturnReturned
			dirty = true
		}
		if !dirty {
			return nil
		}
		req.UpdatedAt = time.Now()
		if err := s.earlyReturns.Update(ctx, req); err != nil {
			return err
		}
		changed = req
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("earlyReturnService.ApplyShipmentSignal", err, "subOrderID", subOrderID)
		return nil, err
	}

	if changed != nil && event != "" {
		recipient := changed.RenterID
		if event == domain.EventEarlyReturnReturned {
			recipient = changed.OwnerID
		}
		s.notifier.Notify(ctx, recipient, event, earlyReturnPayload(changed))
	}
	logger.ExitMethod("earlyReturnService.ApplyShipmentSignal", "subOrderID", subOrderID, "changed", changed != nil)
	return changed, nil
}

func earlyReturnPayload(req *domain.EarlyReturnRequest) map[string]string {
	payload := map[string]string{
		"request_id":            req.ID,
		"sub_order_id":          req.SubOrderID,
		"status":                string(req.Status),
		"requested_return_date": utils.FormatDate(req.RequestedReturnDate),
	}
	if req.DepositRefund.Status != "" && req.DepositRefund.Status != domain.RefundStatusPending {
		payload["refund_amount"] = fmt.Sprintf("%d", req.DepositRefund.Amount)
	}
	return payload
}
