package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/lock"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
	"rental-modification-backend/internal/utils"
)

type extensionService struct {
	tx           repository.Transactor
	agreements   repository.RentalAgreementRepository
	extensions   repository.ExtensionRepository
	earlyReturns repository.EarlyReturnRepository
	locker       lock.Locker
	payments     PaymentProcessor
	notifier     Notifier
	policy       Policy
}

func NewExtensionService(
	tx repository.Transactor,
	agreements repository.RentalAgreementRepository,
	extensions repository.ExtensionRepository,
	earlyReturns repository.EarlyReturnRepository,
	locker lock.Locker,
	payments PaymentProcessor,
	notifier Notifier,
	policy Policy,
) ExtensionService {
	return &extensionService{
		tx:           tx,
		agreements:   agreements,
		extensions:   extensions,
		earlyReturns: earlyReturns,
		locker:       locker,
		payments:     payments,
		notifier:     notifier,
		policy:       policy,
	}
}

func (s *extensionService) Request(ctx context.Context, in RequestExtensionInput) (*domain.ExtensionRequest, error) {
	logger.EnterMethod("extensionService.Request", "subOrderID", in.SubOrderID, "renterID", in.RenterID,
		"newEndDate", utils.FormatDate(in.NewEndDate), "paymentMethod", in.PaymentMethod)

	if !in.PaymentMethod.IsValid() {
		err := domain.NewInvalidArgument("payment_method", string(in.PaymentMethod), "unsupported payment method")
		logger.ExitMethodWithError("extensionService.Request", err)
		return nil, err
	}
	if in.PaymentMethod == domain.PaymentMethodGateway && in.GatewayPaymentRef == "" {
		err := domain.NewInvalidArgument("gateway_payment_ref", "", "gateway payments need an authorized payment reference")
		logger.ExitMethodWithError("extensionService.Request", err)
		return nil, err
	}
	newEnd := utils.NormalizeDate(in.NewEndDate)

	var created *domain.ExtensionRequest
	err := withSubOrderLock(ctx, s.locker, in.SubOrderID, func() error {
		agreement, err := s.agreements.GetByID(ctx, in.SubOrderID)
		if err != nil {
			return err
		}
		if agreement.RenterID != in.RenterID {
			return domain.NewUnauthorized("only the renter of this sub-order can request an extension")
		}
		if agreement.Status != domain.SubOrderStatusActive {
			return domain.NewNotEditable("sub_order_status", string(agreement.Status), "only ACTIVE rentals can be extended")
		}

		if pending, err := s.extensions.FindPendingBySubOrder(ctx, agreement.ID); err != nil {
			return err
		} else if pending != nil {
			return domain.NewDuplicateActiveRequest(pending.ID, string(pending.Status))
		}
		if live, err := s.earlyReturns.FindLiveBySubOrder(ctx, agreement.ID); err != nil {
			return err
		} else if live != nil {
			return domain.NewConflictingRequest("an early return is in progress for this sub-order", live.ID, string(live.Status))
		}

		quote, err := utils.ExtensionCost(agreement, newEnd, s.policy.FallbackDailyRate)
		if err != nil {
			return err
		}

		now := time.Now()
		req := &domain.ExtensionRequest{
			ID:                uuid.NewString(),
			SubOrderID:        agreement.ID,
			RenterID:          agreement.RenterID,
			OwnerID:           agreement.OwnerID,
			Status:            domain.ExtensionStatusPending,
			CurrentEndDate:    agreement.RentalPeriod.EndDate,
			NewEndDate:        newEnd,
			ExtensionDays:     quote.ExtensionDays,
			RentalRate:        quote.DailyRate,
			ExtensionCost:     quote.Cost,
			TotalCost:         utils.RentalTotalThrough(agreement, newEnd, s.policy.FallbackDailyRate),
			IsEstimate:        quote.IsEstimate,
			Reason:            strings.TrimSpace(in.Reason),
			PaymentMethod:     in.PaymentMethod,
			PaymentStatus:     domain.PaymentStatusPending,
			GatewayPaymentRef: in.GatewayPaymentRef,
			RequestedAt:       now,
			UpdatedAt:         now,
		}
		if err := s.extensions.Create(ctx, req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("extensionService.Request", err, "subOrderID", in.SubOrderID)
		return nil, err
	}

	s.notifier.Notify(ctx, created.OwnerID, domain.EventExtensionRequested, extensionPayload(created))
	logger.ExitMethod("extensionService.Request", "requestID", created.ID, "extensionCost", created.ExtensionCost, "isEstimate", created.IsEstimate)
	return created, nil
}

func (s *extensionService) loadLocked(ctx context.Context, requestID string, fn func(req *domain.ExtensionRequest) error) error {
	req, err := s.extensions.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	return withSubOrderLock(ctx, s.locker, req.SubOrderID, func() error {
		fresh, err := s.extensions.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		return fn(fresh)
	})
}

// Approve recomputes the cost from the stored pricing snapshot, captures it
// when the payment method's policy says so, and only then extends the rental.
func (s *extensionService) Approve(ctx context.Context, requestID, ownerID string) (*domain.ExtensionRequest, error) {
	logger.EnterMethod("extensionService.Approve", "requestID", requestID, "ownerID", ownerID)

	var approved *domain.ExtensionRequest
	notify := false
	err := s.loadLocked(ctx, requestID, func(req *domain.ExtensionRequest) error {
		if req.OwnerID != ownerID {
			return domain.NewUnauthorized("only the owner of this sub-order can approve the extension")
		}
		if req.Status == domain.ExtensionStatusApproved {
			approved = req
			return nil
		}
		if req.Status != domain.ExtensionStatusPending {
			return domain.NewNotEditable("status", string(req.Status), "only PENDING extensions can be approved")
		}

		agreement, err := s.agreements.GetByID(ctx, req.SubOrderID)
		if err != nil {
			return err
		}
		if agreement.Status != domain.SubOrderStatusActive {
			return domain.NewStaleRequest("sub-order is no longer active", agreement.ID, string(agreement.Status))
		}
		if !utils.SameDay(agreement.RentalPeriod.EndDate, req.CurrentEndDate) {
			return domain.NewStaleRequest(
				fmt.Sprintf("sub-order end date moved from %s to %s", utils.FormatDate(req.CurrentEndDate), utils.FormatDate(agreement.RentalPeriod.EndDate)),
				agreement.ID, string(agreement.Status))
		}
		if live, err := s.earlyReturns.FindLiveBySubOrder(ctx, agreement.ID); err != nil {
			return err
		} else if live != nil {
			return domain.NewStaleRequest("an early return is in progress for this sub-order", live.ID, string(live.Status))
		}

		quote, err := utils.ExtensionCost(agreement, req.NewEndDate, s.policy.FallbackDailyRate)
		if err != nil {
			return err
		}
		if quote.IsEstimate {
			return domain.NewStaleRequest("sub-order has no pricing snapshot; the cost is only an estimate", agreement.ID, string(agreement.Status))
		}

		if s.policy.capturesOnApprove(req.PaymentMethod) && quote.Cost > 0 {
			result, err := s.payments.Capture(ctx, domain.CaptureRequest{
				Amount:         quote.Cost,
				Method:         req.PaymentMethod,
				SubjectID:      req.ID,
				PayerID:        req.RenterID,
				PaymentRef:     req.GatewayPaymentRef,
				IdempotencyKey: req.ID + ":capture",
				Description:    fmt.Sprintf("Extension of sub-order %s by %d days", agreement.ID, quote.ExtensionDays),
			})
			if err != nil {
				return domain.NewPaymentCaptureFailed("extension payment capture failed", err)
			}
			if !result.Success {
				return domain.NewPaymentCaptureFailed("extension payment was declined", nil)
			}
			req.PaymentStatus = domain.PaymentStatusPaid
			req.TransactionID = result.TransactionID
		}

		now := time.Now()
		req.ExtensionDays = quote.ExtensionDays
		req.RentalRate = quote.DailyRate
		req.ExtensionCost = quote.Cost
		req.TotalCost = utils.RentalTotalThrough(agreement, req.NewEndDate, s.policy.FallbackDailyRate)
		req.IsEstimate = false
		req.Status = domain.ExtensionStatusApproved
		req.RespondedAt = &now
		req.UpdatedAt = now

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			agreement.SetEndDate(req.NewEndDate)
			if err := s.agreements.Update(ctx, agreement); err != nil {
				return err
			}
			return s.extensions.Update(ctx, req)
		})
		if err != nil {
			if req.PaymentStatus == domain.PaymentStatusPaid {
				// The capture is keyed by request id; a retried approve replays it instead of charging again.
				logger.Error("Extension captured but not persisted", "requestID", req.ID, "transactionID", req.TransactionID, "error", err)
			}
			return err
		}
		approved = req
		notify = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("extensionService.Approve", err, "requestID", requestID)
		return nil, err
	}

	if notify {
		s.notifier.Notify(ctx, approved.RenterID, domain.EventExtensionApproved, extensionPayload(approved))
	}
	logger.ExitMethod("extensionService.Approve", "requestID", requestID, "paymentStatus", approved.PaymentStatus)
	return approved, nil
}

func (s *extensionService) Reject(ctx context.Context, requestID, ownerID, reason string) (*domain.ExtensionRequest, error) {
	logger.EnterMethod("extensionService.Reject", "requestID", requestID, "ownerID", ownerID)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := domain.NewReasonRequired("rejection_reason")
		logger.ExitMethodWithError("extensionService.Reject", err)
		return nil, err
	}

	var rejected *domain.ExtensionRequest
	notify := false
	err := s.loadLocked(ctx, requestID, func(req *domain.ExtensionRequest) error {
		if req.OwnerID != ownerID {
			return domain.NewUnauthorized("only the owner of this sub-order can reject the extension")
		}
		if req.Status == domain.ExtensionStatusRejected {
			rejected = req
			return nil
		}
		if req.Status != domain.ExtensionStatusPending {
			return domain.NewNotEditable("status", string(req.Status), "only PENDING extensions can be rejected")
		}

		now := time.Now()
		req.Status = domain.ExtensionStatusRejected
		req.OwnerResponse = &domain.OwnerResponse{RejectionReason: reason}
		req.RespondedAt = &now
		req.UpdatedAt = now
		if err := s.extensions.Update(ctx, req); err != nil {
			return err
		}
		rejected = req
		notify = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("extensionService.Reject", err, "requestID", requestID)
		return nil, err
	}

	if notify {
		payload := extensionPayload(rejected)
		payload["rejection_reason"] = reason
		s.notifier.Notify(ctx, rejected.RenterID, domain.EventExtensionRejected, payload)
	}
	logger.ExitMethod("extensionService.Reject", "requestID", requestID)
	return rejected, nil
}

func (s *extensionService) Cancel(ctx context.Context, requestID, renterID string) (*domain.ExtensionRequest, error) {
	logger.EnterMethod("extensionService.Cancel", "requestID", requestID, "renterID", renterID)

	var cancelled *domain.ExtensionRequest
	notify := false
	err := s.loadLocked(ctx, requestID, func(req *domain.ExtensionRequest) error {
		if req.RenterID != renterID {
			return domain.NewUnauthorized("only the renter can cancel this extension")
		}
		if req.Status == domain.ExtensionStatusCancelled {
			cancelled = req
			return nil
		}
		if req.Status != domain.ExtensionStatusPending {
			return domain.NewNotEditable("status", string(req.Status), "only PENDING extensions can be cancelled")
		}

		now := time.Now()
		req.Status = domain.ExtensionStatusCancelled
		req.UpdatedAt = now
		if err := s.extensions.Update(ctx, req); err != nil {
			return err
		}
		cancelled = req
		notify = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("extensionService.Cancel", err, "requestID", requestID)
		return nil, err
	}

	if notify {
		s.notifier.Notify(ctx, cancelled.OwnerID, domain.EventExtensionCancelled, extensionPayload(cancelled))
	}
	logger.ExitMethod("extensionService.Cancel", "requestID", requestID)
	return cancelled, nil
}

func extensionPayload(req *domain.ExtensionRequest) map[string]string {
	return map[string]string{
		"request_id":     req.ID,
		"sub_order_id":   req.SubOrderID,
		"status":         string(req.Status),
		"new_end_date":   utils.FormatDate(req.NewEndDate),
		"extension_days": fmt.Sprintf("%d", req.ExtensionDays),
		"extension_cost": fmt.Sprintf("%d", req.ExtensionCost),
	}
}
