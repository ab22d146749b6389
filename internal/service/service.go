package service

import (
	"context"
	"time"

	"rental-modification-backend/internal/domain"
)

// PaymentProcessor captures and refunds money. Implementations must treat
// IdempotencyKey as the identity of the movement: a replay never moves money twice.
type PaymentProcessor interface {
	Capture(ctx context.Context, req domain.CaptureRequest) (*domain.PaymentResult, error)
	Refund(ctx context.Context, req domain.RefundRequest) (*domain.PaymentResult, error)
}

// Notifier is fire-and-forget: failures are logged by the implementation.
type Notifier interface {
	Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]string)
}

type ShipmentStatusReader interface {
	AcknowledgedStatus(ctx context.Context, subOrderID string) (domain.ShipmentAckStatus, error)
}

type ShippingQuoter interface {
	QuoteReturnShipping(ctx context.Context, subOrderID string, from *domain.Address, to domain.Address) (domain.Amount, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, toName, subject, body string) error
}

type CreateEarlyReturnInput struct {
	SubOrderID          string
	RenterID            string
	RequestedReturnDate time.Time
	UseOriginalAddress  bool
	ReturnAddress       *domain.Address
	// PaymentMethod and PaymentRef pay the shipping fee delta of an address override.
	PaymentMethod domain.PaymentMethod
	PaymentRef    string
	Notes         string
}

type UpdateEarlyReturnInput struct {
	RequestID     string
	RequesterID   string
	NewReturnDate *time.Time
	Notes         *string
}

// EarlyReturnCancellation reports what a cancel or delete refunded.
type EarlyReturnCancellation struct {
	Request             *domain.EarlyReturnRequest `json:"request"`
	RefundedAmount      domain.Amount              `json:"refunded_amount"`
	RefundTransactionID string                     `json:"refund_transaction_id,omitempty"`
}

type EarlyReturnService interface {
	Create(ctx context.Context, in CreateEarlyReturnInput) (*domain.EarlyReturnRequest, error)
	Update(ctx context.Context, in UpdateEarlyReturnInput) (*domain.EarlyReturnRequest, error)
	Cancel(ctx context.Context, requestID, requesterID, reason string) (*EarlyReturnCancellation, error)
	Delete(ctx context.Context, requestID, requesterID string) (*EarlyReturnCancellation, error)
	ConfirmReturn(ctx context.Context, requestID, ownerID, notes string, qc domain.QualityCheck) (*domain.EarlyReturnRequest, error)
	AutoComplete(ctx context.Context, requestID string) (*domain.EarlyReturnRequest, error)
	ApplyShipmentSignal(ctx context.Context, subOrderID string) (*domain.EarlyReturnRequest, error)
}

type RequestExtensionInput struct {
	SubOrderID        string
	RenterID          string
	NewEndDate        time.Time
	Reason            string
	PaymentMethod     domain.PaymentMethod
	GatewayPaymentRef string
}

type ExtensionService interface {
	Request(ctx context.Context, in RequestExtensionInput) (*domain.ExtensionRequest, error)
	Approve(ctx context.Context, requestID, ownerID string) (*domain.ExtensionRequest, error)
	Reject(ctx context.Context, requestID, ownerID, reason string) (*domain.ExtensionRequest, error)
	Cancel(ctx context.Context, requestID, renterID string) (*domain.ExtensionRequest, error)
}

type QueryService interface {
	ListEarlyReturnsForRenter(ctx context.Context, renterID string, page, limit int32, statuses []domain.EarlyReturnStatus) ([]domain.EarlyReturnRequest, int32, error)
	ListEarlyReturnsForOwner(ctx context.Context, ownerID string, page, limit int32, statuses []domain.EarlyReturnStatus) ([]domain.EarlyReturnRequest, int32, error)
	GetEarlyReturn(ctx context.Context, actorID, requestID string) (*domain.EarlyReturnRequest, error)
	ListExtensionsForRenter(ctx context.Context, renterID string, page, limit int32, statuses []domain.ExtensionStatus) ([]domain.ExtensionRequest, int32, error)
	ListExtensionsForOwner(ctx context.Context, ownerID string, page, limit int32, statuses []domain.ExtensionStatus) ([]domain.ExtensionRequest, int32, error)
	GetExtension(ctx context.Context, actorID, requestID string) (*domain.ExtensionRequest, error)
	GetSubOrder(ctx context.Context, actorID, subOrderID string) (*domain.RentalAgreement, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID string, notificationID int64) error
}

// Policy holds the business parameters that come from configuration.
type Policy struct {
	FallbackDailyRate domain.Amount
	// CaptureOnApprove says per payment method whether approving an extension
	// captures payment. Methods missing from the map capture, except cash on delivery.
	CaptureOnApprove map[domain.PaymentMethod]bool
}

func (p Policy) capturesOnApprove(method domain.PaymentMethod) bool {
	if capture, ok := p.CaptureOnApprove[method]; ok {
		return capture
	}
	return method != domain.PaymentMethodCashOnDelivery
}
