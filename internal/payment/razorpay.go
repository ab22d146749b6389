package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/razorpay/razorpay-go"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
)

// gatewayPayments is the part of the Razorpay payments resource we call.
type gatewayPayments interface {
	Capture(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProcessor captures payments the client app has already authorized
// with Razorpay (req.PaymentRef is the razorpay payment id) and refunds them.
type RazorpayProcessor struct {
	payments gatewayPayments
	currency string
}

func NewRazorpayProcessor(key, secret, currency string) *RazorpayProcessor {
	client := razorpay.NewClient(key, secret)
	return newRazorpayProcessor(client.Payment, currency)
}

func newRazorpayProcessor(payments gatewayPayments, currency string) *RazorpayProcessor {
	if currency == "" {
		currency = "INR"
	}
	return &RazorpayProcessor{payments: payments, currency: currency}
}

func (p *RazorpayProcessor) Capture(ctx context.Context, req domain.CaptureRequest) (*domain.PaymentResult, error) {
	if req.PaymentRef == "" {
		return nil, errors.New("gateway capture requires an authorized payment reference")
	}

	data := map[string]interface{}{
		"currency": p.currency,
		"notes":    map[string]interface{}{"idempotency_key": req.IdempotencyKey, "subject_id": req.SubjectID},
	}
	logger.ExternalServiceCall("razorpay", "payment.capture", "paymentID", req.PaymentRef, "amount", req.Amount)
	resp, err := p.payments.Capture(req.PaymentRef, int(req.Amount), data, nil)
	logger.ExternalServiceResult("razorpay", "payment.capture", err, "paymentID", req.PaymentRef)
	if err != nil {
		// A retried capture of the same authorization is reported as an error
		// by the gateway; the money has moved exactly once.
		if strings.Contains(strings.ToLower(err.Error()), "already been captured") {
			return &domain.PaymentResult{Success: true, TransactionID: req.PaymentRef}, nil
		}
		return nil, fmt.Errorf("razorpay capture: %w", err)
	}

	return &domain.PaymentResult{Success: true, TransactionID: stringField(resp, "id", req.PaymentRef)}, nil
}

func (p *RazorpayProcessor) Refund(ctx context.Context, req domain.RefundRequest) (*domain.PaymentResult, error) {
	if req.PaymentRef == "" {
		return nil, errors.New("gateway refund requires a payment reference")
	}

	data := map[string]interface{}{
		"speed":   "normal",
		"receipt": req.IdempotencyKey,
		"notes":   map[string]interface{}{"subject_id": req.SubjectID, "description": req.Description},
	}
	logger.ExternalServiceCall("razorpay", "payment.refund", "paymentID", req.PaymentRef, "amount", req.Amount)
	resp, err := p.payments.Refund(req.PaymentRef, int(req.Amount), data, nil)
	logger.ExternalServiceResult("razorpay", "payment.refund", err, "paymentID", req.PaymentRef)
	if err != nil {
		return nil, fmt.Errorf("razorpay refund: %w", err)
	}

	return &domain.PaymentResult{Success: true, TransactionID: stringField(resp, "id", "")}, nil
}

func stringField(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
