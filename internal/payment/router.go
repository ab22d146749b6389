package payment

import (
	"context"
	"fmt"

	"rental-modification-backend/internal/domain"
)

type processor interface {
	Capture(ctx context.Context, req domain.CaptureRequest) (*domain.PaymentResult, error)
	Refund(ctx context.Context, req domain.RefundRequest) (*domain.PaymentResult, error)
}

// Router sends captures to the processor of the request's method. Refunds go
// back to the gateway when the original charge carried a gateway reference,
// and to the wallet otherwise.
type Router struct {
	wallet  processor
	gateway processor
}

// NewRouter builds a Router; gateway may be nil when Razorpay is not configured.
func NewRouter(wallet *WalletProcessor, gateway *RazorpayProcessor) *Router {
	r := &Router{wallet: wallet}
	if gateway != nil {
		r.gateway = gateway
	}
	return r
}

func (r *Router) Capture(ctx context.Context, req domain.CaptureRequest) (*domain.PaymentResult, error) {
	switch req.Method {
	case domain.PaymentMethodWallet:
		return r.wallet.Capture(ctx, req)
	case domain.PaymentMethodGateway:
		if r.gateway == nil {
			return nil, fmt.Errorf("payment gateway is not configured")
		}
		return r.gateway.Capture(ctx, req)
	case domain.PaymentMethodCashOnDelivery:
		// Cash is collected at handover; the capture only records the obligation.
		return &domain.PaymentResult{Success: true, TransactionID: "cod-" + req.IdempotencyKey}, nil
	default:
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}
}

func (r *Router) Refund(ctx context.Context, req domain.RefundRequest) (*domain.PaymentResult, error) {
	if req.PaymentRef != "" && r.gateway != nil {
		return r.gateway.Refund(ctx, req)
	}
	return r.wallet.Refund(ctx, req)
}
