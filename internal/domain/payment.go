package domain

type PaymentMethod string

const (
	PaymentMethodWallet         PaymentMethod = "WALLET"
	PaymentMethodGateway        PaymentMethod = "GATEWAY"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodWallet, PaymentMethodGateway, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// CaptureRequest debits the payer. IdempotencyKey is derived from the request
// id so a retried capture never charges twice.
type CaptureRequest struct {
	Amount         Amount
	Method         PaymentMethod
	SubjectID      string
	PayerID        string
	PaymentRef     string
	IdempotencyKey string
	Description    string
}

type RefundRequest struct {
	Amount         Amount
	SubjectID      string
	PayeeID        string
	PaymentRef     string
	IdempotencyKey string
	Description    string
}

type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
}
