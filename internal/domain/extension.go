package domain

import "time"

type ExtensionStatus string

const (
	ExtensionStatusPending   ExtensionStatus = "PENDING"
	ExtensionStatusApproved  ExtensionStatus = "APPROVED"
	ExtensionStatusRejected  ExtensionStatus = "REJECTED"
	ExtensionStatusCancelled ExtensionStatus = "CANCELLED"
)

func (s ExtensionStatus) IsTerminal() bool {
	return s != ExtensionStatusPending
}

type OwnerResponse struct {
	RejectionReason string `json:"rejection_reason"`
}

type ExtensionRequest struct {
	ID                string          `json:"id"`
	SubOrderID        string          `json:"sub_order_id"`
	RenterID          string          `json:"renter_id"`
	OwnerID           string          `json:"owner_id"`
	Status            ExtensionStatus `json:"status"`
	CurrentEndDate    time.Time       `json:"current_end_date"`
	NewEndDate        time.Time       `json:"new_end_date"`
	ExtensionDays     int             `json:"extension_days"`
	RentalRate        Amount          `json:"rental_rate"`
	ExtensionCost     Amount          `json:"extension_cost"`
	TotalCost         Amount          `json:"total_cost"`
	IsEstimate        bool            `json:"is_estimate"`
	Reason            string          `json:"reason,omitempty"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	GatewayPaymentRef string          `json:"gateway_payment_ref,omitempty"`
	TransactionID     string          `json:"transaction_id,omitempty"`
	OwnerResponse     *OwnerResponse  `json:"owner_response,omitempty"`
	RequestedAt       time.Time       `json:"requested_at"`
	RespondedAt       *time.Time      `json:"responded_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
