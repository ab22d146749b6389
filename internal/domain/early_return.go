package domain

import (
	"strings"
	"time"
)

type EarlyReturnStatus string

const (
	EarlyReturnStatusPending       EarlyReturnStatus = "PENDING"
	EarlyReturnStatusAcknowledged  EarlyReturnStatus = "ACKNOWLEDGED"
	EarlyReturnStatusReturned      EarlyReturnStatus = "RETURNED"
	EarlyReturnStatusCompleted     EarlyReturnStatus = "COMPLETED"
	EarlyReturnStatusAutoCompleted EarlyReturnStatus = "AUTO_COMPLETED"
	EarlyReturnStatusCancelled     EarlyReturnStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is defined from s.
func (s EarlyReturnStatus) IsTerminal() bool {
	switch s {
	case EarlyReturnStatusCompleted, EarlyReturnStatusAutoCompleted, EarlyReturnStatusCancelled:
		return true
	}
	return false
}

// LiveEarlyReturnStatuses are the non-terminal states; at most one request per
// sub-order may be in any of them.
var LiveEarlyReturnStatuses = []EarlyReturnStatus{
	EarlyReturnStatusPending,
	EarlyReturnStatusAcknowledged,
	EarlyReturnStatusReturned,
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

type ItemCondition string

const (
	ItemConditionGood         ItemCondition = "GOOD"
	ItemConditionWorn         ItemCondition = "WORN"
	ItemConditionDamaged      ItemCondition = "DAMAGED"
	ItemConditionMissingParts ItemCondition = "MISSING_PARTS"
)

// AllowsDeduction reports whether the owner may withhold part of the deposit.
func (c ItemCondition) AllowsDeduction() bool {
	return c == ItemConditionDamaged || c == ItemConditionMissingParts
}

type Address struct {
	RecipientName string `json:"recipient_name" yaml:"recipient_name"`
	Phone         string `json:"phone" yaml:"phone"`
	Line1         string `json:"line1" yaml:"line1"`
	Line2         string `json:"line2,omitempty" yaml:"line2"`
	City          string `json:"city" yaml:"city"`
	Region        string `json:"region" yaml:"region"`
	PostalCode    string `json:"postal_code" yaml:"postal_code"`
	Country       string `json:"country" yaml:"country"`
}

// SameLocation reports whether both addresses point at the same pickup
// location, ignoring case and surrounding spaces. Recipient and phone are not
// part of the location.
func (a Address) SameLocation(b Address) bool {
	fields := [][2]string{
		{a.Line1, b.Line1},
		{a.Line2, b.Line2},
		{a.City, b.City},
		{a.Region, b.Region},
		{a.PostalCode, b.PostalCode},
		{a.Country, b.Country},
	}
	for _, f := range fields {
		if !strings.EqualFold(strings.TrimSpace(f[0]), strings.TrimSpace(f[1])) {
			return false
		}
	}
	return true
}

// QualityCheck is entered by the owner at confirmation. DeductionAmount is a
// manual decision; the engine only carries it through to the refund.
type QualityCheck struct {
	Condition       ItemCondition `json:"condition"`
	Notes           string        `json:"notes,omitempty"`
	DeductionAmount Amount        `json:"deduction_amount"`
}

type DepositRefund struct {
	Amount        Amount       `json:"amount"`
	Status        RefundStatus `json:"status"`
	TransactionID string       `json:"transaction_id,omitempty"`
}

type OwnerConfirmation struct {
	ReturnedAt   time.Time    `json:"returned_at"`
	QualityCheck QualityCheck `json:"quality_check"`
	Notes        string       `json:"notes,omitempty"`
}

type ShippingFeePaymentStatus string

const (
	ShippingFeeStatusNone     ShippingFeePaymentStatus = "NONE"
	ShippingFeeStatusPaid     ShippingFeePaymentStatus = "PAID"
	ShippingFeeStatusRefunded ShippingFeePaymentStatus = "REFUNDED"
)

type ShippingFeePayment struct {
	Method        PaymentMethod            `json:"method,omitempty"`
	Status        ShippingFeePaymentStatus `json:"status"`
	TransactionID string                   `json:"transaction_id,omitempty"`
}

type EarlyReturnRequest struct {
	ID                        string             `json:"id"`
	SubOrderID                string             `json:"sub_order_id"`
	RenterID                  string             `json:"renter_id"`
	OwnerID                   string             `json:"owner_id"`
	Status                    EarlyReturnStatus  `json:"status"`
	RequestedReturnDate       time.Time          `json:"requested_return_date"`
	OriginalPeriod            RentalPeriod       `json:"original_period"`
	UseOriginalAddress        bool               `json:"use_original_address"`
	ReturnAddress             *Address           `json:"return_address,omitempty"`
	DepositRefund             DepositRefund      `json:"deposit_refund"`
	ShippingFeeDelta          Amount             `json:"shipping_fee_delta"`
	ShippingFeePayment        ShippingFeePayment `json:"shipping_fee_payment"`
	OwnerConfirmation         *OwnerConfirmation `json:"owner_confirmation,omitempty"`
	RenterNotes               string             `json:"renter_notes"`
	CancelReason              string             `json:"cancel_reason,omitempty"`
	ExternalShipmentAckStatus ShipmentAckStatus  `json:"external_shipment_ack_status"`
	ReturnedAt                *time.Time         `json:"returned_at,omitempty"`
	CompletedAt               *time.Time         `json:"completed_at,omitempty"`
	CreatedAt                 time.Time          `json:"created_at"`
	UpdatedAt                 time.Time          `json:"updated_at"`
	DeletedAt                 *time.Time         `json:"-"`
}

// IsDeleted reports whether the request was removed by its renter.
func (r *EarlyReturnRequest) IsDeleted() bool {
	return r.DeletedAt != nil
}

// RenterMayEdit is the mutability window: still PENDING and not yet picked up
// by the shipment subsystem.
func (r *EarlyReturnRequest) RenterMayEdit() bool {
	return r.Status == EarlyReturnStatusPending && r.ExternalShipmentAckStatus == ShipmentAckPending
}
