package http

import (
	"strings"
	"time"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/utils"
)

type periodDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func mapPeriod(p domain.RentalPeriod) periodDTO {
	return periodDTO{StartDate: utils.FormatDate(p.StartDate), EndDate: utils.FormatDate(p.EndDate)}
}

type earlyReturnDTO struct {
	ID                        string                    `json:"id"`
	SubOrderID                string                    `json:"sub_order_id"`
	RenterID                  string                    `json:"renter_id"`
	OwnerID                   string                    `json:"owner_id"`
	Status                    domain.EarlyReturnStatus  `json:"status"`
	StatusDisplay             domain.StatusDisplay      `json:"status_display"`
	RequestedReturnDate       string                    `json:"requested_return_date"`
	OriginalPeriod            periodDTO                 `json:"original_period"`
	UseOriginalAddress        bool                      `json:"use_original_address"`
	ReturnAddress             *domain.Address           `json:"return_address,omitempty"`
	DepositRefund             domain.DepositRefund      `json:"deposit_refund"`
	ShippingFeeDelta          domain.Amount             `json:"shipping_fee_delta"`
	ShippingFeePayment        domain.ShippingFeePayment `json:"shipping_fee_payment"`
	OwnerConfirmation         *domain.OwnerConfirmation `json:"owner_confirmation,omitempty"`
	RenterNotes               string                    `json:"renter_notes,omitempty"`
	CancelReason              string                    `json:"cancel_reason,omitempty"`
	ExternalShipmentAckStatus domain.ShipmentAckStatus  `json:"external_shipment_ack_status"`
	ReturnedAt                *time.Time                `json:"returned_at,omitempty"`
	CompletedAt               *time.Time                `json:"completed_at,omitempty"`
	CreatedAt                 time.Time                 `json:"created_at"`
	UpdatedAt                 time.Time                 `json:"updated_at"`
}

func mapEarlyReturn(r *domain.EarlyReturnRequest) *earlyReturnDTO {
	if r == nil {
		return nil
	}
	return &earlyReturnDTO{
		ID:                        r.ID,
		SubOrderID:                r.SubOrderID,
		RenterID:                  r.RenterID,
		OwnerID:                   r.OwnerID,
		Status:                    r.Status,
		StatusDisplay:             r.Status.Display(),
		RequestedReturnDate:       utils.FormatDate(r.RequestedReturnDate),
		OriginalPeriod:            mapPeriod(r.OriginalPeriod),
		UseOriginalAddress:        r.UseOriginalAddress,
		ReturnAddress:             r.ReturnAddress,
		DepositRefund:             r.DepositRefund,
		ShippingFeeDelta:          r.ShippingFeeDelta,
		ShippingFeePayment:        r.ShippingFeePayment,
		OwnerConfirmation:         r.OwnerConfirmation,
		RenterNotes:               r.RenterNotes,
		CancelReason:              r.CancelReason,
		ExternalShipmentAckStatus: r.ExternalShipmentAckStatus,
		ReturnedAt:                r.ReturnedAt,
		CompletedAt:               r.CompletedAt,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
	}
}

type extensionDTO struct {
	ID             string                 `json:"id"`
	SubOrderID     string                 `json:"sub_order_id"`
	RenterID       string                 `json:"renter_id"`
	OwnerID        string                 `json:"owner_id"`
	Status         domain.ExtensionStatus `json:"status"`
	StatusDisplay  domain.StatusDisplay   `json:"status_display"`
	CurrentEndDate string                 `json:"current_end_date"`
	NewEndDate     string                 `json:"new_end_date"`
	ExtensionDays  int                    `json:"extension_days"`
	RentalRate     domain.Amount          `json:"rental_rate"`
	ExtensionCost  domain.Amount          `json:"extension_cost"`
	TotalCost      domain.Amount          `json:"total_cost"`
	IsEstimate     bool                   `json:"is_estimate"`
	Reason         string                 `json:"reason,omitempty"`
	PaymentMethod  domain.PaymentMethod   `json:"payment_method"`
	PaymentStatus  domain.PaymentStatus   `json:"payment_status"`
	TransactionID  string                 `json:"transaction_id,omitempty"`
	OwnerResponse  *domain.OwnerResponse  `json:"owner_response,omitempty"`
	RequestedAt    time.Time              `json:"requested_at"`
	RespondedAt    *time.Time             `json:"responded_at,omitempty"`
}

func mapExtension(e *domain.ExtensionRequest) *extensionDTO {
	if e == nil {
		return nil
	}
	return &extensionDTO{
		ID:             e.ID,
		SubOrderID:     e.SubOrderID,
		RenterID:       e.RenterID,
		OwnerID:        e.OwnerID,
		Status:         e.Status,
		StatusDisplay:  e.Status.Display(),
		CurrentEndDate: utils.FormatDate(e.CurrentEndDate),
		NewEndDate:     utils.FormatDate(e.NewEndDate),
		ExtensionDays:  e.ExtensionDays,
		RentalRate:     e.RentalRate,
		ExtensionCost:  e.ExtensionCost,
		TotalCost:      e.TotalCost,
		IsEstimate:     e.IsEstimate,
		Reason:         e.Reason,
		PaymentMethod:  e.PaymentMethod,
		PaymentStatus:  e.PaymentStatus,
		TransactionID:  e.TransactionID,
		OwnerResponse:  e.OwnerResponse,
		RequestedAt:    e.RequestedAt,
		RespondedAt:    e.RespondedAt,
	}
}

type lineItemDTO struct {
	ID            string               `json:"id"`
	ProductRef    string               `json:"product_ref"`
	Quantity      int32                `json:"quantity"`
	DailyRate     domain.Amount        `json:"daily_rate"`
	DepositAmount domain.Amount        `json:"deposit_amount"`
	ProductStatus domain.ProductStatus `json:"product_status"`
	EndDate       string               `json:"end_date"`
}

type subOrderDTO struct {
	ID              string                  `json:"id"`
	MasterOrderID   string                  `json:"master_order_id"`
	OwnerID         string                  `json:"owner_id"`
	RenterID        string                  `json:"renter_id"`
	Status          domain.SubOrderStatus   `json:"status"`
	StatusDisplay   domain.StatusDisplay    `json:"status_display"`
	RentalPeriod    periodDTO               `json:"rental_period"`
	ContractPeriod  periodDTO               `json:"contract_period"`
	PricingSnapshot *domain.PricingSnapshot `json:"pricing_snapshot,omitempty"`
	LineItems       []lineItemDTO           `json:"line_items"`
}

func mapSubOrder(a *domain.RentalAgreement) *subOrderDTO {
	items := make([]lineItemDTO, 0, len(a.LineItems))
	for _, li := range a.LineItems {
		items = append(items, lineItemDTO{
			ID:            li.ID,
			ProductRef:    li.ProductRef,
			Quantity:      li.Quantity,
			DailyRate:     li.DailyRate,
			DepositAmount: li.DepositAmount,
			ProductStatus: li.ProductStatus,
			EndDate:       utils.FormatDate(li.EndDate),
		})
	}
	return &subOrderDTO{
		ID:              a.ID,
		MasterOrderID:   a.MasterOrderID,
		OwnerID:         a.OwnerID,
		RenterID:        a.RenterID,
		Status:          a.Status,
		StatusDisplay:   a.Status.Display(),
		RentalPeriod:    mapPeriod(a.RentalPeriod),
		ContractPeriod:  mapPeriod(a.ContractedPeriod()),
		PricingSnapshot: a.PricingSnapshot,
		LineItems:       items,
	}
}

type pageDTO[T any] struct {
	Items []T   `json:"items"`
	Total int32 `json:"total"`
	Page  int32 `json:"page"`
	Limit int32 `json:"limit"`
}

// splitStatuses parses a comma separated status filter.
func splitStatuses[S ~string](raw string) []S {
	if raw == "" {
		return nil
	}
	var out []S
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, S(strings.ToUpper(part)))
		}
	}
	return out
}

// parseDate reads a yyyy-mm-dd field of a request body.
func parseDate(field, value string) (time.Time, error) {
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, domain.NewInvalidArgument(field, value, "expected a yyyy-mm-dd date")
	}
	return t, nil
}
