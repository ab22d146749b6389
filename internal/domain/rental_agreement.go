package domain

import "time"

// SubOrderStatus is the lifecycle of a per-owner rental agreement.
type SubOrderStatus string

const (
	SubOrderStatusPendingOwnerConfirmation SubOrderStatus = "PENDING_OWNER_CONFIRMATION"
	SubOrderStatusOwnerConfirmed           SubOrderStatus = "OWNER_CONFIRMED"
	SubOrderStatusOwnerRejected            SubOrderStatus = "OWNER_REJECTED"
	SubOrderStatusReadyForContract         SubOrderStatus = "READY_FOR_CONTRACT"
	SubOrderStatusContractSigned           SubOrderStatus = "CONTRACT_SIGNED"
	SubOrderStatusActive                   SubOrderStatus = "ACTIVE"
	SubOrderStatusCompleted                SubOrderStatus = "COMPLETED"
	SubOrderStatusCancelled                SubOrderStatus = "CANCELLED"
)

type ProductStatus string

const (
	ProductStatusPending   ProductStatus = "PENDING"
	ProductStatusActive    ProductStatus = "ACTIVE"
	ProductStatusReturned  ProductStatus = "RETURNED"
	ProductStatusCancelled ProductStatus = "CANCELLED"
)

// Amount is money in minor currency units.
type Amount int64

// RentalPeriod is an inclusive, date-only range.
type RentalPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// PricingSnapshot is fixed at contract signing. All proration uses it, never live listing prices.
type PricingSnapshot struct {
	TotalRental  Amount `json:"total_rental"`
	TotalDeposit Amount `json:"total_deposit"`
	ShippingFee  Amount `json:"shipping_fee"`
}

type RentalLineItem struct {
	ID            string        `json:"id"`
	ProductRef    string        `json:"product_ref"`
	Quantity      int32         `json:"quantity"`
	DailyRate     Amount        `json:"daily_rate"`
	DepositAmount Amount        `json:"deposit_amount"`
	ProductStatus ProductStatus `json:"product_status"`
	EndDate       time.Time     `json:"end_date"`
}

// RentalAgreement is the SubOrder: one per owner within a master order.
type RentalAgreement struct {
	ID                string           `json:"id"`
	MasterOrderID     string           `json:"master_order_id"`
	OwnerID           string           `json:"owner_id"`
	RenterID          string           `json:"renter_id"`
	Status            SubOrderStatus   `json:"status"`
	RentalPeriod      RentalPeriod     `json:"rental_period"`
	// ContractPeriod is the period as signed. SetEndDate never moves it.
	ContractPeriod    RentalPeriod     `json:"contract_period"`
	PricingSnapshot   *PricingSnapshot `json:"pricing_snapshot,omitempty"`
	DepositPaymentRef string           `json:"deposit_payment_ref,omitempty"`
	LineItems         []RentalLineItem `json:"line_items"`
	Version           int64            `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ActiveLineItems returns the items eligible for early return.
func (a *RentalAgreement) ActiveLineItems() []RentalLineItem {
	var items []RentalLineItem
	for _, item := range a.LineItems {
		if item.ProductStatus == ProductStatusActive {
			items = append(items, item)
		}
	}
	return items
}

func (a *RentalAgreement) HasActiveItems() bool {
	return len(a.ActiveLineItems()) > 0
}

// ContractedPeriod is the signed period, or the current one for agreements
// recorded before the signed period was kept.
func (a *RentalAgreement) ContractedPeriod() RentalPeriod {
	if a.ContractPeriod.StartDate.IsZero() || a.ContractPeriod.EndDate.IsZero() {
		return a.RentalPeriod
	}
	return a.ContractPeriod
}

// SetEndDate moves the agreement end date together with every ACTIVE line item.
func (a *RentalAgreement) SetEndDate(end time.Time) {
	a.RentalPeriod.EndDate = end
	for i := range a.LineItems {
		if a.LineItems[i].ProductStatus == ProductStatusActive {
			a.LineItems[i].EndDate = end
		}
	}
}

// MarkItemsReturned flips the given items to RETURNED. Once no item is ACTIVE
// the agreement itself is completed.
func (a *RentalAgreement) MarkItemsReturned(itemIDs []string) {
	ids := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = struct{}{}
	}
	for i := range a.LineItems {
		if _, ok := ids[a.LineItems[i].ID]; ok && a.LineItems[i].ProductStatus == ProductStatusActive {
			a.LineItems[i].ProductStatus = ProductStatusReturned
		}
	}
	if a.Status == SubOrderStatusActive && !a.HasActiveItems() {
		a.Status = SubOrderStatusCompleted
	}
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a *RentalAgreement) Clone() *RentalAgreement {
	c := *a
	if a.PricingSnapshot != nil {
		p := *a.PricingSnapshot
		c.PricingSnapshot = &p
	}
	c.LineItems = append([]RentalLineItem(nil), a.LineItems...)
	return &c
}
