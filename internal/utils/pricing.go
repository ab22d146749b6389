package utils

import (
	"time"

	"rental-modification-backend/internal/domain"
)

// ExtensionQuote is the prorated cost of pushing a rental's end date out.
type ExtensionQuote struct {
	ExtensionDays int
	DailyRate     domain.Amount
	Cost          domain.Amount
	// IsEstimate is set when no pricing snapshot exists yet and the fallback
	// rate was used; such a figure must never be charged.
	IsEstimate bool
}

// ExtensionCost prorates the contracted rental over the signed duration.
// Cost is round-half-up(totalRental * extensionDays / contractDays), i.e. the
// exact daily rate times the extension, rounded once at the end. Earlier
// extensions move the end date but never the denominator.
func ExtensionCost(agreement *domain.RentalAgreement, newEndDate time.Time, fallbackDailyRate domain.Amount) (ExtensionQuote, error) {
	extensionDays := DaysBetween(agreement.RentalPeriod.EndDate, newEndDate)
	if extensionDays <= 0 {
		return ExtensionQuote{}, domain.NewInvalidDateRange("new_end_date", newEndDate,
			"new end date must be after the current end date "+FormatDate(agreement.RentalPeriod.EndDate))
	}

	if agreement.PricingSnapshot == nil {
		return ExtensionQuote{
			ExtensionDays: extensionDays,
			DailyRate:     fallbackDailyRate,
			Cost:          fallbackDailyRate * domain.Amount(extensionDays),
			IsEstimate:    true,
		}, nil
	}

	days := int64(contractDays(agreement))
	total := int64(agreement.PricingSnapshot.TotalRental)

	return ExtensionQuote{
		ExtensionDays: extensionDays,
		DailyRate:     domain.Amount(divRound(total, days)),
		Cost:          domain.Amount(divRound(total*int64(extensionDays), days)),
	}, nil
}

// RentalTotalThrough is what the whole rental costs once it ends on endDate:
// the snapshot total plus every day past the signed end at the contracted
// rate. Without a snapshot only the fallback-rated days past the signed end
// are counted.
func RentalTotalThrough(agreement *domain.RentalAgreement, endDate time.Time, fallbackDailyRate domain.Amount) domain.Amount {
	extraDays := DaysBetween(agreement.ContractedPeriod().EndDate, endDate)
	if extraDays < 0 {
		extraDays = 0
	}
	if agreement.PricingSnapshot == nil {
		return fallbackDailyRate * domain.Amount(extraDays)
	}
	total := int64(agreement.PricingSnapshot.TotalRental)
	return domain.Amount(total + divRound(total*int64(extraDays), int64(contractDays(agreement))))
}

func contractDays(agreement *domain.RentalAgreement) int {
	period := agreement.ContractedPeriod()
	days := DaysBetween(period.StartDate, period.EndDate)
	if days < 1 {
		days = 1
	}
	return days
}

// DepositRefund sums the deposits of the ACTIVE items being returned and
// subtracts the owner's deduction, which is only allowed for damage.
func DepositRefund(items []domain.RentalLineItem, qc *domain.QualityCheck) (domain.Amount, error) {
	var base domain.Amount
	for _, item := range items {
		if item.ProductStatus != domain.ProductStatusActive {
			continue
		}
		base += item.DepositAmount
	}

	if qc == nil || qc.DeductionAmount == 0 {
		return base, nil
	}
	if qc.DeductionAmount < 0 {
		return 0, domain.NewInvalidDeduction(qc.DeductionAmount, "deduction cannot be negative")
	}
	if !qc.Condition.AllowsDeduction() {
		return 0, domain.NewInvalidDeduction(qc.DeductionAmount, "deductions require a DAMAGED or MISSING_PARTS condition")
	}
	if qc.DeductionAmount > base {
		return 0, domain.NewInvalidDeduction(qc.DeductionAmount, "deduction exceeds the refundable deposit")
	}
	return base - qc.DeductionAmount, nil
}

// ShippingFeeDelta is zero when the original address is kept; otherwise the
// externally quoted fee is carried, never negative.
func ShippingFeeDelta(useOriginalAddress bool, quoted domain.Amount) domain.Amount {
	if useOriginalAddress || quoted < 0 {
		return 0
	}
	return quoted
}

func divRound(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}
