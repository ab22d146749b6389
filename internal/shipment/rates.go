package shipment

import (
	"context"
	"strings"

	"rental-modification-backend/internal/domain"
)

// FlatRateQuoter prices a changed return address: a flat fee, plus a
// surcharge when the new address is in another region than the one on file.
// An address matching the one on file costs nothing.
type FlatRateQuoter struct {
	fee       domain.Amount
	surcharge domain.Amount
}

func NewFlatRateQuoter(fee, crossRegionSurcharge int64) *FlatRateQuoter {
	return &FlatRateQuoter{fee: domain.Amount(fee), surcharge: domain.Amount(crossRegionSurcharge)}
}

func (q *FlatRateQuoter) QuoteReturnShipping(ctx context.Context, subOrderID string, from *domain.Address, to domain.Address) (domain.Amount, error) {
	if from != nil && from.SameLocation(to) {
		return 0, nil
	}
	quote := q.fee
	if from != nil && !strings.EqualFold(strings.TrimSpace(from.Region), strings.TrimSpace(to.Region)) {
		quote += q.surcharge
	}
	if quote < 0 {
		quote = 0
	}
	return quote, nil
}
