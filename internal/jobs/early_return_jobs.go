package jobs

import (
	"context"
	"errors"
	"time"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

// SweepResult counts what one pass over the candidate requests did.
type SweepResult struct {
	Scanned int
	Changed int
	Failed  int
}

// AutoCompleteEarlyReturns closes RETURNED requests the owner never confirmed
// within the configured window.
func (jr *JobRunner) AutoCompleteEarlyReturns() {
	jr.runWithRecovery("AutoCompleteEarlyReturns", func() {
		if _, err := jr.CompleteOverdueReturns(context.Background()); err != nil {
			logger.Error("Failed to list returned early returns", "error", err)
		}
	})
}

func (jr *JobRunner) CompleteOverdueReturns(ctx context.Context) (SweepResult, error) {
	cfg := jr.config.EarlyReturn
	cutoff := jr.now().Add(-time.Duration(cfg.AutoCompleteAfterHours) * time.Hour)

	candidates, err := jr.earlyReturns.ListReturnedBefore(ctx, cutoff, int32(cfg.SweepBatchSize))
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, req := range candidates {
		result.Scanned++
		if _, err := jr.service.AutoComplete(ctx, req.ID); err != nil {
			// Confirmed or cancelled since listing.
			if errors.Is(err, domain.ErrNotEditable) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			result.Failed++
			logger.Error("Failed to auto-complete early return", "requestID", req.ID, "error", err)
			continue
		}
		result.Changed++
	}

	logger.Info("Auto-completed early returns", "cutoff", cutoff.Format(time.RFC3339),
		"scanned", result.Scanned, "completed", result.Changed, "failed", result.Failed)
	return result, nil
}

// SyncShipmentSignals polls the shipment status of every request still
// waiting for pickup or delivery, covering webhook pushes that were lost.
func (jr *JobRunner) SyncShipmentSignals() {
	jr.runWithRecovery("SyncShipmentSignals", func() {
		if _, err := jr.SyncShipments(context.Background()); err != nil {
			logger.Error("Failed to list early returns awaiting shipment", "error", err)
		}
	})
}

// SyncShipments walks every waiting request in batches, so each pass polls
// all of them no matter how many are queued.
func (jr *JobRunner) SyncShipments(ctx context.Context) (SweepResult, error) {
	batch := int32(jr.config.EarlyReturn.SweepBatchSize)
	var result SweepResult
	var cursor repository.SweepCursor
	for {
		candidates, err := jr.earlyReturns.ListAwaitingShipment(ctx, cursor, batch)
		if err != nil {
			return result, err
		}

		for i := range candidates {
			req := &candidates[i]
			result.Scanned++
			changed, err := jr.service.ApplyShipmentSignal(ctx, req.SubOrderID)
			if err != nil {
				result.Failed++
				logger.Error("Failed to apply shipment signal", "subOrderID", req.SubOrderID, "error", err)
			} else if changed != nil {
				result.Changed++
				logger.Debug("Early return advanced by shipment signal", "requestID", changed.ID, "status", changed.Status)
			}
			cursor = repository.SweepCursor{CreatedAt: req.CreatedAt, ID: req.ID}
		}

		if batch <= 0 || len(candidates) < int(batch) || ctx.Err() != nil {
			break
		}
	}

	logger.Info("Synced shipment signals", "scanned", result.Scanned, "changed", result.Changed, "failed", result.Failed)
	return result, nil
}
