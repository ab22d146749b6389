package service

import (
	"context"
	"errors"
	"fmt"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/lock"
)

// withSubOrderLock runs fn while holding the sub-order's lock. Both workflows
// take the same key because both rewrite the sub-order's end date.
func withSubOrderLock(ctx context.Context, locker lock.Locker, subOrderID string, fn func() error) error {
	release, err := locker.Acquire(ctx, lock.SubOrderKey(subOrderID))
	if errors.Is(err, lock.ErrBusy) {
		return &domain.Error{
			Kind:       domain.KindStaleRequest,
			Message:    "another modification of this sub-order is in progress",
			ConflictID: subOrderID,
			Retryable:  true,
		}
	}
	if err != nil {
		return fmt.Errorf("acquire sub-order lock: %w", err)
	}
	defer release()
	return fn()
}
