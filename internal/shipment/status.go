// Package shipment adapts the shipment subsystem: its acknowledgment signal
// for a sub-order's return and the return-shipping rate lookup.
package shipment

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
)

// PostgresTracker reads the return-shipment status the shipment subsystem
// keeps in the shared shipments table. A sub-order without a row has not
// been picked up yet and reports PENDING.
type PostgresTracker struct {
	db *sql.DB
}

func NewPostgresTracker(db *sql.DB) *PostgresTracker {
	return &PostgresTracker{db: db}
}

func (t *PostgresTracker) AcknowledgedStatus(ctx context.Context, subOrderID string) (domain.ShipmentAckStatus, error) {
	logger.ExternalServiceCall("shipment", "AcknowledgedStatus", "subOrderID", subOrderID)

	var status domain.ShipmentAckStatus
	err := t.db.QueryRowContext(ctx,
		`SELECT ack_status FROM shipments WHERE sub_order_id = $1 AND direction = 'RETURN' ORDER BY updated_at DESC LIMIT 1`,
		subOrderID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExternalServiceResult("shipment", "AcknowledgedStatus", nil, "subOrderID", subOrderID, "status", domain.ShipmentAckPending)
		return domain.ShipmentAckPending, nil
	}
	logger.ExternalServiceResult("shipment", "AcknowledgedStatus", err, "subOrderID", subOrderID, "status", status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// Record stores a status pushed through the shipment webhook.
func (t *PostgresTracker) Record(ctx context.Context, subOrderID string, status domain.ShipmentAckStatus) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO shipments (sub_order_id, direction, ack_status, updated_at) VALUES ($1, 'RETURN', $2, $3)
		 ON CONFLICT (sub_order_id, direction) DO UPDATE SET ack_status = EXCLUDED.ack_status, updated_at = EXCLUDED.updated_at`,
		subOrderID, status, time.Now())
	return err
}

// MemoryTracker is the development stand-in for the shipment subsystem.
type MemoryTracker struct {
	mu       sync.RWMutex
	statuses map[string]domain.ShipmentAckStatus
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{statuses: make(map[string]domain.ShipmentAckStatus)}
}

func (t *MemoryTracker) AcknowledgedStatus(ctx context.Context, subOrderID string) (domain.ShipmentAckStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if status, ok := t.statuses[subOrderID]; ok {
		return status, nil
	}
	return domain.ShipmentAckPending, nil
}

func (t *MemoryTracker) Record(ctx context.Context, subOrderID string, status domain.ShipmentAckStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[subOrderID] = status
	return nil
}
