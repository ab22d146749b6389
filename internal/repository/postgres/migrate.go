package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"rental-modification-backend/internal/logger"
)

//go:embed schema.sql
var schema string

// Migrate creates the engine's tables and the partial unique indexes that
// back the one-live-request-per-sub-order rule. The shipments table belongs
// to the shipment subsystem and is not created here.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.Info("Applying database schema")
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
