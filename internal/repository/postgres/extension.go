package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

const extensionColumns = `id, sub_order_id, renter_id, owner_id, status, current_end_date, new_end_date,
	extension_days, rental_rate, extension_cost, total_cost, is_estimate, reason,
	payment_method, payment_status, gateway_payment_ref, transaction_id, rejection_reason,
	requested_at, responded_at, updated_at`

type extensionRepository struct {
	db *sql.DB
}

func NewExtensionRepository(db *sql.DB) repository.ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, req *domain.ExtensionRequest) error {
	logger.EnterMethod("extensionRepository.Create", "requestID", req.ID, "subOrderID", req.SubOrderID)

	query := `INSERT INTO extension_requests (` + extensionColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	logger.DatabaseCall("INSERT", "extension_requests", "requestID", req.ID)
	_, err := conn(ctx, r.db).ExecContext(ctx, query, extensionArgs(req)...)
	logger.DatabaseResult("INSERT", 1, err, "requestID", req.ID)
	if isUniqueViolation(err) {
		dupErr := r.duplicateOf(ctx, req.SubOrderID, req.ID)
		logger.ExitMethodWithError("extensionRepository.Create", dupErr, "subOrderID", req.SubOrderID)
		return dupErr
	}
	if err != nil {
		logger.ExitMethodWithError("extensionRepository.Create", err, "requestID", req.ID)
		return err
	}

	logger.ExitMethod("extensionRepository.Create", "requestID", req.ID)
	return nil
}

func (r *extensionRepository) GetByID(ctx context.Context, id string) (*domain.ExtensionRequest, error) {
	query := `SELECT ` + extensionColumns + ` FROM extension_requests WHERE id = $1`
	req, err := scanExtension(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("extension request", id)
	}
	return req, err
}

func (r *extensionRepository) Update(ctx context.Context, req *domain.ExtensionRequest) error {
	logger.EnterMethod("extensionRepository.Update", "requestID", req.ID, "status", req.Status)

	var rejection any
	if req.OwnerResponse != nil {
		rejection = req.OwnerResponse.RejectionReason
	}
	query := `UPDATE extension_requests SET status = $1, extension_days = $2, rental_rate = $3, extension_cost = $4,
	              total_cost = $5, is_estimate = $6, payment_status = $7, gateway_payment_ref = $8, transaction_id = $9,
	              rejection_reason = $10, responded_at = $11, updated_at = $12
	          WHERE id = $13`

	logger.DatabaseCall("UPDATE", "extension_requests", "requestID", req.ID)
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		req.Status, req.ExtensionDays, req.RentalRate, req.ExtensionCost,
		req.TotalCost, req.IsEstimate, req.PaymentStatus, req.GatewayPaymentRef, req.TransactionID,
		rejection, timePtrArg(req.RespondedAt), req.UpdatedAt, req.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "requestID", req.ID)
		if isUniqueViolation(err) {
			return r.duplicateOf(ctx, req.SubOrderID, req.ID)
		}
		return err
	}
	affected, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", affected, err, "requestID", req.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.NewNotFound("extension request", req.ID)
	}

	logger.ExitMethod("extensionRepository.Update", "requestID", req.ID)
	return nil
}

func (r *extensionRepository) FindPendingBySubOrder(ctx context.Context, subOrderID string) (*domain.ExtensionRequest, error) {
	query := `SELECT ` + extensionColumns + ` FROM extension_requests WHERE sub_order_id = $1 AND status = $2 LIMIT 1`
	req, err := scanExtension(conn(ctx, r.db).QueryRowContext(ctx, query, subOrderID, domain.ExtensionStatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// duplicateOf names the pending extension that holds the one-pending index,
// read on the pool since the rejected statement aborted any transaction on ctx.
func (r *extensionRepository) duplicateOf(ctx context.Context, subOrderID, exceptID string) error {
	query := `SELECT id FROM extension_requests WHERE sub_order_id = $1 AND id <> $2 AND status = $3 LIMIT 1`
	var id string
	err := r.db.QueryRowContext(ctx, query, subOrderID, exceptID, domain.ExtensionStatusPending).Scan(&id)
	if err != nil {
		logger.Warn("Could not load the pending extension", "subOrderID", subOrderID, "error", err)
		id = ""
	}
	return domain.NewDuplicateActiveRequest(id, string(domain.ExtensionStatusPending))
}

func (r *extensionRepository) ListByRenter(ctx context.Context, renterID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error) {
	return r.listBy(ctx, "renter_id", renterID, statuses, limit, offset)
}

func (r *extensionRepository) ListByOwner(ctx context.Context, ownerID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error) {
	return r.listBy(ctx, "owner_id", ownerID, statuses, limit, offset)
}

func (r *extensionRepository) listBy(ctx context.Context, column, userID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error) {
	where := fmt.Sprintf("%s = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))", column)
	statusArg := pq.Array(stringsOf(statuses))
	q := conn(ctx, r.db)

	var count int32
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM extension_requests WHERE `+where, userID, statusArg).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + extensionColumns + ` FROM extension_requests WHERE ` + where +
		` ORDER BY requested_at DESC LIMIT $3 OFFSET $4`
	rows, err := q.QueryContext(ctx, query, userID, statusArg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reqs []domain.ExtensionRequest
	for rows.Next() {
		req, err := scanExtension(rows)
		if err != nil {
			return nil, 0, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, count, rows.Err()
}

func extensionArgs(req *domain.ExtensionRequest) []any {
	var rejection any
	if req.OwnerResponse != nil {
		rejection = req.OwnerResponse.RejectionReason
	}
	return []any{
		req.ID, req.SubOrderID, req.RenterID, req.OwnerID, req.Status,
		dateArg(req.CurrentEndDate), dateArg(req.NewEndDate),
		req.ExtensionDays, req.RentalRate, req.ExtensionCost, req.TotalCost, req.IsEstimate, req.Reason,
		req.PaymentMethod, req.PaymentStatus, req.GatewayPaymentRef, req.TransactionID, rejection,
		req.RequestedAt, timePtrArg(req.RespondedAt), req.UpdatedAt,
	}
}

func scanExtension(row rowScanner) (*domain.ExtensionRequest, error) {
	req := &domain.ExtensionRequest{}
	var current, newEnd time.Time
	var rejection sql.NullString
	var respondedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.SubOrderID, &req.RenterID, &req.OwnerID, &req.Status, &current, &newEnd,
		&req.ExtensionDays, &req.RentalRate, &req.ExtensionCost, &req.TotalCost, &req.IsEstimate, &req.Reason,
		&req.PaymentMethod, &req.PaymentStatus, &req.GatewayPaymentRef, &req.TransactionID, &rejection,
		&req.RequestedAt, &respondedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.CurrentEndDate = dateOnly(current)
	req.NewEndDate = dateOnly(newEnd)
	req.RespondedAt = nullTimePtr(respondedAt)
	if rejection.Valid {
		req.OwnerResponse = &domain.OwnerResponse{RejectionReason: rejection.String}
	}
	return req, nil
}
