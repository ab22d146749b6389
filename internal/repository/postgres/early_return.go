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

const earlyReturnColumns = `id, sub_order_id, renter_id, owner_id, status, requested_return_date,
	original_start_date, original_end_date, use_original_address, return_address,
	deposit_refund_amount, deposit_refund_status, deposit_refund_tx, shipping_fee_delta,
	shipping_fee_method, shipping_fee_status, shipping_fee_tx, owner_confirmation,
	renter_notes, cancel_reason, shipment_ack_status, returned_at, completed_at,
	created_at, updated_at, deleted_at`

type earlyReturnRepository struct {
	db *sql.DB
}

func NewEarlyReturnRepository(db *sql.DB) repository.EarlyReturnRepository {
	return &earlyReturnRepository{db: db}
}

func (r *earlyReturnRepository) Create(ctx context.Context, req *domain.EarlyReturnRequest) error {
	logger.EnterMethod("earlyReturnRepository.Create", "requestID", req.ID, "subOrderID", req.SubOrderID)

	args, err := earlyReturnArgs(req)
	if err != nil {
		logger.ExitMethodWithError("earlyReturnRepository.Create", err, "reason", "failed to encode request")
		return err
	}
	query := `INSERT INTO early_return_requests (` + earlyReturnColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	logger.DatabaseCall("INSERT", "early_return_requests", "requestID", req.ID)
	_, err = conn(ctx, r.db).ExecContext(ctx, query, args...)
	logger.DatabaseResult("INSERT", 1, err, "requestID", req.ID)
	if isUniqueViolation(err) {
		dupErr := r.duplicateOf(ctx, req.SubOrderID, req.ID)
		logger.ExitMethodWithError("earlyReturnRepository.Create", dupErr, "subOrderID", req.SubOrderID)
		return dupErr
	}
	if err != nil {
		logger.ExitMethodWithError("earlyReturnRepository.Create", err, "requestID", req.ID)
		return err
	}

	logger.ExitMethod("earlyReturnRepository.Create", "requestID", req.ID)
	return nil
}

func (r *earlyReturnRepository) GetByID(ctx context.Context, id string) (*domain.EarlyReturnRequest, error) {
	query := `SELECT ` + earlyReturnColumns + ` FROM early_return_requests WHERE id = $1`
	req, err := scanEarlyReturn(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("early return request", id)
	}
	return req, err
}

func (r *earlyReturnRepository) Update(ctx context.Context, req *domain.EarlyReturnRequest) error {
	logger.EnterMethod("earlyReturnRepository.Update", "requestID", req.ID, "status", req.Status)

	address, err := jsonArg(req.ReturnAddress)
	if err != nil {
		return err
	}
	confirmation, err := jsonArg(req.OwnerConfirmation)
	if err != nil {
		return err
	}
	// Identity columns and created_at never change after Create.
	query := `UPDATE early_return_requests SET status = $1, requested_return_date = $2, use_original_address = $3,
	              return_address = $4, deposit_refund_amount = $5, deposit_refund_status = $6, deposit_refund_tx = $7,
	              shipping_fee_delta = $8, shipping_fee_method = $9, shipping_fee_status = $10, shipping_fee_tx = $11,
	              owner_confirmation = $12, renter_notes = $13, cancel_reason = $14, shipment_ack_status = $15,
	              returned_at = $16, completed_at = $17, updated_at = $18, deleted_at = $19
	          WHERE id = $20`
	args := []any{
		req.Status, dateArg(req.RequestedReturnDate), req.UseOriginalAddress,
		address, req.DepositRefund.Amount, req.DepositRefund.Status, req.DepositRefund.TransactionID,
		req.ShippingFeeDelta, req.ShippingFeePayment.Method, req.ShippingFeePayment.Status, req.ShippingFeePayment.TransactionID,
		confirmation, req.RenterNotes, req.CancelReason, req.ExternalShipmentAckStatus,
		timePtrArg(req.ReturnedAt), timePtrArg(req.CompletedAt), req.UpdatedAt, timePtrArg(req.DeletedAt),
		req.ID,
	}

	logger.DatabaseCall("UPDATE", "early_return_requests", "requestID", req.ID)
	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
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
		return domain.NewNotFound("early return request", req.ID)
	}

	logger.ExitMethod("earlyReturnRepository.Update", "requestID", req.ID)
	return nil
}

func (r *earlyReturnRepository) FindLiveBySubOrder(ctx context.Context, subOrderID string) (*domain.EarlyReturnRequest, error) {
	query := `SELECT ` + earlyReturnColumns + ` FROM early_return_requests
	          WHERE sub_order_id = $1 AND status = ANY($2) AND deleted_at IS NULL
	          ORDER BY created_at DESC LIMIT 1`
	req, err := scanEarlyReturn(conn(ctx, r.db).QueryRowContext(ctx, query, subOrderID,
		pq.Array(stringsOf(domain.LiveEarlyReturnStatuses))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// duplicateOf names the live request that holds the one-live-per-sub-order
// index. The rejected statement has aborted any transaction on ctx and the
// holder is already committed, so it is read on the pool.
func (r *earlyReturnRepository) duplicateOf(ctx context.Context, subOrderID, exceptID string) error {
	query := `SELECT id, status FROM early_return_requests
	          WHERE sub_order_id = $1 AND id <> $2 AND status = ANY($3) AND deleted_at IS NULL
	          ORDER BY created_at DESC LIMIT 1`
	var id, status string
	err := r.db.QueryRowContext(ctx, query, subOrderID, exceptID,
		pq.Array(stringsOf(domain.LiveEarlyReturnStatuses))).Scan(&id, &status)
	if err != nil {
		logger.Warn("Could not load the request holding the live index", "subOrderID", subOrderID, "error", err)
		return domain.NewDuplicateActiveRequest("", "")
	}
	return domain.NewDuplicateActiveRequest(id, status)
}

func (r *earlyReturnRepository) ListByRenter(ctx context.Context, renterID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error) {
	return r.listBy(ctx, "renter_id", renterID, statuses, limit, offset)
}

func (r *earlyReturnRepository) ListByOwner(ctx context.Context, ownerID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error) {
	return r.listBy(ctx, "owner_id", ownerID, statuses, limit, offset)
}

// listBy pages over one party's requests; column is a fixed identifier, never user input.
func (r *earlyReturnRepository) listBy(ctx context.Context, column, userID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error) {
	logger.EnterMethod("earlyReturnRepository.listBy", "column", column, "userID", userID, "statuses", statuses)

	where := fmt.Sprintf("%s = $1 AND deleted_at IS NULL AND (cardinality($2::text[]) = 0 OR status = ANY($2))", column)
	statusArg := pq.Array(stringsOf(statuses))
	q := conn(ctx, r.db)

	var count int32
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM early_return_requests WHERE `+where, userID, statusArg).Scan(&count); err != nil {
		logger.ExitMethodWithError("earlyReturnRepository.listBy", err, "reason", "count")
		return nil, 0, err
	}

	query := `SELECT ` + earlyReturnColumns + ` FROM early_return_requests WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := q.QueryContext(ctx, query, userID, statusArg, limit, offset)
	if err != nil {
		logger.ExitMethodWithError("earlyReturnRepository.listBy", err)
		return nil, 0, err
	}
	defer rows.Close()

	reqs, err := collectEarlyReturns(rows)
	if err != nil {
		return nil, 0, err
	}
	logger.ExitMethod("earlyReturnRepository.listBy", "count", len(reqs), "total", count)
	return reqs, count, nil
}

func (r *earlyReturnRepository) ListReturnedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.EarlyReturnRequest, error) {
	query := `SELECT ` + earlyReturnColumns + ` FROM early_return_requests
	          WHERE status = $1 AND deleted_at IS NULL AND returned_at <= $2
	          ORDER BY returned_at LIMIT $3`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, domain.EarlyReturnStatusReturned, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEarlyReturns(rows)
}

func (r *earlyReturnRepository) ListAwaitingShipment(ctx context.Context, after repository.SweepCursor, limit int32) ([]domain.EarlyReturnRequest, error) {
	query := `SELECT ` + earlyReturnColumns + ` FROM early_return_requests
	          WHERE status IN ($1, $2) AND deleted_at IS NULL AND (created_at, id) > ($3, $4)
	          ORDER BY created_at, id LIMIT $5`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query,
		domain.EarlyReturnStatusPending, domain.EarlyReturnStatusAcknowledged, after.CreatedAt, after.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEarlyReturns(rows)
}

func earlyReturnArgs(req *domain.EarlyReturnRequest) ([]any, error) {
	address, err := jsonArg(req.ReturnAddress)
	if err != nil {
		return nil, err
	}
	confirmation, err := jsonArg(req.OwnerConfirmation)
	if err != nil {
		return nil, err
	}
	return []any{
		req.ID, req.SubOrderID, req.RenterID, req.OwnerID, req.Status,
		dateArg(req.RequestedReturnDate),
		dateArg(req.OriginalPeriod.StartDate), dateArg(req.OriginalPeriod.EndDate),
		req.UseOriginalAddress, address,
		req.DepositRefund.Amount, req.DepositRefund.Status, req.DepositRefund.TransactionID,
		req.ShippingFeeDelta,
		req.ShippingFeePayment.Method, req.ShippingFeePayment.Status, req.ShippingFeePayment.TransactionID,
		confirmation,
		req.RenterNotes, req.CancelReason, req.ExternalShipmentAckStatus,
		timePtrArg(req.ReturnedAt), timePtrArg(req.CompletedAt),
		req.CreatedAt, req.UpdatedAt, timePtrArg(req.DeletedAt),
	}, nil
}

func scanEarlyReturn(row rowScanner) (*domain.EarlyReturnRequest, error) {
	req := &domain.EarlyReturnRequest{}
	var requested, origStart, origEnd time.Time
	var address, confirmation []byte
	var returnedAt, completedAt, deletedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.SubOrderID, &req.RenterID, &req.OwnerID, &req.Status, &requested,
		&origStart, &origEnd, &req.UseOriginalAddress, &address,
		&req.DepositRefund.Amount, &req.DepositRefund.Status, &req.DepositRefund.TransactionID, &req.ShippingFeeDelta,
		&req.ShippingFeePayment.Method, &req.ShippingFeePayment.Status, &req.ShippingFeePayment.TransactionID, &confirmation,
		&req.RenterNotes, &req.CancelReason, &req.ExternalShipmentAckStatus, &returnedAt, &completedAt,
		&req.CreatedAt, &req.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	req.RequestedReturnDate = dateOnly(requested)
	req.OriginalPeriod = domain.RentalPeriod{StartDate: dateOnly(origStart), EndDate: dateOnly(origEnd)}
	req.ReturnedAt = nullTimePtr(returnedAt)
	req.CompletedAt = nullTimePtr(completedAt)
	req.DeletedAt = nullTimePtr(deletedAt)
	if req.ReturnAddress, err = jsonScan[domain.Address](address); err != nil {
		return nil, err
	}
	if req.OwnerConfirmation, err = jsonScan[domain.OwnerConfirmation](confirmation); err != nil {
		return nil, err
	}
	return req, nil
}

func collectEarlyReturns(rows *sql.Rows) ([]domain.EarlyReturnRequest, error) {
	var reqs []domain.EarlyReturnRequest
	for rows.Next() {
		req, err := scanEarlyReturn(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}
