package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

type rentalAgreementRepository struct {
	db *sql.DB
}

func NewRentalAgreementRepository(db *sql.DB) repository.RentalAgreementRepository {
	return &rentalAgreementRepository{db: db}
}

func (r *rentalAgreementRepository) GetByID(ctx context.Context, id string) (*domain.RentalAgreement, error) {
	logger.EnterMethod("rentalAgreementRepository.GetByID", "subOrderID", id)

	q := conn(ctx, r.db)
	query := `SELECT id, master_order_id, owner_id, renter_id, status, start_date, end_date,
	                 contracted_start_date, contracted_end_date,
	                 total_rental, total_deposit, shipping_fee, deposit_payment_ref, version, created_at, updated_at
	          FROM rental_agreements WHERE id = $1`

	a := &domain.RentalAgreement{}
	var start, end, contractStart, contractEnd time.Time
	var totalRental, totalDeposit, shippingFee sql.NullInt64
	err := q.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.MasterOrderID, &a.OwnerID, &a.RenterID, &a.Status, &start, &end, &contractStart, &contractEnd,
		&totalRental, &totalDeposit, &shippingFee, &a.DepositPaymentRef, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("rentalAgreementRepository.GetByID", "subOrderID", id, "found", false)
		return nil, domain.NewNotFound("sub-order", id)
	}
	if err != nil {
		logger.ExitMethodWithError("rentalAgreementRepository.GetByID", err, "subOrderID", id)
		return nil, err
	}
	a.RentalPeriod = domain.RentalPeriod{StartDate: dateOnly(start), EndDate: dateOnly(end)}
	a.ContractPeriod = domain.RentalPeriod{StartDate: dateOnly(contractStart), EndDate: dateOnly(contractEnd)}
	if totalRental.Valid {
		a.PricingSnapshot = &domain.PricingSnapshot{
			TotalRental:  domain.Amount(totalRental.Int64),
			TotalDeposit: domain.Amount(totalDeposit.Int64),
			ShippingFee:  domain.Amount(shippingFee.Int64),
		}
	}

	items, err := r.lineItems(ctx, q, id)
	if err != nil {
		logger.ExitMethodWithError("rentalAgreementRepository.GetByID", err, "subOrderID", id, "reason", "line items")
		return nil, err
	}
	a.LineItems = items

	logger.ExitMethod("rentalAgreementRepository.GetByID", "subOrderID", id, "items", len(items))
	return a, nil
}

func (r *rentalAgreementRepository) lineItems(ctx context.Context, q querier, subOrderID string) ([]domain.RentalLineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, product_ref, quantity, daily_rate, deposit_amount, product_status, end_date
		 FROM rental_line_items WHERE sub_order_id = $1 ORDER BY position`, subOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.RentalLineItem
	for rows.Next() {
		var item domain.RentalLineItem
		var end time.Time
		if err := rows.Scan(&item.ID, &item.ProductRef, &item.Quantity, &item.DailyRate, &item.DepositAmount, &item.ProductStatus, &end); err != nil {
			return nil, err
		}
		item.EndDate = dateOnly(end)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update writes status, end date and line items if the stored version still
// matches; the version is bumped on success.
func (r *rentalAgreementRepository) Update(ctx context.Context, a *domain.RentalAgreement) error {
	logger.EnterMethod("rentalAgreementRepository.Update", "subOrderID", a.ID, "version", a.Version, "endDate", dateArg(a.RentalPeriod.EndDate))

	q := conn(ctx, r.db)
	now := time.Now()

	logger.DatabaseCall("UPDATE", "rental_agreements", "subOrderID", a.ID)
	result, err := q.ExecContext(ctx,
		`UPDATE rental_agreements SET status = $1, end_date = $2, version = version + 1, updated_at = $3
		 WHERE id = $4 AND version = $5`,
		a.Status, dateArg(a.RentalPeriod.EndDate), now, a.ID, a.Version)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "subOrderID", a.ID)
		return err
	}
	affected, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", affected, err, "subOrderID", a.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		staleErr := domain.NewStaleRequest("sub-order was modified concurrently", a.ID, string(a.Status))
		logger.ExitMethodWithError("rentalAgreementRepository.Update", staleErr, "subOrderID", a.ID)
		return staleErr
	}

	for _, item := range a.LineItems {
		_, err := q.ExecContext(ctx,
			`UPDATE rental_line_items SET product_status = $1, end_date = $2 WHERE id = $3 AND sub_order_id = $4`,
			item.ProductStatus, dateArg(item.EndDate), item.ID, a.ID)
		if err != nil {
			logger.ExitMethodWithError("rentalAgreementRepository.Update", err, "subOrderID", a.ID, "itemID", item.ID)
			return err
		}
	}

	a.Version++
	a.UpdatedAt = now
	logger.ExitMethod("rentalAgreementRepository.Update", "subOrderID", a.ID, "version", a.Version)
	return nil
}
