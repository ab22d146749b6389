package repository

import (
	"context"
	"time"

	"rental-modification-backend/internal/domain"
)

// Transactor runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RentalAgreementRepository owns SubOrder and line-item state. Update is
// guarded by the agreement's version; a lost update yields StaleRequest.
type RentalAgreementRepository interface {
	GetByID(ctx context.Context, id string) (*domain.RentalAgreement, error)
	Update(ctx context.Context, agreement *domain.RentalAgreement) error
}

type EarlyReturnRepository interface {
	Create(ctx context.Context, req *domain.EarlyReturnRequest) error
	// GetByID also returns deleted requests so delete stays idempotent; callers check IsDeleted.
	GetByID(ctx context.Context, id string) (*domain.EarlyReturnRequest, error)
	Update(ctx context.Context, req *domain.EarlyReturnRequest) error
	// FindLiveBySubOrder returns the non-terminal request of a sub-order, or nil.
	FindLiveBySubOrder(ctx context.Context, subOrderID string) (*domain.EarlyReturnRequest, error)
	ListByRenter(ctx context.Context, renterID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error)
	ListByOwner(ctx context.Context, ownerID string, statuses []domain.EarlyReturnStatus, limit, offset int32) ([]domain.EarlyReturnRequest, int32, error)
	// ListReturnedBefore feeds the auto-complete sweep.
	ListReturnedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.EarlyReturnRequest, error)
	// ListAwaitingShipment returns the next page of PENDING and ACKNOWLEDGED
	// requests after the cursor, ordered by creation time then id.
	ListAwaitingShipment(ctx context.Context, after SweepCursor, limit int32) ([]domain.EarlyReturnRequest, error)
}

// SweepCursor is the position of a keyset sweep. The zero value starts at the
// oldest row. Rows leaving the result set between pages never shift it.
type SweepCursor struct {
	CreatedAt time.Time
	ID        string
}

// Precedes reports whether req sorts strictly after the cursor.
func (c SweepCursor) Precedes(req *domain.EarlyReturnRequest) bool {
	if req.CreatedAt.Equal(c.CreatedAt) {
		return req.ID > c.ID
	}
	return req.CreatedAt.After(c.CreatedAt)
}

type ExtensionRepository interface {
	Create(ctx context.Context, req *domain.ExtensionRequest) error
	GetByID(ctx context.Context, id string) (*domain.ExtensionRequest, error)
	Update(ctx context.Context, req *domain.ExtensionRequest) error
	FindPendingBySubOrder(ctx context.Context, subOrderID string) (*domain.ExtensionRequest, error)
	ListByRenter(ctx context.Context, renterID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error)
	ListByOwner(ctx context.Context, ownerID string, statuses []domain.ExtensionStatus, limit, offset int32) ([]domain.ExtensionRequest, int32, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int64, userID string) error
}

// WalletRepository backs the wallet payment method. DebitIfSufficient checks
// the balance and debits in one statement, so no separate balance read can race.
type WalletRepository interface {
	DebitIfSufficient(ctx context.Context, tx *domain.WalletTransaction) (bool, error)
	Credit(ctx context.Context, tx *domain.WalletTransaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error)
	GetBalance(ctx context.Context, userID string) (domain.Amount, error)
}
