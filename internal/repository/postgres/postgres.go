package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.Transactor
	repository.RentalAgreementRepository
	repository.EarlyReturnRepository
	repository.ExtensionRepository
	repository.UserRepository
	repository.NotificationRepository
	repository.WalletRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                        db,
		Transactor:                NewTransactor(db),
		RentalAgreementRepository: NewRentalAgreementRepository(db),
		EarlyReturnRepository:     NewEarlyReturnRepository(db),
		ExtensionRepository:       NewExtensionRepository(db),
		UserRepository:            NewUserRepository(db),
		NotificationRepository:    NewNotificationRepository(db),
		WalletRepository:          NewWalletRepository(db),
	}
}

// DB exposes the pool for jobs that run their own queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx by WithinTx, or the pool.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) repository.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("Transaction commit failed", "error", err)
		return err
	}
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
