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

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) repository.WalletRepository {
	return &walletRepository{db: db}
}

// DebitIfSufficient debits -tx.Amount from the wallet only if the balance
// covers it, and records the transaction, in one database transaction.
// It returns false without error when funds are insufficient.
func (r *walletRepository) DebitIfSufficient(ctx context.Context, tx *domain.WalletTransaction) (bool, error) {
	logger.EnterMethod("walletRepository.DebitIfSufficient", "userID", tx.UserID, "amount", tx.Amount, "key", tx.IdempotencyKey)

	debit := -tx.Amount
	var applied bool
	err := NewTransactor(r.db).WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		logger.DatabaseCall("UPDATE", "wallets", "userID", tx.UserID)
		result, err := q.ExecContext(ctx,
			`UPDATE wallets SET balance = balance - $1, updated_on = $2 WHERE user_id = $3 AND balance >= $1`,
			debit, time.Now(), tx.UserID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		logger.DatabaseResult("UPDATE", affected, err, "userID", tx.UserID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		applied = true
		return r.insert(ctx, q, tx)
	})
	if err != nil {
		logger.ExitMethodWithError("walletRepository.DebitIfSufficient", err, "userID", tx.UserID)
		return false, err
	}

	logger.ExitMethod("walletRepository.DebitIfSufficient", "userID", tx.UserID, "applied", applied)
	return applied, nil
}

func (r *walletRepository) Credit(ctx context.Context, tx *domain.WalletTransaction) error {
	logger.EnterMethod("walletRepository.Credit", "userID", tx.UserID, "amount", tx.Amount, "key", tx.IdempotencyKey)

	err := NewTransactor(r.db).WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		_, err := q.ExecContext(ctx,
			`INSERT INTO wallets (user_id, balance, updated_on) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_on = EXCLUDED.updated_on`,
			tx.UserID, tx.Amount, time.Now())
		if err != nil {
			return err
		}
		return r.insert(ctx, q, tx)
	})
	if err != nil {
		logger.ExitMethodWithError("walletRepository.Credit", err, "userID", tx.UserID)
		return err
	}
	logger.ExitMethod("walletRepository.Credit", "userID", tx.UserID, "transactionID", tx.ID)
	return nil
}

func (r *walletRepository) insert(ctx context.Context, q querier, tx *domain.WalletTransaction) error {
	tx.CreatedOn = time.Now()
	query := `INSERT INTO wallet_transactions (user_id, amount, type, subject_id, idempotency_key, description, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	return q.QueryRowContext(ctx, query, tx.UserID, tx.Amount, tx.Type, tx.SubjectID, tx.IdempotencyKey, tx.Description, tx.CreatedOn).Scan(&tx.ID)
}

func (r *walletRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error) {
	tx := &domain.WalletTransaction{}
	query := `SELECT id, user_id, amount, type, subject_id, idempotency_key, description, created_on
	          FROM wallet_transactions WHERE idempotency_key = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, key).Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.SubjectID, &tx.IdempotencyKey, &tx.Description, &tx.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *walletRepository) GetBalance(ctx context.Context, userID string) (domain.Amount, error) {
	var balance domain.Amount
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COALESCE(balance, 0) FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}
