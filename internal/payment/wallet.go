// Package payment holds the money-movement adapters behind the service's
// PaymentProcessor port: the in-app wallet, the Razorpay gateway and a
// method router.
package payment

import (
	"context"
	"errors"
	"fmt"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// WalletProcessor moves money on the renter's in-app wallet. Every movement
// is keyed by its idempotency key, so a replay returns the original result.
type WalletProcessor struct {
	wallets repository.WalletRepository
}

func NewWalletProcessor(wallets repository.WalletRepository) *WalletProcessor {
	return &WalletProcessor{wallets: wallets}
}

func walletTransactionID(tx *domain.WalletTransaction) string {
	return fmt.Sprintf("wallet-%d", tx.ID)
}

func (p *WalletProcessor) Capture(ctx context.Context, req domain.CaptureRequest) (*domain.PaymentResult, error) {
	logger.EnterMethod("WalletProcessor.Capture", "payerID", req.PayerID, "amount", req.Amount, "key", req.IdempotencyKey)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("capture amount must be positive, got %d", req.Amount)
	}
	if prior, err := p.wallets.GetByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		logger.Info("Wallet capture replayed", "key", req.IdempotencyKey, "transactionID", prior.ID)
		return &domain.PaymentResult{Success: true, TransactionID: walletTransactionID(prior)}, nil
	}

	tx := &domain.WalletTransaction{
		UserID:         req.PayerID,
		Amount:         -req.Amount,
		Type:           domain.TransactionTypeCapture,
		SubjectID:      req.SubjectID,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
	}
	ok, err := p.wallets.DebitIfSufficient(ctx, tx)
	if err != nil {
		logger.ExitMethodWithError("WalletProcessor.Capture", err, "payerID", req.PayerID)
		return nil, err
	}
	if !ok {
		logger.ExitMethodWithError("WalletProcessor.Capture", ErrInsufficientBalance, "payerID", req.PayerID)
		return nil, ErrInsufficientBalance
	}

	logger.ExitMethod("WalletProcessor.Capture", "transactionID", tx.ID)
	return &domain.PaymentResult{Success: true, TransactionID: walletTransactionID(tx)}, nil
}

func (p *WalletProcessor) Refund(ctx context.Context, req domain.RefundRequest) (*domain.PaymentResult, error) {
	logger.EnterMethod("WalletProcessor.Refund", "payeeID", req.PayeeID, "amount", req.Amount, "key", req.IdempotencyKey)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %d", req.Amount)
	}
	if prior, err := p.wallets.GetByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		return &domain.PaymentResult{Success: true, TransactionID: walletTransactionID(prior)}, nil
	}

	tx := &domain.WalletTransaction{
		UserID:         req.PayeeID,
		Amount:         req.Amount,
		Type:           domain.TransactionTypeRefund,
		SubjectID:      req.SubjectID,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
	}
	if err := p.wallets.Credit(ctx, tx); err != nil {
		logger.ExitMethodWithError("WalletProcessor.Refund", err, "payeeID", req.PayeeID)
		return nil, err
	}

	logger.ExitMethod("WalletProcessor.Refund", "transactionID", tx.ID)
	return &domain.PaymentResult{Success: true, TransactionID: walletTransactionID(tx)}, nil
}
