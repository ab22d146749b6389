package domain

import "time"

type TransactionType string

const (
	TransactionTypeCapture TransactionType = "CAPTURE"
	TransactionTypeRefund  TransactionType = "REFUND"
)

// WalletTransaction is one movement on a user's wallet. IdempotencyKey is
// unique so replays of the same capture or refund are detected.
type WalletTransaction struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	Amount         Amount          `json:"amount"` // positive for credit, negative for debit
	Type           TransactionType `json:"type"`
	SubjectID      string          `json:"subject_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Description    string          `json:"description"`
	CreatedOn      time.Time       `json:"created_on"`
}
