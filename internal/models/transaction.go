package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus tracks a ledger entry through its life. Status is the
// only mutable column on a transaction; everything else is append-only.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionEscrowed  TransactionStatus = "escrowed"
	TransactionCompleted TransactionStatus = "completed"
	TransactionDisputed  TransactionStatus = "disputed"
	TransactionRefunded  TransactionStatus = "refunded"
)

type TransactionType string

const (
	TransactionTaskPayment    TransactionType = "task_payment"
	TransactionCreditPurchase TransactionType = "credit_purchase"
	TransactionRefund         TransactionType = "refund"
	TransactionBonus          TransactionType = "bonus"
)

// Transaction is one credit movement between two users. A task's full
// financial history is the set of transactions referencing it.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	FromUserID    uuid.UUID         `json:"from_user_id"`
	ToUserID      uuid.UUID         `json:"to_user_id"`
	TaskID        *uuid.UUID        `json:"task_id,omitempty"`
	Amount        int               `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Type          TransactionType   `json:"type"`
	Description   string            `json:"description,omitempty"`
	DisputeReason string            `json:"dispute_reason,omitempty"`
	ResolvedAt    *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
