package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/talentexchange/backend/internal/models"
)

// LedgerUserRepo is the minimal user repository interface for the ledger.
type LedgerUserRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
}

// LedgerTxnRepo is the minimal transaction repository interface for the ledger.
type LedgerTxnRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.TransactionStatus, disputeReason string) error
}

// Ledger is the source of truth for credit movements. Every balance mutation
// pairs with exactly one transaction row, written in the same database
// transaction, so stored balances always reconcile with the ledger.
type Ledger struct {
	Users LedgerUserRepo
	Txns  LedgerTxnRepo
}

func NewLedger(users LedgerUserRepo, txns LedgerTxnRepo) *Ledger {
	return &Ledger{Users: users, Txns: txns}
}

// Escrow locks the owner's row, deducts amount, and records an escrowed
// task_payment transaction toward the provider. Returns the transaction ID
// so the task can reference its escrow. Call within a transaction.
func (l *Ledger) Escrow(ctx context.Context, tx pgx.Tx, from, to, taskID uuid.UUID, amount int) (uuid.UUID, error) {
	owner, err := l.Users.GetByIDForUpdate(ctx, tx, from)
	if err != nil {
		return uuid.Nil, err
	}
	if owner.CreditBalance < amount {
		return uuid.Nil, ErrInsufficientCredits
	}
	if _, err := l.Users.DeductCredits(ctx, tx, from, amount); err != nil {
		return uuid.Nil, err
	}
	entry := &models.Transaction{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		TaskID:     &taskID,
		Amount:     amount,
		Status:     models.TransactionEscrowed,
		Type:       models.TransactionTaskPayment,
	}
	if err := l.Txns.CreateTx(ctx, tx, entry); err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}

// Settle credits the transaction's recipient and flips the entry to
// completed. Settling an already-completed entry is a no-op so retried
// settlement requests are safe.
func (l *Ledger) Settle(ctx context.Context, tx pgx.Tx, txnID uuid.UUID) error {
	entry, err := l.Txns.GetByIDForUpdate(ctx, tx, txnID)
	if err != nil {
		return err
	}
	switch entry.Status {
	case models.TransactionCompleted:
		return nil
	case models.TransactionEscrowed:
	default:
		return ErrInvalidTransactionState
	}
	if _, err := l.Users.AddCredits(ctx, tx, entry.ToUserID, entry.Amount); err != nil {
		return err
	}
	return l.Txns.UpdateStatusTx(ctx, tx, txnID, models.TransactionCompleted, entry.DisputeReason)
}

// Refund returns the escrowed amount to the payer. Legal from escrowed or
// disputed; refunding an already-refunded entry is a no-op.
func (l *Ledger) Refund(ctx context.Context, tx pgx.Tx, txnID uuid.UUID) error {
	entry, err := l.Txns.GetByIDForUpdate(ctx, tx, txnID)
	if err != nil {
		return err
	}
	switch entry.Status {
	case models.TransactionRefunded:
		return nil
	case models.TransactionEscrowed, models.TransactionDisputed:
	default:
		return ErrInvalidTransactionState
	}
	if _, err := l.Users.AddCredits(ctx, tx, entry.FromUserID, entry.Amount); err != nil {
		return err
	}
	return l.Txns.UpdateStatusTx(ctx, tx, txnID, models.TransactionRefunded, entry.DisputeReason)
}

// MarkDisputed flags an escrowed entry for manual resolution.
func (l *Ledger) MarkDisputed(ctx context.Context, tx pgx.Tx, txnID uuid.UUID, reason string) error {
	entry, err := l.Txns.GetByIDForUpdate(ctx, tx, txnID)
	if err != nil {
		return err
	}
	switch entry.Status {
	case models.TransactionDisputed:
		return nil
	case models.TransactionEscrowed:
	default:
		return ErrInvalidTransactionState
	}
	return l.Txns.UpdateStatusTx(ctx, tx, txnID, models.TransactionDisputed, reason)
}

// Transfer moves credits immediately (credit purchases, bonuses). Locks both
// rows in deterministic UUID order to avoid deadlocks between concurrent
// transfers. System accounts mint, so their balance is not checked or
// deducted.
func (l *Ledger) Transfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int, typ models.TransactionType, taskID *uuid.UUID) (uuid.UUID, error) {
	ids := []uuid.UUID{from, to}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var payer *models.User
	for _, id := range ids {
		u, err := l.Users.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if id == from {
			payer = u
		}
	}
	if !payer.IsSystemAccount {
		if payer.CreditBalance < amount {
			return uuid.Nil, ErrInsufficientCredits
		}
		if _, err := l.Users.DeductCredits(ctx, tx, from, amount); err != nil {
			return uuid.Nil, err
		}
	}
	if _, err := l.Users.AddCredits(ctx, tx, to, amount); err != nil {
		return uuid.Nil, err
	}
	entry := &models.Transaction{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		TaskID:     taskID,
		Amount:     amount,
		Status:     models.TransactionCompleted,
		Type:       typ,
	}
	if err := l.Txns.CreateTx(ctx, tx, entry); err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}
