package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentexchange/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, from_user_id, to_user_id, task_id, amount, status, type,
	description, dispute_reason, resolved_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.TaskID, &t.Amount, &t.Status,
		&t.Type, &t.Description, &t.DisputeReason, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTx inserts a transaction row inside the caller's transaction so the
// ledger entry commits or rolls back together with the balance mutation.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, from_user_id, to_user_id, task_id, amount, status, type, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, t.ID, t.FromUserID, t.ToUserID, t.TaskID, t.Amount, t.Status, t.Type, t.Description).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the transaction row so settle/refund status flips
// are serialized per entry.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

// UpdateStatusTx flips the status column. Transactions are otherwise
// append-only.
func (r *TransactionRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.TransactionStatus, disputeReason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET status = $2, dispute_reason = $3,
			resolved_at = CASE WHEN $2 IN ('completed', 'refunded') THEN now() ELSE resolved_at END,
			updated_at = now()
		WHERE id = $1
	`, id, status, disputeReason)
	return err
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE task_id = $1 ORDER BY created_at ASC`, taskID)
}

func (r *TransactionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1 ORDER BY created_at DESC
	`, userID)
}
