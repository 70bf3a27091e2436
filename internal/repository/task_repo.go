package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentexchange/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, title, description, credit_value, deadline, task_type, status, created_by,
	assigned_to, assigned_at, required_skills, attachments, location, experience_level, submitted_work,
	revision_requests, escrow_tx_id, cancellation_reason, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.CreditValue, &t.Deadline, &t.TaskType,
		&t.Status, &t.CreatedBy, &t.AssignedTo, &t.AssignedAt, &t.RequiredSkills, &t.Attachments,
		&t.Location, &t.ExperienceLevel, &t.SubmittedWork, &t.RevisionRequests, &t.EscrowTxID,
		&t.CancellationReason, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, credit_value, deadline, task_type, status,
			created_by, required_skills, attachments, location, experience_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.Title, t.Description, t.CreditValue, t.Deadline, t.TaskType, t.Status,
		t.CreatedBy, t.RequiredSkills, t.Attachments, t.Location, t.ExperienceLevel).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetByIDTx reads a task inside the caller's transaction without locking it.
func (r *TaskRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetByIDForUpdate locks the task row. Every lifecycle transition acquires
// this lock first, which serializes all mutations of one task.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

// ClaimAssignment assigns the task to a provider only if it is still open and
// unassigned. Zero rows affected means another accept won the race.
func (r *TaskRepo) ClaimAssignment(ctx context.Context, tx pgx.Tx, taskID, providerID, escrowTxID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET assigned_to = $2, assigned_at = now(), escrow_tx_id = $3, status = $4, updated_at = now()
		WHERE id = $1 AND assigned_to IS NULL AND status = $5
	`, taskID, providerID, escrowTxID, models.TaskStatusInProgress, models.TaskStatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStateTx persists the mutable lifecycle columns within the caller's
// transaction. Identity columns (created_by, credit_value, ...) never change.
func (r *TaskRepo) UpdateStateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, assigned_to = $3, submitted_work = $4, revision_requests = $5,
			escrow_tx_id = $6, cancellation_reason = $7, completed_at = $8, updated_at = now()
		WHERE id = $1
	`, t.ID, t.Status, t.AssignedTo, t.SubmittedWork, t.RevisionRequests, t.EscrowTxID,
		t.CancellationReason, t.CompletedAt)
	return err
}

func (r *TaskRepo) listBy(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TaskRepo) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.listBy(ctx, `SELECT `+taskColumns+` FROM tasks WHERE created_by = $1 ORDER BY created_at DESC`, userID)
}

func (r *TaskRepo) ListByAssignee(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.listBy(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY created_at DESC`, userID)
}

func (r *TaskRepo) ListOpen(ctx context.Context, limit int) ([]*models.Task, error) {
	return r.listBy(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
		models.TaskStatusOpen, limit)
}

// CountOutcomesByAssigneeTx returns how many assigned tasks the user
// completed and how many ended cancelled or disputed. Feeds completion-rate
// recompute, inside the review transaction.
func (r *TaskRepo) CountOutcomesByAssigneeTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (completed, unfinished int, err error) {
	err = tx.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE status IN ($3, $4))
		FROM tasks WHERE assigned_to = $1
	`, userID, models.TaskStatusCompleted, models.TaskStatusCancelled, models.TaskStatusDisputed).
		Scan(&completed, &unfinished)
	return completed, unfinished, err
}

// AverageResponseHoursTx returns the user's mean assignment-to-submission
// interval in hours across completed tasks, or 0 without history.
func (r *TaskRepo) AverageResponseHoursTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (float64, error) {
	var hours float64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM ((submitted_work->>'submitted_at')::timestamptz - assigned_at)) / 3600), 0)
		FROM tasks
		WHERE assigned_to = $1 AND status = $2
		  AND assigned_at IS NOT NULL AND submitted_work->>'submitted_at' IS NOT NULL
	`, userID, models.TaskStatusCompleted).Scan(&hours)
	return hours, err
}

// RecordTransitionTx appends one status-change row to the task's audit trail.
func (r *TaskRepo) RecordTransitionTx(ctx context.Context, tx pgx.Tx, tr *models.TaskTransition) error {
	return tx.QueryRow(ctx, `
		INSERT INTO task_transitions (id, task_id, from_status, to_status, actor_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, tr.ID, tr.TaskID, tr.FromStatus, tr.ToStatus, tr.ActorID, tr.Note).Scan(&tr.CreatedAt)
}

// ListTransitions returns the task's status-change trail, oldest first.
func (r *TaskRepo) ListTransitions(ctx context.Context, taskID uuid.UUID) ([]*models.TaskTransition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, from_status, to_status, actor_id, note, created_at
		FROM task_transitions WHERE task_id = $1 ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.TaskTransition
	for rows.Next() {
		var tr models.TaskTransition
		if err := rows.Scan(&tr.ID, &tr.TaskID, &tr.FromStatus, &tr.ToStatus, &tr.ActorID,
			&tr.Note, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &tr)
	}
	return out, rows.Err()
}
