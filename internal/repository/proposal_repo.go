package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentexchange/backend/internal/models"
)

type ProposalRepo struct {
	pool *pgxpool.Pool
}

func NewProposalRepo(pool *pgxpool.Pool) *ProposalRepo {
	return &ProposalRepo{pool: pool}
}

const proposalColumns = `id, task_id, provider_id, message, estimated_hours, portfolio_examples,
	questions, status, decline_reason, created_at, updated_at`

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.ID, &p.TaskID, &p.ProviderID, &p.Message, &p.EstimatedHours,
		&p.PortfolioExamples, &p.Questions, &p.Status, &p.DeclineReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO proposals (id, task_id, provider_id, message, estimated_hours,
			portfolio_examples, questions, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.TaskID, p.ProviderID, p.Message, p.EstimatedHours, p.PortfolioExamples,
		p.Questions, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

// GetByIDTx reads a proposal inside the caller's transaction so acceptance
// sees siblings written before the task lock was taken.
func (r *ProposalRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(tx.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

func (r *ProposalRepo) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Proposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE task_id = $1 ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProposalRepo) ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.Proposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE provider_id = $1 ORDER BY created_at DESC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// HasActiveForProvider reports whether the provider already has a
// non-withdrawn proposal on the task. Backed by a partial unique index, so
// this check is advisory; the index is the authority under races.
func (r *ProposalRepo) HasActiveForProvider(ctx context.Context, taskID, providerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM proposals
			WHERE task_id = $1 AND provider_id = $2 AND status <> $3
		)
	`, taskID, providerID, models.ProposalWithdrawn).Scan(&exists)
	return exists, err
}

// MarkAccepted flips a pending proposal to accepted, but only if no sibling
// on the same task is accepted yet. Zero rows affected means either the
// proposal left pending or a sibling won.
func (r *ProposalRepo) MarkAccepted(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE proposals SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		  AND NOT EXISTS (
			SELECT 1 FROM proposals s
			WHERE s.task_id = proposals.task_id AND s.id <> proposals.id AND s.status = $2
		  )
	`, id, models.ProposalAccepted, models.ProposalPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeclineSiblings auto-declines every other pending proposal on the task and
// returns the providers who lost, so they can be notified after commit.
func (r *ProposalRepo) DeclineSiblings(ctx context.Context, tx pgx.Tx, taskID, acceptedID uuid.UUID, reason string) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		UPDATE proposals SET status = $3, decline_reason = $4, updated_at = now()
		WHERE task_id = $1 AND id <> $2 AND status = $5
		RETURNING provider_id
	`, taskID, acceptedID, models.ProposalDeclined, reason, models.ProposalPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var losers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		losers = append(losers, id)
	}
	return losers, rows.Err()
}

// UpdateStatus moves a pending proposal to declined or withdrawn. Zero rows
// affected means the proposal was no longer pending.
func (r *ProposalRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProposalStatus, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE proposals SET status = $2, decline_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, status, reason, models.ProposalPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AcceptedForTask returns the accepted proposal for a task, or nil.
func (r *ProposalRepo) AcceptedForTask(ctx context.Context, taskID uuid.UUID) (*models.Proposal, error) {
	p, err := scanProposal(r.pool.QueryRow(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE task_id = $1 AND status = $2
	`, taskID, models.ProposalAccepted))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}
