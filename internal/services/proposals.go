package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/talentexchange/backend/internal/models"
)

// RegistryProposalRepo is the proposal repository interface for the registry.
type RegistryProposalRepo interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	HasActiveForProvider(ctx context.Context, taskID, providerID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProposalStatus, reason string) (bool, error)
	ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Proposal, error)
	ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.Proposal, error)
	AcceptedForTask(ctx context.Context, taskID uuid.UUID) (*models.Proposal, error)
}

// RegistryTaskRepo resolves tasks for submission guards.
type RegistryTaskRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// ProposalDraft carries caller-supplied fields for a new proposal.
type ProposalDraft struct {
	Message           string
	EstimatedHours    int
	PortfolioExamples []string
	Questions         string
}

// ProposalRegistry tracks competing offers against a task. Acceptance is not
// exposed here: it happens only inside the task state machine, atomically
// with escrow and assignment.
type ProposalRegistry struct {
	Proposals RegistryProposalRepo
	Tasks     RegistryTaskRepo
}

func NewProposalRegistry(proposals RegistryProposalRepo, tasks RegistryTaskRepo) *ProposalRegistry {
	return &ProposalRegistry{Proposals: proposals, Tasks: tasks}
}

func (d ProposalDraft) validate() error {
	msg := strings.TrimSpace(d.Message)
	if len(msg) < models.ProposalMessageMin || len(msg) > models.ProposalMessageMax {
		return fmt.Errorf("%w: message must be %d-%d characters", ErrValidation,
			models.ProposalMessageMin, models.ProposalMessageMax)
	}
	if d.EstimatedHours < models.ProposalMinHours || d.EstimatedHours > models.ProposalMaxHours {
		return fmt.Errorf("%w: estimated_completion_hours must be %d-%d", ErrValidation,
			models.ProposalMinHours, models.ProposalMaxHours)
	}
	if len(d.Questions) > models.ProposalQuestionMax {
		return fmt.Errorf("%w: questions must be at most %d characters", ErrValidation, models.ProposalQuestionMax)
	}
	return nil
}

// Submit files a provider's offer against an open task.
func (r *ProposalRegistry) Submit(ctx context.Context, taskID, providerID uuid.UUID, draft ProposalDraft) (*models.Proposal, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}
	task, err := r.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.Status != models.TaskStatusOpen {
		return nil, ErrTaskNotOpen
	}
	if task.CreatedBy == providerID {
		return nil, fmt.Errorf("%w: cannot propose on your own task", ErrValidation)
	}
	if dup, err := r.Proposals.HasActiveForProvider(ctx, taskID, providerID); err != nil {
		return nil, err
	} else if dup {
		return nil, ErrDuplicateProposal
	}

	p := &models.Proposal{
		ID:                uuid.New(),
		TaskID:            taskID,
		ProviderID:        providerID,
		Message:           strings.TrimSpace(draft.Message),
		EstimatedHours:    draft.EstimatedHours,
		PortfolioExamples: draft.PortfolioExamples,
		Questions:         draft.Questions,
		Status:            models.ProposalPending,
	}
	if err := r.Proposals.Create(ctx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateProposal
		}
		return nil, err
	}
	return p, nil
}

// Decline lets the task owner reject a pending proposal.
func (r *ProposalRegistry) Decline(ctx context.Context, proposalID, callerID uuid.UUID, reason string) (*models.Proposal, error) {
	p, err := r.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	task, err := r.Tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != callerID {
		return nil, ErrUnauthorized
	}
	ok, err := r.Proposals.UpdateStatus(ctx, proposalID, models.ProposalDeclined, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProposalState
	}
	p.Status = models.ProposalDeclined
	p.DeclineReason = reason
	return p, nil
}

// Withdraw lets the provider pull a proposal while it is still pending.
func (r *ProposalRegistry) Withdraw(ctx context.Context, proposalID, callerID uuid.UUID) (*models.Proposal, error) {
	p, err := r.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.ProviderID != callerID {
		return nil, ErrUnauthorized
	}
	ok, err := r.Proposals.UpdateStatus(ctx, proposalID, models.ProposalWithdrawn, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProposalState
	}
	p.Status = models.ProposalWithdrawn
	return p, nil
}

// ListForTask returns the task's proposals; only the owner may see them all.
func (r *ProposalRegistry) ListForTask(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.Proposal, error) {
	task, err := r.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.CreatedBy != callerID {
		return nil, ErrUnauthorized
	}
	return r.Proposals.ListByTaskID(ctx, taskID)
}

// ListMine returns every proposal the provider has filed, newest first.
func (r *ProposalRegistry) ListMine(ctx context.Context, providerID uuid.UUID) ([]*models.Proposal, error) {
	return r.Proposals.ListByProviderID(ctx, providerID)
}

// AcceptedFor returns the task's accepted proposal, or nil if none was ever
// accepted.
func (r *ProposalRegistry) AcceptedFor(ctx context.Context, taskID uuid.UUID) (*models.Proposal, error) {
	return r.Proposals.AcceptedForTask(ctx, taskID)
}
