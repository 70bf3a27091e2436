package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/talentexchange/backend/internal/models"
)

// taskTransitions is the exhaustive legal-edge table of the task lifecycle.
// A transition absent here is illegal regardless of guards.
var taskTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusOpen:        {models.TaskStatusInProgress, models.TaskStatusCancelled, models.TaskStatusDisputed},
	models.TaskStatusInProgress:  {models.TaskStatusSubmitted, models.TaskStatusCancelled, models.TaskStatusDisputed},
	models.TaskStatusSubmitted:   {models.TaskStatusCompleted, models.TaskStatusInProgress, models.TaskStatusCancelled, models.TaskStatusDisputed},
	models.TaskStatusUnderReview: {models.TaskStatusCompleted, models.TaskStatusDisputed},
	models.TaskStatusDisputed:    {},
	models.TaskStatusCompleted:   {},
	models.TaskStatusCancelled:   {},
}

func canTransition(from, to models.TaskStatus) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FlowTaskRepo is the task repository interface used by the state machine.
type FlowTaskRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	ClaimAssignment(ctx context.Context, tx pgx.Tx, taskID, providerID, escrowTxID uuid.UUID) (bool, error)
	UpdateStateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	RecordTransitionTx(ctx context.Context, tx pgx.Tx, tr *models.TaskTransition) error
}

// FlowProposalRepo is the proposal repository interface used by the state
// machine during acceptance.
type FlowProposalRepo interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Proposal, error)
	MarkAccepted(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	DeclineSiblings(ctx context.Context, tx pgx.Tx, taskID, acceptedID uuid.UUID, reason string) ([]uuid.UUID, error)
}

// FlowLedger is the ledger interface used by the state machine.
type FlowLedger interface {
	Escrow(ctx context.Context, tx pgx.Tx, from, to, taskID uuid.UUID, amount int) (uuid.UUID, error)
	Settle(ctx context.Context, tx pgx.Tx, txnID uuid.UUID) error
	Refund(ctx context.Context, tx pgx.Tx, txnID uuid.UUID) error
	MarkDisputed(ctx context.Context, tx pgx.Tx, txnID uuid.UUID, reason string) error
}

// TaskFlow owns the task lifecycle. Every method runs inside the caller's
// database transaction, after the task row lock has serialized concurrent
// mutations; a guard failure leaves all state untouched because the whole
// transaction rolls back.
type TaskFlow struct {
	Tasks     FlowTaskRepo
	Proposals FlowProposalRepo
	Ledger    FlowLedger
	Now       func() time.Time
}

func NewTaskFlow(tasks FlowTaskRepo, proposals FlowProposalRepo, ledger FlowLedger) *TaskFlow {
	return &TaskFlow{Tasks: tasks, Proposals: proposals, Ledger: ledger, Now: time.Now}
}

const siblingDeclineReason = "another proposal was accepted"

// record appends one audit-trail row for a committed status change.
func (f *TaskFlow) record(ctx context.Context, tx pgx.Tx, task *models.Task, from models.TaskStatus, actorID uuid.UUID, note string) error {
	return f.Tasks.RecordTransitionTx(ctx, tx, &models.TaskTransition{
		ID:         uuid.New(),
		TaskID:     task.ID,
		FromStatus: from,
		ToStatus:   task.Status,
		ActorID:    actorID,
		Note:       note,
	})
}

// AcceptProposal moves an open task to in_progress: escrows the owner's
// credits, accepts exactly one proposal, declines its siblings, and assigns
// the provider. The assignment claim is a conditional update, so of two
// concurrent accepts exactly one wins and the loser sees ErrAlreadyAssigned.
// Returns the providers whose sibling proposals were declined.
func (f *TaskFlow) AcceptProposal(ctx context.Context, tx pgx.Tx, taskID, proposalID, callerID uuid.UUID) (*models.Task, *models.Proposal, []uuid.UUID, error) {
	task, err := f.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, nil, nil, err
	}
	if task.CreatedBy != callerID {
		return nil, nil, nil, ErrUnauthorized
	}
	if task.AssignedTo != nil {
		return nil, nil, nil, ErrAlreadyAssigned
	}
	if task.Status != models.TaskStatusOpen {
		return nil, nil, nil, ErrTaskNotOpen
	}

	p, err := f.Proposals.GetByIDTx(ctx, tx, proposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	if p.TaskID != taskID {
		return nil, nil, nil, ErrInvalidProposalState
	}
	if p.Status != models.ProposalPending {
		return nil, nil, nil, ErrInvalidProposalState
	}

	escrowTxID, err := f.Ledger.Escrow(ctx, tx, task.CreatedBy, p.ProviderID, taskID, task.CreditValue)
	if err != nil {
		return nil, nil, nil, err
	}

	accepted, err := f.Proposals.MarkAccepted(ctx, tx, proposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !accepted {
		return nil, nil, nil, ErrAlreadyAssigned
	}
	losers, err := f.Proposals.DeclineSiblings(ctx, tx, taskID, proposalID, siblingDeclineReason)
	if err != nil {
		return nil, nil, nil, err
	}

	claimed, err := f.Tasks.ClaimAssignment(ctx, tx, taskID, p.ProviderID, escrowTxID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !claimed {
		return nil, nil, nil, ErrAlreadyAssigned
	}

	from := task.Status
	now := f.Now()
	task.Status = models.TaskStatusInProgress
	task.AssignedTo = &p.ProviderID
	task.AssignedAt = &now
	task.EscrowTxID = &escrowTxID
	p.Status = models.ProposalAccepted
	if err := f.record(ctx, tx, task, from, callerID, ""); err != nil {
		return nil, nil, nil, err
	}
	return task, p, losers, nil
}

// SubmitWork records the provider's deliverable and moves the task to
// submitted. Late submissions are allowed; the owner keeps the quality gate.
func (f *TaskFlow) SubmitWork(ctx context.Context, tx pgx.Tx, taskID, callerID uuid.UUID, files []string, message string) (*models.Task, error) {
	task, err := f.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo == nil || *task.AssignedTo != callerID {
		return nil, ErrUnauthorized
	}
	if !canTransition(task.Status, models.TaskStatusSubmitted) {
		return nil, ErrInvalidTransition
	}
	from := task.Status
	task.Status = models.TaskStatusSubmitted
	task.SubmittedWork = &models.SubmittedWork{
		Files:       files,
		Message:     message,
		SubmittedAt: f.Now(),
	}
	if err := f.Tasks.UpdateStateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	return task, f.record(ctx, tx, task, from, callerID, "")
}

// ApproveWork settles the escrow to the provider and completes the task.
func (f *TaskFlow) ApproveWork(ctx context.Context, tx pgx.Tx, taskID, callerID uuid.UUID) (*models.Task, error) {
	task, err := f.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != callerID {
		return nil, ErrUnauthorized
	}
	if task.Status == models.TaskStatusCompleted {
		// The escrow already settled; a repeated approval is a
		// transaction-state conflict, not a lifecycle one.
		return nil, ErrInvalidTransactionState
	}
	if !canTransition(task.Status, models.TaskStatusCompleted) {
		return nil, ErrInvalidTransition
	}
	if task.EscrowTxID == nil {
		return nil, ErrInvalidTransactionState
	}
	if err := f.Ledger.Settle(ctx, tx, *task.EscrowTxID); err != nil {
		return nil, err
	}
	from := task.Status
	now := f.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	if err := f.Tasks.UpdateStateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	return task, f.record(ctx, tx, task, from, callerID, "")
}

// RequestRevision sends submitted work back to the provider. The
// in_progress -> submitted -> in_progress loop may repeat without bound.
func (f *TaskFlow) RequestRevision(ctx context.Context, tx pgx.Tx, taskID, callerID uuid.UUID, feedback string) (*models.Task, error) {
	task, err := f.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != callerID {
		return nil, ErrUnauthorized
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, ErrInvalidTransition
	}
	from := task.Status
	task.Status = models.TaskStatusInProgress
	task.RevisionRequests = append(task.RevisionRequests, models.RevisionRequest{
		Feedback:    feedback,
		RequestedAt: f.Now(),
	})
	task.SubmittedWork = nil
	if err := f.Tasks.UpdateStateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	return task, f.record(ctx, tx, task, from, callerID, feedback)
}

// Cancel closes the task and refunds live escrow. The owner can always
// cancel; the assignee can walk away from an assigned task, which refunds
// the owner. The accepted proposal keeps its status; the task just closes.
func (f *TaskFlow) Cancel(ctx context.Context, tx pgx.Tx, taskID, callerID uuid.UUID, reason string) (*models.Task, error) {
	task, err := f.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	isOwner := task.CreatedBy == callerID
	isAssignee := task.AssignedTo != nil && *task.AssignedTo == callerID
	if !isOwner && !isAssignee {
		return nil, ErrUnauthorized
	}
	if !canTransition(task.Status, models.TaskStatusCancelled) {
		return nil, ErrInvalidTransition
	}
	if task.EscrowTxID != nil {
		if err := f.Ledger.Refund(ctx, tx, *task.EscrowTxID); err != nil {
			return nil, err
		}
	}
	from := task.Status
	task.Status = models.TaskStatusCancelled
	task.CancellationReason = reason
	if err := f.Tasks.UpdateStateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	return task, f.record(ctx, tx, task, from, callerID, reason)
}

// Dispute freezes the task and its escrow for out-of-band resolution.
func (f *TaskFlow) Dispute(ctx context.Context, tx pgx.Tx, taskID, callerID uuid.UUID, reason string) (*models.Task, error) {
	task, err := f.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	isOwner := task.CreatedBy == callerID
	isAssignee := task.AssignedTo != nil && *task.AssignedTo == callerID
	if !isOwner && !isAssignee {
		return nil, ErrUnauthorized
	}
	if !canTransition(task.Status, models.TaskStatusDisputed) {
		return nil, ErrInvalidTransition
	}
	if task.EscrowTxID != nil {
		if err := f.Ledger.MarkDisputed(ctx, tx, *task.EscrowTxID, reason); err != nil {
			return nil, err
		}
	}
	from := task.Status
	task.Status = models.TaskStatusDisputed
	if err := f.Tasks.UpdateStateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	return task, f.record(ctx, tx, task, from, callerID, reason)
}
