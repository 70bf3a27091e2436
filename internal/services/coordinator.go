package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/talentexchange/backend/internal/events"
	"github.com/talentexchange/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CoordinatorUserRepo serves balance reads.
type CoordinatorUserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CoordinatorTxnRepo serves the audit trail and statement reads.
type CoordinatorTxnRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Transaction, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// CoordinatorTaskRepo serves plain task reads outside a transition.
type CoordinatorTaskRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListTransitions(ctx context.Context, taskID uuid.UUID) ([]*models.TaskTransition, error)
}

// CoordinatorLedger is the ledger slice used outside the task state machine.
type CoordinatorLedger interface {
	Transfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int, typ models.TransactionType, taskID *uuid.UUID) (uuid.UUID, error)
}

// Coordinator is the public façade of the engine. Each mutating operation
// runs the state machine inside one transaction keyed by the task row lock,
// then publishes domain events only after the commit. Once a transition
// begins it runs to completion even if the caller's request is cancelled.
type Coordinator struct {
	Pool     TxBeginner
	Flow     *TaskFlow
	Registry *ProposalRegistry
	Reviews  *ReviewAggregator
	Ledger   CoordinatorLedger
	Users    CoordinatorUserRepo
	Tasks    CoordinatorTaskRepo
	Txns     CoordinatorTxnRepo
	Events   events.Publisher
	Logger   *slog.Logger
}

func NewCoordinator(pool TxBeginner, flow *TaskFlow, registry *ProposalRegistry, reviews *ReviewAggregator,
	ledger CoordinatorLedger, users CoordinatorUserRepo, tasks CoordinatorTaskRepo, txns CoordinatorTxnRepo,
	pub events.Publisher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.Discard{}
	}
	return &Coordinator{Pool: pool, Flow: flow, Registry: registry, Reviews: reviews, Ledger: ledger,
		Users: users, Tasks: tasks, Txns: txns, Events: pub, Logger: logger}
}

// inTx runs fn inside a transaction that cannot be aborted by client
// disconnect: the transition either commits whole or rolls back whole.
func (c *Coordinator) inTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx = context.WithoutCancel(ctx)
	tx, err := c.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// publish is fire-and-forget: a transport failure is logged, never surfaced.
func (c *Coordinator) publish(ctx context.Context, evs ...events.Event) {
	for _, ev := range evs {
		if err := c.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
			c.Logger.Warn("event publish failed", "type", ev.Type, "task_id", ev.TaskID, "error", err)
		}
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// SubmitProposal files a provider's offer and notifies the task owner.
func (c *Coordinator) SubmitProposal(ctx context.Context, taskID, providerID uuid.UUID, draft ProposalDraft) (*models.Proposal, error) {
	p, err := c.Registry.Submit(ctx, taskID, providerID, draft)
	if err != nil {
		return nil, err
	}
	if task, err := c.Tasks.GetByID(ctx, taskID); err == nil {
		c.publish(ctx, events.Event{Type: events.ProposalSubmitted, TaskID: taskID, UserID: task.CreatedBy,
			Payload: map[string]any{"proposal_id": p.ID.String(), "provider_id": providerID.String()}})
	}
	return p, nil
}

// DeclineProposal rejects a pending proposal and notifies its provider.
func (c *Coordinator) DeclineProposal(ctx context.Context, proposalID, callerID uuid.UUID, reason string) (*models.Proposal, error) {
	p, err := c.Registry.Decline(ctx, proposalID, callerID, reason)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, events.Event{Type: events.ProposalDeclined, TaskID: p.TaskID, UserID: p.ProviderID,
		Payload: map[string]any{"proposal_id": p.ID.String(), "reason": reason}})
	return p, nil
}

// AcceptProposal assigns the chosen provider, escrows the owner's credits,
// and declines sibling proposals, all in one atomic unit. After the commit
// the winner, the owner, and every losing provider are notified.
func (c *Coordinator) AcceptProposal(ctx context.Context, taskID, proposalID, callerID uuid.UUID) (*models.Task, error) {
	var task *models.Task
	var proposal *models.Proposal
	var losers []uuid.UUID
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		task, proposal, losers, err = c.Flow.AcceptProposal(ctx, tx, taskID, proposalID, callerID)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	evs := []events.Event{
		{Type: events.ProposalAccepted, TaskID: taskID, UserID: proposal.ProviderID,
			Payload: map[string]any{"proposal_id": proposal.ID.String()}},
		{Type: events.TaskStatusChanged, TaskID: taskID, UserID: task.CreatedBy,
			Payload: map[string]any{"status": string(task.Status)}},
	}
	for _, loser := range losers {
		evs = append(evs, events.Event{Type: events.ProposalDeclined, TaskID: taskID, UserID: loser,
			Payload: map[string]any{"reason": siblingDeclineReason}})
	}
	c.publish(ctx, evs...)
	return task, nil
}

// SubmitWork records the provider's deliverable.
func (c *Coordinator) SubmitWork(ctx context.Context, taskID, callerID uuid.UUID, files []string, message string) (*models.Task, error) {
	var task *models.Task
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		task, err = c.Flow.SubmitWork(ctx, tx, taskID, callerID, files, message)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	c.publish(ctx, events.Event{Type: events.TaskStatusChanged, TaskID: taskID, UserID: task.CreatedBy,
		Payload: map[string]any{"status": string(task.Status)}})
	return task, nil
}

// ApproveWork completes the task and settles the escrow to the provider.
func (c *Coordinator) ApproveWork(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, error) {
	var task *models.Task
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		task, err = c.Flow.ApproveWork(ctx, tx, taskID, callerID)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	evs := []events.Event{
		{Type: events.TaskStatusChanged, TaskID: taskID, UserID: task.CreatedBy,
			Payload: map[string]any{"status": string(task.Status)}},
	}
	if task.AssignedTo != nil {
		evs = append(evs,
			events.Event{Type: events.PaymentSettled, TaskID: taskID, UserID: *task.AssignedTo,
				Payload: map[string]any{"amount": task.CreditValue}},
			events.Event{Type: events.ReviewCreated, TaskID: taskID, UserID: *task.AssignedTo,
				Payload: map[string]any{"eligible": true}},
		)
	}
	c.publish(ctx, evs...)
	return task, nil
}

// RequestRevision returns submitted work to the provider with feedback.
func (c *Coordinator) RequestRevision(ctx context.Context, taskID, callerID uuid.UUID, feedback string) (*models.Task, error) {
	var task *models.Task
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		task, err = c.Flow.RequestRevision(ctx, tx, taskID, callerID, feedback)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	if task.AssignedTo != nil {
		c.publish(ctx, events.Event{Type: events.TaskStatusChanged, TaskID: taskID, UserID: *task.AssignedTo,
			Payload: map[string]any{"status": string(task.Status), "feedback": feedback}})
	}
	return task, nil
}

// CancelTask closes the task and refunds any live escrow to the owner.
func (c *Coordinator) CancelTask(ctx context.Context, taskID, callerID uuid.UUID, reason string) (*models.Task, error) {
	var task *models.Task
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		task, err = c.Flow.Cancel(ctx, tx, taskID, callerID, reason)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	evs := []events.Event{
		{Type: events.TaskStatusChanged, TaskID: taskID, UserID: task.CreatedBy,
			Payload: map[string]any{"status": string(task.Status)}},
	}
	if task.EscrowTxID != nil {
		evs = append(evs, events.Event{Type: events.PaymentRefunded, TaskID: taskID, UserID: task.CreatedBy,
			Payload: map[string]any{"amount": task.CreditValue}})
	}
	c.publish(ctx, evs...)
	return task, nil
}

// DisputeTask freezes the task and escrow for manual resolution.
func (c *Coordinator) DisputeTask(ctx context.Context, taskID, callerID uuid.UUID, reason string) (*models.Task, error) {
	var task *models.Task
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		task, err = c.Flow.Dispute(ctx, tx, taskID, callerID, reason)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	c.publish(ctx, events.Event{Type: events.TaskStatusChanged, TaskID: taskID, UserID: task.CreatedBy,
		Payload: map[string]any{"status": string(task.Status), "reason": reason}})
	return task, nil
}

// SubmitReview files a review on a completed task and recomputes the
// reviewee's reputation. Insert and recompute commit together, so a failed
// recompute leaves no review behind and the request can be retried.
func (c *Coordinator) SubmitReview(ctx context.Context, taskID, reviewerID uuid.UUID, scores models.ReviewScores) (*models.Review, error) {
	var rv *models.Review
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		rv, err = c.Reviews.Submit(ctx, tx, taskID, reviewerID, scores)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	c.publish(ctx, events.Event{Type: events.ReviewCreated, TaskID: taskID, UserID: rv.RevieweeID,
		Payload: map[string]any{"review_id": rv.ID.String(), "overall_rating": rv.OverallRating}})
	return rv, nil
}

// PurchaseCredits grants purchased credits from the platform account and
// records a credit_purchase transaction.
func (c *Coordinator) PurchaseCredits(ctx context.Context, userID uuid.UUID, amount int) (uuid.UUID, error) {
	if amount <= 0 {
		return uuid.Nil, ErrValidation
	}
	var txnID uuid.UUID
	err := c.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		txnID, err = c.Ledger.Transfer(ctx, tx, models.PlatformAccountID, userID, amount,
			models.TransactionCreditPurchase, nil)
		return err
	})
	if err != nil {
		return uuid.Nil, notFoundOr(err)
	}
	c.publish(ctx, events.Event{Type: events.PaymentSettled, TaskID: uuid.Nil, UserID: userID,
		Payload: map[string]any{"amount": amount, "type": string(models.TransactionCreditPurchase)}})
	return txnID, nil
}

// GetBalance returns the user's current credit balance.
func (c *Coordinator) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	u, err := c.Users.GetByID(ctx, userID)
	if err != nil {
		return 0, notFoundOr(err)
	}
	return u.CreditBalance, nil
}

// TaskHistory is the audit trail of one task: its current state, every
// status change, the accepted proposal if any, and every credit movement
// that referenced it.
type TaskHistory struct {
	Task             *models.Task             `json:"task"`
	Transitions      []*models.TaskTransition `json:"transitions"`
	AcceptedProposal *models.Proposal         `json:"accepted_proposal,omitempty"`
	Transactions     []*models.Transaction    `json:"transactions"`
}

// GetTaskHistory returns the task's full financial and status trail. Only a
// party to the task may read it.
func (c *Coordinator) GetTaskHistory(ctx context.Context, taskID, callerID uuid.UUID) (*TaskHistory, error) {
	task, err := c.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	isOwner := task.CreatedBy == callerID
	isAssignee := task.AssignedTo != nil && *task.AssignedTo == callerID
	if !isOwner && !isAssignee {
		return nil, ErrUnauthorized
	}
	trail, err := c.Tasks.ListTransitions(ctx, taskID)
	if err != nil {
		return nil, err
	}
	accepted, err := c.Registry.AcceptedFor(ctx, taskID)
	if err != nil {
		return nil, err
	}
	txns, err := c.Txns.ListByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &TaskHistory{Task: task, Transitions: trail, AcceptedProposal: accepted, Transactions: txns}, nil
}

// ListTransactions returns the user's own credit statement, newest first.
func (c *Coordinator) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	return c.Txns.ListByUserID(ctx, userID)
}

// GetTransaction returns one ledger entry; only a party to it may read it.
func (c *Coordinator) GetTransaction(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error) {
	t, err := c.Txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if t.FromUserID != callerID && t.ToUserID != callerID {
		return nil, ErrUnauthorized
	}
	return t, nil
}
