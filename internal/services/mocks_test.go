package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/talentexchange/backend/internal/events"
	"github.com/talentexchange/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for the repository interfaces. Conditional updates are
// guarded by a mutex so race-oriented tests exercise the same claim
// semantics the conditional SQL updates provide.
// ---------------------------------------------------------------------------

type mockUsers struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	reputationErr error
}

func newMockUsers(us ...*models.User) *mockUsers {
	m := &mockUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range us {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	return m.GetByID(context.Background(), id)
}

func (m *mockUsers) DeductCredits(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if u.CreditBalance < amount {
		return 0, ErrInsufficientCredits
	}
	u.CreditBalance -= amount
	return u.CreditBalance, nil
}

func (m *mockUsers) AddCredits(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	u.CreditBalance += amount
	return u.CreditBalance, nil
}

func (m *mockUsers) UpdateReputationTx(_ context.Context, _ pgx.Tx, id uuid.UUID, rating float64, completedTasks int, completionRate, responseHours float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reputationErr != nil {
		return m.reputationErr
	}
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Rating = rating
	u.CompletedTasks = completedTasks
	u.CompletionRate = completionRate
	u.ResponseTimeHours = responseHours
	return nil
}

func (m *mockUsers) setReputationErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reputationErr = err
}

func (m *mockUsers) balance(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].CreditBalance
}

// ---

type mockTxns struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*models.Transaction
}

func newMockTxns() *mockTxns {
	return &mockTxns{entries: make(map[uuid.UUID]*models.Transaction)}
}

func (m *mockTxns) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries[t.ID] = &cp
	return nil
}

func (m *mockTxns) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTxns) UpdateStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status models.TransactionStatus, disputeReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	t.DisputeReason = disputeReason
	return nil
}

func (m *mockTxns) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTxns) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.entries {
		if t.FromUserID == userID || t.ToUserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTxns) ListByTaskID(_ context.Context, taskID uuid.UUID) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.entries {
		if t.TaskID != nil && *t.TaskID == taskID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTxns) byStatus(status models.TransactionStatus) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.entries {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockTxns) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ---

type mockTasks struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*models.Task
	transitions []*models.TaskTransition
}

func newMockTasks(ts ...*models.Task) *mockTasks {
	m := &mockTasks{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range ts {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return m
}

func (m *mockTasks) Create(_ context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTasks) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTasks) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return m.GetByID(context.Background(), id)
}

func (m *mockTasks) GetByIDTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return m.GetByID(context.Background(), id)
}

func (m *mockTasks) ClaimAssignment(_ context.Context, _ pgx.Tx, taskID, providerID, escrowTxID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if t.AssignedTo != nil || t.Status != models.TaskStatusOpen {
		return false, nil
	}
	p := providerID
	e := escrowTxID
	now := time.Now()
	t.AssignedTo = &p
	t.AssignedAt = &now
	t.EscrowTxID = &e
	t.Status = models.TaskStatusInProgress
	return true, nil
}

func (m *mockTasks) UpdateStateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTasks) ListByCreator(_ context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return m.listWhere(func(t *models.Task) bool { return t.CreatedBy == userID }), nil
}

func (m *mockTasks) ListByAssignee(_ context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return m.listWhere(func(t *models.Task) bool { return t.AssignedTo != nil && *t.AssignedTo == userID }), nil
}

func (m *mockTasks) ListOpen(_ context.Context, limit int) ([]*models.Task, error) {
	open := m.listWhere(func(t *models.Task) bool { return t.Status == models.TaskStatusOpen })
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (m *mockTasks) CountOutcomesByAssigneeTx(_ context.Context, _ pgx.Tx, userID uuid.UUID) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var completed, unfinished int
	for _, t := range m.tasks {
		if t.AssignedTo == nil || *t.AssignedTo != userID {
			continue
		}
		switch t.Status {
		case models.TaskStatusCompleted:
			completed++
		case models.TaskStatusCancelled, models.TaskStatusDisputed:
			unfinished++
		}
	}
	return completed, unfinished, nil
}

func (m *mockTasks) AverageResponseHoursTx(_ context.Context, _ pgx.Tx, userID uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	var n int
	for _, t := range m.tasks {
		if t.AssignedTo == nil || *t.AssignedTo != userID || t.Status != models.TaskStatusCompleted {
			continue
		}
		if t.AssignedAt == nil || t.SubmittedWork == nil {
			continue
		}
		sum += t.SubmittedWork.SubmittedAt.Sub(*t.AssignedAt).Hours()
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (m *mockTasks) RecordTransitionTx(_ context.Context, _ pgx.Tx, tr *models.TaskTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tr
	cp.CreatedAt = time.Now()
	m.transitions = append(m.transitions, &cp)
	return nil
}

func (m *mockTasks) ListTransitions(_ context.Context, taskID uuid.UUID) ([]*models.TaskTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TaskTransition
	for _, tr := range m.transitions {
		if tr.TaskID == taskID {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTasks) listWhere(keep func(*models.Task) bool) []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Task
	for _, t := range m.tasks {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockTasks) get(id uuid.UUID) *models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.tasks[id]
	return &cp
}

// ---

type mockProposals struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]*models.Proposal
}

func newMockProposals(ps ...*models.Proposal) *mockProposals {
	m := &mockProposals{proposals: make(map[uuid.UUID]*models.Proposal)}
	for _, p := range ps {
		cp := *p
		m.proposals[p.ID] = &cp
	}
	return m
}

func (m *mockProposals) Create(_ context.Context, p *models.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.proposals {
		if other.TaskID == p.TaskID && other.ProviderID == p.ProviderID && other.Status != models.ProposalWithdrawn {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *mockProposals) GetByID(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockProposals) GetByIDTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Proposal, error) {
	return m.GetByID(context.Background(), id)
}

func (m *mockProposals) HasActiveForProvider(_ context.Context, taskID, providerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proposals {
		if p.TaskID == taskID && p.ProviderID == providerID && p.Status != models.ProposalWithdrawn {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProposals) MarkAccepted(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if p.Status != models.ProposalPending {
		return false, nil
	}
	for _, other := range m.proposals {
		if other.TaskID == p.TaskID && other.Status == models.ProposalAccepted {
			return false, nil
		}
	}
	p.Status = models.ProposalAccepted
	return true, nil
}

func (m *mockProposals) DeclineSiblings(_ context.Context, _ pgx.Tx, taskID, acceptedID uuid.UUID, reason string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var losers []uuid.UUID
	for _, p := range m.proposals {
		if p.TaskID == taskID && p.ID != acceptedID && p.Status == models.ProposalPending {
			p.Status = models.ProposalDeclined
			p.DeclineReason = reason
			losers = append(losers, p.ProviderID)
		}
	}
	return losers, nil
}

func (m *mockProposals) UpdateStatus(_ context.Context, id uuid.UUID, status models.ProposalStatus, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if p.Status != models.ProposalPending {
		return false, nil
	}
	p.Status = status
	p.DeclineReason = reason
	return true, nil
}

func (m *mockProposals) ListByTaskID(_ context.Context, taskID uuid.UUID) ([]*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Proposal
	for _, p := range m.proposals {
		if p.TaskID == taskID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProposals) ListByProviderID(_ context.Context, providerID uuid.UUID) ([]*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Proposal
	for _, p := range m.proposals {
		if p.ProviderID == providerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProposals) AcceptedForTask(_ context.Context, taskID uuid.UUID) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proposals {
		if p.TaskID == taskID && p.Status == models.ProposalAccepted {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockProposals) get(id uuid.UUID) *models.Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.proposals[id]
	return &cp
}

// ---

type mockReviews struct {
	mu      sync.Mutex
	reviews []*models.Review
}

func (m *mockReviews) CreateTx(_ context.Context, tx pgx.Tx, rv *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.reviews {
		if other.TaskID == rv.TaskID && other.ReviewerID == rv.ReviewerID {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	cp := *rv
	m.reviews = append(m.reviews, &cp)
	if reg, ok := tx.(undoRegistrar); ok {
		id := rv.ID
		reg.onRollback(func() { m.remove(id) })
	}
	return nil
}

func (m *mockReviews) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.reviews[:0]
	for _, rv := range m.reviews {
		if rv.ID != id {
			kept = append(kept, rv)
		}
	}
	m.reviews = kept
}

func (m *mockReviews) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reviews)
}

func (m *mockReviews) ExistsForReviewerTx(_ context.Context, _ pgx.Tx, taskID, reviewerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rv := range m.reviews {
		if rv.TaskID == taskID && rv.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviews) AverageRatingTx(_ context.Context, _ pgx.Tx, revieweeID uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum, n int
	for _, rv := range m.reviews {
		if rv.RevieweeID == revieweeID && rv.IsVisible {
			sum += rv.OverallRating
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

// ---------------------------------------------------------------------------
// Transaction plumbing: noopTx satisfies pgx.Tx; lockingPool serializes
// concurrent transitions the way the task row lock does in Postgres.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// lockingTx holds a shared mutex from Begin until Commit or Rollback.
type lockingTx struct {
	noopTx
	release func()
	once    sync.Once
}

func (t *lockingTx) Commit(context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *lockingTx) Rollback(context.Context) error {
	t.once.Do(t.release)
	return nil
}

type lockingPool struct {
	mu sync.Mutex
}

func (p *lockingPool) Begin(context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	return &lockingTx{release: p.mu.Unlock}, nil
}

// undoRegistrar is implemented by transaction doubles that can revert mock
// writes when the transaction aborts.
type undoRegistrar interface {
	onRollback(func())
}

// rollbackTx runs registered undo hooks on Rollback unless Commit ran first,
// so mock writes vanish the way uncommitted rows do. Commit clears the hooks
// because the caller still runs the deferred Rollback afterwards.
type rollbackTx struct {
	noopTx
	mu        sync.Mutex
	committed bool
	undos     []func()
}

func (t *rollbackTx) onRollback(undo func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undos = append(t.undos, undo)
}

func (t *rollbackTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.undos = nil
	return nil
}

func (t *rollbackTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return nil
	}
	for i := len(t.undos) - 1; i >= 0; i-- {
		t.undos[i]()
	}
	t.undos = nil
	return nil
}

type rollbackPool struct{}

func (rollbackPool) Begin(context.Context) (pgx.Tx, error) { return &rollbackTx{}, nil }

// ---------------------------------------------------------------------------
// Event capture
// ---------------------------------------------------------------------------

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (c *capturePublisher) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return fmt.Errorf("transport down")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturePublisher) byType(t events.Type) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
