package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/talentexchange/backend/internal/middleware"
	"github.com/talentexchange/backend/internal/models"
	"github.com/talentexchange/backend/internal/services"
)

// TaskHandler serves the /v1 task, proposal, and review endpoints.
type TaskHandler struct {
	Catalog  *services.TaskCatalog
	Registry *services.ProposalRegistry
	Coord    *services.Coordinator
	Logger   *slog.Logger
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CreditValue     int       `json:"credit_value"`
	Deadline        time.Time `json:"deadline"`
	TaskType        string    `json:"task_type"`
	RequiredSkills  []string  `json:"required_skills"`
	Attachments     []string  `json:"attachments"`
	Location        string    `json:"location"`
	ExperienceLevel string    `json:"experience_level"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Catalog.Create(r.Context(), caller, services.TaskDraft{
		Title:           req.Title,
		Description:     req.Description,
		CreditValue:     req.CreditValue,
		Deadline:        req.Deadline,
		TaskType:        models.TaskType(req.TaskType),
		RequiredSkills:  req.RequiredSkills,
		Attachments:     req.Attachments,
		Location:        req.Location,
		ExperienceLevel: models.ExperienceLevel(req.ExperienceLevel),
	})
	if err != nil {
		h.fail(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// --- GET /v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Catalog.Get(r.Context(), taskID)
	if err != nil {
		h.fail(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /v1/tasks?filter=open|mine|assigned ---

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	var (
		tasks []*models.Task
		err   error
	)
	switch r.URL.Query().Get("filter") {
	case "mine":
		tasks, err = h.Catalog.ListMine(r.Context(), caller)
	case "assigned":
		tasks, err = h.Catalog.ListAssigned(r.Context(), caller)
	default:
		tasks, err = h.Catalog.ListOpen(r.Context(), 50)
	}
	if err != nil {
		h.fail(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- POST /v1/tasks/{id}/proposals ---

type submitProposalRequest struct {
	Message           string   `json:"message"`
	EstimatedHours    int      `json:"estimated_completion_hours"`
	PortfolioExamples []string `json:"portfolio_examples"`
	Questions         string   `json:"questions"`
}

func (h *TaskHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	p, err := h.Coord.SubmitProposal(r.Context(), taskID, caller, services.ProposalDraft{
		Message:           req.Message,
		EstimatedHours:    req.EstimatedHours,
		PortfolioExamples: req.PortfolioExamples,
		Questions:         req.Questions,
	})
	if err != nil {
		h.fail(w, "submit proposal", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// --- GET /v1/tasks/{id}/proposals ---

func (h *TaskHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.Registry.ListForTask(r.Context(), taskID, caller)
	if err != nil {
		h.fail(w, "list proposals", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- POST /v1/tasks/{id}/proposals/{proposalId}/accept ---

func (h *TaskHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	proposalID, ok := pathID(r, "proposalId")
	if !ok {
		http.Error(w, `{"error":"invalid proposal id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Coord.AcceptProposal(r.Context(), taskID, proposalID, caller)
	if err != nil {
		h.fail(w, "accept proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/proposals/{proposalId}/decline ---

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h *TaskHandler) DeclineProposal(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	proposalID, ok := pathID(r, "proposalId")
	if !ok {
		http.Error(w, `{"error":"invalid proposal id"}`, http.StatusBadRequest)
		return
	}
	var req declineRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	p, err := h.Coord.DeclineProposal(r.Context(), proposalID, caller, req.Reason)
	if err != nil {
		h.fail(w, "decline proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- GET /v1/proposals ---

func (h *TaskHandler) ListMyProposals(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	list, err := h.Registry.ListMine(r.Context(), caller)
	if err != nil {
		h.fail(w, "list my proposals", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- POST /v1/proposals/{proposalId}/withdraw ---

func (h *TaskHandler) WithdrawProposal(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	proposalID, ok := pathID(r, "proposalId")
	if !ok {
		http.Error(w, `{"error":"invalid proposal id"}`, http.StatusBadRequest)
		return
	}
	p, err := h.Registry.Withdraw(r.Context(), proposalID, caller)
	if err != nil {
		h.fail(w, "withdraw proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- POST /v1/tasks/{id}/submit ---

type submitWorkRequest struct {
	Files   []string `json:"files"`
	Message string   `json:"message"`
}

func (h *TaskHandler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req submitWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Coord.SubmitWork(r.Context(), taskID, caller, req.Files, req.Message)
	if err != nil {
		h.fail(w, "submit work", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/approve ---

func (h *TaskHandler) ApproveWork(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Coord.ApproveWork(r.Context(), taskID, caller)
	if err != nil {
		h.fail(w, "approve work", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/request-revision ---

type revisionRequest struct {
	Feedback string `json:"feedback"`
}

func (h *TaskHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req revisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Feedback == "" {
		http.Error(w, `{"error":"feedback is required"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Coord.RequestRevision(r.Context(), taskID, caller, req.Feedback)
	if err != nil {
		h.fail(w, "request revision", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/cancel ---

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req cancelRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	task, err := h.Coord.CancelTask(r.Context(), taskID, caller, req.Reason)
	if err != nil {
		h.fail(w, "cancel task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/dispute ---

type disputeRequest struct {
	Reason string `json:"reason"`
}

func (h *TaskHandler) DisputeTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req disputeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	task, err := h.Coord.DisputeTask(r.Context(), taskID, caller, req.Reason)
	if err != nil {
		h.fail(w, "dispute task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/reviews ---

func (h *TaskHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var scores models.ReviewScores
	if err := json.NewDecoder(r.Body).Decode(&scores); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	rv, err := h.Coord.SubmitReview(r.Context(), taskID, caller, scores)
	if err != nil {
		h.fail(w, "submit review", err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

// --- GET /v1/tasks/{id}/history ---

func (h *TaskHandler) GetTaskHistory(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	history, err := h.Coord.GetTaskHistory(r.Context(), taskID, caller)
	if err != nil {
		h.fail(w, "task history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// --- GET /v1/balance ---

func (h *TaskHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	balance, err := h.Coord.GetBalance(r.Context(), caller)
	if err != nil {
		h.fail(w, "get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credit_balance": balance})
}

// --- GET /v1/transactions ---

func (h *TaskHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	txns, err := h.Coord.ListTransactions(r.Context(), caller)
	if err != nil {
		h.fail(w, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// --- GET /v1/transactions/{id} ---

func (h *TaskHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	txnID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid transaction id"}`, http.StatusBadRequest)
		return
	}
	txn, err := h.Coord.GetTransaction(r.Context(), txnID, caller)
	if err != nil {
		h.fail(w, "get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// --- POST /v1/credits/purchase ---

type purchaseRequest struct {
	Amount int `json:"amount"`
}

func (h *TaskHandler) PurchaseCredits(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	txnID, err := h.Coord.PurchaseCredits(r.Context(), caller, req.Amount)
	if err != nil {
		h.fail(w, "purchase credits", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"transaction_id": txnID.String()})
}

// fail logs internal errors and writes the mapped error response.
func (h *TaskHandler) fail(w http.ResponseWriter, op string, err error) {
	if _, status := codeFor(err); status == http.StatusInternalServerError {
		h.Logger.Error(op, "error", err)
	}
	writeError(w, err)
}
