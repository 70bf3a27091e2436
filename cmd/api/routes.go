package main

import (
	"net/http"

	"github.com/talentexchange/backend/internal/handlers"
)

// RegisterV1Routes adds the authenticated /v1/ endpoints to the given mux.
// Middleware chain: JWTAuth -> handler.
func RegisterV1Routes(
	mux *http.ServeMux,
	authMW func(http.Handler) http.Handler,
	th *handlers.TaskHandler,
	uh *handlers.UserHandler,
	nh *handlers.NotificationHandler,
) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(h))
	}

	// Tasks
	handle("POST /v1/tasks", th.CreateTask)
	handle("GET /v1/tasks", th.ListTasks)
	handle("GET /v1/tasks/{id}", th.GetTask)
	handle("GET /v1/tasks/{id}/history", th.GetTaskHistory)

	// Proposals
	handle("POST /v1/tasks/{id}/proposals", th.SubmitProposal)
	handle("GET /v1/tasks/{id}/proposals", th.ListProposals)
	handle("GET /v1/proposals", th.ListMyProposals)
	handle("POST /v1/tasks/{id}/proposals/{proposalId}/accept", th.AcceptProposal)
	handle("POST /v1/proposals/{proposalId}/decline", th.DeclineProposal)
	handle("POST /v1/proposals/{proposalId}/withdraw", th.WithdrawProposal)

	// Lifecycle
	handle("POST /v1/tasks/{id}/submit", th.SubmitWork)
	handle("POST /v1/tasks/{id}/approve", th.ApproveWork)
	handle("POST /v1/tasks/{id}/request-revision", th.RequestRevision)
	handle("POST /v1/tasks/{id}/cancel", th.CancelTask)
	handle("POST /v1/tasks/{id}/dispute", th.DisputeTask)

	// Reviews
	handle("POST /v1/tasks/{id}/reviews", th.SubmitReview)

	// Credits
	handle("GET /v1/balance", th.GetBalance)
	handle("POST /v1/credits/purchase", th.PurchaseCredits)
	handle("GET /v1/transactions", th.ListTransactions)
	handle("GET /v1/transactions/{id}", th.GetTransaction)

	// Profiles
	handle("GET /v1/users/{id}", uh.GetProfile)
	handle("PUT /v1/profile", uh.UpdateProfile)
	handle("GET /v1/users/{id}/reviews", uh.ListReviews)

	// Notifications
	handle("GET /v1/notifications", nh.List)
	handle("POST /v1/notifications/{id}/read", nh.MarkRead)
}
