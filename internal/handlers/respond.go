package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/talentexchange/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// codeFor maps an engine error to its stable wire code and HTTP status.
// Unknown errors fall through to internal_error / 500 and are logged by the
// caller, never leaked.
func codeFor(err error) (string, int) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "validation_error", http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return "forbidden", http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientCredits):
		return "insufficient_credits", http.StatusPaymentRequired
	case errors.Is(err, services.ErrTaskNotOpen):
		return "task_not_open", http.StatusConflict
	case errors.Is(err, services.ErrAlreadyAssigned):
		return "already_assigned", http.StatusConflict
	case errors.Is(err, services.ErrDuplicateProposal):
		return "duplicate_proposal", http.StatusConflict
	case errors.Is(err, services.ErrInvalidProposalState):
		return "invalid_proposal_state", http.StatusConflict
	case errors.Is(err, services.ErrInvalidTransactionState):
		return "invalid_transaction_state", http.StatusConflict
	case errors.Is(err, services.ErrInvalidTransition):
		return "invalid_transition", http.StatusConflict
	case errors.Is(err, services.ErrReviewNotEligible):
		return "review_not_eligible", http.StatusConflict
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, status := codeFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}
