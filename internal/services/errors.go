package services

import "errors"

// Engine error taxonomy. Every failed guard returns one of these sentinels
// (possibly wrapped with detail); handlers translate them to HTTP codes.
var (
	// ErrValidation marks malformed caller input. Wrap with field detail.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized means the caller is not a party allowed to perform
	// this operation on the task or proposal. Authentication happens
	// upstream; this is ownership authorization only.
	ErrUnauthorized = errors.New("caller not permitted")

	ErrNotFound = errors.New("not found")

	// State-conflict family: the requested transition is illegal from the
	// current state. Deterministic — retrying without new input cannot
	// succeed.
	ErrTaskNotOpen             = errors.New("task is not open")
	ErrAlreadyAssigned         = errors.New("task already has an accepted proposal")
	ErrInvalidProposalState    = errors.New("proposal is not in a valid state for this operation")
	ErrInvalidTransactionState = errors.New("transaction is not in a valid state for this operation")
	ErrInvalidTransition       = errors.New("illegal task state transition")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDuplicateProposal   = errors.New("provider already has a proposal on this task")
	ErrReviewNotEligible   = errors.New("review not eligible")
)
