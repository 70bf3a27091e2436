package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalDeclined  ProposalStatus = "declined"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

// Validation bounds for proposal submission.
const (
	ProposalMessageMin  = 50
	ProposalMessageMax  = 500
	ProposalMinHours    = 1
	ProposalMaxHours    = 720
	ProposalQuestionMax = 300
)

// Proposal is a provider's competing offer against an open task. At most one
// non-withdrawn proposal may exist per (task, provider) pair, and at most one
// proposal per task ever reaches accepted.
type Proposal struct {
	ID                uuid.UUID      `json:"id"`
	TaskID            uuid.UUID      `json:"task_id"`
	ProviderID        uuid.UUID      `json:"provider_id"`
	Message           string         `json:"message"`
	EstimatedHours    int            `json:"estimated_completion_hours"`
	PortfolioExamples []string       `json:"portfolio_examples,omitempty"`
	Questions         string         `json:"questions,omitempty"`
	Status            ProposalStatus `json:"status"`
	DeclineReason     string         `json:"decline_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
