// Package events defines the domain events the engine emits after a task
// transition commits. Delivery is best effort; the engine never blocks on it.
package events

import (
	"context"

	"github.com/google/uuid"
)

type Type string

const (
	TaskStatusChanged Type = "task.status_changed"
	ProposalSubmitted Type = "proposal.submitted"
	ProposalAccepted  Type = "proposal.accepted"
	ProposalDeclined  Type = "proposal.declined"
	ReviewCreated     Type = "review.created"
	PaymentSettled    Type = "payment.settled"
	PaymentRefunded   Type = "payment.refunded"
)

// Event is one emitted domain event addressed to one recipient. UserID is
// the recipient, not the actor.
type Event struct {
	Type    Type           `json:"type"`
	TaskID  uuid.UUID      `json:"task_id"`
	UserID  uuid.UUID      `json:"user_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Publisher hands events to the notification/chat transport. Implementations
// must not block on delivery; an error means the event could not even be
// enqueued and is only ever logged by callers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops every event. Used in tests and when no transport is wired.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
