package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTaskUpdate       NotificationType = "task_update"
	NotificationProposalReceived NotificationType = "proposal_received"
	NotificationMessage          NotificationType = "message"
	NotificationPayment          NotificationType = "payment"
	NotificationReview           NotificationType = "review"
	NotificationSystem           NotificationType = "system"
)

// Notification is a delivered copy of a domain event for one recipient.
// Written by the notification worker, never by the engine synchronously.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	Data      json.RawMessage  `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
