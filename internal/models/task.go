package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the closed set of task lifecycle states.
type TaskStatus string

const (
	TaskStatusOpen        TaskStatus = "open"
	TaskStatusInProgress  TaskStatus = "in_progress"
	TaskStatusSubmitted   TaskStatus = "submitted"
	TaskStatusUnderReview TaskStatus = "under_review"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusDisputed    TaskStatus = "disputed"
	TaskStatusCancelled   TaskStatus = "cancelled"
)

// TaskType describes where the work happens.
type TaskType string

const (
	TaskTypeRemote TaskType = "remote"
	TaskTypeLocal  TaskType = "local"
	TaskTypeHybrid TaskType = "hybrid"
)

type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

// Validation bounds for task creation.
const (
	TaskCreditValueMin = 5
	TaskCreditValueMax = 500
	TaskMinDeadlineGap = 24 * time.Hour
)

// SubmittedWork is the provider's deliverable attached to a submitted task.
// Cleared when the owner requests a revision.
type SubmittedWork struct {
	Files       []string  `json:"files"`
	Message     string    `json:"message,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RevisionRequest records one round of owner feedback on submitted work.
type RevisionRequest struct {
	Feedback    string    `json:"feedback"`
	RequestedAt time.Time `json:"requested_at"`
}

type Task struct {
	ID                 uuid.UUID         `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	CreditValue        int               `json:"credit_value"`
	Deadline           time.Time         `json:"deadline"`
	TaskType           TaskType          `json:"task_type"`
	Status             TaskStatus        `json:"status"`
	CreatedBy          uuid.UUID         `json:"created_by"`
	AssignedTo         *uuid.UUID        `json:"assigned_to,omitempty"`
	AssignedAt         *time.Time        `json:"assigned_at,omitempty"`
	RequiredSkills     []string          `json:"required_skills"`
	Attachments        []string          `json:"attachments,omitempty"`
	Location           string            `json:"location,omitempty"`
	ExperienceLevel    ExperienceLevel   `json:"experience_level,omitempty"`
	SubmittedWork      *SubmittedWork    `json:"submitted_work,omitempty"`
	RevisionRequests   []RevisionRequest `json:"revision_requests,omitempty"`
	EscrowTxID         *uuid.UUID        `json:"escrow_tx_id,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsTerminal reports whether no further transitions are legal from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// TaskTransition is one row of a task's status-change trail. Written in the
// same transaction as the status change itself.
type TaskTransition struct {
	ID         uuid.UUID  `json:"id"`
	TaskID     uuid.UUID  `json:"task_id"`
	FromStatus TaskStatus `json:"from_status"`
	ToStatus   TaskStatus `json:"to_status"`
	ActorID    uuid.UUID  `json:"actor_id"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
