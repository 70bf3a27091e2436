package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talentexchange/backend/internal/models"
)

// CatalogTaskRepo is the task repository interface for creation and browsing.
type CatalogTaskRepo interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByCreator(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	ListByAssignee(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	ListOpen(ctx context.Context, limit int) ([]*models.Task, error)
}

// TaskDraft carries caller-supplied fields for a new task.
type TaskDraft struct {
	Title           string
	Description     string
	CreditValue     int
	Deadline        time.Time
	TaskType        models.TaskType
	RequiredSkills  []string
	Attachments     []string
	Location        string
	ExperienceLevel models.ExperienceLevel
}

// TaskCatalog creates and lists tasks. Lifecycle mutations live in TaskFlow;
// a task is born open and leaves that state only through the state machine.
type TaskCatalog struct {
	Tasks CatalogTaskRepo
	Now   func() time.Time
}

func NewTaskCatalog(tasks CatalogTaskRepo) *TaskCatalog {
	return &TaskCatalog{Tasks: tasks, Now: time.Now}
}

func (c *TaskCatalog) validate(d TaskDraft) error {
	title := strings.TrimSpace(d.Title)
	if len(title) < 5 || len(title) > 100 {
		return fmt.Errorf("%w: title must be 5-100 characters", ErrValidation)
	}
	if len(d.Description) < 50 || len(d.Description) > 1000 {
		return fmt.Errorf("%w: description must be 50-1000 characters", ErrValidation)
	}
	if d.CreditValue < models.TaskCreditValueMin || d.CreditValue > models.TaskCreditValueMax {
		return fmt.Errorf("%w: credit_value must be %d-%d", ErrValidation,
			models.TaskCreditValueMin, models.TaskCreditValueMax)
	}
	if !d.Deadline.After(c.Now().Add(models.TaskMinDeadlineGap)) {
		return fmt.Errorf("%w: deadline must be at least 24 hours from now", ErrValidation)
	}
	switch d.TaskType {
	case models.TaskTypeRemote, models.TaskTypeLocal, models.TaskTypeHybrid:
	default:
		return fmt.Errorf("%w: task_type must be remote, local or hybrid", ErrValidation)
	}
	if len(d.RequiredSkills) == 0 {
		return fmt.Errorf("%w: at least one required skill", ErrValidation)
	}
	switch d.ExperienceLevel {
	case "", models.ExperienceBeginner, models.ExperienceIntermediate, models.ExperienceExpert:
	default:
		return fmt.Errorf("%w: invalid experience_level", ErrValidation)
	}
	return nil
}

// Create validates the draft and persists a new open task.
func (c *TaskCatalog) Create(ctx context.Context, ownerID uuid.UUID, d TaskDraft) (*models.Task, error) {
	if err := c.validate(d); err != nil {
		return nil, err
	}
	t := &models.Task{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(d.Title),
		Description:     d.Description,
		CreditValue:     d.CreditValue,
		Deadline:        d.Deadline,
		TaskType:        d.TaskType,
		Status:          models.TaskStatusOpen,
		CreatedBy:       ownerID,
		RequiredSkills:  d.RequiredSkills,
		Attachments:     d.Attachments,
		Location:        d.Location,
		ExperienceLevel: d.ExperienceLevel,
	}
	if err := c.Tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *TaskCatalog) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, err := c.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return t, nil
}

func (c *TaskCatalog) ListOpen(ctx context.Context, limit int) ([]*models.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return c.Tasks.ListOpen(ctx, limit)
}

func (c *TaskCatalog) ListMine(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return c.Tasks.ListByCreator(ctx, userID)
}

func (c *TaskCatalog) ListAssigned(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return c.Tasks.ListByAssignee(ctx, userID)
}
