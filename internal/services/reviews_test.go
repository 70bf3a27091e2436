package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talentexchange/backend/internal/models"
)

func validScores(overall int) models.ReviewScores {
	return models.ReviewScores{
		Overall:        overall,
		Communication:  4,
		Timeliness:     5,
		Quality:        4,
		WouldRecommend: true,
		Comment:        "Delivered on time, good communication throughout.",
	}
}

func completedTask(owner, provider uuid.UUID) *models.Task {
	p := provider
	return &models.Task{
		ID:         uuid.New(),
		Status:     models.TaskStatusCompleted,
		CreatedBy:  owner,
		AssignedTo: &p,
	}
}

func TestSubmitReview(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	task := completedTask(owner, provider)

	users := newMockUsers(user(owner, 0), user(provider, 0))
	tasks := newMockTasks(task)
	agg := NewReviewAggregator(&mockReviews{}, tasks, users)

	rv, err := agg.Submit(context.Background(), noopTx{},task.ID, owner, validScores(5))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rv.RevieweeID != provider {
		t.Error("owner's review should target the provider")
	}
	if !rv.IsVisible {
		t.Error("new reviews should be visible")
	}

	// Provider reviews back; reviewee flips to the owner.
	rv2, err := agg.Submit(context.Background(), noopTx{},task.ID, provider, validScores(4))
	if err != nil {
		t.Fatalf("provider Submit: %v", err)
	}
	if rv2.RevieweeID != owner {
		t.Error("provider's review should target the owner")
	}
}

func TestSubmitReview_RecomputesReputation(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	first := completedTask(owner, provider)
	second := completedTask(owner, provider)

	users := newMockUsers(user(owner, 0), user(provider, 0))
	tasks := newMockTasks(first, second)
	agg := NewReviewAggregator(&mockReviews{}, tasks, users)

	if _, err := agg.Submit(context.Background(), noopTx{},first.ID, owner, validScores(5)); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := agg.Submit(context.Background(), noopTx{},second.ID, owner, validScores(2)); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	u, _ := users.GetByID(context.Background(), provider)
	// Mean of stored rows, not a running increment.
	if u.Rating != 3.5 {
		t.Errorf("provider rating: got %v, want 3.5", u.Rating)
	}
	if u.CompletedTasks != 2 {
		t.Errorf("completed tasks: got %d, want 2", u.CompletedTasks)
	}
	if u.CompletionRate != 100 {
		t.Errorf("completion rate: got %v, want 100", u.CompletionRate)
	}
}

func TestSubmitReview_RecomputesResponseTime(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	task := completedTask(owner, provider)
	assigned := time.Now().Add(-10 * time.Hour)
	task.AssignedAt = &assigned
	task.SubmittedWork = &models.SubmittedWork{SubmittedAt: assigned.Add(6 * time.Hour)}

	users := newMockUsers(user(owner, 0), user(provider, 0))
	agg := NewReviewAggregator(&mockReviews{}, newMockTasks(task), users)

	if _, err := agg.Submit(context.Background(), noopTx{}, task.ID, owner, validScores(5)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	u, _ := users.GetByID(context.Background(), provider)
	if u.ResponseTimeHours != 6 {
		t.Errorf("response time hours: got %v, want 6", u.ResponseTimeHours)
	}
}

func TestSubmitReview_CompletionRateCountsFailures(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	done := completedTask(owner, provider)
	p := provider
	failed := &models.Task{
		ID: uuid.New(), Status: models.TaskStatusCancelled, CreatedBy: owner, AssignedTo: &p,
	}

	users := newMockUsers(user(owner, 0), user(provider, 0))
	agg := NewReviewAggregator(&mockReviews{}, newMockTasks(done, failed), users)

	if _, err := agg.Submit(context.Background(), noopTx{},done.ID, owner, validScores(4)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	u, _ := users.GetByID(context.Background(), provider)
	if u.CompletionRate != 50 {
		t.Errorf("completion rate: got %v, want 50", u.CompletionRate)
	}
}

func TestSubmitReview_NotCompleted(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	task := completedTask(owner, provider)
	task.Status = models.TaskStatusSubmitted

	agg := NewReviewAggregator(&mockReviews{}, newMockTasks(task), newMockUsers())
	_, err := agg.Submit(context.Background(), noopTx{},task.ID, owner, validScores(5))
	if !errors.Is(err, ErrReviewNotEligible) {
		t.Fatalf("expected ErrReviewNotEligible, got: %v", err)
	}
}

func TestSubmitReview_NotAParty(t *testing.T) {
	task := completedTask(uuid.New(), uuid.New())
	agg := NewReviewAggregator(&mockReviews{}, newMockTasks(task), newMockUsers())

	_, err := agg.Submit(context.Background(), noopTx{},task.ID, uuid.New(), validScores(5))
	if !errors.Is(err, ErrReviewNotEligible) {
		t.Fatalf("expected ErrReviewNotEligible, got: %v", err)
	}
}

func TestSubmitReview_OncePerReviewer(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	task := completedTask(owner, provider)

	users := newMockUsers(user(owner, 0), user(provider, 0))
	agg := NewReviewAggregator(&mockReviews{}, newMockTasks(task), users)

	if _, err := agg.Submit(context.Background(), noopTx{},task.ID, owner, validScores(5)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := agg.Submit(context.Background(), noopTx{},task.ID, owner, validScores(1))
	if !errors.Is(err, ErrReviewNotEligible) {
		t.Fatalf("second review: expected ErrReviewNotEligible, got: %v", err)
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	owner := uuid.New()
	provider := uuid.New()
	task := completedTask(owner, provider)
	agg := NewReviewAggregator(&mockReviews{}, newMockTasks(task), newMockUsers())

	bad := []models.ReviewScores{
		validScores(0),
		validScores(6),
		func() models.ReviewScores { s := validScores(5); s.Timeliness = 0; return s }(),
		func() models.ReviewScores { s := validScores(5); s.Comment = "too short"; return s }(),
		func() models.ReviewScores { s := validScores(5); s.Comment = strings.Repeat("x", 501); return s }(),
	}
	for i, scores := range bad {
		if _, err := agg.Submit(context.Background(), noopTx{},task.ID, owner, scores); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got: %v", i, err)
		}
	}
}
