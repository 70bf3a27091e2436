package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/talentexchange/backend/internal/models"
)

// ReviewRepoForAggregator is the review repository interface for the aggregator.
type ReviewRepoForAggregator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rv *models.Review) error
	ExistsForReviewerTx(ctx context.Context, tx pgx.Tx, taskID, reviewerID uuid.UUID) (bool, error)
	AverageRatingTx(ctx context.Context, tx pgx.Tx, revieweeID uuid.UUID) (float64, error)
}

// ReviewTaskRepo resolves tasks and the reviewee's outcome history.
type ReviewTaskRepo interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	CountOutcomesByAssigneeTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (completed, unfinished int, err error)
	AverageResponseHoursTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (float64, error)
}

// ReviewUserRepo persists recomputed reputation aggregates.
type ReviewUserRepo interface {
	UpdateReputationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, rating float64, completedTasks int, completionRate, responseHours float64) error
}

// ReviewAggregator accepts reviews on completed tasks and folds them into
// the reviewee's reputation. Aggregates are recomputed from stored rows, not
// incremented, so a retried submission can never drift them. Insert and
// recompute share the caller's transaction: a failed recompute leaves no
// orphaned review behind, so the same request can simply be retried.
type ReviewAggregator struct {
	Reviews ReviewRepoForAggregator
	Tasks   ReviewTaskRepo
	Users   ReviewUserRepo
}

func NewReviewAggregator(reviews ReviewRepoForAggregator, tasks ReviewTaskRepo, users ReviewUserRepo) *ReviewAggregator {
	return &ReviewAggregator{Reviews: reviews, Tasks: tasks, Users: users}
}

func validateScores(s models.ReviewScores) error {
	for _, rating := range []int{s.Overall, s.Communication, s.Timeliness, s.Quality} {
		if rating < models.ReviewRatingMin || rating > models.ReviewRatingMax {
			return fmt.Errorf("%w: ratings must be %d-%d", ErrValidation,
				models.ReviewRatingMin, models.ReviewRatingMax)
		}
	}
	comment := strings.TrimSpace(s.Comment)
	if len(comment) < models.ReviewCommentMin || len(comment) > models.ReviewCommentMax {
		return fmt.Errorf("%w: comment must be %d-%d characters", ErrValidation,
			models.ReviewCommentMin, models.ReviewCommentMax)
	}
	return nil
}

// Submit files a review by one party of a completed task about the other,
// then recomputes the reviewee's aggregates. Runs inside the caller's
// transaction.
func (a *ReviewAggregator) Submit(ctx context.Context, tx pgx.Tx, taskID, reviewerID uuid.UUID, scores models.ReviewScores) (*models.Review, error) {
	if err := validateScores(scores); err != nil {
		return nil, err
	}
	task, err := a.Tasks.GetByIDTx(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.Status != models.TaskStatusCompleted || task.AssignedTo == nil {
		return nil, ErrReviewNotEligible
	}

	var revieweeID uuid.UUID
	switch reviewerID {
	case task.CreatedBy:
		revieweeID = *task.AssignedTo
	case *task.AssignedTo:
		revieweeID = task.CreatedBy
	default:
		return nil, ErrReviewNotEligible
	}

	if already, err := a.Reviews.ExistsForReviewerTx(ctx, tx, taskID, reviewerID); err != nil {
		return nil, err
	} else if already {
		return nil, ErrReviewNotEligible
	}

	rv := &models.Review{
		ID:                  uuid.New(),
		TaskID:              taskID,
		ReviewerID:          reviewerID,
		RevieweeID:          revieweeID,
		OverallRating:       scores.Overall,
		CommunicationRating: scores.Communication,
		TimelinessRating:    scores.Timeliness,
		QualityRating:       scores.Quality,
		WouldRecommend:      scores.WouldRecommend,
		Comment:             strings.TrimSpace(scores.Comment),
		IsVisible:           true,
	}
	if err := a.Reviews.CreateTx(ctx, tx, rv); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrReviewNotEligible
		}
		return nil, err
	}

	if err := a.recompute(ctx, tx, revieweeID); err != nil {
		return nil, err
	}
	return rv, nil
}

// recompute derives rating, completion, and response-time metrics from
// source rows.
func (a *ReviewAggregator) recompute(ctx context.Context, tx pgx.Tx, revieweeID uuid.UUID) error {
	rating, err := a.Reviews.AverageRatingTx(ctx, tx, revieweeID)
	if err != nil {
		return err
	}
	completed, unfinished, err := a.Tasks.CountOutcomesByAssigneeTx(ctx, tx, revieweeID)
	if err != nil {
		return err
	}
	completionRate := 0.0
	if total := completed + unfinished; total > 0 {
		completionRate = float64(completed) / float64(total) * 100
	}
	responseHours, err := a.Tasks.AverageResponseHoursTx(ctx, tx, revieweeID)
	if err != nil {
		return err
	}
	return a.Users.UpdateReputationTx(ctx, tx, revieweeID, rating, completed, completionRate, responseHours)
}
