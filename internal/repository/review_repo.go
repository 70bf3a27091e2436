package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentexchange/backend/internal/models"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

const reviewColumns = `id, task_id, reviewer_id, reviewee_id, overall_rating, communication_rating,
	timeliness_rating, quality_rating, would_recommend, comment, is_visible, created_at`

func scanReview(row pgx.Row) (*models.Review, error) {
	var rv models.Review
	err := row.Scan(&rv.ID, &rv.TaskID, &rv.ReviewerID, &rv.RevieweeID, &rv.OverallRating,
		&rv.CommunicationRating, &rv.TimelinessRating, &rv.QualityRating, &rv.WouldRecommend,
		&rv.Comment, &rv.IsVisible, &rv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// CreateTx inserts the review inside the caller's transaction so it commits
// or rolls back together with the reputation recompute.
func (r *ReviewRepo) CreateTx(ctx context.Context, tx pgx.Tx, rv *models.Review) error {
	return tx.QueryRow(ctx, `
		INSERT INTO reviews (id, task_id, reviewer_id, reviewee_id, overall_rating,
			communication_rating, timeliness_rating, quality_rating, would_recommend, comment, is_visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, rv.ID, rv.TaskID, rv.ReviewerID, rv.RevieweeID, rv.OverallRating, rv.CommunicationRating,
		rv.TimelinessRating, rv.QualityRating, rv.WouldRecommend, rv.Comment, rv.IsVisible).
		Scan(&rv.CreatedAt)
}

// ExistsForReviewerTx reports whether the reviewer already filed a review on
// this task. Backed by the unique (task_id, reviewer_id) index.
func (r *ReviewRepo) ExistsForReviewerTx(ctx context.Context, tx pgx.Tx, taskID, reviewerID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE task_id = $1 AND reviewer_id = $2)
	`, taskID, reviewerID).Scan(&exists)
	return exists, err
}

func (r *ReviewRepo) ListVisibleByReviewee(ctx context.Context, revieweeID uuid.UUID) ([]*models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE reviewee_id = $1 AND is_visible ORDER BY created_at DESC
	`, revieweeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rv)
	}
	return list, rows.Err()
}

// AverageRatingTx recomputes the mean overall rating across all visible
// reviews of the user. Returns 0 when there are none.
func (r *ReviewRepo) AverageRatingTx(ctx context.Context, tx pgx.Tx, revieweeID uuid.UUID) (float64, error) {
	var avg float64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(AVG(overall_rating), 0) FROM reviews
		WHERE reviewee_id = $1 AND is_visible
	`, revieweeID).Scan(&avg)
	return avg, err
}
