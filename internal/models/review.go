package models

import (
	"time"

	"github.com/google/uuid"
)

// Validation bounds for reviews.
const (
	ReviewRatingMin  = 1
	ReviewRatingMax  = 5
	ReviewCommentMin = 25
	ReviewCommentMax = 500
)

// Review is filed by one party of a completed task about the other.
// Immutable once created; one per (task, reviewer) pair.
type Review struct {
	ID                  uuid.UUID `json:"id"`
	TaskID              uuid.UUID `json:"task_id"`
	ReviewerID          uuid.UUID `json:"reviewer_id"`
	RevieweeID          uuid.UUID `json:"reviewee_id"`
	OverallRating       int       `json:"overall_rating"`
	CommunicationRating int       `json:"communication_rating"`
	TimelinessRating    int       `json:"timeliness_rating"`
	QualityRating       int       `json:"quality_rating"`
	WouldRecommend      bool      `json:"would_recommend"`
	Comment             string    `json:"comment"`
	IsVisible           bool      `json:"is_visible"`
	CreatedAt           time.Time `json:"created_at"`
}

// ReviewScores carries the caller-supplied rating axes for submission.
type ReviewScores struct {
	Overall        int    `json:"overall_rating"`
	Communication  int    `json:"communication_rating"`
	Timeliness     int    `json:"timeliness_rating"`
	Quality        int    `json:"quality_rating"`
	WouldRecommend bool   `json:"would_recommend"`
	Comment        string `json:"comment"`
}
