package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/talentexchange/backend/internal/middleware"
	"github.com/talentexchange/backend/internal/models"
	"github.com/talentexchange/backend/internal/services"
)

// UserHandlerUserRepo is the user repository slice the profile endpoints need.
type UserHandlerUserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
}

// UserHandlerReviewRepo serves the public review feed on a profile.
type UserHandlerReviewRepo interface {
	ListVisibleByReviewee(ctx context.Context, revieweeID uuid.UUID) ([]*models.Review, error)
}

// UserHandler serves the /v1 user profile and review-feed endpoints.
type UserHandler struct {
	Users   UserHandlerUserRepo
	Reviews UserHandlerReviewRepo
	Logger  *slog.Logger
}

// --- GET /v1/users/{id} ---

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	userID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	u, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		h.fail(w, "get profile", err)
		return
	}
	// Email is private: only the owner sees it.
	if caller != u.ID {
		u.Email = ""
	}
	writeJSON(w, http.StatusOK, u)
}

// --- PUT /v1/profile ---

type updateProfileRequest struct {
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Location    string `json:"location"`
	IsAvailable bool   `json:"is_available"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}
	u, err := h.Users.GetByID(r.Context(), caller)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	u.Name = req.Name
	u.Bio = req.Bio
	u.Location = req.Location
	u.IsAvailable = req.IsAvailable
	if err := h.Users.UpdateProfile(r.Context(), u); err != nil {
		h.fail(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- GET /v1/users/{id}/reviews ---

func (h *UserHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.Reviews.ListVisibleByReviewee(r.Context(), userID)
	if err != nil {
		h.fail(w, "list user reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UserHandler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		err = services.ErrNotFound
	}
	if _, status := codeFor(err); status == http.StatusInternalServerError {
		h.Logger.Error(op, "error", err)
	}
	writeError(w, err)
}
