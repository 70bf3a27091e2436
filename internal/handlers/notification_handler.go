package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/talentexchange/backend/internal/middleware"
	"github.com/talentexchange/backend/internal/models"
)

// NotificationStore is the repository slice the handler needs.
type NotificationStore interface {
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type NotificationHandler struct {
	Store  NotificationStore
	Logger *slog.Logger
}

// List handles GET /v1/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	list, err := h.Store.ListByUserID(r.Context(), caller, 100)
	if err != nil {
		h.Logger.Error("list notifications", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkRead handles POST /v1/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFromCtx(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid notification id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Store.MarkRead(r.Context(), id, caller); err != nil {
		h.Logger.Error("mark notification read", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
