// Package notify delivers domain events to users as stored notifications and
// optional push webhooks. Delivery runs on River jobs so a slow or dead
// transport never blocks an engine transition.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/talentexchange/backend/internal/events"
	"github.com/talentexchange/backend/internal/models"
)

type DeliverNotificationArgs struct {
	Event events.Event `json:"event"`
}

func (DeliverNotificationArgs) Kind() string { return "deliver_notification" }

// NotificationStore persists delivered notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Worker renders one domain event into a notification row and optionally
// POSTs it to a push relay.
type Worker struct {
	river.WorkerDefaults[DeliverNotificationArgs]
	store      NotificationStore
	pushURL    string
	httpClient *http.Client
}

// NewWorker returns a delivery worker. pushURL may be empty to disable the
// webhook relay.
func NewWorker(store NotificationStore, pushURL string) *Worker {
	return &Worker{
		store:      store,
		pushURL:    pushURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[DeliverNotificationArgs]) error {
	ev := job.Args.Event

	title, message, typ := render(ev)
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	n := &models.Notification{
		ID:      uuid.New(),
		UserID:  ev.UserID,
		Title:   title,
		Message: message,
		Type:    typ,
		Data:    data,
	}
	if err := w.store.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if w.pushURL == "" {
		return nil
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal push body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push relay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push relay returned %d", resp.StatusCode)
	}
	return nil
}

// render maps an event type to the user-facing notification copy.
func render(ev events.Event) (title, message string, typ models.NotificationType) {
	switch ev.Type {
	case events.ProposalSubmitted:
		return "New proposal", "A provider sent a proposal on your task.", models.NotificationProposalReceived
	case events.ProposalAccepted:
		return "Proposal accepted", "Your proposal was accepted. The task is now in progress.", models.NotificationTaskUpdate
	case events.ProposalDeclined:
		return "Proposal declined", "Your proposal was not selected.", models.NotificationTaskUpdate
	case events.TaskStatusChanged:
		return "Task updated", "A task you are involved in changed status.", models.NotificationTaskUpdate
	case events.PaymentSettled:
		return "Credits received", "Escrowed credits were released to your balance.", models.NotificationPayment
	case events.PaymentRefunded:
		return "Credits refunded", "Escrowed credits were returned to your balance.", models.NotificationPayment
	case events.ReviewCreated:
		return "New review", "You received a review on a completed task.", models.NotificationReview
	default:
		return "Notification", string(ev.Type), models.NotificationSystem
	}
}
