package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/talentexchange/backend/internal/models"
)

func newUserFixture() (*UserHandler, *fakeUsers, *fakeReviews, uuid.UUID) {
	id := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*models.User{
		id: {ID: id, Email: "ana@example.com", Name: "Ana", IsAvailable: true},
	}}
	reviews := &fakeReviews{}
	h := &UserHandler{Users: users, Reviews: reviews, Logger: slog.Default()}
	return h, users, reviews, id
}

func TestGetProfile(t *testing.T) {
	h, _, _, id := newUserFixture()

	req := httptest.NewRequest(http.MethodGet, "/v1/users/x", nil)
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.GetProfile(rec, asUser(req, id))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var u models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Error("owner should see their own email")
	}

	// Another caller gets the profile without the email.
	req = httptest.NewRequest(http.MethodGet, "/v1/users/x", nil)
	req.SetPathValue("id", id.String())
	rec = httptest.NewRecorder()
	h.GetProfile(rec, asUser(req, uuid.New()))
	var public models.User
	_ = json.Unmarshal(rec.Body.Bytes(), &public)
	if public.Email != "" {
		t.Error("email must not leak to other users")
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	h, _, _, _ := newUserFixture()

	req := httptest.NewRequest(http.MethodGet, "/v1/users/x", nil)
	req.SetPathValue("id", uuid.NewString())
	rec := httptest.NewRecorder()
	h.GetProfile(rec, asUser(req, uuid.New()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateProfile(t *testing.T) {
	h, users, _, id := newUserFixture()

	body := `{"name": "Ana M.", "bio": "Translator and editor.", "location": "Porto", "is_available": false}`
	req := httptest.NewRequest(http.MethodPut, "/v1/profile", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, asUser(req, id))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	u := users.users[id]
	if u.Name != "Ana M." || u.Bio != "Translator and editor." || u.Location != "Porto" {
		t.Error("profile fields should be updated")
	}
	if u.IsAvailable {
		t.Error("availability should be updated")
	}
}

func TestUpdateProfile_RequiresName(t *testing.T) {
	h, _, _, id := newUserFixture()

	req := httptest.NewRequest(http.MethodPut, "/v1/profile", strings.NewReader(`{"bio": "x"}`))
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, asUser(req, id))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListUserReviews_VisibleOnly(t *testing.T) {
	h, _, reviews, id := newUserFixture()
	reviews.reviews = []*models.Review{
		{ID: uuid.New(), RevieweeID: id, OverallRating: 5, IsVisible: true},
		{ID: uuid.New(), RevieweeID: id, OverallRating: 1, IsVisible: false},
		{ID: uuid.New(), RevieweeID: uuid.New(), OverallRating: 3, IsVisible: true},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/users/x/reviews", nil)
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.ListReviews(rec, asUser(req, uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var list []*models.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].OverallRating != 5 {
		t.Errorf("reviews: got %d entries, want only the visible one for this user", len(list))
	}
}
