package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type staticValidator struct {
	id  uuid.UUID
	err error
}

func (v staticValidator) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	if v.err != nil {
		return uuid.Nil, v.err
	}
	return v.id, nil
}

func TestJWTAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	mw := JWTAuth(staticValidator{id: userID})

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromCtx(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != userID {
		t.Errorf("user id in context: got %s, want %s", seen, userID)
	}
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	mw := JWTAuth(staticValidator{id: uuid.New()})
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("handler must not run without a token")
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	mw := JWTAuth(staticValidator{err: errors.New("expired")})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run with an invalid token")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer expiredtoken")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		if got := extractBearer(req); got != c.want {
			t.Errorf("extractBearer(%q): got %q, want %q", c.header, got, c.want)
		}
	}
}
