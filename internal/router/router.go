package router

import (
	"net/http"

	"github.com/talentexchange/backend/internal/auth"
)

// New returns the handler for the public (unauthenticated) API surface.
func New(authHandler *auth.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	return mux
}
