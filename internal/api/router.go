package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Commands.
	r.Post("/boards/{boardID}/commands", h.RunCommand)

	// Stateless geometry helpers.
	r.Post("/layout/{algorithm}", h.Arrange)
	r.Post("/ports", h.SuggestPorts)

	r.Get("/templates", h.ListTemplates)

	// Traces.
	r.Get("/traces", h.ListTraces)
	r.Get("/traces/{id}", h.GetTrace)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
