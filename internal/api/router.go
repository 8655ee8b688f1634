package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/engine"
	"github.com/starford/secondbrain/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *engine.Engine, db *journal.DB, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(eng, db)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes/find", h.FindNotes)
	r.Post("/notes/query", h.QueryNote)
	r.Post("/notes/process", h.ProcessNote)
	r.Post("/notes/analyze-connections", h.AnalyzeConnections)

	// Daily notes.
	r.Post("/daily/{date}", h.EnsureDaily)
	r.Post("/daily/{date}/summary", h.DailySummary)
	r.Post("/daily/{date}/template", h.RefreshDaily)
	r.Post("/daily/{date}/restructure", h.RestructureDaily)

	// Processing journal.
	r.Get("/results", h.Results)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
