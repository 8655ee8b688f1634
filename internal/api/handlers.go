package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/engine"
	"github.com/starford/secondbrain/internal/journal"
)

// Handler holds API route handlers.
type Handler struct {
	eng     *engine.Engine
	journal *journal.DB
}

// NewHandler creates a new Handler. db may be nil when no journal is open.
func NewHandler(eng *engine.Engine, db *journal.DB) *Handler {
	return &Handler{eng: eng, journal: db}
}

// dateParam parses the {date} URL parameter. "today" and an empty value mean
// the current day.
func dateParam(r *http.Request) (time.Time, error) {
	raw := chi.URLParam(r, "date")
	if raw == "" || raw == "today" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

// writeError maps domain sentinels to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAmbiguous):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrSkipped):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrDisabled):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrProcessingFailed):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// FindNotes handles GET /api/notes/find.
//
//	@Summary		Find notes by name
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	true	"Name query"
//	@Success		200	{object}	FindResponse
//	@Security		BearerAuth
//	@Router			/notes/find [get]
func (h *Handler) FindNotes(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	matches, err := h.eng.FindNotes(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []string{}
	}
	writeJSON(w, http.StatusOK, FindResponse{Query: query, Matches: matches})
}

// QueryNote handles POST /api/notes/query.
//
//	@Summary		Ask a question about a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QueryNoteRequest	true	"Note and question"
//	@Success		200		{object}	AnswerResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/query [post]
func (h *Handler) QueryNote(w http.ResponseWriter, r *http.Request) {
	var req QueryNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json body"))
		return
	}
	if req.Note == "" || req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("note and question are required"))
		return
	}
	answer, err := h.eng.QueryNote(r.Context(), req.Note, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: answer})
}

// ProcessNote handles POST /api/notes/process.
//
//	@Summary		Run the processing pipeline for one note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProcessNoteRequest	true	"Note identifier"
//	@Success		200		{object}	Outcome
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/process [post]
func (h *Handler) ProcessNote(w http.ResponseWriter, r *http.Request) {
	var req ProcessNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json body"))
		return
	}
	if req.Note == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("note is required"))
		return
	}
	outcome, err := h.eng.ProcessNote(r.Context(), req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// AnalyzeConnections handles POST /api/notes/analyze-connections.
//
//	@Summary		Compare two notes
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConnectionsRequest	true	"Two note identifiers"
//	@Success		200		{object}	AnswerResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/analyze-connections [post]
func (h *Handler) AnalyzeConnections(w http.ResponseWriter, r *http.Request) {
	var req ConnectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json body"))
		return
	}
	if req.First == "" || req.Second == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("first and second are required"))
		return
	}
	answer, err := h.eng.AnalyzeConnections(r.Context(), req.First, req.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: answer})
}

// EnsureDaily handles POST /api/daily/{date}.
//
//	@Summary		Create the daily note for a date if absent
//	@Tags			daily
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD or today)"
//	@Success		200		{object}	DailyResponse
//	@Security		BearerAuth
//	@Router			/daily/{date} [post]
func (h *Handler) EnsureDaily(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
		return
	}
	rel, created, err := h.eng.EnsureDaily(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyResponse{Path: rel, Created: created})
}

// DailySummary handles POST /api/daily/{date}/summary.
//
//	@Summary		Summarize the daily note into its review section
//	@Tags			daily
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD or today)"
//	@Success		200		{object}	Outcome
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/daily/{date}/summary [post]
func (h *Handler) DailySummary(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
		return
	}
	outcome, err := h.eng.DailyReview(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// RefreshDaily handles POST /api/daily/{date}/template.
//
//	@Summary		Merge missing template sections into the daily note
//	@Tags			daily
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD or today)"
//	@Success		200		{object}	DailyResponse
//	@Security		BearerAuth
//	@Router			/daily/{date}/template [post]
func (h *Handler) RefreshDaily(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
		return
	}
	rel, err := h.eng.RefreshDaily(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyResponse{Path: rel})
}

// RestructureDaily handles POST /api/daily/{date}/restructure.
//
//	@Summary		Reorder daily note sections to template order
//	@Tags			daily
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD or today)"
//	@Success		200		{object}	DailyResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/daily/{date}/restructure [post]
func (h *Handler) RestructureDaily(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
		return
	}
	rel, err := h.eng.RestructureDaily(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyResponse{Path: rel})
}

// Results handles GET /api/results.
//
//	@Summary		List recent processing outcomes
//	@Tags			results
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries"
//	@Success		200		{object}	ResultsResponse
//	@Security		BearerAuth
//	@Router			/results [get]
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, ResultsResponse{Results: []journal.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.journal.Recent(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: entries})
}
