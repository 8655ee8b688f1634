package api

import (
	"github.com/starford/secondbrain/internal/engine"
	"github.com/starford/secondbrain/internal/journal"
)

// QueryNoteRequest is the request body for asking a question about a note.
type QueryNoteRequest struct {
	Note     string `json:"note"`
	Question string `json:"question"`
}

// ProcessNoteRequest is the request body for a one-shot processing run.
type ProcessNoteRequest struct {
	Note string `json:"note"`
}

// ConnectionsRequest is the request body for comparing two notes.
type ConnectionsRequest struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// FindResponse wraps name-search results.
type FindResponse struct {
	Query   string   `json:"query"`
	Matches []string `json:"matches"`
}

// AnswerResponse wraps generated text that is not written to the vault.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// DailyResponse describes a daily-note operation.
type DailyResponse struct {
	Path    string `json:"path"`
	Created bool   `json:"created,omitempty"`
}

// Outcome is the full processing result (aliased from the domain layer).
type Outcome = engine.Outcome

// ResultsResponse wraps recent journal entries.
type ResultsResponse struct {
	Results []journal.Entry `json:"results"`
}
