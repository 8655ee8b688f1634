// Package engine coordinates the change-driven pipeline: classify a changed
// note, build its prompt, call the language model, and write the result back
// into the vault. It also backs the operations exposed over HTTP, CLI, and
// MCP.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/daily"
	"github.com/starford/secondbrain/internal/journal"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/note"
	"github.com/starford/secondbrain/internal/prompt"
	"github.com/starford/secondbrain/internal/vault"
	"github.com/starford/secondbrain/internal/writer"
)

// NoteKind is the classification of a changed note, decided once per event
// and carried through the pipeline.
type NoteKind string

// Note kinds.
const (
	KindOrdinary NoteKind = "ordinary"
	KindDaily    NoteKind = "daily"
)

// Publisher receives processing lifecycle notifications. A nil Publisher is
// allowed.
type Publisher interface {
	PublishProcessing(kind, path, operation string)
}

// Options tunes engine behaviour.
type Options struct {
	MinNoteLength  int
	WriteMode      string // "respond" or "inline" for ordinary notes
	ResponseFolder string
}

// Engine runs the processing pipeline.
type Engine struct {
	vault   *vault.Vault
	daily   *daily.Manager
	prompts *prompt.Builder
	client  llm.Client
	writer  *writer.Writer
	journal *journal.DB
	pub     Publisher
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Engine. journal and pub may be nil when persistence or
// event broadcast is not wanted (one-shot CLI runs, tests).
func New(v *vault.Vault, dm *daily.Manager, pb *prompt.Builder, client llm.Client,
	w *writer.Writer, db *journal.DB, pub Publisher, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		vault:   v,
		daily:   dm,
		prompts: pb,
		client:  client,
		writer:  w,
		journal: db,
		pub:     pub,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Classify decides the processing strategy for a vault-relative path. A file
// matching no recognized daily pattern is ordinary, never an error.
func (e *Engine) Classify(rel string) (NoteKind, time.Time) {
	if date, ok := e.daily.Match(rel); ok {
		return KindDaily, date
	}
	return KindOrdinary, time.Time{}
}

// FindNotes returns identifiers of notes whose name matches the query.
// Excluded folders are omitted by the vault itself.
func (e *Engine) FindNotes(_ context.Context, query string) ([]string, error) {
	return e.vault.FindNotes(query)
}

// ResolveNote maps a note identifier to a vault-relative path. Identifiers
// containing a slash or .md suffix are used verbatim; bare names are
// searched, failing on zero or multiple matches.
func (e *Engine) ResolveNote(identifier string) (string, error) {
	if strings.HasSuffix(identifier, ".md") || strings.Contains(identifier, "/") {
		if !e.vault.Exists(identifier) {
			return "", fmt.Errorf("note %s: %w", identifier, apperr.ErrNotFound)
		}
		return identifier, nil
	}
	matches, err := e.vault.FindNotes(identifier)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("note %q: %w", identifier, apperr.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("note %q matches %s: %w",
			identifier, strings.Join(matches, ", "), apperr.ErrAmbiguous)
	}
}

// QueryNote answers a question about a note without writing anything back.
func (e *Engine) QueryNote(ctx context.Context, identifier, question string) (string, error) {
	rel, err := e.ResolveNote(identifier)
	if err != nil {
		return "", err
	}
	content, err := e.readProcessable(rel)
	if err != nil {
		return "", err
	}
	req := e.prompts.Query(noteLabel(rel, content), question, content)
	return e.client.Complete(ctx, req)
}

// AnalyzeConnections compares two notes and returns the analysis text. The
// first/second framing follows argument order.
func (e *Engine) AnalyzeConnections(ctx context.Context, first, second string) (string, error) {
	relA, err := e.ResolveNote(first)
	if err != nil {
		return "", err
	}
	relB, err := e.ResolveNote(second)
	if err != nil {
		return "", err
	}
	contentA, err := e.readProcessable(relA)
	if err != nil {
		return "", err
	}
	contentB, err := e.readProcessable(relB)
	if err != nil {
		return "", err
	}
	req := e.prompts.Connections(stem(relA), contentA, stem(relB), contentB)
	answer, err := e.client.Complete(ctx, req)
	if err != nil {
		e.record(journal.Entry{
			NotePath:  relA,
			Operation: string(prompt.OpConnections),
			Status:    journal.StatusFailed,
			Error:     err.Error(),
		})
		return "", fmt.Errorf("analyze %s <> %s: %w", relA, relB, err)
	}
	e.record(journal.Entry{
		NotePath:  relA,
		Operation: string(prompt.OpConnections),
		Status:    journal.StatusCompleted,
		Output:    answer,
		Target:    relB,
	})
	return answer, nil
}

// readProcessable reads a note and applies the skip rules: unreadable or
// too-short content is not processed.
func (e *Engine) readProcessable(rel string) (string, error) {
	data, err := e.vault.Read(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrSkipped, err)
	}
	if len(strings.TrimSpace(string(data))) < e.opts.MinNoteLength {
		return "", fmt.Errorf("%w: content shorter than %d bytes", apperr.ErrSkipped, e.opts.MinNoteLength)
	}
	return string(data), nil
}

// underResponseFolder guards against the engine reacting to its own
// response-file writes.
func (e *Engine) underResponseFolder(rel string) bool {
	folder := strings.Trim(e.opts.ResponseFolder, "/")
	return folder != "" && strings.HasPrefix(path.Clean(rel)+"/", folder+"/")
}

func (e *Engine) record(entry journal.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(entry); err != nil {
		e.logger.Error("journal record failed",
			slog.String("path", entry.NotePath),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) publish(kind, path, operation string) {
	if e.pub != nil {
		e.pub.PublishProcessing(kind, path, operation)
	}
}

// noteLabel prefers the parsed title over the filename stem.
func noteLabel(rel, content string) string {
	if parsed := note.Parse([]byte(content)); parsed.Title != "" {
		return parsed.Title
	}
	return stem(rel)
}

func stem(rel string) string {
	return strings.TrimSuffix(path.Base(rel), ".md")
}
