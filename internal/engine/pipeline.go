package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/checksum"
	"github.com/starford/secondbrain/internal/journal"
	"github.com/starford/secondbrain/internal/prompt"
	"github.com/starford/secondbrain/internal/watch"
	"github.com/starford/secondbrain/internal/writer"
)

// Outcome describes one completed processing run.
type Outcome struct {
	NotePath  string           `json:"note_path"`
	Kind      NoteKind         `json:"kind"`
	Operation prompt.Operation `json:"operation"`
	Target    string           `json:"target"`
	Output    string           `json:"output"`
}

// ProcessNote runs the full pipeline for a note identifier: classify, build
// the prompt, call the model, and write the result.
func (e *Engine) ProcessNote(ctx context.Context, identifier string) (*Outcome, error) {
	rel, err := e.ResolveNote(identifier)
	if err != nil {
		return nil, err
	}
	kind, date := e.Classify(rel)
	if kind == KindDaily {
		return e.processDaily(ctx, rel, date)
	}
	return e.processOrdinary(ctx, rel)
}

// DailyReview ensures the daily note for date exists, then summarizes it
// into its review section.
func (e *Engine) DailyReview(ctx context.Context, date time.Time) (*Outcome, error) {
	rel, _, err := e.daily.Ensure(date)
	if err != nil {
		return nil, err
	}
	return e.processDaily(ctx, rel, date)
}

// EnsureDaily returns the daily note for date, creating it when absent.
func (e *Engine) EnsureDaily(_ context.Context, date time.Time) (string, bool, error) {
	return e.daily.Ensure(date)
}

// RefreshDaily merges missing template sections into the daily note for
// date, creating the note first when absent.
func (e *Engine) RefreshDaily(_ context.Context, date time.Time) (string, error) {
	rel, _, err := e.daily.Ensure(date)
	if err != nil {
		return "", err
	}
	return rel, e.daily.Refresh(rel, date)
}

// RestructureDaily reorders recognized sections of an existing daily note.
func (e *Engine) RestructureDaily(_ context.Context, date time.Time) (string, error) {
	rel, exists, err := e.daily.Resolve(date)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("daily note for %s: %w", date.Format("2006-01-02"), apperr.ErrNotFound)
	}
	return rel, e.daily.Restructure(rel, date)
}

func (e *Engine) processOrdinary(ctx context.Context, rel string) (*Outcome, error) {
	content, err := e.readProcessable(rel)
	if err != nil {
		return nil, err
	}
	mode := writer.ModeResponseFile
	if e.opts.WriteMode == string(writer.ModeInline) {
		mode = writer.ModeInline
	}
	req := e.prompts.Summarize(noteLabel(rel, content), content)
	return e.complete(ctx, rel, KindOrdinary, prompt.OpSummarize, req, mode)
}

func (e *Engine) processDaily(ctx context.Context, rel string, _ time.Time) (*Outcome, error) {
	content, err := e.readProcessable(rel)
	if err != nil {
		return nil, err
	}
	req := e.prompts.DailySummary(stem(rel), content)
	return e.complete(ctx, rel, KindDaily, prompt.OpDailySummary, req, writer.ModeDailySection)
}

// complete runs the model call and result write shared by both strategies.
// Generated text that cannot be written is still recorded in the journal so
// it is never silently lost.
func (e *Engine) complete(ctx context.Context, rel string, kind NoteKind,
	op prompt.Operation, req prompt.Request, mode writer.Mode) (*Outcome, error) {

	e.publish("processing.started", rel, string(op))
	e.logger.Info("processing note",
		slog.String("path", rel),
		slog.String("kind", string(kind)),
		slog.String("operation", string(op)))

	text, err := e.client.Complete(ctx, req)
	if err != nil {
		e.record(journal.Entry{
			NotePath:  rel,
			Operation: string(op),
			Status:    journal.StatusFailed,
			Error:     err.Error(),
		})
		e.publish("processing.failed", rel, string(op))
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrProcessingFailed, rel, err)
	}

	target, err := e.writer.Write(writer.Result{
		NotePath:  rel,
		Operation: op,
		Text:      text,
		Mode:      mode,
	})
	if err != nil {
		// The source file is intact (atomic write); keep the generated
		// text recoverable.
		e.record(journal.Entry{
			NotePath:  rel,
			Operation: string(op),
			Status:    journal.StatusFailed,
			Output:    text,
			Error:     err.Error(),
		})
		e.publish("processing.failed", rel, string(op))
		e.logger.Error("result write failed, output retained in journal",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: write %s: %v", apperr.ErrProcessingFailed, rel, err)
	}

	// Record the digest of the note as it now stands so the change event
	// caused by our own write (inline and daily modes) is recognized and
	// skipped.
	cs := ""
	if data, readErr := e.vault.Read(rel); readErr == nil {
		cs = checksum.Sum(data)
	}
	e.record(journal.Entry{
		NotePath:  rel,
		Operation: string(op),
		Status:    journal.StatusCompleted,
		Checksum:  cs,
		Output:    text,
		Target:    target,
	})
	e.publish("processing.completed", rel, string(op))

	return &Outcome{
		NotePath:  rel,
		Kind:      kind,
		Operation: op,
		Target:    target,
		Output:    text,
	}, nil
}

// HandleEvent processes one debounced change event. Errors are attributed to
// the single note and never abort the watch loop.
func (e *Engine) HandleEvent(ctx context.Context, ev watch.Event) {
	rel := ev.Path
	if e.underResponseFolder(rel) {
		return
	}

	data, err := e.vault.Read(rel)
	if err != nil {
		e.logger.Warn("skipping unreadable note",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return
	}
	if e.journal != nil {
		last, jErr := e.journal.LastChecksum(rel)
		if jErr == nil && last != "" && last == checksum.Sum(data) {
			e.logger.Debug("skipping unchanged note", slog.String("path", rel))
			return
		}
	}

	kind, date := e.Classify(rel)
	var runErr error
	if kind == KindDaily {
		_, runErr = e.processDaily(ctx, rel, date)
	} else {
		_, runErr = e.processOrdinary(ctx, rel)
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, apperr.ErrSkipped):
		e.logger.Info("note skipped",
			slog.String("path", rel),
			slog.String("reason", runErr.Error()))
		e.publish("processing.skipped", rel, "")
	default:
		e.logger.Error("processing failed",
			slog.String("path", rel),
			slog.String("error", runErr.Error()))
	}
}

// RunWorkers consumes debounced events with a bounded pool until the
// dispatch channel is closed. In-flight runs are allowed to finish after
// shutdown begins; no write is cancelled midway.
func (e *Engine) RunWorkers(ctx context.Context, deb *watch.Debouncer, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for ev := range deb.Dispatch() {
				// Detached from cancellation so a run in flight at
				// shutdown drains instead of aborting mid-write.
				e.HandleEvent(context.WithoutCancel(ctx), ev)
				deb.Release(ev.Path)
			}
			return nil
		})
	}
	return g.Wait()
}
