// Package writer applies AI-generated text back into the vault. Every write
// is idempotent: output lands in a marker-delimited block keyed by the
// operation, and repeating a write replaces the block instead of appending a
// duplicate. Files are replaced whole via the vault's atomic write, so a
// failed write leaves the original content intact.
package writer

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/prompt"
	"github.com/starford/secondbrain/internal/vault"
)

// Mode selects where a result is written.
type Mode string

// Write targets.
const (
	// ModeInline places the block under a dedicated heading in the source note.
	ModeInline Mode = "inline"
	// ModeResponseFile creates or replaces a standalone file in the
	// response folder, named after the source note.
	ModeResponseFile Mode = "respond"
	// ModeDailySection merges the block into the review section of a
	// daily note.
	ModeDailySection Mode = "daily-section"
)

// Result is a completed processing outcome ready to be persisted.
type Result struct {
	NotePath  string // source note, vault-relative
	Operation prompt.Operation
	Text      string
	Mode      Mode
}

// Writer persists processing results into the vault.
type Writer struct {
	vault          *vault.Vault
	responseFolder string
	inlineHeading  string
	reviewHeading  string
	logger         *slog.Logger
	now            func() time.Time
}

// New creates a Writer. inlineHeading anchors ModeInline blocks,
// reviewHeading anchors ModeDailySection blocks.
func New(v *vault.Vault, responseFolder, inlineHeading, reviewHeading string, logger *slog.Logger) *Writer {
	return &Writer{
		vault:          v,
		responseFolder: strings.Trim(responseFolder, "/"),
		inlineHeading:  inlineHeading,
		reviewHeading:  reviewHeading,
		logger:         logger,
		now:            time.Now,
	}
}

// Write persists the result and returns the vault-relative path it landed in.
func (w *Writer) Write(res Result) (string, error) {
	switch res.Mode {
	case ModeResponseFile:
		return w.writeResponseFile(res)
	case ModeInline:
		return res.NotePath, w.upsertIntoNote(res.NotePath, w.inlineHeading, res.Operation, res.Text)
	case ModeDailySection:
		return res.NotePath, w.upsertIntoNote(res.NotePath, w.reviewHeading, res.Operation, res.Text)
	default:
		return "", fmt.Errorf("writer: unknown mode %q", res.Mode)
	}
}

// ResponsePath returns the response-folder path used for a source note.
func (w *Writer) ResponsePath(notePath string) string {
	stem := strings.TrimSuffix(path.Base(notePath), ".md")
	return path.Join(w.responseFolder, "SB_"+stem+".md")
}

func (w *Writer) writeResponseFile(res Result) (string, error) {
	target := w.ResponsePath(res.NotePath)
	link := strings.TrimSuffix(res.NotePath, ".md")
	content := fmt.Sprintf(`# Second Brain Analysis
**Original Note:** [[%s]]

## Key Analysis
%s

_Processed at %s_
`, link, strings.TrimSpace(res.Text), w.now().Format("2006-01-02 15:04:05"))

	if err := w.vault.Write(target, []byte(content)); err != nil {
		return "", err
	}
	w.logger.Info("response written",
		slog.String("note", res.NotePath),
		slog.String("target", target))
	return target, nil
}

// upsertIntoNote replaces the operation's marker block inside the note, or
// inserts it under the anchor heading (creating the heading at the end of
// the note when absent).
func (w *Writer) upsertIntoNote(notePath, heading string, op prompt.Operation, text string) error {
	data, err := w.vault.Read(notePath)
	if err != nil {
		return err
	}
	updated := UpsertBlock(string(data), heading, op, text)
	if updated == string(data) {
		return nil
	}
	if err := w.vault.Write(notePath, []byte(updated)); err != nil {
		return err
	}
	w.logger.Info("note updated",
		slog.String("note", notePath),
		slog.String("operation", string(op)))
	return nil
}

func beginMarker(op prompt.Operation) string {
	return fmt.Sprintf("<!-- secondbrain:begin %s -->", op)
}

func endMarker(op prompt.Operation) string {
	return fmt.Sprintf("<!-- secondbrain:end %s -->", op)
}

// UpsertBlock returns content with the operation's block replaced in place,
// or inserted directly under the anchor heading. A missing heading is
// appended at the end of the note together with the block.
func UpsertBlock(content, heading string, op prompt.Operation, text string) string {
	begin := beginMarker(op)
	end := endMarker(op)
	block := begin + "\n" + strings.TrimSpace(text) + "\n" + end

	// Replace an existing block for this operation.
	if i := strings.Index(content, begin); i >= 0 {
		if j := strings.Index(content[i:], end); j >= 0 {
			return content[:i] + block + content[i+j+len(end):]
		}
	}

	// Insert under the anchor heading when present.
	if i := headingLineIndex(content, heading); i >= 0 {
		lineEnd := strings.IndexByte(content[i:], '\n')
		if lineEnd < 0 {
			return content + "\n" + block + "\n"
		}
		insertAt := i + lineEnd + 1
		return content[:insertAt] + block + "\n" + content[insertAt:]
	}

	// No heading yet: append it with the block.
	return strings.TrimRight(content, "\n") + "\n\n" + heading + "\n" + block + "\n"
}

// headingLineIndex returns the byte offset of the line equal to heading
// (trimmed comparison), or -1.
func headingLineIndex(content, heading string) int {
	want := strings.TrimSpace(heading)
	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		if strings.TrimSpace(line) == want {
			return offset
		}
		offset += len(line)
	}
	return -1
}
