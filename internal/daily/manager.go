// Package daily manages date-structured notes: resolving the canonical path
// for a calendar date, materializing notes from the configured template, and
// structural maintenance of their sections.
package daily

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/note"
	"github.com/starford/secondbrain/internal/vault"
)

// Manager resolves and maintains daily notes inside a vault.
type Manager struct {
	vault     *vault.Vault
	tokens    *Formatter
	enabled   bool
	folder    string
	formats   []string
	template  string
	logger    *slog.Logger
}

// Config carries the subset of application configuration the Manager needs.
type Config struct {
	Enabled     bool
	Folder      string
	FileFormats []string
	DateFormats map[string]string
	Template    string
}

// NewManager creates a Manager. FileFormats are tried in order when
// resolving; the first one is the creation target.
func NewManager(v *vault.Vault, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		vault:    v,
		tokens:   NewFormatter(cfg.DateFormats),
		enabled:  cfg.Enabled,
		folder:   strings.Trim(path.Clean(cfg.Folder), "/"),
		formats:  cfg.FileFormats,
		template: cfg.Template,
		logger:   logger,
	}
}

// Enabled reports whether the daily-notes feature is active.
func (m *Manager) Enabled() bool { return m.enabled }

// Formatter exposes token substitution for callers composing prompts.
func (m *Manager) Formatter() *Formatter { return m.tokens }

// Resolve returns the vault-relative path for the daily note of the given
// date. Configured filename patterns are tried in order and the first
// existing file wins; when none exists the first pattern names the creation
// target and exists is false.
func (m *Manager) Resolve(date time.Time) (rel string, exists bool, err error) {
	if !m.enabled {
		return "", false, apperr.ErrDisabled
	}
	var first string
	for i, pattern := range m.formats {
		name := m.tokens.Format(pattern, date)
		candidate := path.Join(m.folder, name)
		if i == 0 {
			first = candidate
		}
		if m.vault.Exists(candidate) {
			return candidate, true, nil
		}
	}
	if first == "" {
		return "", false, fmt.Errorf("daily: no filename patterns configured")
	}
	return first, false, nil
}

// Ensure returns the daily note path for date, creating the note from the
// template when absent. An existing note is never overwritten; calling
// Ensure twice is a no-op the second time.
func (m *Manager) Ensure(date time.Time) (rel string, created bool, err error) {
	rel, exists, err := m.Resolve(date)
	if err != nil {
		return "", false, err
	}
	if exists {
		return rel, false, nil
	}
	content := m.tokens.Format(m.template, date)
	if err := m.vault.Write(rel, []byte(content)); err != nil {
		return "", false, fmt.Errorf("daily: create %s: %w", rel, err)
	}
	m.logger.Info("daily note created", slog.String("path", rel))
	return rel, true, nil
}

// Match reports whether a vault-relative path denotes a daily note: it must
// live in the daily-notes folder and its filename must parse against one of
// the configured patterns. Returns the encoded date on success.
func (m *Manager) Match(rel string) (time.Time, bool) {
	if !m.enabled {
		return time.Time{}, false
	}
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	dir, name := path.Split(rel)
	if strings.Trim(dir, "/") != m.folder {
		return time.Time{}, false
	}
	for _, pattern := range m.formats {
		if t, ok := m.tokens.MatchDate(pattern, name); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Refresh merges template sections missing from an existing daily note.
// Matching is by exact heading text after date-token substitution; headings
// already present are left untouched, missing ones are appended at the end
// in template order. User content is never discarded, so Refresh is
// idempotent.
func (m *Manager) Refresh(rel string, date time.Time) error {
	if !m.enabled {
		return apperr.ErrDisabled
	}
	data, err := m.vault.Read(rel)
	if err != nil {
		return err
	}
	doc := note.SplitSections(string(data))
	tmpl := note.SplitSections(m.tokens.Format(m.template, date))

	changed := false
	for _, ts := range tmpl.Sections {
		if doc.Find(ts.Heading) >= 0 {
			continue
		}
		appended := ts
		if !strings.HasSuffix(appended.Body, "\n") {
			appended.Body += "\n"
		}
		if n := len(doc.Sections); n > 0 && !strings.HasSuffix(doc.Sections[n-1].Body, "\n\n") {
			doc.Sections[n-1].Body += "\n"
		}
		doc.Sections = append(doc.Sections, appended)
		changed = true
	}
	if !changed {
		return nil
	}
	return m.vault.Write(rel, []byte(doc.Render()))
}

// Restructure reorders recognized sections (those whose headings appear in
// the template) into template order and drops empty duplicates of a
// recognized heading. Unrecognized sections keep their relative order after
// the recognized block; the preamble is untouched.
func (m *Manager) Restructure(rel string, date time.Time) error {
	if !m.enabled {
		return apperr.ErrDisabled
	}
	data, err := m.vault.Read(rel)
	if err != nil {
		return err
	}
	doc := note.SplitSections(string(data))
	tmpl := note.SplitSections(m.tokens.Format(m.template, date))

	canonical := tmpl.Headings()
	recognized := make(map[string]int, len(canonical))
	for i, h := range canonical {
		recognized[h] = i
	}

	// Group recognized sections by heading, merging duplicate bodies and
	// discarding empty duplicates.
	grouped := make(map[string]*note.Section)
	var rest []note.Section
	for _, s := range doc.Sections {
		h := strings.TrimSpace(s.Heading)
		if _, ok := recognized[h]; !ok {
			rest = append(rest, s)
			continue
		}
		existing, ok := grouped[h]
		if !ok {
			copied := s
			grouped[h] = &copied
			continue
		}
		if s.EmptyBody() {
			continue
		}
		if existing.EmptyBody() {
			existing.Body = s.Body
			continue
		}
		existing.Body = strings.TrimRight(existing.Body, "\n") + "\n" + s.Body
	}

	var ordered []note.Section
	for _, h := range canonical {
		if s, ok := grouped[h]; ok {
			ordered = append(ordered, *s)
		}
	}
	doc.Sections = append(ordered, rest...)
	return m.vault.Write(rel, []byte(doc.Render()))
}
