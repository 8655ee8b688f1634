// Package watch turns raw file-system notifications into debounced,
// per-note change events for the processing pipeline.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/secondbrain/internal/vault"
)

// Kind is the category of a change event.
type Kind string

// Change kinds forwarded downstream.
const (
	KindCreated  Kind = "created"
	KindModified Kind = "modified"
)

// Event is a single observed change to a markdown note.
type Event struct {
	Path string // vault-relative
	Kind Kind
	Time time.Time
}

// Detector watches the vault tree and forwards filtered change events.
// Excluded folders, non-markdown files, directories, and any configured
// ignore prefixes (the response folder) are dropped at the source.
type Detector struct {
	vault          *vault.Vault
	ignorePrefixes []string
	out            chan<- Event
	logger         *slog.Logger
}

// NewDetector creates a Detector emitting into out.
func NewDetector(v *vault.Vault, ignorePrefixes []string, out chan<- Event, logger *slog.Logger) *Detector {
	prefixes := make([]string, 0, len(ignorePrefixes))
	for _, p := range ignorePrefixes {
		p = strings.Trim(filepath.ToSlash(p), "/")
		if p != "" {
			prefixes = append(prefixes, p+"/")
		}
	}
	return &Detector{vault: v, ignorePrefixes: prefixes, out: out, logger: logger}
}

// Run establishes the recursive watch and forwards events until ctx is
// cancelled. Failure to establish the watch is a configuration error and is
// returned immediately rather than silently disabling detection.
func (d *Detector) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer w.Close()

	if err := d.addDirsRecursive(w, d.vault.Root()); err != nil {
		return fmt.Errorf("watch: watch vault root: %w", err)
	}

	d.logger.Info("watcher started", slog.String("root", d.vault.Root()))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			d.handle(ctx, w, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func (d *Detector) handle(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) {
	absPath := ev.Name

	// New directories are added to the watch list so notes created inside
	// them are seen. Excluded directories stay unwatched.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			rel, relErr := d.vault.Rel(absPath)
			if relErr != nil || d.drop(rel) {
				return
			}
			if addErr := d.addDirsRecursive(w, absPath); addErr != nil {
				d.logger.Warn("watch new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			}
			return
		}
	}

	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !strings.HasSuffix(absPath, ".md") {
		return
	}
	rel, relErr := d.vault.Rel(absPath)
	if relErr != nil || d.drop(rel) {
		return
	}
	// The file may already be gone (editor temp files); never forward
	// events for paths that do not denote a regular file.
	if info, statErr := os.Stat(absPath); statErr != nil || info.IsDir() {
		return
	}

	kind := KindModified
	if ev.Op&fsnotify.Create != 0 {
		kind = KindCreated
	}

	select {
	case d.out <- Event{Path: rel, Kind: kind, Time: time.Now()}:
	case <-ctx.Done():
	}
}

// drop reports whether a vault-relative path is invisible to the engine.
func (d *Detector) drop(rel string) bool {
	if d.vault.Excluded(rel) {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, p := range d.ignorePrefixes {
		if strings.HasPrefix(rel+"/", p) || strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all non-excluded subdirectories to the
// watcher.
func (d *Detector) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != d.vault.Root() {
			rel, relErr := d.vault.Rel(path)
			if relErr != nil {
				return nil
			}
			if d.drop(rel) {
				return filepath.SkipDir
			}
		}
		return w.Add(path)
	})
}
