// Package vault provides rooted access to the Markdown note tree.
// All paths are relative to the vault root; anything resolving outside the
// root or under an excluded folder is invisible to the engine.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/checksum"
)

// NoteMeta is a lightweight description of a vault file.
type NoteMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vault is the file-system view of the note tree.
type Vault struct {
	root     string // absolute path to the vault directory
	excluded map[string]struct{}
}

// New creates a Vault rooted at the given directory, which must exist.
// Files under any of the excluded folder names are hidden at every stage.
func New(root string, excluded []string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	ex := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		e = strings.Trim(strings.TrimSpace(e), "/")
		if e != "" {
			ex[e] = struct{}{}
		}
	}
	return &Vault{root: abs, excluded: ex}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string { return v.root }

// Rel converts an absolute path inside the vault to a root-relative one.
func (v *Vault) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("vault: path outside vault: %s", abs)
	}
	return filepath.ToSlash(rel), nil
}

// Excluded reports whether any segment of the relative path names an
// excluded folder.
func (v *Vault) Excluded(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ok := v.excluded[seg]; ok {
			return true
		}
	}
	return false
}

// safePath resolves a relative path against the vault root and rejects any
// result that escapes it (directory traversal).
func (v *Vault) safePath(rel string) (string, error) {
	if rel == "" {
		return v.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(v.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, v.root+string(os.PathSeparator)) && abs != v.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// Exists reports whether a regular file exists at the relative path.
func (v *Vault) Exists(rel string) bool {
	abs, err := v.safePath(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Read returns the raw bytes of a vault file. Excluded paths read as
// non-existent.
func (v *Vault) Read(rel string) ([]byte, error) {
	if v.Excluded(rel) {
		return nil, fmt.Errorf("vault: read %s: %w", rel, os.ErrNotExist)
	}
	abs, err := v.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically writes content: temp file → fsync → rename. On failure
// the previous file content is left intact. Writes into excluded folders
// are rejected.
func (v *Vault) Write(rel string, content []byte) error {
	if v.Excluded(rel) {
		return fmt.Errorf("vault: write to excluded path: %s", rel)
	}
	abs, err := v.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sb-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// List walks dir (relative to root) and returns metadata for every .md
// file that is not hidden by exclusion rules.
func (v *Vault) List(dir string) ([]NoteMeta, error) {
	base, err := v.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []NoteMeta
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := v.Rel(p)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if v.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") || v.Excluded(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, NoteMeta{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	return out, nil
}

// FindNotes returns the relative paths of notes whose filename matches the
// query. Matching is flexible: exact (case and separator insensitive),
// substring, or acronym of the query words.
func (v *Vault) FindNotes(query string) ([]string, error) {
	want := normalizeName(query)
	// Acronym matching only kicks in for multi-word queries; a single
	// leading letter would match nearly everything.
	acronym := ""
	if words := strings.Fields(query); len(words) > 1 {
		for _, word := range words {
			acronym += strings.ToLower(word[:1])
		}
	}

	metas, err := v.List("")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range metas {
		name := normalizeName(strings.TrimSuffix(filepath.Base(m.Path), ".md"))
		switch {
		case want != "" && (name == want || strings.Contains(name, want)):
			out = append(out, m.Path)
		case acronym != "" && strings.Contains(name, acronym):
			out = append(out, m.Path)
		}
	}
	return out, nil
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	for _, r := range []string{" ", "-", "_"} {
		s = strings.ReplaceAll(s, r, "")
	}
	return s
}
