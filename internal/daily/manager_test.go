package daily

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/secondbrain/internal/vault"
)

func testManager(t *testing.T, cfg Config) (*Manager, *vault.Vault) {
	t.Helper()
	v, err := vault.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(v, cfg, logger), v
}

func defaultCfg() Config {
	return Config{
		Enabled:     true,
		Folder:      "Daily logs",
		FileFormats: []string{"{full_date}.md"},
		DateFormats: map[string]string{"full_date": "2006-01-02"},
		Template:    "# {full_date} ({weekday})\n\n## Highlights\n\n## Tasks\n\n## Notes\n",
	}
}

func TestResolveFirstPatternWhenAbsent(t *testing.T) {
	m, _ := testManager(t, defaultCfg())
	rel, exists, err := m.Resolve(monday)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if exists {
		t.Error("note should not exist yet")
	}
	if rel != "Daily logs/2025-04-28.md" {
		t.Errorf("rel = %q", rel)
	}
}

func TestResolvePrefersExistingPattern(t *testing.T) {
	cfg := defaultCfg()
	cfg.FileFormats = []string{"{full_date}.md", "{day}-{month_num}-{year}.md"}
	m, v := testManager(t, cfg)

	// Only the second pattern's file exists.
	if err := v.Write("Daily logs/28-04-2025.md", []byte("# day")); err != nil {
		t.Fatal(err)
	}
	rel, exists, err := m.Resolve(monday)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !exists || rel != "Daily logs/28-04-2025.md" {
		t.Errorf("rel = %q exists = %v", rel, exists)
	}
}

func TestEnsureIdempotent(t *testing.T) {
	m, v := testManager(t, defaultCfg())

	rel, created, err := m.Ensure(monday)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !created {
		t.Error("first Ensure should create")
	}
	data, err := v.Read(rel)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# 2025-04-28 (Monday)") {
		t.Errorf("template not substituted: %q", data)
	}

	// User edits survive a second Ensure.
	edited := string(data) + "\nuser content\n"
	if err := v.Write(rel, []byte(edited)); err != nil {
		t.Fatal(err)
	}
	rel2, created2, err := m.Ensure(monday)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if created2 || rel2 != rel {
		t.Errorf("second Ensure created = %v rel = %q", created2, rel2)
	}
	after, _ := v.Read(rel)
	if string(after) != edited {
		t.Error("Ensure overwrote an existing note")
	}
}

func TestMatch(t *testing.T) {
	m, _ := testManager(t, defaultCfg())

	date, ok := m.Match("Daily logs/2025-04-28.md")
	if !ok || !date.Equal(monday) {
		t.Errorf("Match = %v, %v", date, ok)
	}
	// Same filename outside the daily folder is ordinary.
	if _, ok := m.Match("topics/2025-04-28.md"); ok {
		t.Error("path outside daily folder should not match")
	}
	if _, ok := m.Match("Daily logs/notes.md"); ok {
		t.Error("non-date filename should not match")
	}
}

func TestMatchDisabled(t *testing.T) {
	cfg := defaultCfg()
	cfg.Enabled = false
	m, _ := testManager(t, cfg)
	if _, ok := m.Match("Daily logs/2025-04-28.md"); ok {
		t.Error("disabled manager should never match")
	}
}

func TestRefreshAppendsMissingSections(t *testing.T) {
	m, v := testManager(t, defaultCfg())

	content := "# 2025-04-28 (Monday)\n\n## Highlights\n- shipped\n"
	if err := v.Write("Daily logs/2025-04-28.md", []byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := m.Refresh("Daily logs/2025-04-28.md", monday); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after, _ := v.Read("Daily logs/2025-04-28.md")
	got := string(after)

	if !strings.Contains(got, "- shipped") {
		t.Error("user content lost")
	}
	tasksAt := strings.Index(got, "## Tasks")
	notesAt := strings.Index(got, "## Notes")
	if tasksAt < 0 || notesAt < 0 || tasksAt > notesAt {
		t.Errorf("missing sections not appended in template order:\n%s", got)
	}

	// Second Refresh changes nothing.
	if err := m.Refresh("Daily logs/2025-04-28.md", monday); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	again, _ := v.Read("Daily logs/2025-04-28.md")
	if string(again) != got {
		t.Errorf("Refresh not idempotent:\nfirst  %q\nsecond %q", got, again)
	}
}

func TestRestructureReordersAndMerges(t *testing.T) {
	m, v := testManager(t, defaultCfg())

	content := "# 2025-04-28 (Monday)\n\n## Notes\nnote text\n\n## Custom\ncustom text\n\n## Highlights\n- win\n\n## Notes\nmore notes\n"
	if err := v.Write("Daily logs/2025-04-28.md", []byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := m.Restructure("Daily logs/2025-04-28.md", monday); err != nil {
		t.Fatalf("Restructure: %v", err)
	}
	after, _ := v.Read("Daily logs/2025-04-28.md")
	got := string(after)

	hi := strings.Index(got, "## Highlights")
	no := strings.Index(got, "## Notes")
	cu := strings.Index(got, "## Custom")
	if hi < 0 || no < 0 || cu < 0 {
		t.Fatalf("sections missing:\n%s", got)
	}
	if !(hi < no && no < cu) {
		t.Errorf("order wrong (recognized first, template order):\n%s", got)
	}
	if strings.Count(got, "## Notes") != 1 {
		t.Errorf("duplicate Notes sections not merged:\n%s", got)
	}
	if !strings.Contains(got, "note text") || !strings.Contains(got, "more notes") {
		t.Errorf("merged body lost content:\n%s", got)
	}
}

func TestDisabledOperations(t *testing.T) {
	cfg := defaultCfg()
	cfg.Enabled = false
	m, _ := testManager(t, cfg)

	if _, _, err := m.Resolve(time.Now()); err == nil {
		t.Error("Resolve should fail when disabled")
	}
	if _, _, err := m.Ensure(time.Now()); err == nil {
		t.Error("Ensure should fail when disabled")
	}
}
