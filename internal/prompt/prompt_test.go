package prompt

import (
	"strings"
	"testing"
)

func TestSummarizeWithinBudget(t *testing.T) {
	b := NewBuilder("system", 4000)
	content := strings.Repeat("a", 3000)
	req := b.Summarize("Note", content)
	if req.System != "system" {
		t.Errorf("System = %q", req.System)
	}
	if !strings.Contains(req.User, content) {
		t.Error("content within budget should be kept whole")
	}
	if strings.Contains(req.User, "elided") {
		t.Error("no elision expected within budget")
	}
}

func TestSummarizeTruncatesLargeNote(t *testing.T) {
	b := NewBuilder("system", 4000)
	head := "HEAD-MARKER " + strings.Repeat("x", 100) + "\n"
	tail := "\nTAIL-MARKER " + strings.Repeat("y", 100)
	content := head + strings.Repeat("middle filler\n", 500) + tail

	req := b.Summarize("Big", content)
	if !strings.Contains(req.User, "characters elided") {
		t.Fatal("expected elision marker")
	}
	if !strings.Contains(req.User, "HEAD-MARKER") {
		t.Error("head span lost")
	}
	if !strings.Contains(req.User, "TAIL-MARKER") {
		t.Error("tail span lost")
	}
	if len(req.User) > 4000 {
		t.Errorf("user content %d chars exceeds budget", len(req.User))
	}
}

func TestConnectionsTruncatesOnlyLongest(t *testing.T) {
	b := NewBuilder("system", 4000)
	short := strings.Repeat("s", 500)
	long := strings.Repeat("l", 6000)

	req := b.Connections("Short", short, "Long", long)
	if !strings.Contains(req.User, short) {
		t.Error("shorter note should be kept whole")
	}
	if !strings.Contains(req.User, "characters elided") {
		t.Error("longer note should be elided")
	}
	if !strings.Contains(req.User, "--- First note (Short) ---") ||
		!strings.Contains(req.User, "--- Second note (Long) ---") {
		t.Error("note delimiters missing")
	}
}

func TestConnectionsBothFitUntouched(t *testing.T) {
	b := NewBuilder("system", 4000)
	first := strings.Repeat("f", 3000)
	second := strings.Repeat("g", 500)

	req := b.Connections("A", first, "B", second)
	if !strings.Contains(req.User, first) || !strings.Contains(req.User, second) {
		t.Error("both notes fit the budget and must appear whole")
	}
}

func TestQueryIncludesQuestion(t *testing.T) {
	b := NewBuilder("system", 4000)
	req := b.Query("Note", "what is this about?", "content")
	if !strings.Contains(req.User, "what is this about?") {
		t.Error("question missing from prompt")
	}
	if !strings.Contains(req.User, "content") {
		t.Error("content missing from prompt")
	}
}

func TestTruncateMiddleShortInput(t *testing.T) {
	if got := truncateMiddle("short", 100); got != "short" {
		t.Errorf("got %q", got)
	}
}
