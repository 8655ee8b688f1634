// Package prompt assembles chat requests for the language model within a
// configurable character budget.
package prompt

import (
	"fmt"
	"strings"
)

// Operation selects the instruction framing for a request.
type Operation string

// Operations supported by the engine.
const (
	OpSummarize    Operation = "summarize"
	OpQuery        Operation = "query"
	OpConnections  Operation = "analyze-connections"
	OpDailySummary Operation = "daily-summary"
)

// Request is the composed payload handed to the LLM client.
type Request struct {
	System string
	User   string
}

// Builder composes requests from note content. Content exceeding the budget
// is truncated from the middle of the longest note, keeping head and tail
// spans and marking the omission so the model knows content was elided.
type Builder struct {
	system string
	budget int
}

// NewBuilder creates a Builder with the fixed system prompt and a character
// budget for the user content.
func NewBuilder(system string, budget int) *Builder {
	return &Builder{system: system, budget: budget}
}

// Summarize frames a general analysis of a single note.
func (b *Builder) Summarize(name, content string) Request {
	user := fmt.Sprintf("Analyze this note and summarize its key points.\n\nNote: %s\n\nContent:\n%s",
		name, b.fit(content, b.budget-200))
	return Request{System: b.system, User: user}
}

// Query frames a question about a single note.
func (b *Builder) Query(name, question, content string) Request {
	overhead := 200 + len(question)
	user := fmt.Sprintf("Analyze this note and answer the question.\n\nNote: %s\nQuestion: %s\n\nContent:\n%s",
		name, question, b.fit(content, b.budget-overhead))
	return Request{System: b.system, User: user}
}

// DailySummary frames a review of a daily note.
func (b *Builder) DailySummary(name, content string) Request {
	user := fmt.Sprintf("Create a concise summary of this daily note.\n\nNote: %s\n\nContent:\n%s\n\nInclude:\n1. Key accomplishments\n2. Pending tasks\n3. Important insights",
		name, b.fit(content, b.budget-250))
	return Request{System: b.system, User: user}
}

// Connections frames a two-note connection analysis. Both notes appear with
// delimiters labelling which is first and which is second; when the combined
// size exceeds the budget only the longest note is truncated.
func (b *Builder) Connections(firstName, firstContent, secondName, secondContent string) Request {
	const overhead = 300
	allowed := b.budget - overhead
	if len(firstContent)+len(secondContent) > allowed {
		if len(firstContent) >= len(secondContent) {
			firstContent = b.fit(firstContent, allowed-len(secondContent))
		} else {
			secondContent = b.fit(secondContent, allowed-len(firstContent))
		}
	}
	user := fmt.Sprintf(`Analyze connections between these two notes.

--- First note (%s) ---
%s

--- Second note (%s) ---
%s

1. List conceptual overlaps
2. Identify contradictions
3. Suggest synthesis points`,
		firstName, firstContent, secondName, secondContent)
	return Request{System: b.system, User: user}
}

// fit truncates content to at most max characters using middle elision.
func (b *Builder) fit(content string, max int) string {
	if max < 100 {
		max = 100
	}
	return truncateMiddle(content, max)
}

// truncateMiddle removes the middle of s so the result fits max characters,
// keeping roughly equal head and tail spans around an explicit marker.
func truncateMiddle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	elided := len(s) - max
	marker := fmt.Sprintf("\n\n[... %d characters elided ...]\n\n", elided)
	keep := max - len(marker)
	if keep < 2 {
		keep = 2
	}
	head := keep / 2
	tail := keep - head

	// Prefer cutting at line boundaries so the elision does not split words.
	headPart := s[:head]
	if i := strings.LastIndexByte(headPart, '\n'); i > head/2 {
		headPart = headPart[:i]
	}
	tailPart := s[len(s)-tail:]
	if i := strings.IndexByte(tailPart, '\n'); i >= 0 && i < tail/2 {
		tailPart = tailPart[i+1:]
	}
	return headPart + marker + tailPart
}
