package note

import "strings"

// Section is a heading-delimited block of note content. Heading is the full
// heading line including its leading # characters; Body is everything up to
// the next heading of any level.
type Section struct {
	Heading string
	Body    string
}

// Document is note content split into a preamble (text before the first
// heading) and an ordered list of sections.
type Document struct {
	Preamble string
	Sections []Section
}

// SplitSections parses content into a Document. Heading matching is a plain
// line-prefix check ("#", "##", ...), the same rule used when merging
// template sections into an existing note.
func SplitSections(content string) *Document {
	doc := &Document{}
	lines := strings.Split(content, "\n")

	var cur *Section
	var buf []string

	// beforeHeading restores the newline that separated the last buffered
	// line from the heading line, so Render round-trips the content.
	flush := func(beforeHeading bool) {
		text := strings.Join(buf, "\n")
		if beforeHeading && len(buf) > 0 {
			text += "\n"
		}
		if cur == nil {
			doc.Preamble = text
		} else {
			cur.Body = text
			doc.Sections = append(doc.Sections, *cur)
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		if isHeading(line) {
			flush(true)
			cur = &Section{Heading: strings.TrimRight(line, " \t")}
			continue
		}
		buf = append(buf, line)
	}
	flush(false)
	return doc
}

// Render reassembles the document into note content.
func (d *Document) Render() string {
	var b strings.Builder
	b.WriteString(d.Preamble)
	for _, s := range d.Sections {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.WriteString(s.Heading)
		b.WriteString("\n")
		b.WriteString(s.Body)
	}
	out := b.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// Find returns the index of the section whose heading equals the given
// heading line (trimmed comparison), or -1.
func (d *Document) Find(heading string) int {
	want := strings.TrimSpace(heading)
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Heading) == want {
			return i
		}
	}
	return -1
}

// Headings returns the trimmed heading lines in document order.
func (d *Document) Headings() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = strings.TrimSpace(s.Heading)
	}
	return out
}

// EmptyBody reports whether a section body holds no visible content.
func (s *Section) EmptyBody() bool {
	return strings.TrimSpace(s.Body) == ""
}

func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	rest := strings.TrimLeft(trimmed, "#")
	return strings.HasPrefix(rest, " ") || rest == ""
}
