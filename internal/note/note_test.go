package note

import "testing"

func TestParseFrontmatterTitle(t *testing.T) {
	data := []byte("---\ntitle: My Note\ntags: [a, b]\n---\n# Heading\nBody text\n")
	p := Parse(data)
	if p.Title != "My Note" {
		t.Errorf("Title = %q, want %q", p.Title, "My Note")
	}
	if p.Frontmatter["title"] != "My Note" {
		t.Errorf("frontmatter title missing: %v", p.Frontmatter)
	}
	if p.Body != "# Heading\nBody text\n" {
		t.Errorf("Body = %q", p.Body)
	}
}

func TestParseH1Title(t *testing.T) {
	p := Parse([]byte("# From Heading\n\nContent\n"))
	if p.Title != "From Heading" {
		t.Errorf("Title = %q", p.Title)
	}
}

func TestParseInvalidFrontmatter(t *testing.T) {
	data := []byte("---\n[invalid\n---\nBody\n")
	p := Parse(data)
	if len(p.Frontmatter) != 0 {
		t.Errorf("expected no frontmatter, got %v", p.Frontmatter)
	}
	// Invalid frontmatter is treated as body content.
	if p.Body == "Body\n" {
		t.Error("invalid frontmatter should not be stripped from body")
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	p := Parse([]byte("plain content\n"))
	if p.Title != "" {
		t.Errorf("Title = %q, want empty", p.Title)
	}
	if p.Body != "plain content\n" {
		t.Errorf("Body = %q", p.Body)
	}
}
