package daily

import (
	"fmt"
	"strings"
	"time"
)

// builtinLayouts are {token} placeholders always available in filename
// patterns and templates, mapped to Go reference layouts.
var builtinLayouts = map[string]string{
	"full_date":       "2006-01-02",
	"day":             "02",
	"year":            "2006",
	"month_num":       "01",
	"month_name_full": "January",
	"month_name_short": "Jan",
	"weekday":         "Monday",
}

// computedTokens have no parseable layout and are substituted by function.
var computedTokens = map[string]func(time.Time) string{
	"day_of_year":  func(t time.Time) string { return fmt.Sprintf("%03d", t.YearDay()) },
	"week_of_year": func(t time.Time) string { _, w := t.ISOWeek(); return fmt.Sprintf("%02d", w) },
}

// Formatter substitutes {token} placeholders with date-derived values.
// Configured layouts override the built-ins for the same token name.
type Formatter struct {
	layouts map[string]string
}

// NewFormatter builds a Formatter from configured token layouts.
func NewFormatter(configured map[string]string) *Formatter {
	layouts := make(map[string]string, len(builtinLayouts)+len(configured))
	for k, v := range builtinLayouts {
		layouts[k] = v
	}
	for k, v := range configured {
		layouts[k] = v
	}
	return &Formatter{layouts: layouts}
}

// Format replaces every known {token} in s with its value for date.
// Unknown tokens are left in place.
func (f *Formatter) Format(s string, date time.Time) string {
	for token, layout := range f.layouts {
		s = strings.ReplaceAll(s, "{"+token+"}", date.Format(layout))
	}
	for token, fn := range computedTokens {
		s = strings.ReplaceAll(s, "{"+token+"}", fn(date))
	}
	return s
}

// ParseLayout converts a filename pattern into a Go time layout, or reports
// false when the pattern contains tokens that cannot be parsed back
// (computed tokens or unknown placeholders).
func (f *Formatter) ParseLayout(pattern string) (string, bool) {
	out := pattern
	for token, layout := range f.layouts {
		out = strings.ReplaceAll(out, "{"+token+"}", layout)
	}
	if strings.Contains(out, "{") {
		return "", false
	}
	return out, true
}

// MatchDate attempts to parse a filename against a pattern, returning the
// date it encodes.
func (f *Formatter) MatchDate(pattern, filename string) (time.Time, bool) {
	layout, ok := f.ParseLayout(pattern)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, filename)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
