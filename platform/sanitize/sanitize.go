// Package sanitize strips markup from free-text fields captured from public forms.
// This is part of the platform layer and contains no business logic.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	entityReplacer    = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// Text removes HTML tags, decodes the common entities and collapses runs of
// spaces. Tags are stripped a second time after decoding so encoded markup
// cannot survive.
func Text(s string) string {
	result := tagPattern.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = tagPattern.ReplaceAllString(result, "")
	result = whitespacePattern.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// TextPtr applies Text to an optional value.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// List applies Text to every entry and drops the ones left empty.
func List(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if cleaned := Text(value); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
