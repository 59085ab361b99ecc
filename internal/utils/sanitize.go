// internal/utils/sanitize.go
package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textSanitizer = bluemonday.StrictPolicy()

// SanitizeText strips every tag from free text supplied by users (notes,
// reasons, descriptions) and returns plain text.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textSanitizer.Sanitize(s)))
}

// SanitizeStrings applies SanitizeText to every element and drops empties.
func SanitizeStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if clean := SanitizeText(s); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
