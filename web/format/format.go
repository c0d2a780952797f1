// Package format renders answer text for the API response.
package format

import (
	"strings"

	"github.com/gomarkdown/markdown"
)

// AnswerToHTML renders an answer string as an HTML fragment. Model output
// is markdown-ish at best; curly quotes are normalized first so quoted
// bulletin text displays consistently.
func AnswerToHTML(text string) string {
	if text == "" {
		return ""
	}
	text = strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)

	return strings.TrimSpace(string(markdown.ToHTML([]byte(text), nil, nil)))
}
