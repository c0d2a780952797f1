package format

import (
	"strings"
	"testing"
)

func TestAnswerToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty input", in: "", want: ""},
		{name: "plain text becomes a paragraph", in: "GDP grew by 5.6 per cent.", want: "<p>GDP grew by 5.6 per cent.</p>"},
		{name: "emphasis is rendered", in: "growth was *strong* this year", want: "<em>strong</em>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnswerToHTML(tt.in)
			if !strings.Contains(got, tt.want) {
				t.Errorf("AnswerToHTML(%q) = %q, want it to contain %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnswerToHTMLNormalizesQuotes(t *testing.T) {
	got := AnswerToHTML("“quoted bulletin text”")
	if strings.ContainsAny(got, "“”") {
		t.Errorf("curly quotes survived: %q", got)
	}
}
