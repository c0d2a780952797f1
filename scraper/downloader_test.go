package scraper

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractPDFLinks(t *testing.T) {
	page := `<html><body>
		<a href="/reports/economic-survey-2025.pdf">Economic Survey 2025</a>
		<a href="https://example.org/census.PDF">Census</a>
		<a href="/reports/about.html">About</a>
		<a href="/reports/economic-survey-2025.pdf">Duplicate link</a>
		<a>No href at all</a>
	</body></html>`

	got, err := ExtractPDFLinks(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"/reports/economic-survey-2025.pdf", "https://example.org/census.PDF"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractPDFLinks() = %v, want %v", got, want)
	}
}

func TestExtractPDFLinksNone(t *testing.T) {
	got, err := ExtractPDFLinks(strings.NewReader("<html><body><p>No reports here.</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no links", got)
	}
}

func TestResolveLinks(t *testing.T) {
	got := resolveLinks("https://example.org/all-reports/page/2/", []string{
		"/files/survey.pdf",
		"https://cdn.example.org/census.pdf",
		"relative.pdf",
	})
	want := []string{
		"https://example.org/files/survey.pdf",
		"https://cdn.example.org/census.pdf",
		"https://example.org/all-reports/page/2/relative.pdf",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("resolveLinks() = %v, want %v", got, want)
	}
}

func TestPublicationID(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "plain filename", path: "/tmp/Economic-Survey-2025.pdf", want: "Economic-Survey-2025"},
		{name: "spaces become hyphens", path: "Leading Economic Indicators.pdf", want: "Leading-Economic-Indicators"},
		{name: "no extension", path: "report", want: "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicationID(tt.path); got != tt.want {
				t.Errorf("PublicationID(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
