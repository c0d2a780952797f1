package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KNBS-StatsChat/statschat-ke/config"
	"github.com/KNBS-StatsChat/statschat-ke/generative"
	"github.com/KNBS-StatsChat/statschat-ke/index"
	"github.com/KNBS-StatsChat/statschat-ke/llmclient"
)

type stubIndex struct{}

func (stubIndex) Search(ctx context.Context, query string, k int, latestOnly bool) ([]index.SearchHit, error) {
	hits := []index.SearchHit{
		{
			Fragment: index.Fragment{
				Content: "GDP grew by 5.6 per cent in 2024.",
				Meta: index.Metadata{
					Title:  "Economic Survey 2025",
					Date:   "06 May 2025",
					URL:    "https://example.org/economic-survey-2025.pdf",
					Latest: true,
				},
			},
			Distance: 0.2,
		},
		{
			Fragment: index.Fragment{
				Content: "GDP grew by 5.0 per cent in 2023.",
				Meta: index.Metadata{
					Title:  "Economic Survey 2024",
					Date:   "07 May 2024",
					URL:    "https://example.org/economic-survey-2024.pdf",
					Latest: false,
				},
			},
			Distance: 0.25,
		},
	}
	if latestOnly {
		return hits[:1], nil
	}
	return hits, nil
}

type stubLLM struct{}

func (stubLLM) Chat(ctx context.Context, messages []llmclient.Message) (string, error) {
	return `{"answer_provided": true, "most_likely_answer": "GDP grew by 5.6 per cent in 2024.", "highlighting1": ["5.6 per cent"]}`, nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		KDocs:               10,
		KContexts:           3,
		SimilarityThreshold: 2.0,
		AnswerThreshold:     0.5,
		DocumentThreshold:   0.9,
		LatestWeight:        1.0,
		LLMRequestTimeout:   5 * time.Second,
	}
	inquirer, err := generative.NewInquirer(cfg, stubIndex{}, stubLLM{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	h := NewQueryHandler(inquirer, cfg, zap.NewNop())
	router.POST("/search", h.Search)
	return router
}

func TestSearchEndpoint(t *testing.T) {
	router := testRouter(t)

	body := `{"question": "how much did GDP grow in 2024?"}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Answer, generative.AnswerPrefix) {
		t.Errorf("Answer = %q, want prefixed quote", resp.Answer)
	}
	if resp.AnswerHTML == "" {
		t.Error("AnswerHTML missing")
	}
	if len(resp.References) != 1 || resp.References[0].Title != "Economic Survey 2025" {
		t.Errorf("References = %+v, want the cited survey", resp.References)
	}
	if len(resp.References) == 1 && len(resp.References[0].Highlighting) != 1 {
		t.Errorf("Highlighting = %v, want the reported span", resp.References[0].Highlighting)
	}
}

func TestSearchEndpointLatestFilterDefault(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name     string
		body     string
		wantRefs int
	}{
		{
			name:     "omitted filter restricts to latest editions",
			body:     `{"question": "how much did GDP grow?"}`,
			wantRefs: 1,
		},
		{
			name:     "explicit off searches the full archive",
			body:     `{"question": "how much did GDP grow?", "latest_filter": "off"}`,
			wantRefs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d (body: %s)", w.Code, w.Body.String())
			}
			var resp SearchResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if len(resp.References) != tt.wantRefs {
				t.Errorf("got %d references, want %d", len(resp.References), tt.wantRefs)
			}
			if tt.wantRefs == 1 && resp.References[0].Title != "Economic Survey 2025" {
				t.Errorf("reference = %q, want only the latest edition", resp.References[0].Title)
			}
		})
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing question", body: `{"latest_filter": "on"}`},
		{name: "empty body", body: ``},
		{name: "malformed json", body: `{"question":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
