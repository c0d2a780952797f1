package generative

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LlmResponse is the structured schema the synthesis model must return.
// Highlighting1 holds spans for the best-ranked document, 2 and 3 for the
// next two.
type LlmResponse struct {
	AnswerProvided   bool     `json:"answer_provided"`
	MostLikelyAnswer string   `json:"most_likely_answer"`
	Highlighting1    []string `json:"highlighting1"`
	Highlighting2    []string `json:"highlighting2"`
	Highlighting3    []string `json:"highlighting3"`
	Reasoning        string   `json:"reasoning,omitempty"`
}

// NoAnswer builds a well-formed response declaring that no answer was
// found, with diagnostic text in the reasoning field.
func NoAnswer(reasoning string) LlmResponse {
	return LlmResponse{
		AnswerProvided: false,
		Highlighting1:  []string{},
		Highlighting2:  []string{},
		Highlighting3:  []string{},
		Reasoning:      reasoning,
	}
}

// ParseResponse decodes raw model output into the response schema. Models
// wrap the JSON object in prose or code fences often enough that only the
// outermost braces are considered. Failure never propagates: it is
// recovered into a no-answer response whose reasoning records the error
// and the raw payload.
func ParseResponse(raw string) LlmResponse {
	payload := extractJSONObject(raw)

	var resp LlmResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return NoAnswer(fmt.Sprintf("cannot parse response: %v\n\nresponse: %s", err, raw))
	}
	if resp.Highlighting1 == nil {
		resp.Highlighting1 = []string{}
	}
	if resp.Highlighting2 == nil {
		resp.Highlighting2 = []string{}
	}
	if resp.Highlighting3 == nil {
		resp.Highlighting3 = []string{}
	}
	return resp
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
