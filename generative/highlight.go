package generative

import (
	"strings"

	"go.uber.org/zap"
)

// Highlight annotates the top candidates with the spans the synthesis
// model reported for them. Spans the model invented (not present in the
// document text) are dropped rather than shown.
func Highlight(candidates []Candidate, resp LlmResponse, logger *zap.Logger) []Candidate {
	spanLists := [][]string{resp.Highlighting1, resp.Highlighting2, resp.Highlighting3}
	for i := 0; i < len(candidates) && i < len(spanLists); i++ {
		for _, span := range spanLists[i] {
			span = strings.TrimSpace(span)
			if span == "" {
				continue
			}
			if strings.Contains(candidates[i].Content, span) {
				candidates[i].Highlighting = append(candidates[i].Highlighting, span)
			} else {
				logger.Debug("Highlight span not found in document text",
					zap.String("title", candidates[i].Title),
					zap.String("span", span))
			}
		}
	}
	return candidates
}
