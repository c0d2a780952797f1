package generative

import (
	"math"
	"sort"
	"time"
)

const hoursPerYear = 24 * 365.25

// Deduplicate drops candidates that share both title and date, keeping the
// first occurrence. Raw search results routinely contain several chunks of
// the same section; one is enough for synthesis.
func Deduplicate(candidates []Candidate) []Candidate {
	type dedupeKey struct {
		title string
		date  string
	}
	seen := make(map[dedupeKey]bool, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := dedupeKey{title: c.Title, date: c.Date}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// TimeDecay computes the recency decay factor for a document date. The
// factor is 1 at age zero for any weight, non-decreasing in age when the
// weight is positive, and exactly 1 for any age when the weight is zero,
// so re-ranking is a no-op with recency weighting disabled. Unparseable
// dates decay by 1 rather than failing the query.
func TimeDecay(date string, weight float64, now time.Time) float64 {
	if weight <= 0 {
		return 1
	}
	t, err := ParseDate(date)
	if err != nil {
		return 1
	}
	ageYears := now.Sub(t).Hours() / hoursPerYear
	if ageYears < 0 {
		ageYears = 0
	}
	return 1 + weight*ageYears
}

// Rerank deduplicates raw search results by (title, date), divides each
// similarity distance by its recency decay factor, re-sorts ascending and
// rounds scores to 2 decimal places for display stability. Scores stay
// distances throughout: lower is better, and there is no similarity sign
// flip anywhere in the pipeline.
func Rerank(candidates []Candidate, weight float64, now time.Time) []Candidate {
	out := Deduplicate(candidates)
	for i := range out {
		out[i].Score = out[i].Score / TimeDecay(out[i].Date, weight, now)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	for i := range out {
		out[i].Score = math.Round(out[i].Score*100) / 100
	}
	return out
}
