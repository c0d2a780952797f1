// Package generative runs the query pipeline: similarity search,
// deduplication, recency-weighted re-ranking and structured answer
// synthesis over the fragment index.
package generative

import (
	"time"

	"github.com/KNBS-StatsChat/statschat-ke/index"
)

// DisplayDateLayout is how release dates are presented on candidates,
// e.g. "01 May 2024".
const DisplayDateLayout = "02 January 2006"

// Candidate is an ephemeral re-ranking record: section metadata, its
// similarity distance, and highlight spans once annotated. Constructed
// fresh per query, never persisted.
type Candidate struct {
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	URL          string   `json:"url"`
	PageURL      string   `json:"page_url,omitempty"`
	PageNumber   int      `json:"page_number"`
	Latest       bool     `json:"latest"`
	Source       string   `json:"source"`
	Content      string   `json:"page_content"`
	Score        float64  `json:"score"`
	Highlighting []string `json:"highlighting,omitempty"`
}

func candidateFromHit(hit index.SearchHit) Candidate {
	return Candidate{
		Title:      hit.Fragment.Meta.Title,
		Date:       hit.Fragment.Meta.Date,
		URL:        hit.Fragment.Meta.URL,
		PageURL:    hit.Fragment.Meta.PageURL,
		PageNumber: hit.Fragment.Meta.PageNumber,
		Latest:     hit.Fragment.Meta.Latest,
		Source:     hit.Fragment.ParentID,
		Content:    hit.Fragment.Content,
		Score:      hit.Distance,
	}
}

// ParseDate accepts the display format used on candidates and the ISO
// format used on raw publication records.
func ParseDate(date string) (time.Time, error) {
	if t, err := time.Parse(DisplayDateLayout, date); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", date)
}
