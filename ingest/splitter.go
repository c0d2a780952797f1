// Package ingest turns scraped bulletins into indexed fragments and keeps
// the on-disk stores and the vector index consistent across update batches.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KNBS-StatsChat/statschat-ke/docstore"

	"go.uber.org/zap"
)

// minSectionTextLen filters out sections whose extracted text is too short
// to carry meaning, typically blank or image-only PDF pages.
const minSectionTextLen = 5

// Splitter explodes publication records into one self-describing JSON file
// per section, duplicating the parent metadata onto each section record.
type Splitter struct {
	logger *zap.Logger
}

func NewSplitter(logger *zap.Logger) *Splitter {
	return &Splitter{logger: logger}
}

// SplitOptions narrows a split run.
type SplitOptions struct {
	// LatestOnly restricts the run to publications flagged latest=true,
	// which is what an update batch needs.
	LatestOnly bool
}

// SplitAll splits every publication in src into section records in dst.
// Malformed publications are logged and skipped; the run continues.
// Returns the number of section records written.
func (s *Splitter) SplitAll(src, dst *docstore.FileStore, opts SplitOptions) (int, error) {
	names, err := src.ListNames()
	if err != nil {
		return 0, err
	}

	written := 0
	for _, name := range names {
		n, err := s.Split(src, dst, name, opts)
		if err != nil {
			s.logger.Warn("Skipping publication during split",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		written += n
	}
	return written, nil
}

// Split explodes a single publication record into section records named
// {basename}_{n}.json. Sections with page_text of five characters or fewer
// are dropped. Field values from the parent round-trip verbatim onto the
// section records.
func (s *Splitter) Split(src, dst *docstore.FileStore, name string, opts SplitOptions) (int, error) {
	rec, err := src.ReadRaw(name)
	if err != nil {
		return 0, err
	}

	if opts.LatestOnly {
		if flag, ok := docstore.LatestFlag(rec); !ok || !flag {
			return 0, nil
		}
	}

	rawContent, ok := rec["content"]
	if !ok {
		return 0, fmt.Errorf("publication %s has no content field", name)
	}
	var sections []docstore.RawRecord
	if err := json.Unmarshal(rawContent, &sections); err != nil {
		return 0, fmt.Errorf("publication %s has malformed content: %w", name, err)
	}

	base := strings.TrimSuffix(name, ".json")
	written := 0
	for i, section := range sections {
		var pageText string
		if raw, ok := section["page_text"]; ok {
			if err := json.Unmarshal(raw, &pageText); err != nil {
				s.logger.Warn("Section has non-string page_text, skipping",
					zap.String("publication", name),
					zap.Int("section", i))
				continue
			}
		}
		if len(pageText) <= minSectionTextLen {
			continue
		}

		out := make(docstore.RawRecord, len(rec)+len(section))
		for k, v := range rec {
			if k == "content" {
				continue
			}
			out[k] = v
		}
		for k, v := range section {
			out[k] = v
		}

		sectionName := fmt.Sprintf("%s_%d.json", base, i)
		if err := dst.WriteRaw(sectionName, out); err != nil {
			return written, err
		}
		written++
	}

	s.logger.Debug("Split publication into sections",
		zap.String("name", name),
		zap.Int("sections", written))
	return written, nil
}
