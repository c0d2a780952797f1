package ingest

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// Chunker splits section text into overlapping, sentence-aligned chunks
// sized for the embedding model's context window.
type Chunker struct {
	size    int
	overlap int
	logger  *zap.Logger
}

func NewChunker(size, overlap int, logger *zap.Logger) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap, logger: logger}
}

// Chunk splits text into chunks of at most the configured size, breaking on
// sentence boundaries where possible. Consecutive chunks share the trailing
// sentences of the previous chunk up to the overlap budget. A single
// sentence longer than the chunk size becomes its own oversized chunk.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		c.logger.Warn("Sentence segmentation failed, chunking at character boundaries", zap.Error(err))
		return c.chunkByRunes(text)
	}
	sentences := doc.Sentences()
	if len(sentences) == 0 {
		return c.chunkByRunes(text)
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, s := range sentences {
		sent := strings.TrimSpace(s.Text)
		if sent == "" {
			continue
		}
		if currentLen > 0 && currentLen+1+len(sent) > c.size {
			chunks = append(chunks, strings.Join(current, " "))
			current, currentLen = c.carryOverlap(current)
		}
		current = append(current, sent)
		if currentLen > 0 {
			currentLen++
		}
		currentLen += len(sent)
	}
	if currentLen > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// carryOverlap keeps the trailing sentences of a finished chunk, newest
// first, until the overlap budget is spent.
func (c *Chunker) carryOverlap(sentences []string) ([]string, int) {
	if c.overlap == 0 {
		return nil, 0
	}
	kept := 0
	total := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		n := len(sentences[i])
		if total > 0 {
			n++
		}
		if total+n > c.overlap {
			break
		}
		total += n
		kept++
	}
	if kept == 0 {
		return nil, 0
	}
	carried := make([]string, kept)
	copy(carried, sentences[len(sentences)-kept:])
	return carried, total
}

func (c *Chunker) chunkByRunes(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
