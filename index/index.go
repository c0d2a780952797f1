// Package index stores and searches embedded bulletin fragments.
package index

import (
	"context"
)

// Embedder turns text into an embedding vector.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// Metadata is the section metadata duplicated onto every indexed fragment
// so search hits are self-describing.
type Metadata struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	URL        string `json:"url"`
	PageURL    string `json:"page_url,omitempty"`
	PageNumber int    `json:"page_number"`
	Latest     bool   `json:"latest"`
	Theme      string `json:"theme,omitempty"`
}

// Fragment is the unit stored in the index: a content excerpt, its
// embedding and the metadata of the section it was chunked from. Key is
// opaque and stable for the lifetime of the index; Source records the
// section file the fragment came from and is what the locator matches
// against.
type Fragment struct {
	Key       string
	ParentID  string
	Source    string
	Content   string
	Meta      Metadata
	Embedding []float32
}

// FragmentKey pairs a stored key with its source metadata, for fragment
// location without pulling full contents.
type FragmentKey struct {
	Key    string
	Source string
}

// SearchHit is one nearest-neighbour result. Distance ascends: nearer is
// smaller, and scores stay distances through the whole query pipeline.
type SearchHit struct {
	Fragment Fragment
	Distance float64
}

// Searcher is the similarity-search collaborator used on the query path.
// Searching an empty index is a setup defect and returns a hard error.
type Searcher interface {
	Search(ctx context.Context, query string, k int, latestOnly bool) ([]SearchHit, error)
}

// KeyLister exposes all stored fragment keys.
type KeyLister interface {
	ListKeys(ctx context.Context) ([]FragmentKey, error)
}

// Index is the full fragment index contract: query-path search plus the
// maintenance operations. DeleteKeys is idempotent to repeated keys.
type Index interface {
	Searcher
	KeyLister
	Add(ctx context.Context, fragments []Fragment) error
	DeleteKeys(ctx context.Context, keys []string) error
	Count(ctx context.Context) (int, error)
}
