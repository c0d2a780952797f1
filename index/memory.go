package index

import (
	"context"
	"math"
	"sort"
	"sync"

	apperrors "github.com/KNBS-StatsChat/statschat-ke/errors"

	"github.com/google/uuid"
)

// MemoryIndex is a brute-force in-memory fragment index. It serves tests
// and small corpora; production deployments use PGIndex.
type MemoryIndex struct {
	mu        sync.RWMutex
	embed     Embedder
	fragments []Fragment
}

func NewMemoryIndex(embed Embedder) *MemoryIndex {
	return &MemoryIndex{embed: embed}
}

func (m *MemoryIndex) Add(ctx context.Context, fragments []Fragment) error {
	prepared := make([]Fragment, 0, len(fragments))
	for _, frag := range fragments {
		if frag.Key == "" {
			frag.Key = uuid.New().String()
		}
		if frag.Embedding == nil {
			vec, err := m.embed(ctx, frag.Content)
			if err != nil {
				return apperrors.WrapErrorf(err, "embed fragment %s", frag.Key)
			}
			frag.Embedding = vec
		}
		prepared = append(prepared, frag)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = append(m.fragments, prepared...)
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, query string, k int, latestOnly bool) ([]SearchHit, error) {
	m.mu.RLock()
	empty := len(m.fragments) == 0
	m.mu.RUnlock()
	if empty {
		return nil, apperrors.ErrEmptyIndex
	}

	queryVec, err := m.embed(ctx, query)
	if err != nil {
		return nil, apperrors.WrapError(err, "embed query")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]SearchHit, 0, len(m.fragments))
	for _, frag := range m.fragments {
		if latestOnly && !frag.Meta.Latest {
			continue
		}
		hits = append(hits, SearchHit{
			Fragment: frag,
			Distance: euclidean(queryVec, frag.Embedding),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) ListKeys(ctx context.Context) ([]FragmentKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]FragmentKey, 0, len(m.fragments))
	for _, frag := range m.fragments {
		keys = append(keys, FragmentKey{Key: frag.Key, Source: frag.Source})
	}
	return keys, nil
}

func (m *MemoryIndex) DeleteKeys(ctx context.Context, keys []string) error {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.fragments[:0]
	for _, frag := range m.fragments {
		if !drop[frag.Key] {
			kept = append(kept, frag)
		}
	}
	m.fragments = kept
	return nil
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fragments), nil
}

func euclidean(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
