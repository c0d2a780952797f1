package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/KNBS-StatsChat/statschat-ke/docstore"
	"github.com/KNBS-StatsChat/statschat-ke/index"

	"go.uber.org/zap"
)

// addBatchSize bounds how many fragments go into one index write.
const addBatchSize = 64

// Indexer loads section records, chunks their text and feeds the resulting
// fragments into the vector index. Embeddings are computed by the index
// itself on insert.
type Indexer struct {
	chunker *Chunker
	idx     index.Index
	logger  *zap.Logger
}

func NewIndexer(chunker *Chunker, idx index.Index, logger *zap.Logger) *Indexer {
	return &Indexer{chunker: chunker, idx: idx, logger: logger}
}

// IndexAll indexes every section record in the split store.
func (ix *Indexer) IndexAll(ctx context.Context, store *docstore.FileStore) (int, error) {
	names, err := store.ListNames()
	if err != nil {
		return 0, err
	}
	return ix.IndexNames(ctx, store, names)
}

// IndexNames indexes the named section records. Malformed records are
// logged and skipped. Returns the number of fragments added.
func (ix *Indexer) IndexNames(ctx context.Context, store *docstore.FileStore, names []string) (int, error) {
	var batch []index.Fragment
	added := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.idx.Add(ctx, batch); err != nil {
			return err
		}
		added += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, name := range names {
		rec, err := store.LoadSection(name)
		if err != nil {
			ix.logger.Warn("Skipping section record during indexing",
				zap.String("name", name),
				zap.Error(err))
			continue
		}

		source := filepath.Join(store.Dir(), name)
		meta := index.Metadata{
			Title:      rec.Title,
			Date:       displayDate(rec.ReleaseDate),
			URL:        rec.URL,
			PageURL:    rec.PageURL,
			PageNumber: rec.PageNumber,
			Latest:     rec.Latest,
			Theme:      rec.Theme,
		}
		for _, chunk := range ix.chunker.Chunk(rec.PageText) {
			batch = append(batch, index.Fragment{
				ParentID: rec.ID,
				Source:   source,
				Content:  chunk,
				Meta:     meta,
			})
			if len(batch) == addBatchSize {
				if err := flush(); err != nil {
					return added, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return added, err
	}

	ix.logger.Info("Indexed section records",
		zap.Int("records", len(names)),
		zap.Int("fragments", added))
	return added, nil
}

// displayDate renders an ISO release date in the human form the query
// pipeline parses. Unparseable dates pass through unchanged.
func displayDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02 January 2006")
}
