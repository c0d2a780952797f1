package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/KNBS-StatsChat/statschat-ke/config"
	"github.com/KNBS-StatsChat/statschat-ke/docstore"
	"github.com/KNBS-StatsChat/statschat-ke/index"
	"github.com/KNBS-StatsChat/statschat-ke/latest"

	"go.uber.org/zap"
)

// urlDictName is the download ledger kept next to the PDFs, mapping report
// page URLs to the files fetched from them.
const urlDictName = "url_dict.json"

// Updater folds a staged update batch into the permanent stores and the
// vector index. A batch is staged by the scraper into the inbound, staged
// split and staged PDF directories; Run matches it against the current
// latest set, demotes superseded publications everywhere, merges the staged
// files into place and indexes the new sections.
//
// Runs are serialized: the watcher may fire while a run is in flight.
type Updater struct {
	mu sync.Mutex

	cfg            *config.Config
	bulletins      *docstore.FileStore
	sections       *docstore.FileStore
	inbound        *docstore.FileStore
	stagedSections *docstore.FileStore
	matcher        latest.Matcher
	prop           *latest.Propagator
	indexer        *Indexer
	idx            index.Index
	logger         *zap.Logger
}

func NewUpdater(cfg *config.Config, idx index.Index, logger *zap.Logger) *Updater {
	chunker := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, logger)
	return &Updater{
		cfg:            cfg,
		bulletins:      docstore.NewFileStore(cfg.BulletinDir, logger),
		sections:       docstore.NewFileStore(cfg.SplitDir, logger),
		inbound:        docstore.NewFileStore(cfg.InboundDir, logger),
		stagedSections: docstore.NewFileStore(cfg.LatestSplitDir, logger),
		matcher:        latest.NewFuzzyMatcher(cfg.FuzzyMatchThreshold),
		prop:           latest.NewPropagator(cfg.SectionPrefixLength, logger),
		indexer:        NewIndexer(chunker, idx, logger),
		idx:            idx,
		logger:         logger,
	}
}

// Run processes the staged batch end to end. An empty inbound directory is
// a no-op.
func (u *Updater) Run(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	inboundNames, err := u.inbound.ListNames()
	if err != nil {
		return err
	}
	if len(inboundNames) == 0 {
		u.logger.Debug("No staged publications, skipping update run")
		return nil
	}

	existing, err := latest.FindLatest(u.bulletins, u.logger)
	if err != nil {
		return err
	}

	newLatest, superseded := latest.MatchInbound(u.matcher, existing, inboundNames)
	u.logger.Info("Matched staged batch against latest publications",
		zap.Int("inbound", len(inboundNames)),
		zap.Strings("new_latest", newLatest),
		zap.Strings("superseded", superseded))

	u.prop.Unflag(u.bulletins, superseded)
	u.prop.UnflagSections(u.sections, superseded)

	if err := u.PruneIndex(ctx, superseded); err != nil {
		return err
	}
	// Superseded sections stay searchable, now carrying latest=false.
	for _, name := range superseded {
		prefix := latest.SectionPrefix(name, u.cfg.SectionPrefixLength)
		sectionNames, err := u.sections.GlobNames(prefix + "*.json")
		if err != nil {
			u.logger.Warn("Failed to relocate superseded sections",
				zap.String("prefix", prefix),
				zap.Error(err))
			continue
		}
		if _, err := u.indexer.IndexNames(ctx, u.sections, sectionNames); err != nil {
			return err
		}
	}

	mergedSections, err := u.mergeStaged()
	if err != nil {
		return err
	}
	if _, err := u.indexer.IndexNames(ctx, u.sections, mergedSections); err != nil {
		return err
	}

	u.logger.Info("Update run complete",
		zap.Int("publications", len(inboundNames)),
		zap.Int("sections", len(mergedSections)))
	return nil
}

// PruneIndex removes from the index every fragment derived from the named
// publications. Key location goes through the same bounded-prefix rule the
// section stores use.
func (u *Updater) PruneIndex(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	keys, err := latest.FindFragmentKeys(ctx, u.idx, names, u.cfg.SectionPrefixLength)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	u.logger.Info("Pruning fragments of superseded publications",
		zap.Int("publications", len(names)),
		zap.Int("fragments", len(keys)))
	return u.idx.DeleteKeys(ctx, keys)
}

// mergeStaged moves the staged batch into the permanent locations: inbound
// publications into the bulletin store, staged sections into the split
// store, staged PDFs alongside the existing PDFs. The staged download
// ledger is folded into the permanent one add-only and deleted. Returns the
// names of the merged section records.
func (u *Updater) mergeStaged() ([]string, error) {
	if _, err := moveMatching(u.inbound.Dir(), u.bulletins.Dir(), "*.json", u.logger); err != nil {
		return nil, err
	}
	sections, err := moveMatching(u.stagedSections.Dir(), u.sections.Dir(), "*.json", u.logger)
	if err != nil {
		return nil, err
	}
	if _, err := moveMatching(u.cfg.LatestPDFDir, u.cfg.PDFDir, "*.pdf", u.logger); err != nil {
		return nil, err
	}
	if err := u.mergeURLDict(); err != nil {
		return nil, err
	}
	return sections, nil
}

// mergeURLDict folds the staged download ledger into the permanent one.
// Existing entries win; the merge never rewrites history. The staged ledger
// is removed afterwards so a rerun cannot re-merge it.
func (u *Updater) mergeURLDict() error {
	stagedPath := filepath.Join(u.cfg.LatestPDFDir, urlDictName)
	staged, err := readURLDict(stagedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	permPath := filepath.Join(u.cfg.PDFDir, urlDictName)
	perm, err := readURLDict(permPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		perm = map[string]string{}
	}

	for k, v := range staged {
		if _, ok := perm[k]; !ok {
			perm[k] = v
		}
	}

	data, err := json.MarshalIndent(perm, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(permPath, data, 0o644); err != nil {
		return err
	}
	return os.Remove(stagedPath)
}

func readURLDict(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dict map[string]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, err
	}
	return dict, nil
}

// moveMatching relocates files matching pattern from src to dst, creating
// dst as needed. Individual move failures are logged and skipped so one bad
// file never wedges a batch. Returns the basenames moved.
func moveMatching(src, dst, pattern string, logger *zap.Logger) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(src, pattern))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}
	moved := make([]string, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if err := os.Rename(p, filepath.Join(dst, name)); err != nil {
			logger.Warn("Failed to move staged file",
				zap.String("file", p),
				zap.Error(err))
			continue
		}
		moved = append(moved, name)
	}
	return moved, nil
}
