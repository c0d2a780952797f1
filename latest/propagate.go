package latest

import (
	"strings"

	"github.com/KNBS-StatsChat/statschat-ke/docstore"

	"go.uber.org/zap"
)

// DefaultPrefixLength bounds the filename prefix used to locate section
// records. Identifiers are title-derived and can be arbitrarily long; very
// long prefixes risk filesystem path-length limits and glob cost, so only
// the first 60 characters identify a publication's sections.
const DefaultPrefixLength = 60

// Propagator keeps section-level latest flags consistent with their parent
// publications. Failures are per-item: one bad record never aborts the
// rest of the batch.
type Propagator struct {
	prefixLen int
	logger    *zap.Logger
}

func NewPropagator(prefixLen int, logger *zap.Logger) *Propagator {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLength
	}
	return &Propagator{prefixLen: prefixLen, logger: logger}
}

// Unflag sets latest=false on each named publication record, rewriting the
// record with every other field value preserved verbatim.
func (p *Propagator) Unflag(store *docstore.FileStore, names []string) {
	for _, name := range names {
		rec, err := store.ReadRaw(name)
		if err != nil {
			p.logger.Warn("Skipping publication during unflag",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		if _, ok := docstore.LatestFlag(rec); !ok {
			p.logger.Warn("Publication record has no usable latest flag",
				zap.String("name", name))
		}
		docstore.SetLatestFlag(rec, false)
		if err := store.WriteRaw(name, rec); err != nil {
			p.logger.Warn("Failed to rewrite publication during unflag",
				zap.String("name", name),
				zap.Error(err))
		}
	}
}

// UnflagSections sets latest=false on every section record derived from the
// named publications. Sections are located by globbing the split store for
// files beginning with a bounded prefix of the publication filename
// (extension stripped first, then truncated to the prefix length).
func (p *Propagator) UnflagSections(splitStore *docstore.FileStore, names []string) {
	for _, name := range names {
		prefix := SectionPrefix(name, p.prefixLen)
		matches, err := splitStore.GlobNames(prefix + "*.json")
		if err != nil {
			p.logger.Warn("Failed to glob section records",
				zap.String("prefix", prefix),
				zap.Error(err))
			continue
		}
		for _, section := range matches {
			rec, err := splitStore.ReadRaw(section)
			if err != nil {
				p.logger.Warn("Skipping section during unflag",
					zap.String("name", section),
					zap.Error(err))
				continue
			}
			docstore.SetLatestFlag(rec, false)
			if err := splitStore.WriteRaw(section, rec); err != nil {
				p.logger.Warn("Failed to rewrite section during unflag",
					zap.String("name", section),
					zap.Error(err))
			}
		}
	}
}

// SectionPrefix derives the bounded filename prefix identifying a
// publication's section records.
func SectionPrefix(name string, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLength
	}
	base := strings.TrimSuffix(name, ".json")
	if len(base) > prefixLen {
		base = base[:prefixLen]
	}
	return base
}
