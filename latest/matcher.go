package latest

import (
	"path/filepath"
	"strings"

	"github.com/KNBS-StatsChat/statschat-ke/docstore"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"
)

// PlaceholderToken marks dummy fixture files that must never participate in
// series matching. The check is against the filename only, not the path.
const PlaceholderToken = "0000"

// DefaultThreshold is the fuzzy ratio above which two publication filenames
// are considered revisions of the same series. Tunable, not derived: it
// assumes revisions keep a largely stable filename with a different year or
// date token.
const DefaultThreshold = 75

// Matcher scores the similarity of two publication filenames on a 0-100
// scale and carries the match threshold. Injectable so the heuristic can be
// tuned or replaced without touching propagation.
type Matcher interface {
	Ratio(a, b string) int
	Threshold() int
}

// FuzzyMatcher is the default policy: a full-string normalized Levenshtein
// ratio, not token-based. The comparator choice drives the false
// positive/negative rates, so it is pinned here.
type FuzzyMatcher struct {
	threshold int
}

func NewFuzzyMatcher(threshold int) FuzzyMatcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return FuzzyMatcher{threshold: threshold}
}

func (m FuzzyMatcher) Ratio(a, b string) int {
	return fuzzy.Ratio(a, b)
}

func (m FuzzyMatcher) Threshold() int {
	return m.threshold
}

// FindLatest scans the bulletin store and returns the names of all
// publications currently flagged latest=true. Records whose filename
// contains the placeholder token are skipped, as are unreadable records and
// records with no usable latest flag (logged as a data-quality warning and
// treated as not latest).
func FindLatest(store *docstore.FileStore, logger *zap.Logger) ([]string, error) {
	names, err := store.ListNames()
	if err != nil {
		return nil, err
	}

	latest := make([]string, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, PlaceholderToken) {
			continue
		}
		rec, err := store.ReadRaw(name)
		if err != nil {
			logger.Warn("Skipping unreadable publication record",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		flag, ok := docstore.LatestFlag(rec)
		if !ok {
			logger.Warn("Publication record has no usable latest flag, treating as not latest",
				zap.String("name", name))
			continue
		}
		if flag {
			latest = append(latest, name)
		}
	}
	return latest, nil
}

// MatchInbound compares inbound publication names against the currently
// latest set. A pair is a series match when the fuzzy ratio between the two
// basenames is strictly greater than the matcher's threshold. Outputs are
// deduplicated, so a name appears at most once even when the many-to-many
// comparison raises several hits. When two inbound documents both match the
// same prior document, both pairs are reported; tie-breaking is left to the
// caller. An empty inbound set yields empty results.
func MatchInbound(m Matcher, existing, inbound []string) (newLatest, superseded []string) {
	newLatest = []string{}
	superseded = []string{}
	seenNew := make(map[string]bool)
	seenOld := make(map[string]bool)

	for _, in := range inbound {
		inName := filepath.Base(in)
		for _, ex := range existing {
			exName := filepath.Base(ex)
			if m.Ratio(inName, exName) > m.Threshold() {
				if !seenNew[inName] {
					seenNew[inName] = true
					newLatest = append(newLatest, inName)
				}
				if !seenOld[exName] {
					seenOld[exName] = true
					superseded = append(superseded, exName)
				}
			}
		}
	}
	return newLatest, superseded
}
