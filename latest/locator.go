package latest

import (
	"context"
	"strings"

	"github.com/KNBS-StatsChat/statschat-ke/index"
)

// FindFragmentKeys returns the keys of every indexed fragment whose stored
// source metadata contains a bounded prefix of one of the given document
// names. Containment, not equality: the source recorded at chunking time
// may carry directory components or section suffixes around the
// publication identifier. The returned list may contain duplicates; the
// bulk delete it feeds is idempotent to repeats.
func FindFragmentKeys(ctx context.Context, lister index.KeyLister, names []string, prefixLen int) ([]string, error) {
	keys, err := lister.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	matched := []string{}
	for _, name := range names {
		prefix := SectionPrefix(name, prefixLen)
		if prefix == "" {
			continue
		}
		for _, k := range keys {
			if strings.Contains(k.Source, prefix) {
				matched = append(matched, k.Key)
			}
		}
	}
	return matched, nil
}
