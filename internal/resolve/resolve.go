// Package resolve performs identity resolution: it partitions
// normalized source records into canonical papers and credited
// mentions into canonical authors. Resolution is deterministic for a
// given input set and never consults the network.
package resolve

import (
	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
)

// Options tunes resolution. The zero value selects defaults.
type Options struct {
	// TitleThreshold is the minimum token-set Jaccard similarity for a
	// non-exact title match. Zero means DefaultTitleThreshold.
	TitleThreshold float64
}

// Result is the output of one resolution pass. Papers carry credits
// and provenance but no citation keys yet.
type Result struct {
	Papers   []*catalog.Paper
	Authors  []*catalog.Author
	Warnings []catalog.Warning
}

// Resolve merges records into canonical papers and authors. Authors
// from a previous snapshot keep their slugs: a prior author is matched
// by name compatibility and wins over creating a new identity.
func Resolve(recs []normalize.Record, prior []*catalog.Author, opts Options) Result {
	threshold := opts.TitleThreshold
	if threshold == 0 {
		threshold = DefaultTitleThreshold
	}

	var res Result

	groups, warnings := clusterPapers(recs, threshold)
	res.Warnings = append(res.Warnings, warnings...)

	mergedPapers := make([]merged, 0, len(groups))
	for _, g := range groups {
		m, w := mergePaper(g)
		res.Warnings = append(res.Warnings, w...)
		mergedPapers = append(mergedPapers, m)
	}

	authors, warnings := clusterAuthors(mergedPapers, prior)
	res.Warnings = append(res.Warnings, warnings...)
	res.Authors = authors

	for _, m := range mergedPapers {
		res.Papers = append(res.Papers, m.Paper)
	}
	return res
}
