package resolve

import (
	"fmt"
	"sort"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
	"github.com/mlanthology/anthology/internal/record"
)

// DefaultTitleThreshold is the token-set Jaccard similarity above which
// two same-venue, same-first-author titles are considered the same
// paper despite not matching exactly.
const DefaultTitleThreshold = 0.90

// mention is one credited author on a merged paper, carrying every raw
// spelling the sources used for that person on that paper.
type mention struct {
	Name     normalize.Mention
	Variants []string
}

// merged is one paper after identity resolution, before citation keys
// and canonical author slugs exist.
type merged struct {
	Paper    *catalog.Paper
	Mentions []mention
}

// entity renders a group of records for warning messages.
func entity(recs []normalize.Record) string {
	r := recs[0]
	return fmt.Sprintf("%s/%s", r.Source, r.SourceID)
}

func sortRecords(recs []normalize.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := record.SourcePriority(recs[i].Source), record.SourcePriority(recs[j].Source)
		if pi != pj {
			return pi < pj
		}
		// Within one source the longer title wins: it usually carries the
		// subtitle the shorter form dropped.
		if len(recs[i].Title) != len(recs[j].Title) {
			return len(recs[i].Title) > len(recs[j].Title)
		}
		return recs[i].SourceID < recs[j].SourceID
	})
}

// sameIdentity reports whether two records plausibly describe one
// paper: same venue, years within one, same first-author family, and
// titles equal in comparison form or similar above the threshold.
func sameIdentity(a, b *normalize.Record, threshold float64) bool {
	if a.Venue != b.Venue {
		return false
	}
	if a.FirstFamilyKey() != b.FirstFamilyKey() {
		return false
	}
	if a.Year != 0 && b.Year != 0 {
		d := a.Year - b.Year
		if d < -1 || d > 1 {
			return false
		}
	} else if a.NormTitle != b.NormTitle {
		// Without both years, only an exact title is trustworthy.
		return false
	}
	if a.NormTitle == b.NormTitle {
		return true
	}
	return normalize.TitleSimilarity(a.NormTitle, b.NormTitle) >= threshold
}

// idConflict reports whether the records carry contradicting external
// identifiers. A conflict vetoes a merge regardless of title evidence.
func idConflict(a, b *normalize.Record) bool {
	if a.DOI != "" && b.DOI != "" && a.DOI != b.DOI {
		return true
	}
	if a.OpenReviewID != "" && b.OpenReviewID != "" && a.OpenReviewID != b.OpenReviewID {
		return true
	}
	if a.ArXivID != "" && b.ArXivID != "" && a.ArXivID != b.ArXivID {
		return true
	}
	return false
}

// clusterPapers partitions records into identity groups. Records are
// blocked on (venue, first-author family key) so only plausible pairs
// are ever compared; matches union transitively, but a group whose
// transitive closure spans contradicting external ids is split back
// apart.
// Splitting prefers under-merging: a wrong split leaves two entries
// for one paper, a wrong merge silently destroys one.
func clusterPapers(recs []normalize.Record, threshold float64) ([][]normalize.Record, []catalog.Warning) {
	sortRecords(recs)

	blocks := make(map[string][]int)
	for i, r := range recs {
		key := r.Venue + "\x00" + r.FirstFamilyKey()
		blocks[key] = append(blocks[key], i)
	}

	var warnings []catalog.Warning
	uf := newUnionFind(len(recs))
	for _, block := range blocks {
		for x := 0; x < len(block); x++ {
			for y := x + 1; y < len(block); y++ {
				a, b := &recs[block[x]], &recs[block[y]]
				if !sameIdentity(a, b, threshold) {
					continue
				}
				if idConflict(a, b) {
					warnings = append(warnings, catalog.Warning{
						Stage:  "resolve",
						Entity: fmt.Sprintf("%s/%s vs %s/%s", a.Source, a.SourceID, b.Source, b.SourceID),
						Detail: "title match vetoed by conflicting external ids",
					})
					continue
				}
				uf.union(block[x], block[y])
			}
		}
	}

	var groups [][]normalize.Record
	for _, ids := range uf.groups() {
		group := make([]normalize.Record, 0, len(ids))
		for _, id := range ids {
			group = append(group, recs[id])
		}
		split, w := splitByIdentifiers(group)
		warnings = append(warnings, w...)
		groups = append(groups, split...)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i][0], groups[j][0]
		if a.Source != b.Source {
			return record.SourcePriority(a.Source) < record.SourcePriority(b.Source)
		}
		return a.SourceID < b.SourceID
	})
	return groups, warnings
}

// identifierKinds lists the external id fields an identity group must
// agree on, most authoritative first.
var identifierKinds = []struct {
	name string
	get  func(*normalize.Record) string
}{
	{"DOIs", func(r *normalize.Record) string { return r.DOI }},
	{"OpenReview ids", func(r *normalize.Record) string { return r.OpenReviewID }},
	{"arXiv ids", func(r *normalize.Record) string { return r.ArXivID }},
}

// splitByIdentifiers audits one transitive group: pairwise vetoes
// cannot stop A-B-C chains where only A and C conflict, so any group
// left spanning more than one DOI, OpenReview id, or arXiv id is
// partitioned by that identifier. Records without the identifier stay
// with the highest-priority record's partition.
func splitByIdentifiers(group []normalize.Record) ([][]normalize.Record, []catalog.Warning) {
	parts := [][]normalize.Record{group}
	var warnings []catalog.Warning
	for _, kind := range identifierKinds {
		var next [][]normalize.Record
		for _, part := range parts {
			split, w := splitByID(part, kind.name, kind.get)
			warnings = append(warnings, w...)
			next = append(next, split...)
		}
		parts = next
	}
	return parts, warnings
}

func splitByID(group []normalize.Record, kind string, get func(*normalize.Record) string) ([][]normalize.Record, []catalog.Warning) {
	ids := make(map[string]bool)
	for i := range group {
		if id := get(&group[i]); id != "" {
			ids[id] = true
		}
	}
	if len(ids) <= 1 {
		return [][]normalize.Record{group}, nil
	}

	anchor := ""
	for i := range group {
		if id := get(&group[i]); id != "" {
			anchor = id
			break
		}
	}

	parts := make(map[string][]normalize.Record)
	var order []string
	for i, r := range group {
		id := get(&group[i])
		if id == "" {
			id = anchor
		}
		if _, ok := parts[id]; !ok {
			order = append(order, id)
		}
		parts[id] = append(parts[id], r)
	}

	out := make([][]normalize.Record, 0, len(order))
	for _, id := range order {
		out = append(out, parts[id])
	}
	warning := catalog.Warning{
		Stage:  "resolve",
		Entity: entity(group),
		Detail: fmt.Sprintf("transitive group spanned %d %s, split apart", len(ids), kind),
	}
	return out, []catalog.Warning{warning}
}

// mergePaper collapses one identity group into a single paper. Field
// conflicts resolve by source priority; the abstract alone prefers the
// longest text over the most trusted source.
func mergePaper(group []normalize.Record) (merged, []catalog.Warning) {
	sortRecords(group)
	best := group[0]

	var warnings []catalog.Warning
	p := &catalog.Paper{
		Title:     best.Title,
		NormTitle: best.NormTitle,
		Venue:     best.Venue,
		VenueName: best.VenueName,
	}

	for _, r := range group {
		p.Sources = append(p.Sources, catalog.Provenance{Source: r.Source, SourceID: r.SourceID})
	}

	p.Year = pickYear(group, &warnings)

	for _, r := range group {
		if p.DOI == "" {
			p.DOI = r.DOI
		}
		if p.ArXivID == "" {
			p.ArXivID = r.ArXivID
		}
		if p.OpenReviewID == "" {
			p.OpenReviewID = r.OpenReviewID
		}
		if p.PDFURL == "" {
			p.PDFURL = r.PDFURL
		}
		if p.VenueURL == "" {
			p.VenueURL = r.VenueURL
		}
		if p.CodeURL == "" {
			p.CodeURL = r.CodeURL
		}
	}

	p.Abstract = pickAbstract(group, &warnings)
	p.Flags = mergeFlags(group)

	m := merged{Paper: p}
	for _, am := range best.Authors {
		m.Mentions = append(m.Mentions, mention{
			Name:     am,
			Variants: collectVariants(am, group),
		})
	}
	return m, warnings
}

func pickYear(group []normalize.Record, warnings *[]catalog.Warning) int {
	year := 0
	for _, r := range group {
		if !r.YearValid {
			continue
		}
		if year == 0 {
			year = r.Year
		} else if r.Year != year {
			*warnings = append(*warnings, catalog.Warning{
				Stage:  "resolve",
				Entity: entity(group),
				Detail: fmt.Sprintf("sources disagree on year: %d vs %d", year, r.Year),
			})
		}
	}
	if year == 0 {
		for _, r := range group {
			if r.Year != 0 {
				return r.Year
			}
		}
	}
	return year
}

func pickAbstract(group []normalize.Record, warnings *[]catalog.Warning) string {
	abstract := ""
	distinct := 0
	for _, r := range group {
		if r.Abstract == "" {
			continue
		}
		distinct++
		if len(r.Abstract) > len(abstract) {
			abstract = r.Abstract
		}
	}
	if distinct > 1 {
		*warnings = append(*warnings, catalog.Warning{
			Stage:  "resolve",
			Entity: entity(group),
			Detail: "multiple abstracts found, keeping the longest",
		})
	}
	return abstract
}

func mergeFlags(group []normalize.Record) []string {
	seen := make(map[string]bool)
	var flags []string
	for _, r := range group {
		for _, f := range r.Flags {
			if !seen[f] {
				seen[f] = true
				flags = append(flags, f)
			}
		}
	}
	sort.Strings(flags)
	return flags
}

// collectVariants gathers every raw spelling of one credited author
// across the group's records. Other records' mentions count when their
// parsed name is compatible with the credited one.
func collectVariants(am normalize.Mention, group []normalize.Record) []string {
	seen := map[string]bool{am.Raw: true}
	variants := []string{am.Raw}
	for _, r := range group[1:] {
		for _, other := range r.Authors {
			if other.Key != am.Key && !compatibleMention(am, other) {
				continue
			}
			if !seen[other.Raw] {
				seen[other.Raw] = true
				variants = append(variants, other.Raw)
			}
		}
	}
	sort.Strings(variants)
	return variants
}
