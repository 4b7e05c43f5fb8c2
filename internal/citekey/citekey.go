// Package citekey generates permanent, human-readable citation keys of
// the form {lastname}{year}{venue}-{word}, e.g. vaswani2017neurips-attention.
// A key published in a snapshot is never changed or reused: re-running
// the pipeline over grown inputs rematches papers to their prior keys
// before minting new ones.
package citekey

import (
	"fmt"
	"html"
	"regexp"
	"sort"

	"github.com/mlanthology/anthology/internal/authorname"
	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "in": true, "at": true,
	"of": true, "for": true, "to": true, "and": true, "or": true,
	"with": true, "by": true, "from": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"do": true, "does": true, "did": true, "can": true, "could": true,
	"will": true, "would": true, "shall": true, "should": true,
	"may": true, "might": true, "must": true, "have": true, "has": true,
	"had": true, "not": true, "no": true, "nor": true, "but": true,
	"yet": true, "so": true, "if": true, "then": true, "than": true,
	"that": true, "this": true, "these": true, "those": true, "it": true,
	"its": true, "as": true, "into": true, "through": true, "about": true,
	"above": true, "below": true, "between": true, "under": true,
	"over": true, "after": true, "before": true, "during": true,
	"without": true, "toward": true, "towards": true, "how": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"whom": true, "why": true,
}

var (
	// Hyphenated compounds are captured whole so "C2-DPO" and "R-CNN"
	// yield c2dpo and rcnn rather than their fragments.
	tokenRe    = regexp.MustCompile(`[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
	hasAlphaRe = regexp.MustCompile(`[a-z]`)
	suffixRe   = regexp.MustCompile(`-[b-z]$`)
)

// FirstContentWord extracts the first meaningful word of a title for
// use in citation keys: at least two characters, not a stopword,
// containing a letter. Falls back to the first lettered token, then to
// the literal "paper".
func FirstContentWord(title string) string {
	cleaned := normalize.StripLaTeX(authorname.Fold(html.UnescapeString(title)))
	tokens := tokenRe.FindAllString(cleaned, -1)
	for _, t := range tokens {
		slug := nonAlnumRe.ReplaceAllString(t, "")
		if len(slug) >= 2 && !stopwords[slug] && hasAlphaRe.MatchString(slug) {
			return slug
		}
	}
	for _, t := range tokens {
		slug := nonAlnumRe.ReplaceAllString(t, "")
		if hasAlphaRe.MatchString(slug) {
			return slug
		}
	}
	return "paper"
}

// Base builds the unsuffixed citation key for a paper.
func Base(p *catalog.Paper) string {
	family := ""
	if len(p.Authors) > 0 {
		family = p.Authors[0].Family
	}
	return fmt.Sprintf("%s%d%s-%s",
		authorname.FamilyKey(family), p.Year, p.Venue, FirstContentWord(p.Title))
}

// matchesBase reports whether key is base itself or base with a
// collision suffix.
func matchesBase(key, base string) bool {
	if key == base {
		return true
	}
	return suffixRe.MatchString(key) && key[:len(key)-2] == base
}

// Assign gives every paper a citation key, in place. Papers carried
// over from the prior snapshot keep their published keys; new papers
// get base keys with -b, -c, ... suffixes on collision. Every prior
// key stays reserved even when its paper is gone, so a key can never
// point at two different papers across snapshots.
//
// More than 25 collisions on one base exhausts the suffix alphabet and
// fails the run: that many identical (author, year, venue, word)
// tuples means upstream identity resolution has gone wrong.
func Assign(papers []*catalog.Paper, prior []*catalog.Paper) ([]catalog.Warning, error) {
	var warnings []catalog.Warning

	taken := make(map[string]bool, len(prior))
	bySource := make(map[string]*catalog.Paper)
	byDOI := make(map[string]*catalog.Paper)
	byIdentity := make(map[string]*catalog.Paper)
	for _, pp := range prior {
		taken[pp.Key] = true
		for _, s := range pp.Sources {
			bySource[s.Source+"\x00"+s.SourceID] = pp
		}
		if pp.DOI != "" {
			byDOI[pp.DOI] = pp
		}
		byIdentity[identity(pp)] = pp
	}

	// Key assignment order is a fixed total order over paper metadata,
	// so ingestion order can never shuffle suffixes.
	ordered := make([]*catalog.Paper, len(papers))
	copy(ordered, papers)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Venue != b.Venue {
			return a.Venue < b.Venue
		}
		fa, fb := firstFamilyKey(a), firstFamilyKey(b)
		if fa != fb {
			return fa < fb
		}
		if a.NormTitle != b.NormTitle {
			return a.NormTitle < b.NormTitle
		}
		return provenanceKey(a) < provenanceKey(b)
	})

	claimed := make(map[string]bool)
	for _, p := range ordered {
		pp := rematch(p, bySource, byDOI, byIdentity)
		if pp == nil || claimed[pp.Key] {
			continue
		}
		base := Base(p)
		if !matchesBase(pp.Key, base) {
			warnings = append(warnings, catalog.Warning{
				Stage:  "citekey",
				Entity: pp.Key,
				Detail: fmt.Sprintf("prior key kept although metadata now derives %q", base),
			})
		}
		// The published key wins even when recomputation disagrees:
		// permanence outranks cosmetics.
		p.Key = pp.Key
		claimed[pp.Key] = true
	}

	for _, p := range ordered {
		if p.Key != "" {
			continue
		}
		base := Base(p)
		key := base
		if taken[key] {
			key = ""
			for c := 'b'; c <= 'z'; c++ {
				cand := fmt.Sprintf("%s-%c", base, c)
				if !taken[cand] {
					key = cand
					break
				}
			}
			if key == "" {
				return warnings, fmt.Errorf("citation key space exhausted for %q", base)
			}
		}
		p.Key = key
		taken[key] = true
	}

	return warnings, nil
}

func firstFamilyKey(p *catalog.Paper) string {
	if len(p.Authors) == 0 {
		return ""
	}
	return authorname.FamilyKey(p.Authors[0].Family)
}

func provenanceKey(p *catalog.Paper) string {
	if len(p.Sources) == 0 {
		return ""
	}
	return p.Sources[0].Source + "\x00" + p.Sources[0].SourceID
}

func identity(p *catalog.Paper) string {
	return fmt.Sprintf("%s\x00%d\x00%s\x00%s", p.Venue, p.Year, firstFamilyKey(p), p.NormTitle)
}

// rematch finds the prior snapshot's version of a paper, strongest
// evidence first: shared provenance, then DOI, then identity fields.
func rematch(p *catalog.Paper, bySource, byDOI, byIdentity map[string]*catalog.Paper) *catalog.Paper {
	for _, s := range p.Sources {
		if pp, ok := bySource[s.Source+"\x00"+s.SourceID]; ok {
			return pp
		}
	}
	if p.DOI != "" {
		if pp, ok := byDOI[p.DOI]; ok {
			return pp
		}
	}
	if pp, ok := byIdentity[identity(p)]; ok {
		return pp
	}
	return nil
}
