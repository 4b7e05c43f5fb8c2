// Package catalog defines the canonical entities the pipeline produces:
// merged papers with permanent citation keys, deduplicated authors with
// permanent slugs, and the assembled indexes over both.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Provenance records one source record that contributed to a paper.
type Provenance struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
}

// Credit is one author position on a paper, pointing at a canonical
// author by slug.
type Credit struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Slug   string `json:"slug"`
}

// Display renders the credit as "Given Family".
func (c Credit) Display() string {
	return strings.TrimSpace(c.Given + " " + c.Family)
}

// Paper is one canonical publication. Key is permanent once published
// in a snapshot; every other field may be revised by a later run.
type Paper struct {
	Key string `json:"key"`

	Title     string `json:"title"`
	NormTitle string `json:"norm_title"`

	Year      int      `json:"year"`
	Venue     string   `json:"venue"`
	VenueName string   `json:"venue_name,omitempty"`
	Authors   []Credit `json:"authors"`
	Abstract  string   `json:"abstract,omitempty"`

	DOI          string `json:"doi,omitempty"`
	ArXivID      string `json:"arxiv_id,omitempty"`
	OpenReviewID string `json:"openreview_id,omitempty"`

	PDFURL   string `json:"pdf_url,omitempty"`
	VenueURL string `json:"venue_url,omitempty"`
	CodeURL  string `json:"code_url,omitempty"`

	Sources []Provenance `json:"sources"`
	Flags   []string     `json:"flags,omitempty"`
}

// HasSource reports whether the paper carries provenance from the
// given source record.
func (p *Paper) HasSource(source, sourceID string) bool {
	for _, s := range p.Sources {
		if s.Source == source && s.SourceID == sourceID {
			return true
		}
	}
	return false
}

// Author is one canonical person. Slug is permanent once published.
type Author struct {
	Slug     string   `json:"slug"`
	Given    string   `json:"given"`
	Family   string   `json:"family"`
	Variants []string `json:"variants,omitempty"` // raw spellings seen in sources
	Papers   []string `json:"papers,omitempty"`   // citation keys, newest first
}

// Warning is a non-fatal defect noticed anywhere in the pipeline. The
// run proceeds; warnings surface in reports and validation output.
type Warning struct {
	Stage  string `json:"stage"`
	Entity string `json:"entity"`
	Detail string `json:"detail"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s: %s", w.Stage, w.Entity, w.Detail)
}

// Catalog is the fully assembled output of one pipeline run.
type Catalog struct {
	Papers  map[string]*Paper  // by citation key
	Authors map[string]*Author // by slug

	// VenueYears indexes citation keys by venue slug, then year.
	VenueYears map[string]map[int][]string
}

// PaperKeys returns all citation keys in sorted order.
func (c *Catalog) PaperKeys() []string {
	keys := make([]string, 0, len(c.Papers))
	for k := range c.Papers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AuthorSlugs returns all author slugs in sorted order.
func (c *Catalog) AuthorSlugs() []string {
	slugs := make([]string, 0, len(c.Authors))
	for s := range c.Authors {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// Assemble builds a Catalog from keyed papers and resolved authors,
// enforcing the structural invariants the snapshot format relies on.
// Any violation fails the whole run; Assemble collects all of them
// before reporting so one run surfaces every defect.
func Assemble(papers []*Paper, authors []*Author) (*Catalog, error) {
	var violations []string

	c := &Catalog{
		Papers:     make(map[string]*Paper, len(papers)),
		Authors:    make(map[string]*Author, len(authors)),
		VenueYears: make(map[string]map[int][]string),
	}

	for _, a := range authors {
		if a.Slug == "" {
			violations = append(violations, fmt.Sprintf("author %q %q has no slug", a.Given, a.Family))
			continue
		}
		if _, dup := c.Authors[a.Slug]; dup {
			violations = append(violations, fmt.Sprintf("duplicate author slug %q", a.Slug))
			continue
		}
		a.Papers = nil // rebuilt below from paper credits
		c.Authors[a.Slug] = a
	}

	for _, p := range papers {
		if p.Key == "" {
			violations = append(violations, fmt.Sprintf("paper %q has no citation key", p.Title))
			continue
		}
		if _, dup := c.Papers[p.Key]; dup {
			violations = append(violations, fmt.Sprintf("duplicate citation key %q", p.Key))
			continue
		}
		if len(p.Authors) == 0 {
			violations = append(violations, fmt.Sprintf("paper %q has no authors", p.Key))
			continue
		}
		for _, cr := range p.Authors {
			if _, ok := c.Authors[cr.Slug]; !ok {
				violations = append(violations, fmt.Sprintf("paper %q credits unknown author %q", p.Key, cr.Slug))
			}
		}
		c.Papers[p.Key] = p

		byYear, ok := c.VenueYears[p.Venue]
		if !ok {
			byYear = make(map[int][]string)
			c.VenueYears[p.Venue] = byYear
		}
		byYear[p.Year] = append(byYear[p.Year], p.Key)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		return nil, fmt.Errorf("catalog invariants violated:\n  %s", strings.Join(violations, "\n  "))
	}

	for _, byYear := range c.VenueYears {
		for _, keys := range byYear {
			sort.Strings(keys)
		}
	}

	// Author publication lists: newest first, title order within a year.
	for _, key := range c.PaperKeys() {
		p := c.Papers[key]
		for _, cr := range p.Authors {
			a := c.Authors[cr.Slug]
			a.Papers = append(a.Papers, key)
		}
	}
	for _, a := range c.Authors {
		sortPapersByYear(c, a.Papers)
	}

	return c, nil
}

func sortPapersByYear(c *Catalog, keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := c.Papers[keys[i]], c.Papers[keys[j]]
		if pi.Year != pj.Year {
			return pi.Year > pj.Year
		}
		return pi.Title < pj.Title
	})
}
