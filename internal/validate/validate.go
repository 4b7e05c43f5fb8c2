// Package validate crawls an assembled catalog and flags anomalous
// records: leftover markup, mojibake, implausible metadata, malformed
// keys and links. Findings are advisory; structural invariants that
// must hold are enforced at assembly, not here.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
)

// Severity of a finding.
const (
	Error = "ERROR"
	Warn  = "WARN"
	Info  = "INFO"
)

// Finding is a single data quality issue on one entity.
type Finding struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Entity   string `json:"entity"` // citation key or author slug
	Detail   string `json:"detail"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%5s] %s %s: %s", f.Severity, f.Check, f.Entity, f.Detail)
}

var severities = map[string]string{
	"empty_title":             Error,
	"no_authors":              Error,
	"key_bad_chars":           Error,
	"empty_author":            Error,
	"invalid_year":            Error,
	"key_year_mismatch":       Warn,
	"short_title":             Warn,
	"html_in_title":           Warn,
	"html_entity_in_title":    Warn,
	"mojibake_in_title":       Warn,
	"allcaps_title":           Warn,
	"unbalanced_latex":        Warn,
	"empty_family_name":       Warn,
	"html_entity_in_author":   Warn,
	"mojibake_in_author":      Warn,
	"email_in_author":         Warn,
	"asterisk_in_author":      Warn,
	"annotation_in_author":    Warn,
	"unknown_slug":            Warn,
	"duplicate_author_credit": Warn,
	"ancient_year":            Warn,
	"future_year":             Warn,
	"unknown_venue":           Warn,
	"bad_url":                 Warn,
	"space_in_url":            Warn,
	"pdf_url_suspicious":      Warn,
	"mojibake_in_abstract":    Warn,
	"html_in_abstract":        Warn,
	"duplicate_title":         Warn,
	"long_title":              Info,
	"many_authors":            Info,
	"extreme_author_count":    Warn,
	"long_author_name":        Info,
	"very_long_abstract":      Info,
	"key_format":              Info,
}

var (
	mojibakeRe = regexp.MustCompile(`\x{00c3}[\x{0080}-\x{00bf}]`)

	// Structural HTML only; sub/sup and NLP tokens like <EOS> are fine.
	structuralHTMLRe = regexp.MustCompile(`(?i)</?(?:div|span|table|tr|td|th|ul|ol|li|a|img|br|hr|font|style|script|link|meta|head|body|html)\b[^>]*>`)

	htmlEntityRe = regexp.MustCompile(`&(?:#\d+|#x[0-9a-fA-F]+|[a-zA-Z]+);`)

	keyCharsRe   = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	keyShapeRe   = regexp.MustCompile(`^([a-z]+)(\d{4})([a-z0-9]+)-(.+)$`)
	keyLooseRe   = regexp.MustCompile(`^[a-z]+\d{4}[a-z0-9]+-[a-z0-9-]+$`)
	annotationRe = regexp.MustCompile(`(?i)\((?:PhD|Dr\.|Jr\.|Sr\.|He/Him|She/Her|They/Them)\)`)
	nonAlphaRe   = regexp.MustCompile(`[^a-zA-Z]`)
	alnumOnlyRe  = regexp.MustCompile(`[^a-z0-9]`)
)

type checker struct {
	findings []Finding
	maxYear  int
}

func (c *checker) flag(check, entity, detail string) {
	sev, ok := severities[check]
	if !ok {
		sev = Info
	}
	c.findings = append(c.findings, Finding{Check: check, Severity: sev, Entity: entity, Detail: detail})
}

// Run checks every paper and author in the catalog against the venue
// table and returns all findings, errors first.
func Run(c *catalog.Catalog, venues *normalize.VenueTable) []Finding {
	ck := &checker{maxYear: time.Now().Year() + 1}

	titlesByVenueYear := make(map[string][]struct{ norm, key, raw string })

	for _, key := range c.PaperKeys() {
		p := c.Papers[key]
		ck.checkKey(p)
		ck.checkTitle(p)
		ck.checkAuthors(p)
		ck.checkYear(p)
		ck.checkVenue(p, venues)
		ck.checkURLs(p)
		ck.checkAbstract(p)

		norm := alnumOnlyRe.ReplaceAllString(strings.ToLower(p.Title), "")
		vy := fmt.Sprintf("%s-%d", p.Venue, p.Year)
		titlesByVenueYear[vy] = append(titlesByVenueYear[vy],
			struct{ norm, key, raw string }{norm, p.Key, p.Title})
	}

	ck.checkDuplicateTitles(titlesByVenueYear)

	sort.SliceStable(ck.findings, func(i, j int) bool {
		order := map[string]int{Error: 0, Warn: 1, Info: 2}
		if order[ck.findings[i].Severity] != order[ck.findings[j].Severity] {
			return order[ck.findings[i].Severity] < order[ck.findings[j].Severity]
		}
		return false
	})
	return ck.findings
}

func (ck *checker) checkKey(p *catalog.Paper) {
	if !keyCharsRe.MatchString(p.Key) {
		ck.flag("key_bad_chars", p.Key, fmt.Sprintf("key contains unexpected characters: %q", p.Key))
		return
	}
	if m := keyShapeRe.FindStringSubmatch(p.Key); m != nil {
		if fmt.Sprintf("%d", p.Year) != m[2] {
			ck.flag("key_year_mismatch", p.Key,
				fmt.Sprintf("key year %s != paper year %d", m[2], p.Year))
		}
	} else if !keyLooseRe.MatchString(p.Key) {
		ck.flag("key_format", p.Key, fmt.Sprintf("key doesn't match expected pattern: %q", p.Key))
	}
}

func (ck *checker) checkTitle(p *catalog.Paper) {
	title := p.Title
	if title == "" {
		ck.flag("empty_title", p.Key, "paper has no title")
		return
	}
	if len(title) < 10 {
		ck.flag("short_title", p.Key, fmt.Sprintf("title only %d chars: %q", len(title), title))
	}
	if len(title) > 300 {
		ck.flag("long_title", p.Key, fmt.Sprintf("title is %d chars: %s...", len(title), title[:80]))
	}
	if structuralHTMLRe.MatchString(title) {
		ck.flag("html_in_title", p.Key, "HTML tag in title: "+clip(title, 100))
	}
	if htmlEntityRe.MatchString(title) {
		ck.flag("html_entity_in_title", p.Key, "undecoded HTML entity: "+clip(title, 100))
	}
	if mojibakeRe.MatchString(title) {
		ck.flag("mojibake_in_title", p.Key, "possible mojibake: "+clip(title, 100))
	}
	alpha := nonAlphaRe.ReplaceAllString(title, "")
	if len(alpha) > 10 && alpha == strings.ToUpper(alpha) {
		ck.flag("allcaps_title", p.Key, "all-caps title: "+clip(title, 80))
	}
	if strings.Count(title, "$")%2 != 0 {
		ck.flag("unbalanced_latex", p.Key, "odd number of $: "+clip(title, 80))
	}
}

func (ck *checker) checkAuthors(p *catalog.Paper) {
	if len(p.Authors) == 0 {
		ck.flag("no_authors", p.Key, "paper has zero authors")
		return
	}
	if len(p.Authors) > 100 {
		ck.flag("extreme_author_count", p.Key, fmt.Sprintf("paper has %d authors", len(p.Authors)))
	} else if len(p.Authors) > 50 {
		ck.flag("many_authors", p.Key, fmt.Sprintf("paper has %d authors", len(p.Authors)))
	}

	slugCounts := make(map[string]int)
	for i, a := range p.Authors {
		full := strings.TrimSpace(a.Given + " " + a.Family)
		switch {
		case a.Family == "" && a.Given == "":
			ck.flag("empty_author", p.Key, fmt.Sprintf("author[%d] has no name at all", i))
		case a.Family == "":
			ck.flag("empty_family_name", p.Key,
				fmt.Sprintf("author[%d] missing family name: given=%q", i, a.Given))
		}
		if a.Slug == "unknown" {
			ck.flag("unknown_slug", p.Key, fmt.Sprintf("author[%d] slug is 'unknown': %s", i, full))
		}
		if htmlEntityRe.MatchString(full) {
			ck.flag("html_entity_in_author", p.Key, fmt.Sprintf("author[%d] has HTML entity: %s", i, full))
		}
		if mojibakeRe.MatchString(full) {
			ck.flag("mojibake_in_author", p.Key, fmt.Sprintf("author[%d] possible mojibake: %s", i, full))
		}
		if strings.Contains(full, "@") {
			ck.flag("email_in_author", p.Key, fmt.Sprintf("author[%d] looks like email: %s", i, full))
		}
		if annotationRe.MatchString(full) {
			ck.flag("annotation_in_author", p.Key, fmt.Sprintf("author[%d] has uncleaned annotation: %s", i, full))
		}
		if strings.Contains(full, "*") {
			ck.flag("asterisk_in_author", p.Key, fmt.Sprintf("author[%d] has asterisk: %s", i, full))
		}
		if len(a.Given) > 60 || len(a.Family) > 60 {
			ck.flag("long_author_name", p.Key, fmt.Sprintf("author[%d] suspiciously long: %s", i, clip(full, 80)))
		}
		if a.Slug != "" {
			slugCounts[a.Slug]++
		}
	}
	for slug, n := range slugCounts {
		if n > 1 {
			ck.flag("duplicate_author_credit", p.Key,
				fmt.Sprintf("author slug %q appears %d times", slug, n))
		}
	}
}

func (ck *checker) checkYear(p *catalog.Paper) {
	switch {
	case p.Year == 0:
		ck.flag("invalid_year", p.Key, "paper has no year")
	case p.Year < 1950:
		ck.flag("ancient_year", p.Key, fmt.Sprintf("year %d is before 1950", p.Year))
	case p.Year > ck.maxYear:
		ck.flag("future_year", p.Key, fmt.Sprintf("year %d is in the future", p.Year))
	}
}

func (ck *checker) checkVenue(p *catalog.Paper, venues *normalize.VenueTable) {
	if p.Venue == "" || !venues.Known(p.Venue) {
		ck.flag("unknown_venue", p.Key, fmt.Sprintf("venue %q not in venue table", p.Venue))
	}
}

func (ck *checker) checkURLs(p *catalog.Paper) {
	urls := map[string]string{
		"pdf_url":   p.PDFURL,
		"venue_url": p.VenueURL,
		"code_url":  p.CodeURL,
	}
	for field, url := range urls {
		if url == "" {
			continue
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			ck.flag("bad_url", p.Key, fmt.Sprintf("%s doesn't start with http: %s", field, clip(url, 80)))
		}
		if strings.Contains(url, " ") {
			ck.flag("space_in_url", p.Key, fmt.Sprintf("%s contains spaces: %s", field, clip(url, 80)))
		}
	}

	if pdf := strings.ToLower(p.PDFURL); pdf != "" {
		looksLikePDF := strings.HasSuffix(pdf, ".pdf") ||
			strings.Contains(pdf, "/pdf") ||
			strings.Contains(pdf, "download/") ||
			strings.Contains(pdf, "doi.org/")
		if !looksLikePDF {
			ck.flag("pdf_url_suspicious", p.Key, "pdf_url doesn't look like a PDF link: "+clip(p.PDFURL, 80))
		}
	}
}

func (ck *checker) checkAbstract(p *catalog.Paper) {
	if p.Abstract == "" {
		return
	}
	if len(p.Abstract) > 10000 {
		ck.flag("very_long_abstract", p.Key, fmt.Sprintf("abstract is %d chars", len(p.Abstract)))
	}
	if mojibakeRe.MatchString(p.Abstract) {
		ck.flag("mojibake_in_abstract", p.Key, "possible mojibake in abstract")
	}
	if m := structuralHTMLRe.FindString(p.Abstract); m != "" {
		ck.flag("html_in_abstract", p.Key, "structural HTML in abstract: "+m)
	}
}

func (ck *checker) checkDuplicateTitles(byVenueYear map[string][]struct{ norm, key, raw string }) {
	vys := make([]string, 0, len(byVenueYear))
	for vy := range byVenueYear {
		vys = append(vys, vy)
	}
	sort.Strings(vys)

	for _, vy := range vys {
		seen := make(map[string][]string)
		for _, e := range byVenueYear[vy] {
			// Short titles collide by accident, skip them.
			if len(e.norm) > 15 {
				seen[e.norm] = append(seen[e.norm], e.key)
			}
		}
		norms := make([]string, 0, len(seen))
		for n := range seen {
			norms = append(norms, n)
		}
		sort.Strings(norms)
		for _, n := range norms {
			if keys := seen[n]; len(keys) > 1 {
				ck.flag("duplicate_title", keys[0],
					fmt.Sprintf("title appears %d times in %s: %s", len(keys), vy, strings.Join(keys, ", ")))
			}
		}
	}
}

// Summary counts findings per severity.
func Summary(findings []Finding) (errors, warnings, infos int) {
	for _, f := range findings {
		switch f.Severity {
		case Error:
			errors++
		case Warn:
			warnings++
		default:
			infos++
		}
	}
	return errors, warnings, infos
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
