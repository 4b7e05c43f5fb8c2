// Package export renders catalog papers to citation formats.
package export

import (
	"fmt"
	"strings"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
)

// ToBibTeX converts a paper to a BibTeX entry keyed by its citation key.
func ToBibTeX(p *catalog.Paper, venues *normalize.VenueTable) string {
	entryType := determineEntryType(p, venues)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, p.Key))

	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))

	venueName := p.VenueName
	if venueName == "" {
		venueName = venues.Name(p.Venue)
	}
	if venueName != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(venueName)))
	}

	if p.Year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", p.Year))
	}

	if p.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", p.DOI))
	}
	if p.ArXivID != "" {
		b.WriteString(fmt.Sprintf("  eprint = {%s},\n", p.ArXivID))
		b.WriteString("  archiveprefix = {arXiv},\n")
	}
	if url := bestURL(p); url != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", url))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple papers to BibTeX format.
func ToBibTeXList(papers []*catalog.Paper, venues *normalize.VenueTable) string {
	var entries []string
	for _, p := range papers {
		entries = append(entries, ToBibTeX(p, venues))
	}
	return strings.Join(entries, "\n")
}

// determineEntryType returns the BibTeX entry type for a paper. The
// venue table decides; venues it does not know fall back to a name
// sniff.
func determineEntryType(p *catalog.Paper, venues *normalize.VenueTable) string {
	switch venues.Type(p.Venue) {
	case "conference", "workshop":
		return "inproceedings"
	case "journal":
		return "article"
	}

	name := strings.ToLower(p.VenueName)
	if strings.Contains(name, "proceedings") ||
		strings.Contains(name, "conference") ||
		strings.Contains(name, "workshop") ||
		strings.Contains(name, "symposium") {
		return "inproceedings"
	}
	if p.ArXivID != "" {
		return "article"
	}
	return "misc"
}

// bestURL picks one link for the url field, preferring the venue's own
// paper page over a bare PDF.
func bestURL(p *catalog.Paper) string {
	if p.VenueURL != "" {
		return p.VenueURL
	}
	return p.PDFURL
}

// formatAuthors formats credits in BibTeX style: "Last, First and Last, First"
func formatAuthors(credits []catalog.Credit) string {
	var formatted []string
	for _, c := range credits {
		if c.Given != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", c.Family, c.Given))
		} else {
			formatted = append(formatted, c.Family)
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
