// Package pdfmeta recovers identifying metadata from locally
// downloaded paper PDFs. It never drives identity resolution on its
// own; recovered values only fill fields a source record left empty.
package pdfmeta

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiPattern matches 10.XXXX/... registrant DOIs as printed on papers.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Meta holds whatever could be recovered from a PDF. Empty fields mean
// the heuristic found nothing, not an error.
type Meta struct {
	DOI   string
	Title string
}

// Recover opens the PDF at path and extracts a DOI and a candidate
// title from the opening pages.
func Recover(path string) (Meta, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Meta{}, err
	}
	defer f.Close()

	var m Meta

	// DOIs sit on the first page or in a footer shortly after.
	maxPages := 3
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if m.DOI == "" {
			m.DOI = findDOI(text)
		}
		if i == 1 {
			m.Title = findTitle(text)
		}
		if m.DOI != "" && m.Title != "" {
			break
		}
	}
	return m, nil
}

func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if validDOI(match) {
			return strings.ToLower(match)
		}
	}
	return ""
}

func validDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// findTitle takes the first substantial line of the first page. Crude,
// but proceedings PDFs lead with the title almost universally.
func findTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !headerLine(line) {
			return line
		}
	}
	return ""
}

func headerLine(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "journal") || strings.Contains(lower, "copyright") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "proceedings of") {
		return true
	}
	return false
}
