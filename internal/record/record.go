// Package record defines the pre-merge raw record shape and the
// per-source parsers that produce it from adapter output on disk.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Raw is one source's unprocessed description of a paper. Adapters emit
// these to disk; the normalizer is the only consumer. A Raw is immutable
// once parsed, and many Raws may describe the same real paper.
type Raw struct {
	Source   string `json:"source"`    // adapter name: dblp, openreview, ...
	SourceID string `json:"source_id"` // source-native identifier

	Title   string   `json:"title"`
	Authors []string `json:"authors"` // raw name strings, order preserved
	Year    string   `json:"year"`    // raw, possibly empty or non-numeric
	Venue   string   `json:"venue"`   // source-specific spelling

	Abstract string `json:"abstract,omitempty"`

	// External identifiers
	DOI          string `json:"doi,omitempty"`
	ArXivID      string `json:"arxiv_id,omitempty"`
	OpenReviewID string `json:"openreview_id,omitempty"`

	// Links
	PDFURL   string `json:"pdf_url,omitempty"`
	PDFPath  string `json:"pdf_path,omitempty"` // local file, when downloaded
	VenueURL string `json:"venue_url,omitempty"`
	CodeURL  string `json:"code_url,omitempty"`
}

// FlexibleString unmarshals from either a string or a number JSON value.
// Source exports disagree about whether years and ids are quoted.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexibleString(strconv.Itoa(i))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// Sources lists the adapter names this package can parse, in canonical
// trust-priority order: official proceedings metadata outranks scraped
// or aggregated metadata when merged papers disagree.
var Sources = []string{
	"openreview",
	"pmlr",
	"neurips",
	"cvf",
	"dblp",
	"semanticscholar",
	"openalex",
}

// SourcePriority returns the trust rank of a source (lower is more
// trusted). Unknown sources rank last.
func SourcePriority(source string) int {
	for i, s := range Sources {
		if s == source {
			return i
		}
	}
	return len(Sources)
}

// KnownSource reports whether source is a recognized adapter name.
func KnownSource(source string) bool {
	return SourcePriority(source) < len(Sources)
}
