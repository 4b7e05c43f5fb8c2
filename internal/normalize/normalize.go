package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mlanthology/anthology/internal/authorname"
	"github.com/mlanthology/anthology/internal/record"
)

// Year bounds considered plausible for a publication. Records outside
// the window keep their year but are flagged for review.
const MinYear = 1950

// Flags attached to records that survived normalization with defects.
const (
	FlagYearMissing      = "year-missing"
	FlagYearImplausible  = "year-implausible"
	FlagUnknownVenue     = "unknown-venue"
	FlagAuthorUnparsable = "author-unparsable"
	FlagTitleMojibake    = "title-mojibake"
)

// ErrSkip marks records that cannot participate in resolution at all.
// Only two defects are disqualifying: no title, or no usable authors.
var ErrSkip = errors.New("record skipped")

// Mention is one author position on one normalized record. The Raw
// string is preserved for variant tracking; Key drives clustering.
type Mention struct {
	Raw      string          `json:"raw"`
	Name     authorname.Name `json:"name"`
	Key      string          `json:"key"`
	Position int             `json:"position"`
}

// Record is a source record in canonical comparison form.
type Record struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`

	Title     string `json:"title"`      // display form
	NormTitle string `json:"norm_title"` // comparison form

	Year      int  `json:"year"`
	YearValid bool `json:"year_valid"`

	Venue      string `json:"venue"` // canonical slug
	VenueName  string `json:"venue_name,omitempty"`
	VenueKnown bool   `json:"venue_known"`

	Authors  []Mention `json:"authors"`
	Abstract string    `json:"abstract,omitempty"`

	DOI          string `json:"doi,omitempty"`
	ArXivID      string `json:"arxiv_id,omitempty"`
	OpenReviewID string `json:"openreview_id,omitempty"`

	PDFURL   string `json:"pdf_url,omitempty"`
	VenueURL string `json:"venue_url,omitempty"`
	CodeURL  string `json:"code_url,omitempty"`

	Flags []string `json:"flags,omitempty"`
}

// FirstFamilyKey returns the blocking key of the first author.
func (r *Record) FirstFamilyKey() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return authorname.FamilyKey(r.Authors[0].Name.Family)
}

// Normalizer converts raw records using a shared venue table. The zero
// value is not usable; construct with New.
// Normalizer converts raw records to canonical form. It is read-only
// after construction and safe for concurrent use.
type Normalizer struct {
	venues  *VenueTable
	maxYear int
}

func New(venues *VenueTable) *Normalizer {
	return &Normalizer{venues: venues, maxYear: time.Now().Year() + 1}
}

// Normalize converts one raw record to canonical form. The only fatal
// defects are an empty title and an empty author list, both ErrSkip;
// everything else degrades to a flag on the record.
func (n *Normalizer) Normalize(raw record.Raw) (Record, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return Record{}, fmt.Errorf("%s/%s: empty title: %w", raw.Source, raw.SourceID, ErrSkip)
	}

	rec := Record{
		Source:       raw.Source,
		SourceID:     raw.SourceID,
		DOI:          normalizeDOI(raw.DOI),
		ArXivID:      strings.TrimSpace(raw.ArXivID),
		OpenReviewID: strings.TrimSpace(raw.OpenReviewID),
		PDFURL:       strings.TrimSpace(raw.PDFURL),
		VenueURL:     strings.TrimSpace(raw.VenueURL),
		CodeURL:      CleanCodeURL(raw.CodeURL),
	}

	repaired := RepairMojibake(title)
	if repaired != title {
		rec.Flags = append(rec.Flags, FlagTitleMojibake)
	}
	rec.Title = DisplayTitle(title)
	rec.NormTitle = Title(title)
	rec.Abstract = strings.TrimSpace(RepairMojibake(raw.Abstract))

	year := strings.TrimSpace(string(raw.Year))
	switch {
	case year == "":
		rec.Flags = append(rec.Flags, FlagYearMissing)
	default:
		y, err := strconv.Atoi(year)
		if err != nil {
			rec.Flags = append(rec.Flags, FlagYearMissing)
		} else {
			rec.Year = y
			if y < MinYear || y > n.maxYear {
				rec.Flags = append(rec.Flags, FlagYearImplausible)
			} else {
				rec.YearValid = true
			}
		}
	}

	slug, known := n.venues.Resolve(raw.Venue)
	rec.Venue = slug
	rec.VenueKnown = known
	if known {
		rec.VenueName = n.venues.Name(slug)
	} else {
		rec.Flags = append(rec.Flags, FlagUnknownVenue)
	}

	for _, a := range raw.Authors {
		name := authorname.Parse(RepairMojibake(a))
		if name.IsEmpty() {
			rec.Flags = append(rec.Flags, FlagAuthorUnparsable)
			continue
		}
		rec.Authors = append(rec.Authors, Mention{
			Raw:      strings.TrimSpace(a),
			Name:     name,
			Key:      authorname.Key(name),
			Position: len(rec.Authors),
		})
	}
	if len(rec.Authors) == 0 {
		return Record{}, fmt.Errorf("%s/%s: no usable authors: %w", raw.Source, raw.SourceID, ErrSkip)
	}

	return rec, nil
}

// normalizeDOI lowercases and strips resolver prefixes so DOIs compare
// byte-for-byte across sources.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(strings.ToLower(doi), prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.ToLower(doi)
}
