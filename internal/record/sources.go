package record

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Each source gets its own entry struct mirroring that adapter's export
// schema, plus an explicit mapping function to Raw. Field probing across
// loosely-typed maps is deliberately avoided: a schema change in an
// adapter should fail loudly here, not silently drop fields.

// dblpEntry is one hit from a DBLP search API dump.
type dblpEntry struct {
	ID   string `json:"@id"`
	Info struct {
		Title   string         `json:"title"`
		Authors dblpAuthorList `json:"authors"`
		Year    FlexibleString `json:"year"`
		Venue   FlexibleString `json:"venue"`
		DOI     string         `json:"doi"`
		EE      string         `json:"ee"` // electronic edition URL
		Key     string         `json:"key"`
	} `json:"info"`
}

// dblpAuthorList tolerates DBLP's single-author quirk: one author is an
// object, several are an array.
type dblpAuthorList struct {
	Names []string
}

func (l *dblpAuthorList) UnmarshalJSON(data []byte) error {
	var multi struct {
		Author []struct {
			Text string `json:"text"`
		} `json:"author"`
	}
	if err := json.Unmarshal(data, &multi); err == nil && len(multi.Author) > 0 {
		for _, a := range multi.Author {
			l.Names = append(l.Names, a.Text)
		}
		return nil
	}

	var single struct {
		Author struct {
			Text string `json:"text"`
		} `json:"author"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single.Author.Text != "" {
		l.Names = []string{single.Author.Text}
	}
	return nil
}

// DBLP appends " 0001", " 0002" to same-name authors.
var dblpDisambigRe = regexp.MustCompile(`\s+\d{4}$`)

func (e dblpEntry) toRaw() (Raw, error) {
	if e.Info.Title == "" {
		return Raw{}, fmt.Errorf("missing title")
	}

	authors := make([]string, 0, len(e.Info.Authors.Names))
	for _, name := range e.Info.Authors.Names {
		name = dblpDisambigRe.ReplaceAllString(strings.TrimSpace(name), "")
		if name != "" {
			authors = append(authors, name)
		}
	}

	id := e.Info.Key
	if id == "" {
		id = e.ID
	}

	return Raw{
		Source:   "dblp",
		SourceID: id,
		Title:    e.Info.Title,
		Authors:  authors,
		Year:     e.Info.Year.String(),
		Venue:    e.Info.Venue.String(),
		DOI:      e.Info.DOI,
		VenueURL: e.Info.EE,
	}, nil
}

// openReviewEntry is a flattened OpenReview note (V2 API shape with the
// content.<field>.value indirection already collapsed by the adapter).
type openReviewEntry struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Authors  []string       `json:"authors"`
	Year     FlexibleString `json:"year"`
	Venue    string         `json:"venue"`
	Abstract string         `json:"abstract"`
	PDF      string         `json:"pdf"`
	Code     string         `json:"code"`
}

func (e openReviewEntry) toRaw() (Raw, error) {
	if e.ID == "" {
		return Raw{}, fmt.Errorf("missing note id")
	}
	return Raw{
		Source:       "openreview",
		SourceID:     e.ID,
		Title:        e.Title,
		Authors:      e.Authors,
		Year:         e.Year.String(),
		Venue:        e.Venue,
		Abstract:     e.Abstract,
		OpenReviewID: e.ID,
		PDFURL:       e.PDF,
		CodeURL:      e.Code,
		VenueURL:     "https://openreview.net/forum?id=" + e.ID,
	}, nil
}

// pmlrEntry is one paper from a PMLR volume's YAML metadata, exported to
// JSONL by the adapter. PMLR splits names upstream; the raw string is
// reassembled here and re-split by the canonicalizer, which also repairs
// PMLR's misplaced-initial habit.
type pmlrEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	Year       FlexibleString `json:"year"`
	Volume     FlexibleString `json:"volume"`
	Abstract   string         `json:"abstract"`
	PDF        string         `json:"pdf"`
	OpenReview string         `json:"openreview"`
	Venue      string         `json:"venue"`
}

func (e pmlrEntry) toRaw() (Raw, error) {
	if e.ID == "" {
		return Raw{}, fmt.Errorf("missing paper id")
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			authors = append(authors, name)
		}
	}

	return Raw{
		Source:       "pmlr",
		SourceID:     e.ID,
		Title:        e.Title,
		Authors:      authors,
		Year:         e.Year.String(),
		Venue:        e.Venue,
		Abstract:     e.Abstract,
		PDFURL:       e.PDF,
		OpenReviewID: e.OpenReview,
	}, nil
}

// neuripsEntry is one paper from the NeurIPS proceedings listing.
type neuripsEntry struct {
	Hash     string         `json:"hash"`
	Title    string         `json:"title"`
	Authors  []string       `json:"authors"`
	Year     FlexibleString `json:"year"`
	Abstract string         `json:"abstract"`
	PDF      string         `json:"pdf_url"`
	Page     string         `json:"paper_url"`
}

func (e neuripsEntry) toRaw() (Raw, error) {
	if e.Hash == "" {
		return Raw{}, fmt.Errorf("missing paper hash")
	}
	return Raw{
		Source:   "neurips",
		SourceID: e.Hash,
		Title:    e.Title,
		Authors:  e.Authors,
		Year:     e.Year.String(),
		Venue:    "NeurIPS",
		Abstract: e.Abstract,
		PDFURL:   e.PDF,
		VenueURL: e.Page,
	}, nil
}

// cvfEntry is one paper scraped from a CVF open-access index page.
type cvfEntry struct {
	Page     string         `json:"page_url"`
	Title    string         `json:"title"`
	Authors  string         `json:"authors"` // comma-separated, as scraped
	Year     FlexibleString `json:"year"`
	Venue    string         `json:"venue"` // CVPR, ICCV, WACV
	Abstract string         `json:"abstract"`
	PDF      string         `json:"pdf_url"`
}

func (e cvfEntry) toRaw() (Raw, error) {
	if e.Page == "" {
		return Raw{}, fmt.Errorf("missing page url")
	}

	var authors []string
	for _, name := range strings.Split(e.Authors, ",") {
		if name = strings.TrimSpace(name); name != "" {
			authors = append(authors, name)
		}
	}

	return Raw{
		Source:   "cvf",
		SourceID: e.Page,
		Title:    e.Title,
		Authors:  authors,
		Year:     e.Year.String(),
		Venue:    e.Venue,
		Abstract: e.Abstract,
		PDFURL:   e.PDF,
		VenueURL: e.Page,
	}, nil
}

// s2Entry is a Semantic Scholar graph API paper.
type s2Entry struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Year        FlexibleString `json:"year"`
	Venue       string         `json:"venue"`
	Abstract    string         `json:"abstract"`
	ExternalIDs struct {
		DOI   string         `json:"DOI"`
		ArXiv string         `json:"ArXiv"`
	} `json:"externalIds"`
	OpenAccessPDF struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

func (e s2Entry) toRaw() (Raw, error) {
	if e.PaperID == "" {
		return Raw{}, fmt.Errorf("missing paperId")
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	return Raw{
		Source:   "semanticscholar",
		SourceID: e.PaperID,
		Title:    e.Title,
		Authors:  authors,
		Year:     e.Year.String(),
		Venue:    e.Venue,
		Abstract: e.Abstract,
		DOI:      e.ExternalIDs.DOI,
		ArXivID:  e.ExternalIDs.ArXiv,
		PDFURL:   e.OpenAccessPDF.URL,
	}, nil
}

// openAlexEntry is an OpenAlex work.
type openAlexEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PublicationYear FlexibleString `json:"publication_year"`
	DOI             string         `json:"doi"`
	HostVenue       struct {
		DisplayName string `json:"display_name"`
	} `json:"host_venue"`
	OpenAccess struct {
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
}

func (e openAlexEntry) toRaw() (Raw, error) {
	if e.ID == "" {
		return Raw{}, fmt.Errorf("missing work id")
	}

	authors := make([]string, 0, len(e.Authorships))
	for _, a := range e.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}

	// OpenAlex DOIs arrive as full URLs.
	doi := strings.TrimPrefix(e.DOI, "https://doi.org/")

	return Raw{
		Source:   "openalex",
		SourceID: e.ID,
		Title:    e.DisplayName,
		Authors:  authors,
		Year:     e.PublicationYear.String(),
		Venue:    e.HostVenue.DisplayName,
		DOI:      doi,
		PDFURL:   e.OpenAccess.OAURL,
	}, nil
}

// Parse decodes one source-native JSON line into a Raw record.
// Unrecognized sources fall back to the Raw schema itself, so adapters
// may also pre-convert.
func Parse(source string, line []byte) (Raw, error) {
	decode := func(v interface{ toRaw() (Raw, error) }) (Raw, error) {
		if err := json.Unmarshal(line, v); err != nil {
			return Raw{}, fmt.Errorf("parsing %s entry: %w", source, err)
		}
		return v.toRaw()
	}

	switch source {
	case "dblp":
		return decode(&dblpEntry{})
	case "openreview":
		return decode(&openReviewEntry{})
	case "pmlr":
		return decode(&pmlrEntry{})
	case "neurips":
		return decode(&neuripsEntry{})
	case "cvf":
		return decode(&cvfEntry{})
	case "semanticscholar":
		return decode(&s2Entry{})
	case "openalex":
		return decode(&openAlexEntry{})
	default:
		var raw Raw
		if err := json.Unmarshal(line, &raw); err != nil {
			return Raw{}, fmt.Errorf("parsing record: %w", err)
		}
		if raw.Source == "" {
			raw.Source = source
		}
		if raw.SourceID == "" {
			return Raw{}, fmt.Errorf("missing source_id")
		}
		return raw, nil
	}
}
