package resolve

import (
	"testing"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
	"github.com/mlanthology/anthology/internal/record"
)

func normRecords(t *testing.T, raws ...record.Raw) []normalize.Record {
	t.Helper()
	n := normalize.New(normalize.DefaultVenues())
	var recs []normalize.Record
	for _, raw := range raws {
		rec, err := n.Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%s/%s): %v", raw.Source, raw.SourceID, err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestResolveMergesAcrossSources(t *testing.T) {
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/nips/VaswaniSPUJGKP17",
			Title: "Attention Is All You Need.", Year: "2017", Venue: "NeurIPS",
			Authors: []string{"Ashish Vaswani", "Noam Shazeer"},
			DOI:     "10.5555/3295222.3295349",
		},
		record.Raw{
			Source: "semanticscholar", SourceID: "204e3073",
			Title: "Attention is All you Need", Year: "2017", Venue: "NIPS",
			Authors:  []string{"A. Vaswani", "Noam Shazeer"},
			DOI:      "10.5555/3295222.3295349",
			Abstract: "The dominant sequence transduction models are based on recurrent networks.",
		},
	)

	res := Resolve(recs, nil, Options{})
	if len(res.Papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(res.Papers))
	}
	p := res.Papers[0]
	if len(p.Sources) != 2 {
		t.Errorf("Sources = %v, want both records", p.Sources)
	}
	if p.Abstract == "" {
		t.Error("abstract from lower-priority source dropped")
	}
	if p.Year != 2017 {
		t.Errorf("Year = %d", p.Year)
	}
	if len(p.Authors) != 2 {
		t.Fatalf("Authors = %v", p.Authors)
	}
	// "A. Vaswani" and "Ashish Vaswani" resolve to one author.
	if len(res.Authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(res.Authors))
	}
	if p.Authors[0].Slug != "vaswani-ashish" {
		t.Errorf("first credit slug = %q", p.Authors[0].Slug)
	}
}

func TestResolveVetoesConflictingDOIs(t *testing.T) {
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/Smith21a",
			Title: "Scaling Laws for Optimizers", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"}, DOI: "10.1/aaa",
		},
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/Smith21b",
			Title: "Scaling Laws for Optimizers", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"}, DOI: "10.1/bbb",
		},
	)

	res := Resolve(recs, nil, Options{})
	if len(res.Papers) != 2 {
		t.Fatalf("conflicting DOIs merged: got %d papers", len(res.Papers))
	}
	if len(res.Warnings) == 0 {
		t.Error("veto produced no warning")
	}
}

func TestResolveSplitsTransitiveDOISpan(t *testing.T) {
	// a and c conflict but never compare directly above threshold;
	// b bridges them with no DOI of its own.
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/A",
			Title: "Robust Estimation of Deep Network Gradients in Practice", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"}, DOI: "10.1/aaa",
		},
		record.Raw{
			Source: "openreview", SourceID: "b-bridge",
			Title: "Robust Estimation of Deep Network Gradients in Theory and Practice", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/C",
			Title: "Robust Estimation of Deep Network Gradients in Theory", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"}, DOI: "10.1/ccc",
		},
	)

	res := Resolve(recs, nil, Options{TitleThreshold: 0.80})
	if len(res.Papers) != 2 {
		t.Fatalf("got %d papers, want DOI-split pair", len(res.Papers))
	}
	for _, p := range res.Papers {
		if p.DOI == "" {
			t.Errorf("split partition lost its DOI: %+v", p)
		}
	}
}

func TestResolveYearOffByOne(t *testing.T) {
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/nips/X22",
			Title: "Emergent Abilities at Scale", Year: "2022", Venue: "NeurIPS",
			Authors: []string{"Wei Zhang"},
		},
		record.Raw{
			Source: "openalex", SourceID: "W123",
			Title: "Emergent Abilities at Scale", Year: "2023", Venue: "NeurIPS",
			Authors: []string{"Wei Zhang"},
		},
	)

	res := Resolve(recs, nil, Options{})
	if len(res.Papers) != 1 {
		t.Fatalf("off-by-one years not merged: %d papers", len(res.Papers))
	}
	// Years disagree, so the merged record carries a warning.
	if len(res.Warnings) == 0 {
		t.Error("year disagreement produced no warning")
	}
}

func TestResolveDistinctFirstAuthorsNeverMerge(t *testing.T) {
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/Smith21",
			Title: "Understanding Generalization", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/Jones21",
			Title: "Understanding Generalization", Year: "2021", Venue: "ICML",
			Authors: []string{"Sam Jones"},
		},
	)

	res := Resolve(recs, nil, Options{})
	if len(res.Papers) != 2 {
		t.Fatalf("different first authors merged: %d papers", len(res.Papers))
	}
}

func TestResolveAuthorInitials(t *testing.T) {
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/A21",
			Title: "Paper One", Year: "2021", Venue: "ICML",
			Authors: []string{"John Smith"},
		},
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/B21",
			Title: "Paper Two", Year: "2021", Venue: "ICML",
			Authors: []string{"J. Smith"},
		},
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/C21",
			Title: "Paper Three", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
	)

	res := Resolve(recs, nil, Options{})
	if len(res.Papers) != 3 {
		t.Fatalf("got %d papers", len(res.Papers))
	}
	// John and Jane stay apart; "J. Smith" joins one of them rather
	// than founding a third identity.
	if len(res.Authors) != 2 {
		for _, a := range res.Authors {
			t.Logf("author %q: %q %q", a.Slug, a.Given, a.Family)
		}
		t.Fatalf("got %d authors, want 2", len(res.Authors))
	}
}

func TestResolveKeepsPriorSlug(t *testing.T) {
	prior := []*catalog.Author{
		{Slug: "smith-john-2", Given: "John", Family: "Smith", Variants: []string{"John Smith"}},
	}
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/S22",
			Title: "A Second Paper", Year: "2022", Venue: "ICML",
			Authors: []string{"John Smith"},
		},
	)

	res := Resolve(recs, prior, Options{})
	if len(res.Authors) != 1 {
		t.Fatalf("got %d authors", len(res.Authors))
	}
	if res.Authors[0].Slug != "smith-john-2" {
		t.Errorf("prior slug not kept: %q", res.Authors[0].Slug)
	}
}

func TestResolveReservedSlugNotReused(t *testing.T) {
	// A prior author with no papers this run still owns their slug.
	prior := []*catalog.Author{
		{Slug: "smith-jo-anne", Given: "Jo-Anne", Family: "Smith"},
	}
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/S22",
			Title: "Fresh Results", Year: "2022", Venue: "ICML",
			Authors: []string{"Jo Anne Smith"},
		},
	)

	res := Resolve(recs, prior, Options{})
	if len(res.Authors) != 2 {
		t.Fatalf("got %d authors, want retained prior plus newcomer", len(res.Authors))
	}
	if res.Authors[0].Slug != "smith-jo-anne" {
		t.Errorf("prior slug gone: %q", res.Authors[0].Slug)
	}
	if res.Authors[1].Slug != "smith-jo-anne-2" {
		t.Errorf("newcomer slug = %q, want suffixed smith-jo-anne-2", res.Authors[1].Slug)
	}
}

func TestResolveRetainsAbsentPriorAuthors(t *testing.T) {
	prior := []*catalog.Author{
		{Slug: "smith-john", Given: "John", Family: "Smith", Variants: []string{"John Smith"}},
	}
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/Z22",
			Title: "Unrelated Work", Year: "2022", Venue: "ICML",
			Authors: []string{"Wei Zhang"},
		},
	)

	// No Smith record this run; the author still comes through.
	res := Resolve(recs, prior, Options{})
	var kept *catalog.Author
	for _, a := range res.Authors {
		if a.Slug == "smith-john" {
			kept = a
		}
	}
	if kept == nil {
		t.Fatalf("prior author dropped: %v", res.Authors)
	}
	if kept.Family != "Smith" || len(kept.Variants) == 0 {
		t.Errorf("prior author lost identity: %+v", kept)
	}

	// A later run that mentions the name again credits the retained
	// identity instead of minting a fresh slug for somebody else.
	next := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/S23",
			Title: "A Return to Form", Year: "2023", Venue: "ICML",
			Authors: []string{"John Smith"},
		},
	)
	res2 := Resolve(next, res.Authors, Options{})
	if got := res2.Papers[0].Authors[0].Slug; got != "smith-john" {
		t.Errorf("credit slug = %q, want smith-john", got)
	}
}

func TestResolveSplitsTransitiveForumIDSpan(t *testing.T) {
	// a and c carry conflicting forum ids and never union directly;
	// b bridges them with no forum id of its own.
	recs := normRecords(t,
		record.Raw{
			Source: "openreview", SourceID: "fa", OpenReviewID: "forum-aaa",
			Title: "Sparse Attention at Scale", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
		record.Raw{
			Source: "pmlr", SourceID: "v139-smith",
			Title: "Sparse Attention at Scale", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
		record.Raw{
			Source: "openreview", SourceID: "fc", OpenReviewID: "forum-ccc",
			Title: "Sparse Attention at Scale", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
	)

	res := Resolve(recs, nil, Options{})
	if len(res.Papers) != 2 {
		t.Fatalf("got %d papers, want forum-id split pair", len(res.Papers))
	}
	for _, p := range res.Papers {
		if p.OpenReviewID == "" {
			t.Errorf("split partition lost its forum id: %+v", p)
		}
	}
}

func TestResolvePrefersLongerTitleOnPriorityTie(t *testing.T) {
	// Same source, so priority cannot break the tie; the longer title
	// carries the subtitle and wins the display form.
	recs := normRecords(t,
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/a1",
			Title: "Curriculum Learning for Robots", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
		record.Raw{
			Source: "dblp", SourceID: "conf/icml/a2",
			Title: "Curriculum Learning for Robots: Field Study", Year: "2021", Venue: "ICML",
			Authors: []string{"Jane Smith"},
		},
	)

	res := Resolve(recs, nil, Options{TitleThreshold: 0.60})
	if len(res.Papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(res.Papers))
	}
	if got := res.Papers[0].Title; got != "Curriculum Learning for Robots: Field Study" {
		t.Errorf("Title = %q, want the longer form", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	raws := []record.Raw{
		{Source: "dblp", SourceID: "conf/icml/A", Title: "Alpha", Year: "2021", Venue: "ICML", Authors: []string{"Jane Smith", "Wei Zhang"}},
		{Source: "openreview", SourceID: "or-a", Title: "Alpha", Year: "2021", Venue: "ICML", Authors: []string{"J. Smith", "Wei Zhang"}},
		{Source: "dblp", SourceID: "conf/nips/B", Title: "Beta", Year: "2020", Venue: "NeurIPS", Authors: []string{"Wei Zhang"}},
	}
	forward := normRecords(t, raws...)
	backward := normRecords(t, raws[2], raws[1], raws[0])

	a := Resolve(forward, nil, Options{})
	b := Resolve(backward, nil, Options{})

	if len(a.Papers) != len(b.Papers) || len(a.Authors) != len(b.Authors) {
		t.Fatalf("shape differs: %d/%d papers, %d/%d authors",
			len(a.Papers), len(b.Papers), len(a.Authors), len(b.Authors))
	}
	for i := range a.Papers {
		if a.Papers[i].NormTitle != b.Papers[i].NormTitle {
			t.Errorf("paper %d order differs: %q vs %q", i, a.Papers[i].NormTitle, b.Papers[i].NormTitle)
		}
	}
	for i := range a.Authors {
		if a.Authors[i].Slug != b.Authors[i].Slug {
			t.Errorf("author %d differs: %q vs %q", i, a.Authors[i].Slug, b.Authors[i].Slug)
		}
	}
}
