package validate

import (
	"strings"
	"testing"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
)

func assemble(t *testing.T, papers []*catalog.Paper, authors []*catalog.Author) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Assemble(papers, authors)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func cleanPaper(key string) *catalog.Paper {
	return &catalog.Paper{
		Key: key, Title: "A Perfectly Reasonable Paper Title",
		NormTitle: "a perfectly reasonable paper title",
		Year:      2021, Venue: "icml",
		Authors: []catalog.Credit{{Given: "Jane", Family: "Smith", Slug: "smith-jane"}},
		PDFURL:  "https://proceedings.mlr.press/v139/smith21a/smith21a.pdf",
	}
}

func findChecks(findings []Finding) map[string]int {
	out := make(map[string]int)
	for _, f := range findings {
		out[f.Check]++
	}
	return out
}

func TestRunCleanCatalog(t *testing.T) {
	c := assemble(t,
		[]*catalog.Paper{cleanPaper("smith2021icml-perfectly")},
		[]*catalog.Author{{Slug: "smith-jane", Given: "Jane", Family: "Smith"}},
	)
	findings := Run(c, normalize.DefaultVenues())
	if len(findings) != 0 {
		for _, f := range findings {
			t.Logf("%s", f)
		}
		t.Fatalf("clean catalog produced %d findings", len(findings))
	}
}

func TestRunFlagsDirtyPaper(t *testing.T) {
	p := cleanPaper("smith2021icml-broken")
	p.Title = "LEARNING TO &AMP; FORGET IN <DIV>DEEP</DIV> NETWORKS $"
	p.Authors = append(p.Authors, catalog.Credit{
		Given: "bob@example.com", Family: "Jones (PhD)", Slug: "jones-bob",
	})
	p.Year = 1870
	p.Venue = "secret-workshop"
	p.PDFURL = "ftp://old server/file"

	c := assemble(t,
		[]*catalog.Paper{p},
		[]*catalog.Author{
			{Slug: "smith-jane", Given: "Jane", Family: "Smith"},
			{Slug: "jones-bob", Given: "Bob", Family: "Jones"},
		},
	)
	checks := findChecks(Run(c, normalize.DefaultVenues()))

	for _, want := range []string{
		"allcaps_title", "html_in_title", "html_entity_in_title",
		"unbalanced_latex", "email_in_author", "annotation_in_author",
		"ancient_year", "unknown_venue", "bad_url", "space_in_url",
	} {
		if checks[want] == 0 {
			t.Errorf("check %q did not fire; got %v", want, checks)
		}
	}
}

func TestRunFlagsMojibake(t *testing.T) {
	p := cleanPaper("garcia2021icml-learning")
	p.Title = "Learning with GarcÃ­a Estimators"
	p.Abstract = "By GarcÃ­a et al."

	c := assemble(t,
		[]*catalog.Paper{p},
		[]*catalog.Author{{Slug: "smith-jane", Given: "Jane", Family: "Smith"}},
	)
	checks := findChecks(Run(c, normalize.DefaultVenues()))
	if checks["mojibake_in_title"] == 0 || checks["mojibake_in_abstract"] == 0 {
		t.Errorf("mojibake not detected: %v", checks)
	}
}

func TestRunFlagsKeyYearMismatch(t *testing.T) {
	p := cleanPaper("smith2020icml-perfectly")
	p.Year = 2021

	c := assemble(t,
		[]*catalog.Paper{p},
		[]*catalog.Author{{Slug: "smith-jane", Given: "Jane", Family: "Smith"}},
	)
	checks := findChecks(Run(c, normalize.DefaultVenues()))
	if checks["key_year_mismatch"] == 0 {
		t.Errorf("key year mismatch not detected: %v", checks)
	}
}

func TestRunFlagsDuplicateTitles(t *testing.T) {
	a := cleanPaper("smith2021icml-perfectly")
	b := cleanPaper("jones2021icml-perfectly")
	b.Authors = []catalog.Credit{{Given: "Bob", Family: "Jones", Slug: "jones-bob"}}

	c := assemble(t,
		[]*catalog.Paper{a, b},
		[]*catalog.Author{
			{Slug: "smith-jane", Given: "Jane", Family: "Smith"},
			{Slug: "jones-bob", Given: "Bob", Family: "Jones"},
		},
	)
	checks := findChecks(Run(c, normalize.DefaultVenues()))
	if checks["duplicate_title"] == 0 {
		t.Errorf("duplicate title not detected: %v", checks)
	}
}

func TestSeverityOrdering(t *testing.T) {
	p := cleanPaper("smith2021icml-perfectly")
	p.Year = 0                     // error: invalid_year
	p.Title = strings.Repeat(p.Title, 12) // info: long_title

	c := assemble(t,
		[]*catalog.Paper{p},
		[]*catalog.Author{{Slug: "smith-jane", Given: "Jane", Family: "Smith"}},
	)
	findings := Run(c, normalize.DefaultVenues())
	if len(findings) < 2 {
		t.Fatalf("findings = %v", findings)
	}
	if findings[0].Severity != Error {
		t.Errorf("errors not sorted first: %v", findings[0])
	}

	errors, warnings, infos := Summary(findings)
	if errors == 0 || infos == 0 {
		t.Errorf("Summary = %d/%d/%d", errors, warnings, infos)
	}
}
