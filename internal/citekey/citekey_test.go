package citekey

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mlanthology/anthology/internal/catalog"
)

func TestFirstContentWord(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Attention Is All You Need", "attention"},
		{"On the Convergence of Adam", "convergence"},
		{"A Theory of Learning", "theory"},
		{`$\texttt{C2-DPO}$: Stable Direct Preference Optimization`, "c2dpo"},
		{"R-CNN Revisited", "rcnn"},
		{"GPT-4 Technical Report", "gpt4"},
		{"&quot;Why?&quot; Explanations in Models", "explanations"},
		{"Q Learning", "learning"}, // single letter skipped
		{"Q 2024", "q"},            // fallback: first lettered token
		{"X1 2024", "x1"},
		{"2024 123", "paper"}, // nothing usable at all
		{"", "paper"},
	}
	for _, tt := range tests {
		if got := FirstContentWord(tt.title); got != tt.want {
			t.Errorf("FirstContentWord(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func testPaper(family, title string, year int, venue, sourceID string) *catalog.Paper {
	return &catalog.Paper{
		Title:     title,
		NormTitle: strings.ToLower(title),
		Year:      year,
		Venue:     venue,
		Authors:   []catalog.Credit{{Given: "A", Family: family, Slug: strings.ToLower(family)}},
		Sources:   []catalog.Provenance{{Source: "dblp", SourceID: sourceID}},
	}
}

func TestBase(t *testing.T) {
	p := testPaper("Vaswani", "Attention Is All You Need", 2017, "neurips", "x")
	if got := Base(p); got != "vaswani2017neurips-attention" {
		t.Errorf("Base = %q", got)
	}
}

func TestAssignCollisionSuffixes(t *testing.T) {
	papers := []*catalog.Paper{
		testPaper("Lee", "Learning to Rank", 2021, "icml", "a"),
		testPaper("Lee", "Learning to Play", 2021, "icml", "b"),
		testPaper("Lee", "Learning to See", 2021, "icml", "c"),
	}

	if _, err := Assign(papers, nil); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// Suffixes follow the fixed assignment order, which ties on the
	// comparison title here: play, rank, see.
	if papers[1].Key != "lee2021icml-learning" {
		t.Errorf("play paper key = %q, want bare base", papers[1].Key)
	}
	if papers[0].Key != "lee2021icml-learning-b" {
		t.Errorf("rank paper key = %q, want -b", papers[0].Key)
	}
	if papers[2].Key != "lee2021icml-learning-c" {
		t.Errorf("see paper key = %q, want -c", papers[2].Key)
	}
}

func TestAssignKeepsPriorKeys(t *testing.T) {
	prior := []*catalog.Paper{
		testPaper("Lee", "Learning to Rank", 2021, "icml", "a"),
		testPaper("Lee", "Learning to Play", 2021, "icml", "b"),
	}
	prior[0].Key = "lee2021icml-learning"
	prior[1].Key = "lee2021icml-learning-b"

	// Same two papers plus a newcomer that collides with both.
	papers := []*catalog.Paper{
		testPaper("Lee", "Learning to Play", 2021, "icml", "b"),
		testPaper("Lee", "Learning to See", 2021, "icml", "c"),
		testPaper("Lee", "Learning to Rank", 2021, "icml", "a"),
	}

	if _, err := Assign(papers, prior); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if papers[2].Key != "lee2021icml-learning" {
		t.Errorf("rank paper lost its key: %q", papers[2].Key)
	}
	if papers[0].Key != "lee2021icml-learning-b" {
		t.Errorf("play paper lost its key: %q", papers[0].Key)
	}
	if papers[1].Key != "lee2021icml-learning-c" {
		t.Errorf("newcomer key = %q, want -c", papers[1].Key)
	}
}

func TestAssignReservesRetiredKeys(t *testing.T) {
	prior := []*catalog.Paper{
		testPaper("Lee", "Learning to Rank", 2021, "icml", "gone"),
	}
	prior[0].Key = "lee2021icml-learning"

	// Different paper, same base, no overlap with the prior one.
	papers := []*catalog.Paper{
		testPaper("Lee", "Learning Dynamics", 2021, "icml", "new"),
	}

	if _, err := Assign(papers, prior); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if papers[0].Key != "lee2021icml-learning-b" {
		t.Errorf("retired key reused: %q", papers[0].Key)
	}
}

func TestAssignRematchByDOI(t *testing.T) {
	prior := []*catalog.Paper{
		testPaper("Lee", "Learning to Rank", 2021, "icml", "old-id"),
	}
	prior[0].Key = "lee2021icml-learning"
	prior[0].DOI = "10.1/x"

	// Provenance changed wholesale, DOI survives; the title was
	// corrected so the recomputed base differs from the prior key.
	p := testPaper("Lee", "Ranking with Confidence", 2021, "icml", "new-id")
	p.DOI = "10.1/x"

	warnings, err := Assign([]*catalog.Paper{p}, prior)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if p.Key != "lee2021icml-learning" {
		t.Errorf("DOI rematch failed: key = %q", p.Key)
	}
	if len(warnings) != 1 {
		t.Errorf("base drift not warned: %v", warnings)
	}
}

func TestAssignSuffixExhaustion(t *testing.T) {
	var papers []*catalog.Paper
	for i := 0; i < 27; i++ {
		papers = append(papers,
			testPaper("Lee", "Learning", 2021, "icml", fmt.Sprintf("p%02d", i)))
	}
	if _, err := Assign(papers, nil); err == nil {
		t.Fatal("27 identical bases should exhaust the suffix alphabet")
	}
}

func TestAssignDeterministic(t *testing.T) {
	build := func(reversed bool) []*catalog.Paper {
		ps := []*catalog.Paper{
			testPaper("Lee", "Learning to Rank", 2021, "icml", "a"),
			testPaper("Lee", "Learning to Play", 2021, "icml", "b"),
			testPaper("Kim", "Diffusion Models", 2022, "neurips", "c"),
		}
		if reversed {
			ps[0], ps[2] = ps[2], ps[0]
		}
		return ps
	}

	a, b := build(false), build(true)
	if _, err := Assign(a, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Assign(b, nil); err != nil {
		t.Fatal(err)
	}

	akeys, bkeys := map[string]string{}, map[string]string{}
	for _, p := range a {
		akeys[p.NormTitle] = p.Key
	}
	for _, p := range b {
		bkeys[p.NormTitle] = p.Key
	}
	for title, key := range akeys {
		if bkeys[title] != key {
			t.Errorf("%q keyed %q then %q", title, key, bkeys[title])
		}
	}
}
