// Package normalize converts raw source records into the canonical
// comparison schema used by entity resolution. Every transform here is
// pure and idempotent: normalizing an already-normalized value is a
// no-op, and a malformed record degrades to a flagged record, never an
// aborted run.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mlanthology/anthology/internal/authorname"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	latexCmdRe   = regexp.MustCompile(`\\[a-zA-Z]+\{([^}]*)\}`)
	bareLatexRe  = regexp.MustCompile(`\\[a-zA-Z]+`)
	mathDelimRe  = regexp.MustCompile(`[${}]`)
	nonAlnumWsRe = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// StripHTML removes HTML tags and decodes entities.
func StripHTML(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

// StripLaTeX removes LaTeX markup, keeping content inside braces.
// "\texttt{C2-DPO}: Stable Alignment" becomes "C2-DPO: Stable Alignment".
func StripLaTeX(text string) string {
	// Repeatedly unwrap \command{content} to handle nesting.
	prev := ""
	for prev != text {
		prev = text
		text = latexCmdRe.ReplaceAllString(text, "$1")
	}
	text = bareLatexRe.ReplaceAllString(text, "")
	return mathDelimRe.ReplaceAllString(text, "")
}

// Title returns the comparison form of a paper title: markup stripped,
// ASCII-folded, lowercased, punctuation removed, whitespace collapsed.
// Merge decisions operate only on this form, never on display text.
func Title(title string) string {
	t := StripLaTeX(StripHTML(title))
	t = authorname.Fold(t)
	t = nonAlnumWsRe.ReplaceAllString(t, "")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(t, " "))
}

// RepairMojibake reverses double-encoded UTF-8: bytes misread as
// ISO-8859-1 and re-encoded, turning "é" into "Ã©". Returns the input
// unchanged when no mojibake signature is present or the round-trip
// fails.
func RepairMojibake(text string) string {
	// Double-encoded UTF-8 always contains a rune in U+00C2..U+00DF
	// (the latin-1 reading of a 2-byte sequence's leading byte).
	suspicious := false
	for _, r := range text {
		if r >= 0xC2 && r <= 0xDF {
			suspicious = true
			break
		}
	}
	if !suspicious {
		return text
	}

	b := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			return text // not latin-1 encodable, so not mojibake
		}
		b = append(b, byte(r))
	}
	if !utf8.Valid(b) {
		return text
	}
	return string(b)
}

// TitleCase repairs obviously broken title casing: all-caps or
// all-lowercase titles are converted to simple title case. Mixed-case
// titles, the vast majority, pass through untouched.
func TitleCase(title string) string {
	var letters []rune
	for _, r := range title {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return title
	}

	allUpper, allLower := true, true
	for _, r := range letters {
		if !unicode.IsUpper(r) {
			allUpper = false
		}
		if !unicode.IsLower(r) {
			allLower = false
		}
	}
	if !allUpper && !allLower {
		return title
	}

	words := strings.Fields(strings.ToLower(title))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// DisplayTitle produces the display form of a raw title: mojibake
// repaired, entities decoded, broken casing fixed, whitespace collapsed.
// Markup is kept: LaTeX in displayed titles is rendered downstream.
func DisplayTitle(title string) string {
	t := html.UnescapeString(RepairMojibake(title))
	t = multiSpaceRe.ReplaceAllString(t, " ")
	return TitleCase(strings.TrimSpace(t))
}

var (
	mdLinkRe  = regexp.MustCompile(`\[(?:[^\]]*\])?[^\]]*\]\((https?://[^)]+)\)`)
	bareURLRe = regexp.MustCompile(`https?://\S+`)
)

// CleanCodeURL extracts a plain URL from a code link field. OpenReview's
// V1 API wrapped code links in markdown badge markup; some sources ship
// free text or bare filenames. Non-URL values are discarded.
func CleanCodeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://") {
		if !strings.Contains(raw, " ") && !strings.Contains(raw, ";") {
			return raw
		}
	}

	urls := mdLinkRe.FindAllStringSubmatch(raw, -1)
	if len(urls) > 0 {
		// Prefer repository links over aggregator badges.
		for _, m := range urls {
			if strings.Contains(m[1], "github.com") || strings.Contains(m[1], "gitlab.com") {
				return m[1]
			}
		}
		return urls[0][1]
	}

	if bare := bareURLRe.FindString(raw); bare != "" {
		return strings.TrimRight(bare, ".,;)")
	}

	return ""
}

// TitleTokens splits a comparison title into its token set.
func TitleTokens(normTitle string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(normTitle) {
		tokens[t] = true
	}
	return tokens
}

// TitleSimilarity computes token-set Jaccard similarity between two
// comparison titles. Returns 1 for identical sets, 0 for disjoint.
func TitleSimilarity(a, b string) float64 {
	ta, tb := TitleTokens(a), TitleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}
