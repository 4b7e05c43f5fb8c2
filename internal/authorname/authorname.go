// Package authorname parses, repairs, and canonicalizes author name strings.
//
// Source metadata spells the same person many ways: "J. Q. Public",
// "John Quincy Public", "Public, John", with or without diacritics,
// sometimes with markup or annotations leaked from upstream. This
// package produces a cleaned display form, an ASCII comparison key
// used for identity matching, and a URL-safe slug.
package authorname

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name holds the given/family split of an author name.
// Display forms keep diacritics; folding happens only at key time.
type Name struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// IsEmpty reports whether both name parts are empty.
func (n Name) IsEmpty() bool {
	return n.Given == "" && n.Family == ""
}

// Display returns the "Given Family" display form.
func (n Name) Display() string {
	return strings.TrimSpace(n.Given + " " + n.Family)
}

// particles are lowercase name parts that belong with the family name
// ("Luc Van Gool" splits as given="Luc", family="Van Gool").
var particles = map[string]bool{
	"van": true, "von": true, "de": true, "del": true, "della": true,
	"der": true, "den": true, "di": true, "du": true, "das": true,
	"dos": true, "do": true, "da": true, "le": true, "la": true,
	"el": true, "al": true, "bin": true, "ibn": true, "ten": true,
	"ter": true, "het": true,
}

// Parse splits a full name string into given/family parts.
//
// A comma switches to "Family, Given" order. Without a comma the last
// word is the family name, except that a lowercase particle pulls
// everything from itself onward into the family ("First de la Last").
func Parse(raw string) Name {
	raw = cleanRaw(raw)
	if raw == "" {
		return Name{}
	}

	if i := strings.Index(raw, ","); i >= 0 {
		return Repair(Name{
			Family: strings.TrimSpace(raw[:i]),
			Given:  strings.TrimSpace(raw[i+1:]),
		})
	}

	parts := strings.Fields(raw)
	if len(parts) == 1 {
		return Name{Family: parts[0]}
	}

	familyStart := len(parts) - 1
	for i := 1; i < len(parts)-1; i++ {
		if particles[parts[i]] {
			familyStart = i
			break
		}
	}

	return Repair(Name{
		Given:  strings.Join(parts[:familyStart], " "),
		Family: strings.Join(parts[familyStart:], " "),
	})
}

// bibtexAccents maps residual BibTeX accent commands to their unicode forms.
var bibtexAccents = map[string]string{
	`\L`: "Ł", `\l`: "ł", `\O`: "Ø", `\o`: "ø",
	`\AE`: "Æ", `\ae`: "æ", `\AA`: "Å", `\aa`: "å",
	`\SS`: "ẞ", `\ss`: "ß", `\DH`: "Ð", `\dh`: "ð",
	`\TH`: "Þ", `\th`: "þ", `\NG`: "Ŋ", `\ng`: "ŋ",
	`\i`: "ı", `\j`: "ȷ",
}

var (
	// degree/pronoun annotations that are never part of a real name
	annotationRe = regexp.MustCompile(`(?i)\s*\((?:He/Him|She/Her|They/Them|PhD|Ph\.?D\.?|Dr\.?|Jr\.?|Sr\.?|M\.?D\.?|M\.?Sc\.?)\)\s*`)
	// parenthetical nicknames, e.g. "Jeong (Kate) Lee"
	parenNameRe    = regexp.MustCompile(`\s*\([\p{L}-]+\)\s*`)
	singleLetterRe = regexp.MustCompile(`^[A-Za-z]\.?$`)
)

// cleanRaw strips markup and annotations from a raw name string before parsing.
func cleanRaw(name string) string {
	name = html.UnescapeString(name)
	name = strings.ReplaceAll(name, "*", "")
	name = annotationRe.ReplaceAllString(name, " ")
	name = parenNameRe.ReplaceAllString(name, " ")
	for cmd, ch := range bibtexAccents {
		name = strings.ReplaceAll(name, cmd, ch)
	}
	return strings.Join(strings.Fields(name), " ")
}

// Repair runs the name-fixup pipeline on an already-split name.
// Sources misplace initials and particles in predictable ways; each
// fixup targets one observed corruption pattern.
func Repair(n Name) Name {
	n = Name{Given: cleanRaw(n.Given), Family: cleanRaw(n.Family)}
	n = fixMisplacedInitial(n)
	n = fixMisplacedParticle(n)
	n = fixSingleLetterFamily(n)
	n = fixLeadingHyphenFamily(n)
	n = fixJunkFields(n)
	return n
}

var misplacedInitialRe = regexp.MustCompile(`^([A-Za-z]\.?)\s+(.+)$`)

// fixMisplacedInitial moves a leading single-letter initial from family to
// given: {"David", "A Clifton"} -> {"David A", "Clifton"}.
func fixMisplacedInitial(n Name) Name {
	m := misplacedInitialRe.FindStringSubmatch(n.Family)
	if m == nil {
		return n
	}
	given := m[1]
	if n.Given != "" {
		given = n.Given + " " + m[1]
	}
	return Name{Given: given, Family: m[2]}
}

// fixMisplacedParticle moves trailing particles from given to family:
// {"Luc Van", "Gool"} -> {"Luc", "Van Gool"}. Handles multi-word runs
// like "van der".
func fixMisplacedParticle(n Name) Name {
	if n.Given == "" || n.Family == "" {
		return n
	}
	words := strings.Fields(n.Given)
	if len(words) < 2 {
		return n
	}

	start := -1
	for i := len(words) - 1; i >= 1; i-- {
		if particles[strings.ToLower(words[i])] {
			start = i
		} else {
			break
		}
	}
	if start < 0 {
		return n
	}
	return Name{
		Given:  strings.Join(words[:start], " "),
		Family: strings.Join(words[start:], " ") + " " + n.Family,
	}
}

// fixSingleLetterFamily untangles surname-first input that left a lone
// initial in the family field: {"Butakov I.", "D."} -> {"I. D.", "Butakov"}.
// Legitimate single-letter surnames (Weinan E) have no initials in the
// given field and are left alone.
func fixSingleLetterFamily(n Name) Name {
	if !singleLetterRe.MatchString(n.Family) || n.Given == "" {
		return n
	}
	tokens := strings.Fields(n.Given)

	var nameParts, initials []string
	for _, t := range tokens {
		if singleLetterRe.MatchString(t) {
			initials = append(initials, t)
		} else {
			nameParts = append(nameParts, t)
		}
	}
	if len(initials) == 0 || len(nameParts) == 0 {
		return n
	}
	return Name{
		Given:  strings.Join(append(initials, n.Family), " "),
		Family: strings.Join(nameParts, " "),
	}
}

// fixLeadingHyphenFamily rejoins an orphaned hyphenated surname fragment:
// {"Saeed Sharifi", "-Malvajerdi"} -> {"Saeed", "Sharifi-Malvajerdi"}.
func fixLeadingHyphenFamily(n Name) Name {
	if !strings.HasPrefix(n.Family, "-") || n.Given == "" {
		return n
	}
	tokens := strings.Fields(n.Given)
	return Name{
		Given:  strings.Join(tokens[:len(tokens)-1], " "),
		Family: tokens[len(tokens)-1] + n.Family,
	}
}

// fixJunkFields clears name parts that contain no letters at all, or that
// leaked email addresses or stray braces from upstream exports.
func fixJunkFields(n Name) Name {
	isJunk := func(s string) bool {
		if s == "" {
			return false
		}
		if strings.Contains(s, "@") || strings.HasPrefix(s, "{") || strings.HasSuffix(s, "}") {
			return true
		}
		for _, r := range s {
			if unicode.IsLetter(r) {
				return false
			}
		}
		return true
	}

	given, family := n.Given, n.Family
	if isJunk(given) {
		given = ""
	}
	if family == "" || isJunk(family) {
		// Family is gone but given may hold the whole name
		// (e.g. given="Lihua Xie", family="()").
		if given != "" {
			return Parse(given)
		}
		return Name{}
	}
	return Name{Given: given, Family: family}
}

// foldTransformer strips combining marks after NFKD decomposition,
// turning "García" into "Garcia".
var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// asciiFallback covers letters that NFKD cannot decompose (they are
// distinct letters, not accented ones) but that have conventional
// ASCII romanizations.
var asciiFallback = strings.NewReplacer(
	"Ł", "L", "ł", "l", "Ø", "O", "ø", "o",
	"Æ", "AE", "æ", "ae", "Œ", "OE", "œ", "oe",
	"ß", "ss", "ẞ", "SS", "Đ", "D", "đ", "d",
	"Ð", "D", "ð", "d", "Þ", "Th", "þ", "th",
	"Ŋ", "NG", "ŋ", "ng", "ı", "i", "ȷ", "j",
)

// Fold converts text to a lowercase ASCII approximation for comparison.
// Characters with no ASCII rendering are dropped.
func Fold(s string) string {
	s = asciiFallback.Replace(s)
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts text to a URL-safe slug.
func Slugify(text string) string {
	return strings.Trim(nonAlnumRe.ReplaceAllString(Fold(text), "-"), "-")
}

// Slug returns the URL slug for a name, family part first, matching the
// display order of author page URLs. Returns "unknown" when nothing of
// the name survives folding.
func Slug(n Name) string {
	s := Slugify(strings.TrimSpace(n.Family + " " + n.Given))
	if s == "" {
		return "unknown"
	}
	return s
}

var nonLetterRe = regexp.MustCompile(`[^a-z]`)

// FamilyKey returns the folded, letters-only family name used for
// identity blocking and citation keys.
func FamilyKey(family string) string {
	return nonLetterRe.ReplaceAllString(Fold(family), "")
}

// GivenTokens returns the folded given-name tokens with trailing periods
// removed, e.g. "J. Quincy" -> ["j", "quincy"].
func GivenTokens(given string) []string {
	var tokens []string
	for _, t := range strings.Fields(Fold(given)) {
		t = strings.Trim(t, ".-")
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Key returns the comparison key for a name: family key plus folded
// given tokens. Two mentions with equal keys always refer to the same
// identity cluster; compatible-but-unequal keys are reconciled by
// InitialsCompatible.
func Key(n Name) string {
	return FamilyKey(n.Family) + "|" + strings.Join(GivenTokens(n.Given), " ")
}

// InitialsCompatible reports whether two given-name strings could spell
// the same person. Token sequences are aligned in order; a single letter
// matches any token starting with it ("J. Q." ~ "John Quincy"). The
// first tokens must align, and the shorter sequence must be an in-order
// match of the longer, so "John" ~ "John Quincy" but "Quincy" !~ "John
// Quincy". Empty given names are only compatible with each other:
// merging every bare surname would over-merge.
func InitialsCompatible(a, b string) bool {
	at, bt := GivenTokens(a), GivenTokens(b)
	if len(at) == 0 || len(bt) == 0 {
		return len(at) == len(bt)
	}
	if len(at) > len(bt) {
		at, bt = bt, at
	}
	if !tokenCompatible(at[0], bt[0]) {
		return false
	}
	// Greedy in-order alignment of the remaining shorter tokens.
	j := 1
	for i := 1; i < len(at); i++ {
		matched := false
		for ; j < len(bt); j++ {
			if tokenCompatible(at[i], bt[j]) {
				matched = true
				j++
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// tokenCompatible reports whether two folded name tokens match: equal
// strings, or one is a single-letter initial of the other.
func tokenCompatible(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 1 {
		return strings.HasPrefix(b, a)
	}
	if len(b) == 1 {
		return strings.HasPrefix(a, b)
	}
	return false
}
