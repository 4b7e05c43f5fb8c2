package resolve

import (
	"fmt"
	"sort"

	"github.com/mlanthology/anthology/internal/authorname"
	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/normalize"
)

// compatibleMention reports whether two parsed mentions could name the
// same person: equal family keys and reconcilable given names.
func compatibleMention(a, b normalize.Mention) bool {
	return authorname.FamilyKey(a.Name.Family) == authorname.FamilyKey(b.Name.Family) &&
		authorname.InitialsCompatible(a.Name.Given, b.Name.Given)
}

// cluster is one person under construction. A locked cluster came from
// a previous snapshot and its slug can never change.
type cluster struct {
	rep      authorname.Name
	slug     string
	locked   bool
	variants map[string]bool
	credits  int
}

func (c *cluster) addVariants(vs ...string) {
	for _, v := range vs {
		if v != "" {
			c.variants[v] = true
		}
	}
}

// mentionRef addresses one credit slot on one merged paper.
type mentionRef struct {
	paper int
	pos   int
}

// specificity orders mentions so spelled-out names found clusters and
// initials join them. Longer given text is more specific.
func specificity(given string) int {
	n := 0
	for _, t := range authorname.GivenTokens(given) {
		n += len(t)
	}
	return n
}

// clusterAuthors resolves every credited mention across the merged
// papers to a canonical author, seeding from prior-snapshot authors so
// published slugs stay attached to the same person. It fills each
// paper's credit list in place and returns the canonical authors.
func clusterAuthors(papers []merged, prior []*catalog.Author) ([]*catalog.Author, []catalog.Warning) {
	var warnings []catalog.Warning

	blocks := make(map[string][]mentionRef)
	for pi := range papers {
		for mi, m := range papers[pi].Mentions {
			key := authorname.FamilyKey(m.Name.Name.Family)
			blocks[key] = append(blocks[key], mentionRef{paper: pi, pos: mi})
		}
	}

	// Prior authors become locked clusters, seeded whether or not any
	// current mention matches them. They are emitted even with no
	// credits this run, so an author's record and slug outlive the
	// adapter file that introduced them.
	priorByFamily := make(map[string][]*catalog.Author)
	for _, a := range prior {
		key := authorname.FamilyKey(a.Family)
		priorByFamily[key] = append(priorByFamily[key], a)
	}
	for _, as := range priorByFamily {
		sort.Slice(as, func(i, j int) bool { return as[i].Slug < as[j].Slug })
	}

	// Walk every family that has either current mentions or prior
	// authors: a prior author whose name never appears in this run
	// still survives into the output.
	familySet := make(map[string]bool, len(blocks))
	for k := range blocks {
		familySet[k] = true
	}
	for k := range priorByFamily {
		familySet[k] = true
	}
	familyKeys := make([]string, 0, len(familySet))
	for k := range familySet {
		familyKeys = append(familyKeys, k)
	}
	sort.Strings(familyKeys)

	var all []*cluster
	assigned := make(map[mentionRef]*cluster)

	for _, fam := range familyKeys {
		var clusters []*cluster
		for _, a := range priorByFamily[fam] {
			c := &cluster{
				rep:      authorname.Name{Given: a.Given, Family: a.Family},
				slug:     a.Slug,
				locked:   true,
				variants: make(map[string]bool),
			}
			c.addVariants(a.Variants...)
			clusters = append(clusters, c)
		}

		refs := blocks[fam]
		sort.SliceStable(refs, func(i, j int) bool {
			a := papers[refs[i].paper].Mentions[refs[i].pos].Name
			b := papers[refs[j].paper].Mentions[refs[j].pos].Name
			sa, sb := specificity(a.Name.Given), specificity(b.Name.Given)
			if sa != sb {
				return sa > sb
			}
			if a.Key != b.Key {
				return a.Key < b.Key
			}
			if refs[i].paper != refs[j].paper {
				return refs[i].paper < refs[j].paper
			}
			return refs[i].pos < refs[j].pos
		})

		for _, ref := range refs {
			m := &papers[ref.paper].Mentions[ref.pos]

			var matches []*cluster
			for _, c := range clusters {
				if authorname.InitialsCompatible(c.rep.Given, m.Name.Name.Given) {
					matches = append(matches, c)
				}
			}

			var target *cluster
			switch len(matches) {
			case 0:
				target = &cluster{rep: m.Name.Name, variants: make(map[string]bool)}
				clusters = append(clusters, target)
			default:
				target = matches[0]
				if len(matches) > 1 {
					warnings = append(warnings, catalog.Warning{
						Stage:  "resolve",
						Entity: m.Name.Raw,
						Detail: fmt.Sprintf("mention compatible with %d authors, attached to %q", len(matches), target.rep.Display()),
					})
				}
				if !target.locked && specificity(m.Name.Name.Given) > specificity(target.rep.Given) {
					target.rep = m.Name.Name
				}
			}

			target.addVariants(append([]string{m.Name.Raw}, m.Variants...)...)
			target.credits++
			assigned[ref] = target
		}

		all = append(all, clusters...)
	}

	warnings = append(warnings, assignSlugs(all)...)

	// Fill credits with the canonical spelling.
	for pi := range papers {
		p := &papers[pi]
		p.Paper.Authors = p.Paper.Authors[:0]
		for mi := range p.Mentions {
			c := assigned[mentionRef{paper: pi, pos: mi}]
			p.Paper.Authors = append(p.Paper.Authors, catalog.Credit{
				Given:  c.rep.Given,
				Family: c.rep.Family,
				Slug:   c.slug,
			})
		}
	}

	var authors []*catalog.Author
	for _, c := range all {
		if c.credits == 0 && !c.locked {
			continue
		}
		a := &catalog.Author{Slug: c.slug, Given: c.rep.Given, Family: c.rep.Family}
		for v := range c.variants {
			a.Variants = append(a.Variants, v)
		}
		sort.Strings(a.Variants)
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Slug < authors[j].Slug })
	return authors, warnings
}

// assignSlugs gives every unlocked cluster a permanent slug. Collisions
// with any existing or reserved slug append a numeric suffix: a second,
// distinct Wei Zhang becomes zhang-wei-2.
func assignSlugs(all []*cluster) []catalog.Warning {
	var warnings []catalog.Warning

	taken := make(map[string]bool)
	for _, c := range all {
		if c.locked {
			taken[c.slug] = true
		}
	}

	for _, c := range all {
		if c.locked {
			continue
		}
		base := authorname.Slug(c.rep)
		slug := base
		for i := 2; taken[slug]; i++ {
			slug = fmt.Sprintf("%s-%d", base, i)
		}
		if slug != base {
			warnings = append(warnings, catalog.Warning{
				Stage:  "resolve",
				Entity: slug,
				Detail: fmt.Sprintf("distinct authors share the name %q", c.rep.Display()),
			})
		}
		c.slug = slug
		taken[slug] = true
	}
	return warnings
}
