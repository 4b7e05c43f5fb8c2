package normalize

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlanthology/anthology/internal/authorname"
)

// Venue describes one canonical publication venue.
type Venue struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"` // conference, journal, or workshop
	Aliases []string `yaml:"aliases,omitempty"`
}

// VenueTable maps raw venue strings from any source to canonical slugs.
type VenueTable struct {
	venues map[string]Venue
	lookup map[string]string // folded alias -> slug
}

// builtinVenues is the default table. A venues.yaml overlay can add
// venues or aliases without a rebuild.
var builtinVenues = map[string]Venue{
	"icml":    {Name: "International Conference on Machine Learning", Type: "conference"},
	"neurips": {Name: "Conference on Neural Information Processing Systems", Type: "conference", Aliases: []string{"NIPS", "Advances in Neural Information Processing Systems"}},
	"iclr":    {Name: "International Conference on Learning Representations", Type: "conference"},
	"iclrw":   {Name: "International Conference on Learning Representations Workshops", Type: "workshop"},
	"aistats": {Name: "International Conference on Artificial Intelligence and Statistics", Type: "conference"},
	"uai":     {Name: "Conference on Uncertainty in Artificial Intelligence", Type: "conference"},
	"colt":    {Name: "Annual Conference on Computational Learning Theory", Type: "conference", Aliases: []string{"CoLT", "Conference on Learning Theory"}},
	"alt":     {Name: "International Conference on Algorithmic Learning Theory", Type: "conference"},
	"acml":    {Name: "Asian Conference on Machine Learning", Type: "conference"},
	"corl":    {Name: "Conference on Robot Learning", Type: "conference", Aliases: []string{"CoRL"}},
	"midl":    {Name: "Medical Imaging with Deep Learning", Type: "conference"},
	"cpal":    {Name: "Conference on Parsimony and Learning", Type: "conference"},
	"l4dc":    {Name: "Learning for Dynamics and Control Conference", Type: "conference"},
	"clear":   {Name: "Conference on Causal Learning and Reasoning", Type: "conference", Aliases: []string{"CLeaR"}},
	"automl":  {Name: "International Conference on Automated Machine Learning", Type: "conference", Aliases: []string{"AutoML"}},
	"chil":    {Name: "Conference on Health, Inference, and Learning", Type: "conference"},
	"mlhc":    {Name: "Machine Learning for Healthcare Conference", Type: "conference"},
	"pgm":     {Name: "International Conference on Probabilistic Graphical Models", Type: "conference"},
	"log":     {Name: "Learning on Graphs Conference", Type: "conference", Aliases: []string{"LoG"}},
	"collas":  {Name: "Conference on Lifelong Learning Agents", Type: "conference", Aliases: []string{"CoLLAs"}},
	"isipta":  {Name: "International Symposium on Imprecise Probabilities: Theories and Applications", Type: "conference"},
	"cvpr":    {Name: "IEEE/CVF Conference on Computer Vision and Pattern Recognition", Type: "conference"},
	"cvprw":   {Name: "IEEE/CVF Conference on Computer Vision and Pattern Recognition Workshops", Type: "workshop"},
	"iccv":    {Name: "IEEE/CVF International Conference on Computer Vision", Type: "conference"},
	"iccvw":   {Name: "IEEE/CVF International Conference on Computer Vision Workshops", Type: "workshop"},
	"wacv":    {Name: "IEEE/CVF Winter Conference on Applications of Computer Vision", Type: "conference"},
	"wacvw":   {Name: "IEEE/CVF Winter Conference on Applications of Computer Vision Workshops", Type: "workshop"},
	"eccv":    {Name: "European Conference on Computer Vision", Type: "conference"},
	"eccvw":   {Name: "European Conference on Computer Vision Workshops", Type: "workshop"},
	"aaai":    {Name: "AAAI Conference on Artificial Intelligence", Type: "conference"},
	"ijcai":   {Name: "International Joint Conference on Artificial Intelligence", Type: "conference"},
	"jmlr":    {Name: "Journal of Machine Learning Research", Type: "journal"},
	"tmlr":    {Name: "Transactions on Machine Learning Research", Type: "journal"},
	"jair":    {Name: "Journal of Artificial Intelligence Research", Type: "journal"},
	"mlj":     {Name: "Machine Learning", Type: "journal", Aliases: []string{"Machine Learning Journal"}},
	"neco":    {Name: "Neural Computation", Type: "journal"},
	"ftml":    {Name: "Foundations and Trends in Machine Learning", Type: "journal"},
	"distill": {Name: "Distill", Type: "journal"},
	"mloss":   {Name: "Machine Learning Open Source Software", Type: "journal"},
	"dmlr":    {Name: "Journal of Data-centric Machine Learning Research", Type: "journal"},
}

// noise stripped from raw venue strings before alias lookup: ordinal
// and year prefixes like "Proceedings of the 38th ... 2021".
var venueNoiseRe = regexp.MustCompile(`\b(proceedings of( the)?|\d{1,3}(st|nd|rd|th)|annual|19\d{2}|20\d{2})\b`)

func foldVenue(raw string) string {
	v := authorname.Fold(raw)
	v = venueNoiseRe.ReplaceAllString(v, " ")
	v = nonAlnumWsRe.ReplaceAllString(v, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(v, " "))
}

// DefaultVenues returns a table holding only the built-in venues.
func DefaultVenues() *VenueTable {
	t := &VenueTable{venues: make(map[string]Venue), lookup: make(map[string]string)}
	for slug, v := range builtinVenues {
		t.add(slug, v)
	}
	return t
}

// LoadVenues builds a table from the built-ins plus the venues.yaml
// overlay at path. The overlay maps slugs to venue entries; a slug
// present in both replaces the built-in wholesale. A missing file is
// not an error.
func LoadVenues(path string) (*VenueTable, error) {
	t := DefaultVenues()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading venue table: %w", err)
	}

	overlay := make(map[string]Venue)
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for slug, v := range overlay {
		t.add(slug, v)
	}
	return t, nil
}

func (t *VenueTable) add(slug string, v Venue) {
	if v.Type == "" {
		v.Type = "workshop"
	}
	t.venues[slug] = v
	t.lookup[slug] = slug
	if v.Name != "" {
		t.lookup[foldVenue(v.Name)] = slug
	}
	for _, a := range v.Aliases {
		t.lookup[foldVenue(a)] = slug
	}
}

// Resolve maps a raw venue string to its canonical slug. Unknown
// venues get a slugified form of the raw string and known=false so the
// caller can flag the record rather than drop it.
func (t *VenueTable) Resolve(raw string) (slug string, known bool) {
	folded := foldVenue(raw)
	if s, ok := t.lookup[folded]; ok {
		return s, true
	}
	// "ICML 2021" and similar decorations fold to the bare alias; a
	// full proceedings string may still carry a volume tail, so retry
	// on each shrinking prefix of the folded tokens.
	tokens := strings.Fields(folded)
	for n := len(tokens) - 1; n > 0; n-- {
		if s, ok := t.lookup[strings.Join(tokens[:n], " ")]; ok {
			return s, true
		}
	}
	s := strings.ReplaceAll(folded, " ", "-")
	if s == "" {
		s = "unknown"
	}
	return s, false
}

// Name returns the display name for a slug, or the slug itself when
// the table has no entry.
func (t *VenueTable) Name(slug string) string {
	if v, ok := t.venues[slug]; ok {
		return v.Name
	}
	return slug
}

// Type classifies a slug as conference, journal, or workshop. Unknown
// slugs return "" so callers can fall back on their own heuristics.
func (t *VenueTable) Type(slug string) string {
	if v, ok := t.venues[slug]; ok {
		return v.Type
	}
	return ""
}

// Known reports whether slug has a table entry.
func (t *VenueTable) Known(slug string) bool {
	_, ok := t.venues[slug]
	return ok
}

// Slugs returns all known venue slugs in sorted order.
func (t *VenueTable) Slugs() []string {
	slugs := make([]string, 0, len(t.venues))
	for s := range t.venues {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}
