package lexicon

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// Palette names used by the default palette heuristic
const (
	PaletteWarm    = "warm"
	PaletteCool    = "cool"
	PaletteNeutral = "neutral"
)

// Fallbacks are the generic phrases used when a lookup key is unknown
type Fallbacks struct {
	Occasion  string `yaml:"occasion"`
	Recipient string `yaml:"recipient"`
	Vibe      string `yaml:"vibe"`
}

// MotifEntry describes one occasion or recipient
type MotifEntry struct {
	Motifs  []string `yaml:"motifs"`
	Aliases []string `yaml:"aliases"`
	Allows  []string `yaml:"allows"` // item tags allowed by default
	Themed  bool     `yaml:"themed"`
}

// Brand is a brand name plus alternate spellings
type Brand struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Item is one canonical item tag
type Item struct {
	Tag      string   `yaml:"tag"`
	Label    string   `yaml:"label"`
	Synonyms []string `yaml:"synonyms"`
	Avoid    []string `yaml:"avoid"`   // negative expansions
	Default  string   `yaml:"default"` // default-allow phrase, if any
}

// AgeBand maps ages up to Max onto a label
type AgeBand struct {
	Label string `yaml:"label"`
	Max   int    `yaml:"max"`
	Minor bool   `yaml:"minor"`
}

// Triggers are the phrase families that open an include or avoid phrase
type Triggers struct {
	Avoid   []string `yaml:"avoid"`
	Include []string `yaml:"include"`
}

// GenderedWords drive the default palette heuristic
type GenderedWords struct {
	Feminine  []string `yaml:"feminine"`
	Masculine []string `yaml:"masculine"`
}

// TierBlueprint is the composition density of a tier
type TierBlueprint struct {
	Units        int    `yaml:"units"`
	ItemsPerUnit int    `yaml:"items_per_unit"`
	Hero         string `yaml:"hero"`
	HeroNegative string `yaml:"hero_negative"`
}

// ThemedSafety holds the cues and negatives added in themed mode
type ThemedSafety struct {
	Cues      []string `yaml:"cues"`
	MinorCue  string   `yaml:"minor_cue"`
	Negatives []string `yaml:"negatives"`
}

// Safety holds the negatives that are never content-dependent
type Safety struct {
	Standing []string     `yaml:"standing"`
	Minor    []string     `yaml:"minor"`
	Themed   ThemedSafety `yaml:"themed"`
}

// Tables is the raw YAML document
type Tables struct {
	Fallbacks      Fallbacks                `yaml:"fallbacks"`
	Occasions      map[string]MotifEntry    `yaml:"occasions"`
	Recipients     map[string]MotifEntry    `yaml:"recipients"`
	Vibes          map[string][]string      `yaml:"vibes"`
	Colors         []string                 `yaml:"colors"`
	Brands         []Brand                  `yaml:"brands"`
	Items          []Item                   `yaml:"items"`
	AgeBands       []AgeBand                `yaml:"age_bands"`
	Triggers       Triggers                 `yaml:"triggers"`
	ThemedKeywords []string                 `yaml:"themed_keywords"`
	GenderedWords  GenderedWords            `yaml:"gendered_words"`
	Palettes       map[string]string        `yaml:"palettes"`
	Tiers          map[string]TierBlueprint `yaml:"tiers"`
	Safety         Safety                   `yaml:"safety"`
}

// Pattern is a compiled whole-word matcher for one value
type Pattern struct {
	Value  string
	Regexp *regexp.Regexp
}

// TriggerFamily tells whether a trigger opens an include or an avoid phrase
type TriggerFamily int

const (
	FamilyInclude TriggerFamily = iota
	FamilyAvoid
)

// Trigger is a compiled trigger phrase
type Trigger struct {
	Family TriggerFamily
	Phrase string
	Regexp *regexp.Regexp
}

// Lexicon is the immutable, compiled form of the tables.
// It is safe for concurrent use; slices returned by its methods must not be modified.
type Lexicon struct {
	tables     Tables
	occasions  map[string]MotifEntry
	recipients map[string]MotifEntry
	vibes      map[string][]string
	items      map[string]Item

	colorPatterns []Pattern
	brandPatterns []Pattern
	itemPatterns  []Pattern
	triggers      []Trigger
	themed        *regexp.Regexp
	feminine      *regexp.Regexp
	masculine     *regexp.Regexp
}

// Load compiles the embedded tables
func Load() (*Lexicon, error) {
	return Parse(embedded.LexiconYAML)
}

// MustLoad is like Load but panics on error
func MustLoad() *Lexicon {
	lex, err := Load()
	if err != nil {
		panic(err)
	}
	return lex
}

// LoadFile compiles tables from a YAML file on disk
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, validates and compiles a YAML lexicon document
func Parse(data []byte) (*Lexicon, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lexicon: %w", err)
	}
	return compile(tables), nil
}

// Validate checks that every table the composer relies on is present
func (t *Tables) Validate() error {
	if t.Fallbacks.Occasion == "" || t.Fallbacks.Recipient == "" || t.Fallbacks.Vibe == "" {
		return fmt.Errorf("fallbacks for occasion, recipient and vibe are required")
	}
	if len(t.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}

	seen := make(map[string]bool, len(t.Items))
	for _, item := range t.Items {
		if item.Tag == "" {
			return fmt.Errorf("item with empty tag")
		}
		if seen[item.Tag] {
			return fmt.Errorf("duplicate item tag: %s", item.Tag)
		}
		seen[item.Tag] = true
		if len(item.Synonyms) == 0 {
			return fmt.Errorf("item %s has no synonyms", item.Tag)
		}
		if len(item.Avoid) == 0 {
			return fmt.Errorf("item %s has no avoid expansion", item.Tag)
		}
	}

	for key, entry := range t.Occasions {
		for _, tag := range entry.Allows {
			if !seen[tag] {
				return fmt.Errorf("occasion %s allows unknown item tag: %s", key, tag)
			}
		}
	}

	if len(t.AgeBands) == 0 {
		return fmt.Errorf("age bands are required")
	}
	for i := 1; i < len(t.AgeBands); i++ {
		if t.AgeBands[i].Max <= t.AgeBands[i-1].Max {
			return fmt.Errorf("age bands must be in ascending order (%s after %s)",
				t.AgeBands[i].Label, t.AgeBands[i-1].Label)
		}
	}

	if len(t.Triggers.Avoid) == 0 || len(t.Triggers.Include) == 0 {
		return fmt.Errorf("both include and avoid triggers are required")
	}

	for _, name := range []string{PaletteWarm, PaletteCool, PaletteNeutral} {
		if t.Palettes[name] == "" {
			return fmt.Errorf("palette %s is required", name)
		}
	}

	for _, tier := range []models.Tier{models.TierStandard, models.TierPremium} {
		bp, ok := t.Tiers[string(tier)]
		if !ok {
			return fmt.Errorf("tier %s is required", tier)
		}
		if bp.Units <= 0 || bp.ItemsPerUnit <= 0 {
			return fmt.Errorf("tier %s needs positive units and items_per_unit", tier)
		}
	}

	if len(t.Safety.Standing) == 0 {
		return fmt.Errorf("standing safety negatives are required")
	}

	return nil
}

func compile(t Tables) *Lexicon {
	lex := &Lexicon{
		tables:     t,
		occasions:  indexEntries(t.Occasions),
		recipients: indexEntries(t.Recipients),
		vibes:      make(map[string][]string, len(t.Vibes)),
		items:      make(map[string]Item, len(t.Items)),
	}

	for key, styles := range t.Vibes {
		lex.vibes[NormalizeKey(key)] = styles
	}

	for _, color := range t.Colors {
		lex.colorPatterns = append(lex.colorPatterns, Pattern{Value: color, Regexp: wordRegexp(color)})
	}

	// Longer brand names first so a multi-word brand is never shadowed by its head noun
	brands := make([]Brand, len(t.Brands))
	copy(brands, t.Brands)
	sort.SliceStable(brands, func(i, j int) bool {
		wi, wj := len(strings.Fields(brands[i].Name)), len(strings.Fields(brands[j].Name))
		if wi != wj {
			return wi > wj
		}
		return len(brands[i].Name) > len(brands[j].Name)
	})
	for _, brand := range brands {
		phrases := append([]string{brand.Name}, brand.Aliases...)
		lex.brandPatterns = append(lex.brandPatterns, Pattern{Value: brand.Name, Regexp: wordRegexp(phrases...)})
	}

	for _, item := range t.Items {
		lex.items[item.Tag] = item
		lex.itemPatterns = append(lex.itemPatterns, Pattern{Value: item.Tag, Regexp: wordRegexp(item.Synonyms...)})
	}

	for _, phrase := range t.Triggers.Avoid {
		lex.triggers = append(lex.triggers, Trigger{Family: FamilyAvoid, Phrase: phrase, Regexp: wordRegexp(phrase)})
	}
	for _, phrase := range t.Triggers.Include {
		lex.triggers = append(lex.triggers, Trigger{Family: FamilyInclude, Phrase: phrase, Regexp: wordRegexp(phrase)})
	}

	lex.themed = wordRegexp(t.ThemedKeywords...)
	lex.feminine = wordRegexp(t.GenderedWords.Feminine...)
	lex.masculine = wordRegexp(t.GenderedWords.Masculine...)

	return lex
}

func indexEntries(entries map[string]MotifEntry) map[string]MotifEntry {
	index := make(map[string]MotifEntry, len(entries))
	for key, entry := range entries {
		index[NormalizeKey(key)] = entry
	}
	// Aliases never override a primary key
	for _, entry := range entries {
		for _, alias := range entry.Aliases {
			if _, exists := index[NormalizeKey(alias)]; !exists {
				index[NormalizeKey(alias)] = entry
			}
		}
	}
	return index
}

// wordRegexp builds a case-insensitive whole-word alternation. Longer phrases
// are tried first so "teddy bear" wins over "teddy". Returns nil for no phrases.
func wordRegexp(phrases ...string) *regexp.Regexp {
	var parts []string
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(strings.ToLower(phrase))
		if phrase == "" {
			continue
		}
		words := strings.Fields(phrase)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		parts = append(parts, strings.Join(words, `\s+`))
	}
	if len(parts) == 0 {
		return nil
	}
	sort.SliceStable(parts, func(i, j int) bool { return len(parts[i]) > len(parts[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

// NormalizeKey lowercases, drops apostrophes and collapses separators so
// "Mother's  Day" and "mothers-day" both resolve to "mothers day"
func NormalizeKey(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("'", "", "’", "", "-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Occasion looks up an occasion by key or alias
func (l *Lexicon) Occasion(key string) (MotifEntry, bool) {
	entry, ok := l.occasions[NormalizeKey(key)]
	return entry, ok
}

// Recipient looks up a recipient by key or alias
func (l *Lexicon) Recipient(key string) (MotifEntry, bool) {
	entry, ok := l.recipients[NormalizeKey(key)]
	return entry, ok
}

// Vibe looks up vibe style phrases
func (l *Lexicon) Vibe(key string) ([]string, bool) {
	styles, ok := l.vibes[NormalizeKey(key)]
	return styles, ok
}

// Fallbacks returns the generic fallback phrases
func (l *Lexicon) Fallbacks() Fallbacks {
	return l.tables.Fallbacks
}

// Item returns a canonical item by tag
func (l *Lexicon) Item(tag string) (Item, bool) {
	item, ok := l.items[tag]
	return item, ok
}

// AgeBandFor maps an age onto its band
func (l *Lexicon) AgeBandFor(age int) (AgeBand, bool) {
	if age < 1 {
		return AgeBand{}, false
	}
	for _, band := range l.tables.AgeBands {
		if age <= band.Max {
			return band, true
		}
	}
	return AgeBand{}, false
}

// AgeBand returns a band by label
func (l *Lexicon) AgeBand(label string) (AgeBand, bool) {
	for _, band := range l.tables.AgeBands {
		if band.Label == label {
			return band, true
		}
	}
	return AgeBand{}, false
}

// Palette returns a default palette description
func (l *Lexicon) Palette(name string) string {
	return l.tables.Palettes[name]
}

// Tier returns the composition blueprint for a tier
func (l *Lexicon) Tier(tier models.Tier) TierBlueprint {
	if bp, ok := l.tables.Tiers[string(tier)]; ok {
		return bp
	}
	return l.tables.Tiers[string(models.TierStandard)]
}

// Safety returns the safety negatives and themed cues
func (l *Lexicon) Safety() Safety {
	return l.tables.Safety
}

// ColorPatterns returns color matchers in table order
func (l *Lexicon) ColorPatterns() []Pattern {
	return l.colorPatterns
}

// BrandPatterns returns brand matchers, multi-word names first
func (l *Lexicon) BrandPatterns() []Pattern {
	return l.brandPatterns
}

// ItemPatterns returns one synonym matcher per canonical tag, in table order
func (l *Lexicon) ItemPatterns() []Pattern {
	return l.itemPatterns
}

// Triggers returns avoid triggers followed by include triggers
func (l *Lexicon) Triggers() []Trigger {
	return l.triggers
}

// IsThemed reports whether the text contains a themed keyword
func (l *Lexicon) IsThemed(text string) bool {
	return l.themed != nil && l.themed.MatchString(text)
}

// GenderScore counts feminine and masculine word hits in the text
func (l *Lexicon) GenderScore(text string) (feminine, masculine int) {
	if l.feminine != nil {
		feminine = len(l.feminine.FindAllStringIndex(text, -1))
	}
	if l.masculine != nil {
		masculine = len(l.masculine.FindAllStringIndex(text, -1))
	}
	return feminine, masculine
}
