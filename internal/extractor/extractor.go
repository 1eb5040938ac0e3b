package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/giftbox-api/internal/lexicon"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
)

const (
	// MaxIncludeTags bounds focus items so the prompt stays focused
	MaxIncludeTags = 6
	// MaxAvoidTags bounds exclusion expansions
	MaxAvoidTags = 8
)

var (
	// "10 years old", "10-year-old", "10yo", "10 y/o"
	agePattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*-?\s*(?:years?[\s-]*old|yrs?[\s-]*old|y/o|yo)\b`)

	// "10:10", "7.45", "23:59"
	timePattern = regexp.MustCompile(`\b([01]?\d|2[0-3])[:.]([0-5]\d)\b`)

	// A time literal only counts near a dial or time word, so dates and prices are skipped
	timeCuePattern = regexp.MustCompile(`(?i)\b(?:watch(?:es)?|wristwatch|clocks?|dial|time|o'?clock|at|showing|shows|reads?|set)\b`)

	// Clause boundaries. A period only splits when followed by whitespace or end of
	// text, so "10.10" survives as a time token.
	clauseSeparator = regexp.MustCompile(`[,;\n!?]+|\.(?:\s+|$)|\b(?:but|however)\b`)

	// Newlines are kept since they separate list entries
	whitespace = regexp.MustCompile(`[^\S\n]+`)
)

// Extractor turns free-text notes into a TagSet. It holds only read-only
// state and is safe for concurrent use.
type Extractor struct {
	lex    *lexicon.Lexicon
	policy models.BrandPolicy
}

// New creates an extractor over a lexicon and brand policy
func New(lex *lexicon.Lexicon, policy models.BrandPolicy) *Extractor {
	return &Extractor{lex: lex, policy: policy}
}

// Extract parses notes into tags. It never fails; unmatched text contributes nothing.
func (e *Extractor) Extract(notes string) models.TagSet {
	text := Normalize(notes)

	tags := models.TagSet{
		Colors:          e.colors(text),
		BrandsRequested: []string{},
		BrandsBlocked:   []string{},
		Modes:           []models.Mode{},
	}

	tags.AgeBand = e.ageBand(text)
	tags.TimeToken = timeToken(text)

	for _, brand := range e.brands(text) {
		if e.policy.Permits(brand) {
			tags.BrandsRequested = append(tags.BrandsRequested, brand)
		} else {
			tags.BrandsBlocked = append(tags.BrandsBlocked, brand)
		}
	}

	tags.IncludeTags, tags.AvoidTags = e.itemTags(text)

	if e.lex.IsThemed(text) {
		tags.Modes = append(tags.Modes, models.ModeThemed)
	}

	return tags
}

// Normalize lowercases, unifies apostrophes and collapses horizontal whitespace
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func (e *Extractor) ageBand(text string) string {
	for _, m := range agePattern.FindAllStringSubmatch(text, -1) {
		age, err := strconv.Atoi(m[1])
		if err != nil || age < 1 || age > 99 {
			continue
		}
		if band, ok := e.lex.AgeBandFor(age); ok {
			return band.Label
		}
	}
	return ""
}

// timeCueWindow is how far around a time literal a cue word may sit
const timeCueWindow = 24

func timeToken(text string) string {
	for _, loc := range timePattern.FindAllStringSubmatchIndex(text, -1) {
		from := max(loc[0]-timeCueWindow, 0)
		to := min(loc[1]+timeCueWindow, len(text))
		if timeCuePattern.MatchString(text[from:to]) {
			return text[loc[2]:loc[3]] + ":" + text[loc[4]:loc[5]]
		}
	}
	return ""
}

func (e *Extractor) colors(text string) []string {
	return firstAppearance(text, e.lex.ColorPatterns())
}

// brands scans longest names first and masks each hit so a shorter brand
// cannot match inside it, then orders results by position in the text.
func (e *Extractor) brands(text string) []string {
	masked := []byte(text)
	type hit struct {
		name string
		pos  int
	}
	var hits []hit

	for _, p := range e.lex.BrandPatterns() {
		locs := p.Regexp.FindAllIndex(masked, -1)
		if len(locs) == 0 {
			continue
		}
		hits = append(hits, hit{name: p.Value, pos: locs[0][0]})
		for _, loc := range locs {
			for i := loc[0]; i < loc[1]; i++ {
				masked[i] = ' '
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.name)
	}
	return names
}

// itemTags walks clauses in order, attributing each phrase to the trigger that
// opened it. Text before any trigger is a bare list entry and counts as include.
// A tag that is both requested and avoided is only avoided.
func (e *Extractor) itemTags(text string) (include, avoid []string) {
	var rawInclude, rawAvoid []string

	for _, clause := range splitClauses(text) {
		for _, seg := range e.segments(clause) {
			found := firstAppearance(seg.text, e.lex.ItemPatterns())
			if seg.family == lexicon.FamilyAvoid {
				rawAvoid = append(rawAvoid, found...)
			} else {
				rawInclude = append(rawInclude, found...)
			}
		}
	}

	// Only retained avoids exclude includes; a dropped avoid emits no negative
	avoid = capUnique(rawAvoid, nil, MaxAvoidTags)
	avoided := make(map[string]bool, len(avoid))
	for _, tag := range avoid {
		avoided[tag] = true
	}
	include = capUnique(rawInclude, avoided, MaxIncludeTags)
	return include, avoid
}

type segment struct {
	family lexicon.TriggerFamily
	text   string
}

type triggerHit struct {
	family     lexicon.TriggerFamily
	start, end int
}

func (e *Extractor) segments(clause string) []segment {
	var hits []triggerHit
	for _, trig := range e.lex.Triggers() {
		for _, loc := range trig.Regexp.FindAllStringIndex(clause, -1) {
			hits = append(hits, triggerHit{family: trig.Family, start: loc[0], end: loc[1]})
		}
	}

	// Earliest first, longest first on ties; drop anything overlapping an accepted
	// hit so "don't include" is not also read as "include".
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})
	var accepted []triggerHit
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		accepted = append(accepted, h)
		lastEnd = h.end
	}

	if len(accepted) == 0 {
		return []segment{{family: lexicon.FamilyInclude, text: clause}}
	}

	var segs []segment
	if prefix := strings.TrimSpace(clause[:accepted[0].start]); prefix != "" {
		segs = append(segs, segment{family: lexicon.FamilyInclude, text: prefix})
	}
	for i, h := range accepted {
		end := len(clause)
		if i+1 < len(accepted) {
			end = accepted[i+1].start
		}
		segs = append(segs, segment{family: h.family, text: clause[h.end:end]})
	}
	return segs
}

func splitClauses(text string) []string {
	var clauses []string
	for _, part := range clauseSeparator.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			clauses = append(clauses, part)
		}
	}
	return clauses
}

// firstAppearance returns the values of all matching patterns ordered by where
// they first occur in the text
func firstAppearance(text string, patterns []lexicon.Pattern) []string {
	type hit struct {
		value string
		pos   int
	}
	var hits []hit
	seen := make(map[string]bool)
	for _, p := range patterns {
		if p.Regexp == nil || seen[p.Value] {
			continue
		}
		if loc := p.Regexp.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{value: p.Value, pos: loc[0]})
			seen[p.Value] = true
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	values := make([]string, 0, len(hits))
	for _, h := range hits {
		values = append(values, h.value)
	}
	return values
}

func capUnique(tags []string, exclude map[string]bool, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, tag := range tags {
		if len(out) == limit {
			break
		}
		if seen[tag] || exclude[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
