package composer

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/giftbox-api/internal/extractor"
	"github.com/Conceptual-Machines/giftbox-api/internal/lexicon"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/internal/prompt"
)

// Rule tag for the blueprint's per-unit item count, replaced in focus mode
const tagItemCount = "_item_count"

// Item tag the dial time depends on; avoiding watches drops the time rule
const tagWatch = "watch"

// Fixed rule phrasing
const (
	blueprintUnitsFmt     = "an open gift box with %d nested compartments"
	blueprintItemCountFmt = "at least %d distinct items in each compartment"
	focusItemCountFmt     = "up to %d supporting items per compartment, always secondary to the focus items"

	paletteOverrideFmt  = "palette must visibly include these colors: %s"
	paletteDominant     = "the requested colors are the dominant palette, not a minor accent"
	paletteDefaultFmt   = "default palette: %s"
	brandScopeFmt       = "branding may appear only for: %s"
	brandOthersFmt      = "no brands, logos or brand names other than %s"
	brandBlockedFmt     = "no %s branding, logos or products"
	brandNone           = "no visible text, logos or brand names anywhere"
	focusFmt            = "FOCUS ITEMS, the dominant and clearly visible subject of the box: %s"
	focusSecondary      = "non-focus items must be minimal, generic and secondary"
	focusNoNovelty      = "no unrelated novelty items"
	ageBandFmt          = "contents appropriate for the %s age band"
	timeTokenFmt        = "any watch or clock face shows the time %s"
	listSeparator       = ", "
	lastBrandsSeparator = " and "
)

// rule is a constraint line, optionally tied to a canonical item tag so it can
// be suppressed when that tag is avoided
type rule struct {
	text string
	tag  string
}

type constraints struct {
	must     []rule
	negative []rule
}

func (c *constraints) addMust(text, tag string) {
	c.must = append(c.must, rule{text: text, tag: tag})
}

func (c *constraints) addNegative(text string) {
	c.negative = append(c.negative, rule{text: text})
}

// suppress drops every positive tied to one of the tags
func (c *constraints) suppress(tags map[string]bool) {
	kept := c.must[:0]
	for _, r := range c.must {
		if r.tag != "" && tags[r.tag] {
			continue
		}
		kept = append(kept, r)
	}
	c.must = kept
}

// Composer merges extracted tags with the lexicon into a constraint set.
// It holds only read-only state and is safe for concurrent use.
type Composer struct {
	lex     *lexicon.Lexicon
	builder *prompt.Builder
}

// New creates a composer over a lexicon
func New(lex *lexicon.Lexicon) *Composer {
	return &Composer{lex: lex, builder: prompt.NewPromptBuilder()}
}

// Compose builds the must-include and negative lists and renders the prompt.
// The result depends only on its inputs and the lexicon.
func (c *Composer) Compose(req models.RequestContext, tags models.TagSet, policy models.BrandPolicy) models.ComposedConstraints {
	out := &constraints{}

	avoided := make(map[string]bool, len(tags.AvoidTags))
	for _, tag := range tags.AvoidTags {
		avoided[tag] = true
	}

	occasion, occasionKnown := c.lex.Occasion(req.Occasion)
	themed := tags.HasMode(models.ModeThemed) || (occasionKnown && occasion.Themed)

	c.applyMotifs(out, req, occasion, occasionKnown)
	c.applyVibe(out, req)
	blueprint := c.applyBlueprint(out, req.Tier)
	c.applyPalette(out, req, tags)
	c.applyBrandPolicy(out, tags, policy)
	c.applyAvoid(out, tags, avoided)
	c.applyFocus(out, tags, avoided, blueprint)
	c.applySafety(out, tags, themed)

	// Avoid is authoritative over anything tagged earlier or later
	out.suppress(avoided)

	result := models.ComposedConstraints{
		MustInclude: dedupe(out.must),
		Negative:    dedupe(out.negative),
	}

	result.PromptText = c.builder.BuildGenerationPrompt(prompt.Sections{
		Tier:        string(models.ParseTier(string(req.Tier))),
		Recipient:   req.Recipient,
		Occasion:    req.Occasion,
		Vibe:        req.Vibe,
		MustInclude: result.MustInclude,
		Negative:    result.Negative,
		Notes:       req.Notes,
	})

	return result
}

// Step 1: occasion and recipient motifs, plus the occasion's default-allowed items
func (c *Composer) applyMotifs(out *constraints, req models.RequestContext, occasion lexicon.MotifEntry, known bool) {
	fallbacks := c.lex.Fallbacks()

	if known {
		for _, motif := range occasion.Motifs {
			out.addMust(motif, "")
		}
		for _, tag := range occasion.Allows {
			if item, ok := c.lex.Item(tag); ok && item.Default != "" {
				out.addMust(item.Default, tag)
			}
		}
	} else {
		out.addMust(fallbacks.Occasion, "")
	}

	if recipient, ok := c.lex.Recipient(req.Recipient); ok {
		for _, motif := range recipient.Motifs {
			out.addMust(motif, "")
		}
	} else {
		out.addMust(fallbacks.Recipient, "")
	}
}

// Step 2: vibe style phrases
func (c *Composer) applyVibe(out *constraints, req models.RequestContext) {
	styles, ok := c.lex.Vibe(req.Vibe)
	if !ok {
		out.addMust(c.lex.Fallbacks().Vibe, "")
		return
	}
	for _, style := range styles {
		out.addMust(style, "")
	}
}

// Step 3: tier blueprint
func (c *Composer) applyBlueprint(out *constraints, tier models.Tier) lexicon.TierBlueprint {
	bp := c.lex.Tier(models.ParseTier(string(tier)))

	out.addMust(fmt.Sprintf(blueprintUnitsFmt, bp.Units), "")
	out.addMust(fmt.Sprintf(blueprintItemCountFmt, bp.ItemsPerUnit), tagItemCount)
	if bp.Hero != "" {
		out.addMust(bp.Hero, "")
	}
	if bp.HeroNegative != "" {
		out.addNegative(bp.HeroNegative)
	}
	return bp
}

// Step 4: explicit colors override the recipient-derived default palette
func (c *Composer) applyPalette(out *constraints, req models.RequestContext, tags models.TagSet) {
	if len(tags.Colors) > 0 {
		out.addMust(fmt.Sprintf(paletteOverrideFmt, strings.Join(tags.Colors, listSeparator)), "")
		out.addMust(paletteDominant, "")
		return
	}

	feminine, masculine := c.lex.GenderScore(extractor.Normalize(req.Recipient + " " + req.Notes))
	palette := lexicon.PaletteNeutral
	switch {
	case feminine > masculine:
		palette = lexicon.PaletteWarm
	case masculine > feminine:
		palette = lexicon.PaletteCool
	}
	out.addMust(fmt.Sprintf(paletteDefaultFmt, c.lex.Palette(palette)), "")
}

// Step 5: brand and logo policy
func (c *Composer) applyBrandPolicy(out *constraints, tags models.TagSet, policy models.BrandPolicy) {
	var permitted []string
	for _, brand := range tags.BrandsRequested {
		if policy.Permits(brand) {
			permitted = append(permitted, brand)
		}
	}

	if len(permitted) == 0 {
		out.addNegative(brandNone)
	} else {
		names := joinNames(permitted)
		out.addMust(fmt.Sprintf(brandScopeFmt, names), "")
		out.addNegative(fmt.Sprintf(brandOthersFmt, names))
	}

	for _, brand := range tags.BrandsBlocked {
		out.addNegative(fmt.Sprintf(brandBlockedFmt, brand))
	}
}

// Step 6: avoid tags expand to negatives and suppress matching defaults
func (c *Composer) applyAvoid(out *constraints, tags models.TagSet, avoided map[string]bool) {
	for _, tag := range tags.AvoidTags {
		item, ok := c.lex.Item(tag)
		if !ok {
			continue
		}
		for _, phrase := range item.Avoid {
			out.addNegative(phrase)
		}
	}
	out.suppress(avoided)
}

// Step 7: include tags switch to focus mode
func (c *Composer) applyFocus(out *constraints, tags models.TagSet, avoided map[string]bool, bp lexicon.TierBlueprint) {
	var labels []string
	for _, tag := range tags.IncludeTags {
		if avoided[tag] {
			continue
		}
		label := tag
		if item, ok := c.lex.Item(tag); ok && item.Label != "" {
			label = item.Label
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return
	}

	out.suppress(map[string]bool{tagItemCount: true})
	out.addMust(fmt.Sprintf(focusFmt, strings.Join(labels, listSeparator)), "")
	out.addMust(focusSecondary, "")
	out.addMust(fmt.Sprintf(focusItemCountFmt, bp.ItemsPerUnit), "")
	out.addNegative(focusNoNovelty)
}

// Step 8: safety negatives, age gating, themed cues and the dial time
func (c *Composer) applySafety(out *constraints, tags models.TagSet, themed bool) {
	safety := c.lex.Safety()

	minor := false
	if tags.AgeBand != "" {
		out.addMust(fmt.Sprintf(ageBandFmt, tags.AgeBand), "")
		if band, ok := c.lex.AgeBand(tags.AgeBand); ok {
			minor = band.Minor
		}
	}

	if themed {
		for _, cue := range safety.Themed.Cues {
			out.addMust(cue, "")
		}
		if minor && safety.Themed.MinorCue != "" {
			out.addMust(safety.Themed.MinorCue, "")
		}
		for _, negative := range safety.Themed.Negatives {
			out.addNegative(negative)
		}
	}

	if tags.TimeToken != "" {
		out.addMust(fmt.Sprintf(timeTokenFmt, tags.TimeToken), tagWatch)
	}

	for _, negative := range safety.Standing {
		out.addNegative(negative)
	}
	if minor {
		for _, negative := range safety.Minor {
			out.addNegative(negative)
		}
	}
}

func joinNames(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], listSeparator) + lastBrandsSeparator + names[len(names)-1]
}

func dedupe(rules []rule) []string {
	out := make([]string, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.text] {
			continue
		}
		seen[r.text] = true
		out = append(out, r.text)
	}
	return out
}
