package prompt

import (
	"strings"
)

const unspecified = "unspecified"

// Builder renders the final image prompt from composed constraint lists
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// Sections are the inputs of the render template, in output order
type Sections struct {
	Tier        string
	Recipient   string
	Occasion    string
	Vibe        string
	MustInclude []string
	Negative    []string
	Notes       string
}

// BuildGenerationPrompt renders the fixed template: style preamble, context,
// MUST-INCLUDE list, NEGATIVE list, then the notes verbatim
func (b *Builder) BuildGenerationPrompt(s Sections) string {
	sections := []string{
		b.loader.GetStylePreamble(),
		"CONTEXT:\n" + bulletList([]string{
			"Tier: " + orUnspecified(s.Tier),
			"Recipient: " + orUnspecified(s.Recipient),
			"Occasion: " + orUnspecified(s.Occasion),
			"Vibe: " + orUnspecified(s.Vibe),
		}),
		"MUST-INCLUDE:\n" + bulletList(s.MustInclude),
		"NEGATIVE:\n" + bulletList(s.Negative),
		"NOTES (verbatim, for context):\n" + s.Notes,
	}

	return strings.Join(sections, "\n\n")
}

// BuildVerifierPrompt renders the instructions plus the notes the image is judged against
func (b *Builder) BuildVerifierPrompt(notes string) string {
	return b.loader.GetVerifierInstructions() + "\n\nCUSTOMER NOTES:\n" + notes
}

func bulletList(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(line)
	}
	return sb.String()
}

func orUnspecified(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return unspecified
	}
	return s
}
