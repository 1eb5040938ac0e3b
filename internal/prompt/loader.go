package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/giftbox-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetStylePreamble loads the fixed style preamble that opens every render prompt
func (l *Loader) GetStylePreamble() string {
	return strings.TrimSpace(string(embedded.StylePreambleTxt))
}

// GetVerifierInstructions loads the instructions given to the verification model
func (l *Loader) GetVerifierInstructions() string {
	return strings.TrimSpace(string(embedded.VerifierInstructionsTxt))
}
