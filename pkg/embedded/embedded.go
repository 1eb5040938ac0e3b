package embedded

import (
	_ "embed"
)

// Embed lexicon tables, prompt text and static assets
//
//go:embed data/lexicon/lexicon.yaml
var LexiconYAML []byte

//go:embed data/prompts/style_preamble.txt
var StylePreambleTxt []byte

//go:embed data/prompts/verifier_instructions.txt
var VerifierInstructionsTxt []byte

//go:embed data/assets/placeholder.svg
var PlaceholderSVG []byte
