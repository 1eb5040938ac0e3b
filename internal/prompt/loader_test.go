package prompt

import (
	"strings"
	"testing"
)

func TestNewPromptLoader(t *testing.T) {
	loader := NewPromptLoader()
	if loader == nil {
		t.Fatal("NewPromptLoader() returned nil")
	}
}

func TestGetStylePreamble(t *testing.T) {
	loader := NewPromptLoader()
	content := loader.GetStylePreamble()

	if content == "" {
		t.Error("GetStylePreamble() returned empty string")
	}

	if !strings.Contains(content, "gift box") {
		t.Error("GetStylePreamble() does not contain expected content")
	}

	if strings.HasSuffix(content, "\n") {
		t.Error("GetStylePreamble() was not trimmed")
	}
}

func TestGetVerifierInstructions(t *testing.T) {
	loader := NewPromptLoader()
	content := loader.GetVerifierInstructions()

	// The verifier response is parsed as JSON with these keys
	for _, key := range []string{"acceptable", "missing", "explanation"} {
		if !strings.Contains(content, key) {
			t.Errorf("GetVerifierInstructions() does not mention %q", key)
		}
	}
}
