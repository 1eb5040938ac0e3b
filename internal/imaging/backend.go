package imaging

import (
	"context"
	"errors"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
)

// Backend names
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

var (
	ErrUnknownBackend = errors.New("unknown image backend")
	ErrMissingAPIKey  = errors.New("api key not configured")
	// ErrNoImage is returned when a backend answers without image content
	ErrNoImage = errors.New("backend returned no image")
)

// ImageBackend renders a prompt into an image
type ImageBackend interface {
	Generate(ctx context.Context, prompt string, params RenderParams) (*models.ContentRef, error)

	// Name returns the backend name (e.g., "openai", "gemini")
	Name() string
}

// Verifier judges a rendered image against the customer notes
type Verifier interface {
	Check(ctx context.Context, content *models.ContentRef, notes string) (*Verdict, error)
	Name() string
}

// PlaceholderProvider builds the static image returned when every attempt failed
type PlaceholderProvider interface {
	Build(ctx context.Context, req models.RequestContext) *models.ContentRef
}

// RenderParams are backend-neutral render settings
type RenderParams struct {
	AspectRatio  string // "1:1", "3:2", "2:3", "16:9", "9:16"
	OutputFormat string // "png", "jpeg", "webp"
	Quality      string // "low", "medium", "high", "auto"
}

// Verdict is the verifier's judgement of one image
type Verdict struct {
	Acceptable  bool     `json:"acceptable"`
	Missing     []string `json:"missing"`
	Explanation string   `json:"explanation"`
}

// Attempt records the outcome of one backend call
type Attempt struct {
	Content         *models.ContentRef
	Accepted        bool
	RejectionReason string
}

// mimeForFormat maps an output format onto its MIME type
func mimeForFormat(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// ModelName returns the model a backend renders with, or its name when unknown
func ModelName(b ImageBackend) string {
	if m, ok := b.(interface{ Model() string }); ok {
		return m.Model()
	}
	return b.Name()
}
