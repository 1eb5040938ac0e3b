package imaging

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	defaultGeminiImageModel = "gemini-2.5-flash-image"
	modalityImage           = "IMAGE"
)

// GeminiBackend renders images through Gemini's native image output
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a new Gemini image backend
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiImageModel
	}
	return &GeminiBackend{
		client: client,
		model:  model,
	}, nil
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// Name returns the backend name
func (b *GeminiBackend) Name() string {
	return BackendGemini
}

// Model returns the resolved image model
func (b *GeminiBackend) Model() string {
	return b.model
}

// Generate renders the prompt and returns the first inline image
func (b *GeminiBackend) Generate(ctx context.Context, prompt string, params RenderParams) (*models.ContentRef, error) {
	log.Printf("🎁 GEMINI IMAGE REQUEST STARTED (Model: %s)", b.model)

	transaction := sentry.StartTransaction(ctx, "gemini.images.generate")
	defer transaction.Finish()

	transaction.SetTag("model", b.model)
	transaction.SetTag("backend", BackendGemini)

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{modalityImage},
	}
	if params.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: params.AspectRatio}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI IMAGE REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini image request failed: %w", err)
	}

	log.Printf("⏱️  GEMINI IMAGE CALL COMPLETED in %v", apiDuration)

	content, err := contentFromGemini(result)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	transaction.SetTag("success", "true")
	return content, nil
}

// contentFromGemini picks the first inline image of the first candidate
func contentFromGemini(resp *genai.GenerateContentResponse) (*models.ContentRef, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = mimeForFormat("")
				}
				return &models.ContentRef{MIMEType: mimeType, Data: part.InlineData.Data}, nil
			}
		}
	}

	if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w: finish reason %s", ErrNoImage, candidate.FinishReason)
	}
	return nil, ErrNoImage
}
