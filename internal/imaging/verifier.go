package imaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/internal/prompt"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"google.golang.org/genai"
)

const (
	defaultOpenAIVerifierModel = "gpt-4o-mini"
	defaultGeminiVerifierModel = "gemini-2.5-flash"
	mimeTypeJSON               = "application/json"
)

var errEmptyVerdict = errors.New("verifier returned an empty reply")

// OpenAIVerifier asks a vision chat model whether an image honours the notes
type OpenAIVerifier struct {
	client  *openai.Client
	model   string
	builder *prompt.Builder
}

// NewOpenAIVerifier creates a new OpenAI verifier
func NewOpenAIVerifier(apiKey, model string) *OpenAIVerifier {
	if model == "" {
		model = defaultOpenAIVerifierModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIVerifier{
		client:  &client,
		model:   model,
		builder: prompt.NewPromptBuilder(),
	}
}

func (v *OpenAIVerifier) Name() string {
	return BackendOpenAI
}

// Check sends the image with the verifier instructions and parses the JSON verdict
func (v *OpenAIVerifier) Check(ctx context.Context, content *models.ContentRef, notes string) (*Verdict, error) {
	imageURL := content.URI
	if len(content.Data) > 0 {
		imageURL = content.DataURI()
	}
	if imageURL == "" {
		return nil, ErrNoImage
	}

	instructions := v.builder.BuildVerifierPrompt(notes)

	span := sentry.StartSpan(ctx, "openai.verify")
	span.SetTag("model", v.model)
	defer span.Finish()

	startTime := time.Now()
	resp, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(v.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(instructions),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
			}),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		log.Printf("❌ OPENAI VERIFY FAILED after %v: %v", time.Since(startTime), err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("openai verify request failed: %w", err)
	}
	log.Printf("🔍 OPENAI VERIFY COMPLETED in %v", time.Since(startTime))

	if len(resp.Choices) == 0 {
		return nil, errEmptyVerdict
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

// GeminiVerifier judges images with a multimodal Gemini model in JSON mode
type GeminiVerifier struct {
	client  *genai.Client
	model   string
	builder *prompt.Builder
}

// NewGeminiVerifier creates a new Gemini verifier
func NewGeminiVerifier(ctx context.Context, apiKey, model string) (*GeminiVerifier, error) {
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiVerifierModel
	}
	return &GeminiVerifier{
		client:  client,
		model:   model,
		builder: prompt.NewPromptBuilder(),
	}, nil
}

func (v *GeminiVerifier) Name() string {
	return BackendGemini
}

// Check sends the image with the verifier instructions and parses the JSON verdict
func (v *GeminiVerifier) Check(ctx context.Context, content *models.ContentRef, notes string) (*Verdict, error) {
	var imagePart *genai.Part
	switch {
	case len(content.Data) > 0:
		imagePart = genai.NewPartFromBytes(content.Data, content.MIMEType)
	case content.URI != "":
		imagePart = genai.NewPartFromURI(content.URI, content.MIMEType)
	default:
		return nil, ErrNoImage
	}

	instructions := v.builder.BuildVerifierPrompt(notes)

	span := sentry.StartSpan(ctx, "gemini.verify")
	span.SetTag("model", v.model)
	defer span.Finish()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: mimeTypeJSON,
		Temperature:      genai.Ptr[float32](0),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(instructions), imagePart}, genai.RoleUser),
	}

	startTime := time.Now()
	result, err := v.client.Models.GenerateContent(ctx, v.model, contents, config)
	if err != nil {
		log.Printf("❌ GEMINI VERIFY FAILED after %v: %v", time.Since(startTime), err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("gemini verify request failed: %w", err)
	}
	log.Printf("🔍 GEMINI VERIFY COMPLETED in %v", time.Since(startTime))

	return parseVerdict(result.Text())
}

// parseVerdict reads the verifier's JSON reply, tolerating a markdown code fence
func parseVerdict(raw string) (*Verdict, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errEmptyVerdict
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}
	return &verdict, nil
}

// Reason summarizes a rejection for logs and results
func (v *Verdict) Reason() string {
	if v == nil {
		return ""
	}
	if len(v.Missing) > 0 {
		return "missing: " + strings.Join(v.Missing, ", ")
	}
	return v.Explanation
}
