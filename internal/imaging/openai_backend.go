package imaging

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIImageModel = "gpt-image-1"

// OpenAIBackend renders images through the OpenAI Images API
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a new OpenAI image backend
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = defaultOpenAIImageModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIBackend{
		client: &client,
		model:  model,
	}
}

// Name returns the backend name
func (b *OpenAIBackend) Name() string {
	return BackendOpenAI
}

// Model returns the resolved image model
func (b *OpenAIBackend) Model() string {
	return b.model
}

// Generate renders the prompt and returns the decoded image bytes
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, params RenderParams) (*models.ContentRef, error) {
	log.Printf("🎁 OPENAI IMAGE REQUEST STARTED (Model: %s)", b.model)

	transaction := sentry.StartTransaction(ctx, "openai.images.generate")
	defer transaction.Finish()

	transaction.SetTag("model", b.model)
	transaction.SetTag("backend", BackendOpenAI)

	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := b.client.Images.Generate(ctx, b.buildParams(prompt, params))
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI IMAGE REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}

	log.Printf("⏱️  OPENAI IMAGE CALL COMPLETED in %v", apiDuration)

	content, err := contentFromImages(resp, params.OutputFormat)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	transaction.SetTag("success", "true")
	return content, nil
}

func (b *OpenAIBackend) isDallE() bool {
	return strings.HasPrefix(strings.ToLower(b.model), "dall-e")
}

func (b *OpenAIBackend) buildParams(prompt string, params RenderParams) openai.ImageGenerateParams {
	req := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(b.model),
		N:      openai.Int(1),
		Size:   openAISize(params.AspectRatio, b.isDallE()),
	}

	if b.isDallE() {
		// dall-e returns URLs unless asked for base64
		req.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
		if params.Quality == "high" {
			req.Quality = openai.ImageGenerateParamsQualityHD
		} else {
			req.Quality = openai.ImageGenerateParamsQualityStandard
		}
		return req
	}

	req.OutputFormat = openAIOutputFormat(params.OutputFormat)
	req.Quality = openAIQuality(params.Quality)
	return req
}

func openAISize(aspectRatio string, dallE bool) openai.ImageGenerateParamsSize {
	switch aspectRatio {
	case "3:2", "4:3", "16:9":
		if dallE {
			return openai.ImageGenerateParamsSize1792x1024
		}
		return openai.ImageGenerateParamsSize1536x1024
	case "2:3", "3:4", "9:16":
		if dallE {
			return openai.ImageGenerateParamsSize1024x1792
		}
		return openai.ImageGenerateParamsSize1024x1536
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}

func openAIOutputFormat(format string) openai.ImageGenerateParamsOutputFormat {
	switch format {
	case "jpeg", "jpg":
		return openai.ImageGenerateParamsOutputFormatJPEG
	case "webp":
		return openai.ImageGenerateParamsOutputFormatWebP
	default:
		return openai.ImageGenerateParamsOutputFormatPNG
	}
}

func openAIQuality(quality string) openai.ImageGenerateParamsQuality {
	switch quality {
	case "low":
		return openai.ImageGenerateParamsQualityLow
	case "high":
		return openai.ImageGenerateParamsQualityHigh
	case "auto":
		return openai.ImageGenerateParamsQualityAuto
	default:
		return openai.ImageGenerateParamsQualityMedium
	}
}

func contentFromImages(resp *openai.ImagesResponse, format string) (*models.ContentRef, error) {
	if resp == nil || len(resp.Data) == 0 {
		return nil, ErrNoImage
	}
	image := resp.Data[0]

	if image.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(image.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return &models.ContentRef{MIMEType: mimeForFormat(format), Data: data}, nil
	}

	if image.URL != "" {
		return &models.ContentRef{URI: image.URL, MIMEType: mimeForFormat(format)}, nil
	}

	return nil, ErrNoImage
}
