package observability

import (
	"strconv"
	"strings"
)

// Pricing constants
const (
	costFormatPrecision = 6

	// gpt-image-1 pricing per 1024x1024 image
	gptImageLowPrice    = 0.011
	gptImageMediumPrice = 0.042
	gptImageHighPrice   = 0.167

	// dall-e-3 pricing per 1024x1024 image
	dallE3StandardPrice = 0.040
	dallE3HDPrice       = 0.080

	// Gemini 2.5 Flash Image pricing per image
	geminiFlashImagePrice = 0.039
)

// ImagePricing contains per-image pricing by quality
type ImagePricing struct {
	Low    float64
	Medium float64
	High   float64
}

// PricingTable contains pricing for all image models
var PricingTable = map[string]ImagePricing{
	"gpt-image-1": {
		Low:    gptImageLowPrice,
		Medium: gptImageMediumPrice,
		High:   gptImageHighPrice,
	},
	"dall-e-3": {
		Low:    dallE3StandardPrice,
		Medium: dallE3StandardPrice,
		High:   dallE3HDPrice,
	},
	"gemini-2.5-flash-image": {
		Low:    geminiFlashImagePrice,
		Medium: geminiFlashImagePrice,
		High:   geminiFlashImagePrice,
	},
}

// CalculateImageCost estimates the cost in USD of rendering images
func CalculateImageCost(model, quality string, images int) float64 {
	pricing, exists := PricingTable[strings.ToLower(model)]
	if !exists {
		// Default to gpt-image-1 pricing if model not found
		pricing = PricingTable["gpt-image-1"]
	}

	perImage := pricing.Medium
	switch strings.ToLower(quality) {
	case "low":
		perImage = pricing.Low
	case "high", "hd":
		perImage = pricing.High
	}

	return perImage * float64(images)
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + formatFloat(cost, costFormatPrecision)
}

// formatFloat formats a float with specified precision using strconv
func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}
