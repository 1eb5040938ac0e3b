package imaging

import (
	"bytes"
	"context"
	"html"
	"strings"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/pkg/embedded"
)

const (
	placeholderLabelToken = "{{LABEL}}"
	placeholderMaxLabel   = 48
	mimeTypeSVG           = "image/svg+xml"
)

// SVGPlaceholder renders the embedded gift box SVG captioned with the occasion
type SVGPlaceholder struct{}

func NewSVGPlaceholder() *SVGPlaceholder {
	return &SVGPlaceholder{}
}

// Build never fails; the label falls back to a generic caption
func (p *SVGPlaceholder) Build(_ context.Context, req models.RequestContext) *models.ContentRef {
	svg := bytes.ReplaceAll(embedded.PlaceholderSVG, []byte(placeholderLabelToken), []byte(placeholderLabel(req)))
	return &models.ContentRef{MIMEType: mimeTypeSVG, Data: svg}
}

func placeholderLabel(req models.RequestContext) string {
	label := strings.Join(strings.Fields(req.Occasion), " ")
	if label == "" {
		label = "Your gift box"
	} else {
		label = "Your " + label + " gift box"
	}
	if runes := []rune(label); len(runes) > placeholderMaxLabel {
		label = string(runes[:placeholderMaxLabel-1]) + "…"
	}
	return html.EscapeString(label)
}
