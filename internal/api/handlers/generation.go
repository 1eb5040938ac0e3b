package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/api/middleware"
	"github.com/Conceptual-Machines/giftbox-api/internal/logger"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/gin-gonic/gin"
)

// GenerationService is the session workflow the handlers drive
type GenerationService interface {
	Generate(ctx context.Context, req models.RequestContext) (*models.GenerationResult, error)
	Compile(req models.RequestContext) (models.TagSet, models.ComposedConstraints)
	Usage(ctx context.Context, sessionID string) (int, error)
	MaxGenerations() int
}

type GenerationHandler struct {
	service GenerationService
	timeout time.Duration
}

func NewGenerationHandler(service GenerationService, timeout time.Duration) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		timeout: timeout,
	}
}

// GenerateRequest is the gift box form
type GenerateRequest struct {
	Recipient string `json:"recipient"`
	Occasion  string `json:"occasion"`
	Vibe      string `json:"vibe"`
	Tier      string `json:"tier"`
	Notes     string `json:"notes"`
	SessionID string `json:"session_id"` // falls back to the X-Session-ID header
}

func (r GenerateRequest) validate() error {
	for name, value := range map[string]string{
		"recipient": r.Recipient,
		"occasion":  r.Occasion,
		"vibe":      r.Vibe,
		"tier":      r.Tier,
	} {
		if len(value) > maxFieldLength {
			return fmt.Errorf("%s must be at most %d characters", name, maxFieldLength)
		}
	}
	if len(r.Notes) > maxNotesLength {
		return fmt.Errorf("notes must be at most %d characters", maxNotesLength)
	}
	return nil
}

func (r GenerateRequest) toContext(sessionID string) models.RequestContext {
	return models.RequestContext{
		Recipient: strings.TrimSpace(r.Recipient),
		Occasion:  strings.TrimSpace(r.Occasion),
		Vibe:      strings.TrimSpace(r.Vibe),
		Tier:      models.ParseTier(r.Tier),
		Notes:     r.Notes,
		SessionID: sessionID,
	}
}

// GenerateResponse is the output record for one generation request
type GenerateResponse struct {
	Accepted   bool   `json:"accepted"`
	ContentRef string `json:"content_ref,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	UsedCount  int    `json:"used_count"`
	Remaining  int    `json:"remaining"`
	Fallback   bool   `json:"fallback"`
	Reason     string `json:"reason,omitempty"`
	Status     string `json:"status"`
	Verified   bool   `json:"verified"`
	Attempts   int    `json:"attempts"`
	Backend    string `json:"backend,omitempty"`
}

func newGenerateResponse(result *models.GenerationResult, maxGenerations int) GenerateResponse {
	resp := GenerateResponse{
		Accepted:  result.Accepted,
		UsedCount: result.UsedCount,
		Remaining: remaining(result.UsedCount, maxGenerations),
		Fallback:  result.Fallback,
		Reason:    result.Reason,
		Status:    result.Status,
		Verified:  result.Verified,
		Attempts:  result.Attempts,
		Backend:   result.Backend,
	}
	if result.ContentRef != nil {
		resp.ContentRef = result.ContentRef.DataURI()
		resp.MIMEType = result.ContentRef.MIMEType
	}
	return resp
}

// Generate handles POST /api/v1/generations
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, err := resolveSessionID(c, req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	middleware.SetSessionID(c, sessionID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Generate(ctx, req.toContext(sessionID))
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("Generation timed out", logger.WithContext(c))
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Generation timed out"})
		case errors.Is(err, context.Canceled):
			logger.Info("Generation canceled by client", logger.WithContext(c))
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request canceled"})
		default:
			logger.Error("Generation failed", err, logger.WithContext(c))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation failed"})
		}
		return
	}

	status := http.StatusOK
	if result.Status == models.StatusQuotaExceeded {
		status = http.StatusTooManyRequests
	}
	c.JSON(status, newGenerateResponse(result, h.service.MaxGenerations()))
}

// resolveSessionID prefers the body and falls back to the session header
func resolveSessionID(c *gin.Context, bodyID string) (string, error) {
	sessionID := strings.TrimSpace(bodyID)
	if sessionID == "" {
		sessionID, _ = middleware.GetSessionID(c)
	}
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required (body or %s header)", middleware.SessionHeader)
	}
	if len(sessionID) > middleware.MaxSessionIDLength {
		return "", fmt.Errorf("session_id must be at most %d characters", middleware.MaxSessionIDLength)
	}
	return sessionID, nil
}

func remaining(used, limit int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
