package handlers

import (
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/giftbox-api/internal/api/middleware"
	"github.com/Conceptual-Machines/giftbox-api/internal/logger"
	"github.com/gin-gonic/gin"
)

type UsageResponse struct {
	SessionID      string `json:"session_id"`
	UsedCount      int    `json:"used_count"`
	MaxGenerations int    `json:"max_generations"`
	Remaining      int    `json:"remaining"`
}

// Usage handles GET /api/v1/sessions/:id/usage
func (h *GenerationHandler) Usage(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" || len(sessionID) > middleware.MaxSessionIDLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}
	middleware.SetSessionID(c, sessionID)

	used, err := h.service.Usage(c.Request.Context(), sessionID)
	if err != nil {
		logger.Error("Failed to read session usage", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read usage"})
		return
	}

	limit := h.service.MaxGenerations()
	c.JSON(http.StatusOK, UsageResponse{
		SessionID:      sessionID,
		UsedCount:      used,
		MaxGenerations: limit,
		Remaining:      remaining(used, limit),
	})
}
