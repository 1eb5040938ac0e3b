package handlers

import (
	"context"
	"net/http"

	"github.com/Conceptual-Machines/giftbox-api/internal/logger"
	"github.com/gin-gonic/gin"
)

// Pinger is implemented by quota stores with a remote connection
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storeName string
	pinger    Pinger
}

// NewHealthHandler creates a health handler. A nil pinger reports the store as healthy.
func NewHealthHandler(storeName string, pinger Pinger) *HealthHandler {
	return &HealthHandler{
		storeName: storeName,
		pinger:    pinger,
	}
}

// HealthCheck returns the health status of the API and its quota store
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	storeStatus := "ok"
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			logger.Warn("Quota store ping failed", logger.Fields{"store": h.storeName, "error": err.Error()})
			storeStatus = "unreachable"
		}
	}

	status, code := "healthy", http.StatusOK
	if storeStatus != "ok" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"quota_store": gin.H{
			"name":   h.storeName,
			"status": storeStatus,
		},
	})
}
