package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/gin-gonic/gin"
)

type CompileResponse struct {
	Tags        models.TagSet              `json:"tags"`
	Constraints models.ComposedConstraints `json:"constraints"`
}

// Compile handles POST /api/v1/compile. It shows what the form compiles to
// without charging quota or calling a backend.
func (h *GenerationHandler) Compile(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, constraints := h.service.Compile(req.toContext(req.SessionID))
	c.JSON(http.StatusOK, CompileResponse{
		Tags:        tags,
		Constraints: constraints,
	})
}
