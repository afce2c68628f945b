package health

import (
	"net/http"

	"github.com/TomasB/georesolve/internal/data"
	"github.com/gin-gonic/gin"
)

// MetadataSource reports the metadata of the loaded dataset.
type MetadataSource interface {
	Metadata() data.Metadata
}

// Handler manages health check endpoints
type Handler struct {
	source MetadataSource
}

// NewHandler creates a new health check handler
func NewHandler(source MetadataSource) *Handler {
	return &Handler{source: source}
}

// Health is the liveness probe endpoint
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready is the readiness probe endpoint. The service is ready once a dataset
// with a database type is loaded.
// GET /ready
func (h *Handler) Ready(c *gin.Context) {
	md, ok := h.metadata()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  "dataset not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ready",
		"database_type": md.DatabaseType,
	})
}

// Info describes the loaded dataset
// GET /info
func (h *Handler) Info(c *gin.Context) {
	md, ok := h.metadata()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "dataset not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, md)
}

func (h *Handler) metadata() (data.Metadata, bool) {
	if h.source == nil {
		return data.Metadata{}, false
	}
	md := h.source.Metadata()
	return md, md.DatabaseType != ""
}
