package resolve

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TomasB/georesolve/internal/resolver"
	"github.com/gin-gonic/gin"
)

// StatusPolicy decides which HTTP status a failed resolve is answered with.
type StatusPolicy int

const (
	// CollapseErrors answers every failure, malformed input included, with
	// 500 Internal Server Error. This is the historical behavior of the
	// service and the default.
	CollapseErrors StatusPolicy = iota

	// StrictErrors answers malformed input with 400 Bad Request and every
	// other failure with 500.
	StrictErrors
)

// ErrorResponse is the JSON body sent with a failed resolve.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Resolver resolves textual IP addresses.
type Resolver interface {
	Resolve(ipText string) (resolver.Location, error)
}

// Handler serves IP geolocation lookups.
type Handler struct {
	resolver Resolver
	policy   StatusPolicy
}

// NewHandler creates a new resolve handler.
func NewHandler(r Resolver, policy StatusPolicy) *Handler {
	return &Handler{resolver: r, policy: policy}
}

// Resolve handles GET /:ip
func (h *Handler) Resolve(c *gin.Context) {
	ipText := c.Param("ip")

	slog.Debug("resolve request received", "ip", ipText)

	loc, err := h.resolver.Resolve(ipText)
	if err != nil {
		status, msg := h.failure(err)
		slog.Error("resolve failed", "ip", ipText, "status", status, "error", err)
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (h *Handler) failure(err error) (int, string) {
	switch {
	case errors.Is(err, resolver.ErrInvalidAddress):
		if h.policy == StrictErrors {
			return http.StatusBadRequest, "invalid IP address"
		}
		return http.StatusInternalServerError, "invalid IP address"
	case errors.Is(err, resolver.ErrIncompleteRecord):
		return http.StatusInternalServerError, "incomplete location record"
	default:
		return http.StatusInternalServerError, "lookup failed"
	}
}
