// Package api provides the JSON and streaming HTTP handlers of the hearing service.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KeikaK/llmbroadhearing/internal/service"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server. Every route is also
// served under /api, where templates are called questions.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	h.register(e.Group(""), "/templates")
	h.register(e.Group("/api"), "/questions")

	e.GET("/health", h.Health)
}

func (h *Handler) register(g *echo.Group, templates string) {
	// Template API
	g.GET(templates, h.ListTemplates)
	g.GET(templates+"/:id", h.GetTemplate)
	g.PUT(templates+"/:id", h.PutTemplate)
	g.DELETE(templates+"/:id", h.DeleteTemplate)

	// Chat API
	g.POST("/chat", h.Chat)

	// Session API
	g.POST("/save", h.SaveSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:file", h.GetSession)

	// Summary API
	g.POST("/save-summary", h.SaveSummary)
	g.POST("/summarize", h.Summarize)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// lookupStatus maps a read failure to 404 for missing or unparseable
// documents and 400 for unusable names.
func lookupStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrMalformed):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}
