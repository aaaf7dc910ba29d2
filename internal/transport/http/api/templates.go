package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

// ListTemplates lists every readable template.
// GET /templates
func (h *Handler) ListTemplates(c echo.Context) error {
	templates, err := h.service.ListTemplates(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, templates)
}

// GetTemplate returns one template.
// GET /templates/:id
func (h *Handler) GetTemplate(c echo.Context) error {
	tpl, err := h.service.GetTemplate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, lookupStatus(err), err)
	}
	return c.JSON(http.StatusOK, tpl)
}

// PutTemplate creates or replaces a template.
// PUT /templates/:id
func (h *Handler) PutTemplate(c echo.Context) error {
	var tpl domain.Template
	if err := c.Bind(&tpl); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	file, err := h.service.SaveTemplate(c.Request().Context(), c.Param("id"), &tpl)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		return errorJSON(c, status, err)
	}
	return c.JSON(http.StatusOK, domain.SaveResponse{OK: true, File: file})
}

// DeleteTemplate deletes a template. A missing template is a failure.
// DELETE /templates/:id
func (h *Handler) DeleteTemplate(c echo.Context) error {
	if err := h.service.DeleteTemplate(c.Request().Context(), c.Param("id")); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, domain.SaveResponse{OK: true})
}
