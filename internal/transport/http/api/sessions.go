package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/service"
)

// SaveSession stores a finished hearing.
// POST /save
func (h *Handler) SaveSession(c echo.Context) error {
	var sess domain.SessionFile
	if err := c.Bind(&sess); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: service.ErrInvalidPayload.Error()})
	}

	file, err := h.service.SaveSession(c.Request().Context(), &sess)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPayload) {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, domain.SaveResponse{OK: true, File: file})
}

// ListSessions lists every readable session, newest first.
// GET /sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSession returns one saved session as stored.
// GET /sessions/:file
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.service.GetSession(c.Request().Context(), c.Param("file"))
	if err != nil {
		return errorJSON(c, lookupStatus(err), err)
	}
	return c.JSON(http.StatusOK, sess)
}
