package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/service"
)

// SaveSummary summarizes a transcript into the named session.
// POST /save-summary
func (h *Handler) SaveSummary(c echo.Context) error {
	var req domain.SummaryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, failure(err))
	}

	if _, err := h.service.SaveSummary(c.Request().Context(), &req); err != nil {
		if errors.Is(err, service.ErrMissingFile) {
			return c.JSON(http.StatusBadRequest, failure(err))
		}
		return c.JSON(http.StatusInternalServerError, failure(err))
	}
	return c.JSON(http.StatusOK, domain.SaveResponse{OK: true})
}

// Summarize returns a short summary without storing it.
// POST /summarize
func (h *Handler) Summarize(c echo.Context) error {
	var req domain.SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	summary, err := h.service.Summarize(c.Request().Context(), &req)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, domain.SummarizeResponse{Summary: summary})
}

func failure(err error) domain.ErrorResponse {
	return domain.ErrorResponse{Error: err.Error(), Message: err.Error()}
}
