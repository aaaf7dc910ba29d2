package api

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
)

// Chat relays a model reply as a plain-text body, one character per
// flushed chunk. Once the body has started the status is always 200;
// failures arrive as a final "[ERROR] ..." chunk.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	w := &chunkWriter{ctx: c.Request().Context(), res: res}
	if err := h.service.StreamChat(c.Request().Context(), &req, w); err != nil {
		// Already reported in the body.
		log := logger.Component("http")
		log.Debug().Err(err).Msg("chat ended with upstream error")
	}
	return nil
}

// chunkWriter writes relay chunks to a streaming response.
type chunkWriter struct {
	ctx context.Context
	res *echo.Response
}

func (w *chunkWriter) WriteChunk(chunk string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if _, err := io.WriteString(w.res, chunk); err != nil {
		return err
	}
	w.res.Flush()
	return nil
}

// Close is a no-op; the body ends when the handler returns.
func (w *chunkWriter) Close() error {
	return nil
}
