// Package ws serves the chat relay over WebSocket.
//
// A connection carries one exchange: the client sends a chat request as the
// first text frame, the server answers with one text frame per character,
// an optional "[ERROR] ..." frame, and a normal close.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
	"github.com/KeikaK/llmbroadhearing/internal/service"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	service  *service.Service
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, svc *service.Service) *Server {
	return &Server{
		cfg:     cfg,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// No authentication; any origin may chat.
				return true
			},
		},
		log: logger.Component("ws"),
	}
}

// RegisterRoutes registers the chat socket under both route prefixes.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/chat/ws", s.HandleChat)
	e.GET("/api/chat/ws", s.HandleChat)
}

// HandleChat upgrades the connection and relays one chat exchange.
func (s *Server) HandleChat(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to upgrade websocket")
		// The upgrader has already written an error response.
		return nil
	}
	connID := "conn_" + uuid.New().String()[:8]
	log := s.log.With().Str("conn_id", connID).Logger()

	ws.SetReadLimit(s.cfg.WSMaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))

	_, data, err := ws.ReadMessage()
	if err != nil {
		log.Debug().Err(err).Msg("no chat request received")
		ws.Close()
		return nil
	}

	var req domain.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn().Err(err).Msg("invalid chat request")
		s.closeWith(ws, websocket.CloseUnsupportedData, "invalid chat request")
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Control frames are only processed while reading; the reader also
	// notices a client that goes away mid-relay.
	ws.SetReadDeadline(time.Time{})
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	w := &frameWriter{ctx: ctx, conn: ws, timeout: s.cfg.WSWriteTimeout}
	if err := s.service.StreamChat(ctx, &req, w); err != nil {
		log.Debug().Err(err).Msg("chat ended with upstream error")
	}
	return nil
}

func (s *Server) closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WSWriteTimeout))
	ws.Close()
}

// frameWriter sends relay chunks as text frames.
type frameWriter struct {
	ctx     context.Context
	conn    *websocket.Conn
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (w *frameWriter) WriteChunk(chunk string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.conn.WriteMessage(websocket.TextMessage, []byte(chunk))
}

// Close sends a normal close frame and releases the connection.
func (w *frameWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(w.timeout))
	if cerr := w.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
