package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/service"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

type streamLLM struct {
	tokens    []string
	streamErr error
}

func (s *streamLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return nil, errors.New("not supported")
}

func (s *streamLLM) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest) (llm.TokenStream, error) {
	st := llm.NewSliceStream(ctx, s.tokens...)
	if s.streamErr != nil {
		st.WithError(s.streamErr)
	}
	return st, nil
}

func (s *streamLLM) ListModels(ctx context.Context) ([]llm.Model, error) {
	return nil, nil
}

func newTestServer(t *testing.T, client llm.LLMClient) string {
	t.Helper()
	cfg := &config.Config{
		WSWriteTimeout:   time.Second,
		WSReadTimeout:    time.Second,
		WSMaxMessageSize: 1 << 16,
	}
	svc := service.New(store.NewMemoryStore(), client, cfg, nil, metrics.NewMetrics())

	e := echo.New()
	NewServer(cfg, svc).RegisterRoutes(e)
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

// readAll collects text frames until the server closes the connection.
func readAll(t *testing.T, conn *websocket.Conn) ([]string, error) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frames []string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return frames, err
		}
		frames = append(frames, string(data))
	}
}

func TestChatOverWebSocket(t *testing.T) {
	for _, path := range []string{"/chat/ws", "/api/chat/ws"} {
		t.Run(path, func(t *testing.T) {
			url := newTestServer(t, &streamLLM{tokens: []string{"詩を", "書く"}})

			conn, _, err := websocket.DefaultDialer.Dial(url+path, nil)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[]}`)))

			frames, err := readAll(t, conn)
			assert.Equal(t, []string{"詩", "を", "書", "く"}, frames)
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
		})
	}
}

func TestChatOverWebSocketReportsError(t *testing.T) {
	url := newTestServer(t, &streamLLM{tokens: []string{"ab"}, streamErr: errors.New("boom")})

	conn, _, err := websocket.DefaultDialer.Dial(url+"/chat/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{}`)))

	frames, err := readAll(t, conn)
	assert.Equal(t, []string{"a", "b", "[ERROR] boom"}, frames)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestChatOverWebSocketRejectsInvalidRequest(t *testing.T) {
	url := newTestServer(t, &streamLLM{})

	conn, _, err := websocket.DefaultDialer.Dial(url+"/chat/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	frames, err := readAll(t, conn)
	assert.Empty(t, frames)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseUnsupportedData), "got %v", err)
}
