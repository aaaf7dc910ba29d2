package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/service"
	"github.com/KeikaK/llmbroadhearing/internal/store"
	httpserver "github.com/KeikaK/llmbroadhearing/internal/transport/http"
)

func startServer(t *testing.T) (string, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := &config.Config{
		WSWriteTimeout:   time.Second,
		WSReadTimeout:    time.Second,
		WSMaxMessageSize: 1 << 16,
	}
	m := metrics.NewMetrics()
	svc := service.New(st, llm.NewMockClient(), cfg, nil, m)

	ts := httptest.NewServer(httpserver.NewServer(cfg, svc, m))
	t.Cleanup(ts.Close)
	return ts.Listener.Addr().String(), st
}

func TestChatClientHoldsAndSavesHearing(t *testing.T) {
	addr, st := startServer(t)
	ctx := context.Background()
	_, err := st.PutTemplate(ctx, "intro", &domain.Template{Title: "Intro", Prompt: "聞き手です", FirstMessage: "始めましょう"})
	require.NoError(t, err)

	var out bytes.Buffer
	client := newChatClient(addr, "intro", &out)
	require.NoError(t, client.run(ctx, strings.NewReader("こんにちは\n\n/quit\n"), true))

	assert.Contains(t, out.String(), `[MOCK] Received your message: "こんにちは"`)
	assert.Contains(t, out.String(), "saved hearing_")

	require.Len(t, client.messages, 3)
	assert.Equal(t, domain.RoleAssistant, client.messages[0].Role)
	assert.Equal(t, domain.RoleUser, client.messages[1].Role)
	assert.Equal(t, domain.RoleAssistant, client.messages[2].Role)

	sessions, err := st.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].QuestionTitle)
	assert.Equal(t, "Intro", *sessions[0].QuestionTitle)
}

func TestChatClientHistoryCarriesTemplatePrompt(t *testing.T) {
	c := newChatClient("localhost:1", "", &bytes.Buffer{})
	assert.Empty(t, c.history())

	c.template = &domain.Template{Prompt: "P"}
	c.append(domain.RoleAssistant, "a")
	c.append(domain.RoleUser, "u")

	h := c.history()
	require.Len(t, h, 3)
	assert.Equal(t, domain.Message{Role: domain.RoleSystem, Content: "P"}, h[0])
	assert.Equal(t, "u", h[2].Content)

	c.template.FirstMessage = "F"
	h = c.history()
	require.Len(t, h, 4)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "F"}, h[1])
}

func TestChatClientSkipsSaveWithoutUserInput(t *testing.T) {
	addr, st := startServer(t)

	var out bytes.Buffer
	client := newChatClient(addr, "", &out)
	require.NoError(t, client.run(context.Background(), strings.NewReader(""), true))

	assert.Contains(t, out.String(), "[MOCK]")
	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatClientUnknownTemplate(t *testing.T) {
	addr, _ := startServer(t)

	client := newChatClient(addr, "missing", &bytes.Buffer{})
	err := client.run(context.Background(), strings.NewReader(""), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
