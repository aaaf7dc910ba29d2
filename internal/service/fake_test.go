package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/policy"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

// fakeLLM is a scripted llm.LLMClient.
type fakeLLM struct {
	mu sync.Mutex

	tokens    []string
	openErr   error
	streamErr error
	streams   []*fakeStream

	// output is marshaled as the first choice's message.
	output        any
	completionErr error

	streamReqs     []*llm.ChatCompletionRequest
	completionReqs []*llm.ChatCompletionRequest
}

func (f *fakeLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completionReqs = append(f.completionReqs, req)
	if f.completionErr != nil {
		return nil, f.completionErr
	}
	msg, err := json.Marshal(f.output)
	if err != nil {
		return nil, err
	}
	return &llm.ChatCompletionResponse{
		Model:   req.Model,
		Choices: []llm.Choice{{Message: msg}},
	}, nil
}

func (f *fakeLLM) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest) (llm.TokenStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamReqs = append(f.streamReqs, req)
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &fakeStream{ctx: ctx, tokens: append([]string(nil), f.tokens...), err: f.streamErr}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]llm.Model, error) {
	return []llm.Model{{ID: "fake"}}, nil
}

func (f *fakeLLM) lastStreamReq(t *testing.T) *llm.ChatCompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streamReqs) == 0 {
		t.Fatalf("no stream request recorded")
	}
	return f.streamReqs[len(f.streamReqs)-1]
}

type fakeStream struct {
	ctx    context.Context
	tokens []string
	err    error
	recvs  int
	closes int
}

func (s *fakeStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if len(s.tokens) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	s.recvs++
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

func (s *fakeStream) Close() error {
	s.closes++
	return nil
}

// recordingWriter is a ChunkWriter that records what it receives.
type recordingWriter struct {
	chunks         []string
	closes         int
	writesAfterEnd int

	// failAt makes the write with this index (0-based) and all later ones fail.
	failAt int
	writes int
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{failAt: -1}
}

var errClientGone = errors.New("client gone")

func (w *recordingWriter) WriteChunk(chunk string) error {
	if w.closes > 0 {
		w.writesAfterEnd++
	}
	idx := w.writes
	w.writes++
	if w.failAt >= 0 && idx >= w.failAt {
		return errClientGone
	}
	w.chunks = append(w.chunks, chunk)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closes++
	return nil
}

func newTestService(t *testing.T, fake *fakeLLM) (*Service, *store.MemoryStore) {
	t.Helper()
	cfg := &config.Config{
		SummaryOnSave:  false,
		SummaryTimeout: 5 * time.Second,
	}
	st := store.NewMemoryStore()
	return New(st, fake, cfg, nil, metrics.NewMetrics()), st
}

func mustPolicy(t *testing.T, module string) *policy.Engine {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), module)
	if err != nil {
		t.Fatalf("failed to build policy: %v", err)
	}
	return engine
}
