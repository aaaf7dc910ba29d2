// Package service implements the hearing use cases: the chat relay, the
// summarizer and template/session management.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/policy"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

var (
	// ErrInvalidPayload is returned when a session body has no messages array.
	ErrInvalidPayload = errors.New("Invalid payload")
	// ErrMissingFile is returned when a summary request names no session.
	ErrMissingFile = errors.New("missing file")
)

type Service struct {
	store        store.Store
	llmClient    llm.LLMClient
	config       *config.Config
	policyEngine *policy.Engine
	metrics      *metrics.Metrics
	log          zerolog.Logger

	now        func() time.Time
	background sync.WaitGroup
}

// New creates the service. policyEngine may be nil, in which case every
// model is allowed.
func New(store store.Store, llmClient llm.LLMClient, cfg *config.Config, policyEngine *policy.Engine, m *metrics.Metrics) *Service {
	return &Service{
		store:        store,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
		metrics:      m,
		log:          logger.Component("service"),
		now:          time.Now,
	}
}

// Wait blocks until every background summary has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListModels retrieves the list of available models.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	return s.llmClient.ListModels(ctx)
}
