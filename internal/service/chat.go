package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/config"
	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
	"github.com/KeikaK/llmbroadhearing/internal/policy"
)

// Default seed used when neither the request nor a template supplies one.
const (
	DefaultSystemPrompt = "あなたは詩人です"
	DefaultUserPrompt   = "50字程度の詩をかいてください"
)

// ResolveSeed picks the conversation sent to the model: the request
// messages, else the template's prompt/first_message, else the default pair.
func ResolveSeed(messages []domain.Message, tpl *domain.Template) ([]domain.Message, domain.SeedSource) {
	if len(messages) > 0 {
		return messages, domain.SeedSourceMessages
	}
	if tpl.HasSeed() {
		var seed []domain.Message
		if tpl.Prompt != "" {
			seed = append(seed, domain.Message{Role: domain.RoleSystem, Content: tpl.Prompt})
		}
		if tpl.FirstMessage != "" {
			seed = append(seed, domain.Message{Role: domain.RoleUser, Content: tpl.FirstMessage})
		}
		return seed, domain.SeedSourceTemplate
	}
	return []domain.Message{
		{Role: domain.RoleSystem, Content: DefaultSystemPrompt},
		{Role: domain.RoleUser, Content: DefaultUserPrompt},
	}, domain.SeedSourceDefault
}

// SelectModel returns the first allowed model of: the template's ai_model,
// the configured default, the built-in fallback. The fallback is not
// checked against the policy.
func (s *Service) SelectModel(ctx context.Context, tpl *domain.Template) (string, domain.ModelSource) {
	var templateID string
	var candidates []modelCandidate
	if tpl != nil {
		templateID = tpl.ID
		if tpl.AIModel != "" {
			candidates = append(candidates, modelCandidate{tpl.AIModel, domain.ModelSourceTemplate})
		}
	}
	if s.config.LLMModel != "" {
		candidates = append(candidates, modelCandidate{s.config.LLMModel, domain.ModelSourceConfig})
	}

	for _, c := range candidates {
		if s.modelAllowed(ctx, c.model, c.source, templateID) {
			return c.model, c.source
		}
	}
	return config.DefaultModel, domain.ModelSourceFallback
}

type modelCandidate struct {
	model  string
	source domain.ModelSource
}

func (s *Service) modelAllowed(ctx context.Context, model string, source domain.ModelSource, templateID string) bool {
	if s.policyEngine == nil {
		return true
	}
	ok, reason, err := s.policyEngine.Allowed(ctx, policy.Input{
		Model:      model,
		Source:     string(source),
		TemplateID: templateID,
	})
	if err != nil {
		s.log.Error().Err(err).Str("model", model).Msg("model policy evaluation failed")
		return false
	}
	if !ok {
		s.log.Info().Str("model", model).Str("source", string(source)).Str("reason", reason).Msg("model denied by policy")
	}
	return ok
}

// loadTemplate resolves a template id. Any failure is logged and reported
// as no template.
func (s *Service) loadTemplate(ctx context.Context, id string) *domain.Template {
	if id == "" {
		return nil
	}
	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("template", id).Msg("template unavailable, ignoring")
		return nil
	}
	return tpl
}

// toChatMessages maps conversation turns onto model messages. Unknown roles
// become user turns.
func toChatMessages(msgs []domain.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := string(domain.RoleUser)
		switch m.Role {
		case domain.RoleSystem, domain.RoleAssistant:
			role = string(m.Role)
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

// StreamChat generates a reply for req and relays it to w one character at a
// time. w is closed exactly once before StreamChat returns. Upstream failures
// are reported to w in-band; the returned error is the same failure, for
// logging only.
//
// The upstream call is detached from ctx: a client that goes away does not
// cancel generation, the reply is drained and discarded.
func (s *Service) StreamChat(ctx context.Context, req *domain.ChatRequest, w ChunkWriter) error {
	requestID := "chat_" + uuid.New().String()[:8]
	startTime := time.Now()
	log := s.log.With().Str("request_id", requestID).Logger()

	tpl := s.loadTemplate(ctx, req.TemplateID())
	seed, seedSource := ResolveSeed(req.Messages, tpl)
	model, modelSource := s.SelectModel(ctx, tpl)

	log.Info().
		Str("seed", string(seedSource)).
		Str("model", model).
		Str("model_source", string(modelSource)).
		Int("turns", len(seed)).
		Msg("chat started")

	s.metrics.ChatStreamsInFlight.Inc()
	defer s.metrics.ChatStreamsInFlight.Dec()

	r := newRelay(w, s.config.CharDelay, log)
	err := s.relayCompletion(context.WithoutCancel(ctx), r, &llm.ChatCompletionRequest{
		Model:    model,
		Messages: toChatMessages(seed),
	})
	if err != nil {
		r.fail(err)
	}
	r.close()

	status := metrics.StatusOK
	switch {
	case err != nil:
		status = metrics.StatusError
		log.Error().Err(err).Msg("chat upstream failed")
	case r.broken:
		status = metrics.StatusDisconnected
	}
	s.metrics.RecordChat(string(seedSource), status, r.chars, time.Since(startTime))

	log.Info().
		Int("chars", r.chars).
		Dur("latency", time.Since(startTime)).
		Str("status", status).
		Msg("chat finished")
	return err
}

func (s *Service) relayCompletion(ctx context.Context, r *relay, req *llm.ChatCompletionRequest) error {
	stream, err := s.llmClient.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		r.emit(token)
	}
}
