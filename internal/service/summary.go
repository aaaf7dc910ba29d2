package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KeikaK/llmbroadhearing/internal/adapter/llm"
	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/metrics"
)

const (
	summarySystemPrompt = "あなたは要約の専門家です。"

	// Transcript budgets, in characters.
	sessionSummaryLimit = 4000
	quickSummaryLimit   = 10000
)

// RenderTranscript renders one "label: content" line per turn and keeps at
// most limit characters.
func RenderTranscript(msgs []domain.Message, limit int) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role.Label()+": "+m.Content)
	}
	return truncateRunes(strings.Join(lines, "\n"), limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// sessionSummaryPrompt asks for a ~100 character summary from the user's
// point of view.
func sessionSummaryPrompt(transcript string, question *domain.Template) string {
	var sb strings.Builder
	sb.WriteString("以下の会話ログを「ユーザー視点」で要約してください。特に「ユーザーが何を感じ、何を望み、どのような行動（次の具体的な一歩）を取りたいか」を強調し、日本語で約100文字にまとめてください。\n\n会話ログ:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n")
	if question != nil {
		fmt.Fprintf(&sb, "\nテンプレート情報:\nタイトル: %s\n説明: %s\n", question.Title, question.Description)
	}
	sb.WriteString("\n出力は日本語で100文字前後の要約のみを返してください。余計な注釈や補足は不要です。")
	return sb.String()
}

// quickSummaryPrompt asks for a ~50 character summary of the key points.
func quickSummaryPrompt(transcript string) string {
	return "以下の会話ログを重要点がわかるように日本語で約50文字に要約してください。\n\n会話ログ:\n" +
		transcript + "\n" +
		"\n出力は日本語で50文字前後の要約のみを返してください。余計な注釈は不要です。"
}

// summarize runs one non-streaming completion and extracts its text.
func (s *Service) summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model: s.config.DefaultLLMModel(),
		Messages: []llm.ChatMessage{
			{Role: string(domain.RoleSystem), Content: summarySystemPrompt},
			{Role: string(domain.RoleUser), Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	out, err := resp.Output()
	if err != nil {
		return "", err
	}
	return ExtractText(out), nil
}

// SaveSummary summarizes a transcript and stores the result in the summary
// field of the named session. Nothing is written when the model call fails.
func (s *Service) SaveSummary(ctx context.Context, req *domain.SummaryRequest) (string, error) {
	if req.File == "" {
		return "", ErrMissingFile
	}

	requestID := "sum_" + uuid.New().String()[:8]
	startTime := time.Now()
	log := s.log.With().Str("request_id", requestID).Str("file", req.File).Logger()

	transcript := RenderTranscript(req.Messages, sessionSummaryLimit)
	summary, err := s.summarize(ctx, sessionSummaryPrompt(transcript, req.Template()))
	if err != nil {
		s.metrics.RecordSummary(metrics.StatusError, time.Since(startTime))
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	log.Debug().Str("summary", summary).Msg("generated summary")

	sess, err := s.store.GetSession(ctx, req.File)
	if err != nil {
		s.metrics.RecordSummary(metrics.StatusError, time.Since(startTime))
		return "", err
	}
	sess.SetSummary(summary)
	if err := s.store.PutSession(ctx, req.File, sess); err != nil {
		s.metrics.RecordSummary(metrics.StatusError, time.Since(startTime))
		return "", err
	}

	s.metrics.RecordSummary(metrics.StatusOK, time.Since(startTime))
	log.Info().
		Int("summary_chars", len([]rune(summary))).
		Dur("latency", time.Since(startTime)).
		Msg("session summary saved")
	return summary, nil
}

// Summarize returns a short summary of a transcript without storing it.
func (s *Service) Summarize(ctx context.Context, req *domain.SummarizeRequest) (string, error) {
	transcript := RenderTranscript(req.Messages, quickSummaryLimit)
	summary, err := s.summarize(ctx, quickSummaryPrompt(transcript))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return summary, nil
}

// SummarizeInBackground runs SaveSummary detached from the caller. Failures
// are logged only. Use Wait to block until pending summaries finish.
func (s *Service) SummarizeInBackground(req *domain.SummaryRequest) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("file", req.File).Msg("background summary panicked")
			}
		}()

		ctx := context.Background()
		if s.config.SummaryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.SummaryTimeout)
			defer cancel()
		}

		if _, err := s.SaveSummary(ctx, req); err != nil {
			s.log.Error().Err(err).Str("file", req.File).Msg("background summary failed")
		}
	}()
}
