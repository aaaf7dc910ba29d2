package service

import (
	"context"
	"fmt"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
)

// sessionFileLayout names saved sessions after the local wall clock.
// Two saves within the same second share a name; the later one wins.
const sessionFileLayout = "hearing_20060102_150405.json"

// SaveSession stores a finished hearing under a new timestamped name and,
// when enabled, starts a background summary of it.
func (s *Service) SaveSession(ctx context.Context, sess *domain.SessionFile) (string, error) {
	if sess == nil || !sess.HasMessageArray() {
		return "", ErrInvalidPayload
	}

	now := s.now()
	sess.EnsureExportedAt(now)
	sess.EnsureSummaryField()
	file := now.Format(sessionFileLayout)

	if err := s.store.PutSession(ctx, file, sess); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	s.log.Info().Str("file", file).Msg("session saved")

	if s.config.SummaryOnSave {
		msgs, err := sess.Messages()
		if err != nil {
			s.log.Warn().Err(err).Str("file", file).Msg("skip background summary")
			return file, nil
		}
		s.SummarizeInBackground(&domain.SummaryRequest{
			File:     file,
			Messages: msgs,
			Question: sess.Field(domain.SessionKeyQuestion),
		})
	}
	return file, nil
}

// GetSession returns one saved session.
func (s *Service) GetSession(ctx context.Context, file string) (*domain.SessionFile, error) {
	return s.store.GetSession(ctx, file)
}

// ListSessions returns every readable session, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	return s.store.ListSessions(ctx)
}
