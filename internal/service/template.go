package service

import (
	"context"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
)

// ListTemplates returns every readable template ordered by id.
func (s *Service) ListTemplates(ctx context.Context) ([]domain.TemplateSummary, error) {
	return s.store.ListTemplates(ctx)
}

// GetTemplate returns one template.
func (s *Service) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// SaveTemplate replaces a template and returns its stored file name.
func (s *Service) SaveTemplate(ctx context.Context, id string, tpl *domain.Template) (string, error) {
	file, err := s.store.PutTemplate(ctx, id, tpl)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("template", id).Str("file", file).Msg("template saved")
	return file, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("template", id).Msg("template deleted")
	return nil
}
