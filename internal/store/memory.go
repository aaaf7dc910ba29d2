package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
)

// MemoryStore is an in-memory Store. Documents are held encoded, so reads go
// through the same parsing as the persistent stores.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string][]byte
	sessions  map[string][]byte
	log       zerolog.Logger
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string][]byte),
		sessions:  make(map[string][]byte),
		log:       zerolog.Nop(),
	}
}

// PutRawTemplate stores a template body without validation.
func (s *MemoryStore) PutRawTemplate(id string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[SafeID(id)] = body
}

// PutRawSession stores a session body without validation.
func (s *MemoryStore) PutRawSession(file string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[file] = body
}

// RawSession returns the stored bytes of a session.
func (s *MemoryStore) RawSession(file string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.sessions[file]
	return b, ok
}

// GetTemplate implements TemplateStore.
func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	safe, err := templateID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.templates[safe]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %s: %w", safe, ErrNotFound)
	}
	t, _, err := parseTemplate(safe, data)
	return t, err
}

// PutTemplate implements TemplateStore.
func (s *MemoryStore) PutTemplate(ctx context.Context, id string, t *domain.Template) (string, error) {
	safe, err := templateID(id)
	if err != nil {
		return "", err
	}
	data, err := encodeDocument(t)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.templates[safe] = data
	s.mu.Unlock()
	return safe + jsonExt, nil
}

// DeleteTemplate implements TemplateStore.
func (s *MemoryStore) DeleteTemplate(ctx context.Context, id string) error {
	safe, err := templateID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[safe]; !ok {
		return fmt.Errorf("template %s: %w", safe, ErrNotFound)
	}
	delete(s.templates, safe)
	return nil
}

// ListTemplates implements TemplateStore.
func (s *MemoryStore) ListTemplates(ctx context.Context) ([]domain.TemplateSummary, error) {
	return listTemplates(s.entries(s.templates), s.log), nil
}

// GetSession implements SessionStore.
func (s *MemoryStore) GetSession(ctx context.Context, file string) (*domain.SessionFile, error) {
	name, err := SessionFilename(file)
	if err != nil {
		return nil, err
	}
	data, ok := s.RawSession(name)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", name, ErrNotFound)
	}
	return parseSession(name, data)
}

// PutSession implements SessionStore.
func (s *MemoryStore) PutSession(ctx context.Context, file string, sess *domain.SessionFile) error {
	name, err := SessionFilename(file)
	if err != nil {
		return err
	}
	data, err := encodeDocument(sess)
	if err != nil {
		return err
	}
	s.PutRawSession(name, data)
	return nil
}

// ListSessions implements SessionStore.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	return listSessions(s.entries(s.sessions), s.log), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) entries(m map[string][]byte) []rawEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rawEntry, 0, len(m))
	for name, data := range m {
		out = append(out, rawEntry{name: name, data: data})
	}
	return out
}
