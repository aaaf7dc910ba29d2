package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
)

// FileStore implements Store with one JSON file per document:
// <dir>/questions/<id>.json and <dir>/sessions/<file>.
type FileStore struct {
	templatesDir string
	sessionsDir  string
	log          zerolog.Logger
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dataDir, creating the
// directories when they are missing.
func NewFileStore(dataDir string) (*FileStore, error) {
	s := &FileStore{
		templatesDir: filepath.Join(dataDir, "questions"),
		sessionsDir:  filepath.Join(dataDir, "sessions"),
		log:          logger.Component("filestore"),
	}
	for _, dir := range []string{s.templatesDir, s.sessionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return s, nil
}

// GetTemplate reads <id>.json.
func (s *FileStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	safe, err := templateID(id)
	if err != nil {
		return nil, err
	}
	data, err := readFile(filepath.Join(s.templatesDir, safe+jsonExt))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", safe, err)
	}
	t, _, err := parseTemplate(safe, data)
	return t, err
}

// PutTemplate overwrites <id>.json.
func (s *FileStore) PutTemplate(ctx context.Context, id string, t *domain.Template) (string, error) {
	safe, err := templateID(id)
	if err != nil {
		return "", err
	}
	data, err := encodeDocument(t)
	if err != nil {
		return "", err
	}
	name := safe + jsonExt
	if err := os.WriteFile(filepath.Join(s.templatesDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write template %s: %w", safe, err)
	}
	return name, nil
}

// DeleteTemplate removes <id>.json.
func (s *FileStore) DeleteTemplate(ctx context.Context, id string) error {
	safe, err := templateID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.templatesDir, safe+jsonExt)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("template %s: %w", safe, ErrNotFound)
		}
		return fmt.Errorf("failed to delete template %s: %w", safe, err)
	}
	return nil
}

// ListTemplates scans the templates directory.
func (s *FileStore) ListTemplates(ctx context.Context) ([]domain.TemplateSummary, error) {
	entries, err := s.scan(ctx, s.templatesDir)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].name = strings.TrimSuffix(entries[i].name, filepath.Ext(entries[i].name))
	}
	return listTemplates(entries, s.log), nil
}

// GetSession reads one session document.
func (s *FileStore) GetSession(ctx context.Context, file string) (*domain.SessionFile, error) {
	name, err := SessionFilename(file)
	if err != nil {
		return nil, err
	}
	data, err := readFile(filepath.Join(s.sessionsDir, name))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", name, err)
	}
	return parseSession(name, data)
}

// PutSession overwrites one session document. There is no temp-file swap;
// concurrent writers to the same name race and the last one wins.
func (s *FileStore) PutSession(ctx context.Context, file string, sess *domain.SessionFile) error {
	name, err := SessionFilename(file)
	if err != nil {
		return err
	}
	data, err := encodeDocument(sess)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.sessionsDir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", name, err)
	}
	return nil
}

// ListSessions scans the sessions directory.
func (s *FileStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	entries, err := s.scan(ctx, s.sessionsDir)
	if err != nil {
		return nil, err
	}
	return listSessions(entries, s.log), nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

// scan reads every *.json file in dir. Unreadable files are logged and skipped.
func (s *FileStore) scan(ctx context.Context, dir string) ([]rawEntry, error) {
	names, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	entries := make([]rawEntry, 0, len(names))
	for _, de := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), jsonExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			s.log.Warn().Err(err).Str("file", de.Name()).Msg("skip unreadable file")
			continue
		}
		entries = append(entries, rawEntry{name: de.Name(), data: data})
	}
	return entries, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
