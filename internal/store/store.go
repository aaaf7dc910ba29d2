// Package store defines the storage interface and implementations for
// templates and saved sessions.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformed is returned when a stored document cannot be parsed.
	ErrMalformed = errors.New("malformed document")
	// ErrInvalidInput is returned for names that sanitize to nothing.
	ErrInvalidInput = errors.New("invalid input")
)

// TemplateStore persists interview templates keyed by id.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	// PutTemplate replaces the template and returns the stored file name.
	PutTemplate(ctx context.Context, id string, t *domain.Template) (string, error)
	DeleteTemplate(ctx context.Context, id string) error
	// ListTemplates returns every parseable template ordered by id.
	ListTemplates(ctx context.Context) ([]domain.TemplateSummary, error)
}

// SessionStore persists saved hearings keyed by file name.
type SessionStore interface {
	GetSession(ctx context.Context, file string) (*domain.SessionFile, error)
	PutSession(ctx context.Context, file string, s *domain.SessionFile) error
	// ListSessions returns every parseable session, newest first.
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
}

// Store is the full storage surface used by the service.
type Store interface {
	TemplateStore
	SessionStore

	// Lifecycle
	Close() error
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SafeID replaces every character outside [A-Za-z0-9_-] with '_'.
func SafeID(id string) string {
	return unsafeIDChars.ReplaceAllString(id, "_")
}

const jsonExt = ".json"

// SessionFilename normalizes an untrusted session file name to
// "<safe stem>.json".
func SessionFilename(name string) (string, error) {
	stem := name
	if strings.HasSuffix(strings.ToLower(stem), jsonExt) {
		stem = stem[:len(stem)-len(jsonExt)]
	}
	stem = SafeID(stem)
	if stem == "" {
		return "", fmt.Errorf("%w: missing filename", ErrInvalidInput)
	}
	return stem + jsonExt, nil
}

// templateID sanitizes id and rejects empty results.
func templateID(id string) (string, error) {
	safe := SafeID(id)
	if safe == "" {
		return "", fmt.Errorf("%w: missing template id", ErrInvalidInput)
	}
	return safe, nil
}

// parseTemplate parses a template body. Comments and trailing commas are
// tolerated so that hand-edited files load.
func parseTemplate(id string, data []byte) (*domain.Template, json.RawMessage, error) {
	stripped := jsonc.ToJSON(data)

	var t domain.Template
	if err := json.Unmarshal(stripped, &t); err != nil {
		return nil, nil, fmt.Errorf("%w: template %s: %v", ErrMalformed, id, err)
	}
	t.ID = id

	var buf bytes.Buffer
	if err := json.Compact(&buf, stripped); err != nil {
		return nil, nil, fmt.Errorf("%w: template %s: %v", ErrMalformed, id, err)
	}
	return &t, buf.Bytes(), nil
}

func parseSession(file string, data []byte) (*domain.SessionFile, error) {
	s, err := domain.ParseSessionFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", ErrMalformed, file, err)
	}
	return s, nil
}

// encodeDocument renders a document the way it is written to disk: indented
// by two spaces, with <, > and & left as they are.
func encodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// rawEntry is one stored document as read by a listing scan.
type rawEntry struct {
	name string
	data []byte
}

func listTemplates(entries []rawEntry, log zerolog.Logger) []domain.TemplateSummary {
	out := make([]domain.TemplateSummary, 0, len(entries))
	for _, e := range entries {
		t, raw, err := parseTemplate(e.name, e.data)
		if err != nil {
			log.Warn().Err(err).Str("template", e.name).Msg("skip template")
			continue
		}
		out = append(out, domain.NewTemplateSummary(t, raw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listSessions(entries []rawEntry, log zerolog.Logger) []domain.SessionSummary {
	out := make([]domain.SessionSummary, 0, len(entries))
	for _, e := range entries {
		s, err := parseSession(e.name, e.data)
		if err != nil {
			log.Warn().Err(err).Str("session", e.name).Msg("skip session")
			continue
		}
		out = append(out, s.Summarize(e.name))
	}
	SortSessions(out)
	return out
}

// SortSessions orders sessions newest first by exportedAt, ties broken by
// file name descending.
func SortSessions(sessions []domain.SessionSummary) {
	sort.SliceStable(sessions, func(i, j int) bool {
		ti, tj := sessions[i].ExportedTime(), sessions[j].ExportedTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return sessions[i].File > sessions[j].File
	})
}
