package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Time    string `json:"time,omitempty"`
}

// UnmarshalJSON also reads the legacy "sender" and "text" keys.
func (m *Message) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role    json.RawMessage `json:"role"`
		Sender  json.RawMessage `json:"sender"`
		Content json.RawMessage `json:"content"`
		Text    json.RawMessage `json:"text"`
		Time    json.RawMessage `json:"time"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	role := scalarString(aux.Role)
	if role == "" {
		role = scalarString(aux.Sender)
	}
	content := scalarString(aux.Content)
	if isNull(aux.Content) {
		content = scalarString(aux.Text)
	}

	*m = Message{
		Role:    Role(role),
		Content: content,
		Time:    scalarString(aux.Time),
	}
	return nil
}

// SessionFile is a saved hearing. It keeps every top-level key as raw JSON so
// that rewriting one field leaves all others byte-for-byte unchanged.
type SessionFile struct {
	fields map[string]json.RawMessage
}

// Session document keys.
const (
	SessionKeyExportedAt = "exportedAt"
	SessionKeyMessages   = "messages"
	SessionKeyQuestion   = "question"
	SessionKeySummary    = "summary"
)

// ParseSessionFile parses a session document. The document must be a JSON object.
func ParseSessionFile(data []byte) (*SessionFile, error) {
	s := &SessionFile{}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SessionFile) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	s.fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s SessionFile) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("{}"), nil
	}
	return encodeJSON(s.fields)
}

// Field returns the raw value stored under key, or nil.
func (s *SessionFile) Field(key string) json.RawMessage {
	return s.fields[key]
}

// Fields returns a copy of the raw top-level fields.
func (s *SessionFile) Fields() map[string]json.RawMessage {
	return maps.Clone(s.fields)
}

// HasMessageArray reports whether "messages" is present and is a JSON array.
func (s *SessionFile) HasMessageArray() bool {
	raw := strings.TrimSpace(string(s.fields[SessionKeyMessages]))
	return strings.HasPrefix(raw, "[")
}

// Messages decodes the transcript.
func (s *SessionFile) Messages() ([]Message, error) {
	raw, ok := s.fields[SessionKeyMessages]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

// ExportedAt returns the export timestamp, or "" when absent.
func (s *SessionFile) ExportedAt() string {
	return scalarString(s.fields[SessionKeyExportedAt])
}

// EnsureExportedAt stamps the document with now when it has no timestamp.
func (s *SessionFile) EnsureExportedAt(now time.Time) {
	if s.ExportedAt() != "" {
		return
	}
	s.set(SessionKeyExportedAt, now.UTC().Format(time.RFC3339Nano))
}

// Question returns the template snapshot, or nil when absent or not an object.
func (s *SessionFile) Question() *Template {
	return questionTemplate(s.fields[SessionKeyQuestion])
}

// Summary returns the generated summary, or nil when it has not been set.
func (s *SessionFile) Summary() *string {
	raw, ok := s.fields[SessionKeySummary]
	if !ok || isNull(raw) {
		return nil
	}
	v := scalarString(raw)
	return &v
}

// SetSummary sets the summary field. It is the only field the service
// rewrites after a session has been saved.
func (s *SessionFile) SetSummary(summary string) {
	s.set(SessionKeySummary, summary)
}

// EnsureSummaryField adds "summary": null when the document has no summary key.
func (s *SessionFile) EnsureSummaryField() {
	if _, ok := s.fields[SessionKeySummary]; ok {
		return
	}
	if s.fields == nil {
		s.fields = map[string]json.RawMessage{}
	}
	s.fields[SessionKeySummary] = json.RawMessage("null")
}

func (s *SessionFile) set(key, value string) {
	if s.fields == nil {
		s.fields = map[string]json.RawMessage{}
	}
	b, _ := encodeJSON(value)
	s.fields[key] = b
}

// SessionSummary is one entry of the session listing.
type SessionSummary struct {
	File          string  `json:"file"`
	ExportedAt    *string `json:"exportedAt"`
	QuestionTitle *string `json:"questionTitle"`
	QuestionID    *string `json:"questionId"`
	Summary       *string `json:"summary"`
	AIModel       *string `json:"ai_model"`
}

// Summarize builds the listing entry for the document stored as file.
func (s *SessionFile) Summarize(file string) SessionSummary {
	out := SessionSummary{
		File:       file,
		ExportedAt: optional(s.ExportedAt()),
		Summary:    s.Summary(),
	}

	// The listing reads the raw snapshot rather than Template so that the
	// question id may come from keys Template does not own ("id").
	var q map[string]json.RawMessage
	if raw, ok := s.fields[SessionKeyQuestion]; ok {
		_ = json.Unmarshal(raw, &q)
	}
	if q != nil {
		out.QuestionTitle = optional(scalarString(q["title"]))
		for _, key := range []string{"question_id", "questionId", "id"} {
			if v := scalarString(q[key]); v != "" {
				out.QuestionID = &v
				break
			}
		}
		out.AIModel = optional(scalarString(q["ai_model"]))
	}
	return out
}

// ExportedTime parses the export timestamp; the zero time is returned when it
// is missing or unparseable.
func (s SessionSummary) ExportedTime() time.Time {
	if s.ExportedAt == nil {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, *s.ExportedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}
