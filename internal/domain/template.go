package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
)

// Template is a stored interview template. Known keys are lifted into fields;
// everything else is kept verbatim in Extra and written back on save.
type Template struct {
	ID           string `json:"-"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	FirstMessage string `json:"first_message,omitempty"`
	AIModel      string `json:"ai_model,omitempty"`
	CaseID       string `json:"case_id,omitempty"`
	QuestionID   string `json:"question_id,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`

	// raw holds the stored value of each known key, so values that were
	// not changed are written back with their original JSON type.
	raw map[string]json.RawMessage
}

// templateField maps a stored key onto a field.
type templateField struct {
	key   string
	field func(t *Template) *string
}

var templateFields = []templateField{
	{"title", func(t *Template) *string { return &t.Title }},
	{"description", func(t *Template) *string { return &t.Description }},
	{"prompt", func(t *Template) *string { return &t.Prompt }},
	{"first_message", func(t *Template) *string { return &t.FirstMessage }},
	{"ai_model", func(t *Template) *string { return &t.AIModel }},
	{"case_id", func(t *Template) *string { return &t.CaseID }},
	{"question_id", func(t *Template) *string { return &t.QuestionID }},
}

// ErrNotObject is returned when a document is not a JSON object.
var ErrNotObject = errors.New("document is not a JSON object")

// UnmarshalJSON reads the known keys. Legacy spellings such as "name" or
// "system_prompt" are not interpreted and stay in Extra.
func (t *Template) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}

	id := t.ID
	*t = Template{ID: id}
	for _, f := range templateFields {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		delete(fields, f.key)
		if t.raw == nil {
			t.raw = make(map[string]json.RawMessage, len(templateFields))
		}
		t.raw[f.key] = raw
		*f.field(t) = scalarString(raw)
	}
	if len(fields) > 0 {
		t.Extra = fields
	}
	return nil
}

// MarshalJSON writes the known keys merged with Extra. A known key whose
// value is unchanged since it was read keeps its original encoding.
func (t Template) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Extra)+len(templateFields))
	maps.Copy(out, t.Extra)
	for _, f := range templateFields {
		v := *f.field(&t)
		if raw, ok := t.raw[f.key]; ok && scalarString(raw) == v {
			out[f.key] = raw
			continue
		}
		if v == "" {
			continue
		}
		b, err := encodeJSON(v)
		if err != nil {
			return nil, err
		}
		out[f.key] = b
	}
	return encodeJSON(out)
}

// HasSeed reports whether the template can seed a conversation.
func (t *Template) HasSeed() bool {
	return t != nil && (t.Prompt != "" || t.FirstMessage != "")
}

// TemplateSummary is one entry of the template listing.
type TemplateSummary struct {
	ID          string          `json:"id"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Raw         json.RawMessage `json:"raw"`
}

// NewTemplateSummary builds a listing entry from a parsed template and its raw body.
func NewTemplateSummary(t *Template, raw json.RawMessage) TemplateSummary {
	return TemplateSummary{
		ID:          t.ID,
		Title:       optional(t.Title),
		Description: optional(t.Description),
		Raw:         raw,
	}
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// scalarString returns the string value of a JSON string, or the compact JSON
// text of anything else.
func scalarString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// encodeJSON marshals v without escaping <, > and &.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
