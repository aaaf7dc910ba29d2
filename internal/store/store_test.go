package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
)

func TestSafeID(t *testing.T) {
	cases := map[string]string{
		"intro":         "intro",
		"a/../b":        "a____b",
		"日本語":           "___",
		"case-1_ok":     "case-1_ok",
		"with space.js": "with_space_js",
	}
	for in, want := range cases {
		got := SafeID(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, SafeID(got), "SafeID must be idempotent for %q", in)
	}
}

func TestSessionFilename(t *testing.T) {
	cases := map[string]string{
		"hearing_20250101_000000.json": "hearing_20250101_000000.json",
		"hearing_20250101_000000":      "hearing_20250101_000000.json",
		"X.JSON":                       "X.json",
		"../../etc/passwd":             "______etc_passwd.json",
	}
	for in, want := range cases {
		got, err := SessionFilename(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := SessionFilename("")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = SessionFilename(".json")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseTemplateToleratesComments(t *testing.T) {
	body := []byte(`{
  // hand edited
  "title": "Intro",
  "prompt": "P",
}`)
	tpl, raw, err := parseTemplate("intro", body)
	require.NoError(t, err)
	assert.Equal(t, "intro", tpl.ID)
	assert.Equal(t, "Intro", tpl.Title)
	assert.JSONEq(t, `{"title":"Intro","prompt":"P"}`, string(raw))
}

func TestParseTemplateMalformed(t *testing.T) {
	_, _, err := parseTemplate("bad", []byte(`{"title":`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = parseTemplate("arr", []byte(`[]`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSortSessions(t *testing.T) {
	ts := func(s string) *string { return &s }
	sessions := []domain.SessionSummary{
		{File: "a.json", ExportedAt: ts("2025-01-01T00:00:00Z")},
		{File: "none.json"},
		{File: "c.json", ExportedAt: ts("2025-03-01T00:00:00Z")},
		{File: "b.json", ExportedAt: ts("2025-03-01T00:00:00Z")},
		{File: "bad.json", ExportedAt: ts("yesterday")},
	}
	SortSessions(sessions)

	var files []string
	for _, s := range sessions {
		files = append(files, s.File)
	}
	assert.Equal(t, []string{"c.json", "b.json", "a.json", "none.json", "bad.json"}, files)
}
