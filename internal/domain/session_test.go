package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSession = `{
  "exportedAt": "2025-10-22T15:30:45.000Z",
  "messages": [
    {"role": "assistant", "content": "こんにちは", "time": "15:30"},
    {"sender": "user", "text": "hello"}
  ],
  "question": {"title": "Intro", "questionId": "Q-7", "ai_model": "gpt-4o", "first_message": "F"},
  "summary": null,
  "client": {"ua": "test"}
}`

func TestSessionFileAccessors(t *testing.T) {
	s, err := ParseSessionFile([]byte(sampleSession))
	require.NoError(t, err)

	assert.Equal(t, "2025-10-22T15:30:45.000Z", s.ExportedAt())
	assert.True(t, s.HasMessageArray())
	assert.Nil(t, s.Summary())

	msgs, err := s.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Role: RoleAssistant, Content: "こんにちは", Time: "15:30"}, msgs[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "hello"}, msgs[1])

	q := s.Question()
	require.NotNil(t, q)
	assert.Equal(t, "Intro", q.Title)
	assert.Equal(t, "F", q.FirstMessage)
}

func TestSessionFileSetSummaryOnlyTouchesSummary(t *testing.T) {
	before, err := ParseSessionFile([]byte(sampleSession))
	require.NoError(t, err)
	beforeFields := before.Fields()

	before.SetSummary("  ok  ")
	out, err := json.MarshalIndent(before, "", "  ")
	require.NoError(t, err)

	after, err := ParseSessionFile(out)
	require.NoError(t, err)
	afterFields := after.Fields()

	require.Len(t, afterFields, len(beforeFields))
	for key, raw := range beforeFields {
		if key == SessionKeySummary {
			continue
		}
		assert.Equal(t, compact(t, raw), compact(t, afterFields[key]), "field %s changed", key)
	}
	require.NotNil(t, after.Summary())
	assert.Equal(t, "  ok  ", *after.Summary())
}

func TestSessionFileEnsureExportedAt(t *testing.T) {
	s, err := ParseSessionFile([]byte(`{"messages":[]}`))
	require.NoError(t, err)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.EnsureExportedAt(now)
	assert.Equal(t, "2025-01-02T03:04:05Z", s.ExportedAt())

	s.EnsureExportedAt(now.Add(time.Hour))
	assert.Equal(t, "2025-01-02T03:04:05Z", s.ExportedAt())
}

func TestSessionFileHasMessageArray(t *testing.T) {
	for body, want := range map[string]bool{
		`{"messages":[]}`:      true,
		`{"messages":"nope"}`:  false,
		`{"messages":null}`:    false,
		`{"exportedAt":"now"}`: false,
	} {
		s, err := ParseSessionFile([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, want, s.HasMessageArray(), body)
	}
}

func TestParseSessionFileRejectsNonObject(t *testing.T) {
	_, err := ParseSessionFile([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = ParseSessionFile([]byte(`{"messages":`))
	assert.Error(t, err)
}

func TestSessionSummarize(t *testing.T) {
	s, err := ParseSessionFile([]byte(sampleSession))
	require.NoError(t, err)

	sum := s.Summarize("hearing_20251022_153045.json")
	assert.Equal(t, "hearing_20251022_153045.json", sum.File)
	require.NotNil(t, sum.ExportedAt)
	require.NotNil(t, sum.QuestionTitle)
	assert.Equal(t, "Intro", *sum.QuestionTitle)
	require.NotNil(t, sum.QuestionID)
	assert.Equal(t, "Q-7", *sum.QuestionID)
	require.NotNil(t, sum.AIModel)
	assert.Equal(t, "gpt-4o", *sum.AIModel)
	assert.Nil(t, sum.Summary)
	assert.False(t, sum.ExportedTime().IsZero())
}

func TestSessionSummarizeQuestionIDFallsBackToID(t *testing.T) {
	s, err := ParseSessionFile([]byte(`{"messages":[],"question":{"id":"interview-1"}}`))
	require.NoError(t, err)

	sum := s.Summarize("f.json")
	require.NotNil(t, sum.QuestionID)
	assert.Equal(t, "interview-1", *sum.QuestionID)
	assert.Nil(t, sum.QuestionTitle)
	assert.Nil(t, sum.ExportedAt)
	assert.True(t, sum.ExportedTime().IsZero())
}

func TestChatRequestTemplateID(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages":[],"questionId":12}`), &req))
	assert.Equal(t, "12", req.TemplateID())

	require.NoError(t, json.Unmarshal([]byte(`{"question":"intro","questionId":"other"}`), &req))
	assert.Equal(t, "intro", req.TemplateID())
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "ユーザー", RoleUser.Label())
	assert.Equal(t, "AI", RoleAssistant.Label())
	assert.Equal(t, "システム", RoleSystem.Label())
	assert.Equal(t, "システム", Role("tool").Label())
}

func compact(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Compact(&buf, raw))
	return buf.String()
}

func TestSessionFileKeepsHTMLCharacters(t *testing.T) {
	s, err := ParseSessionFile([]byte(`{"messages":[{"role":"user","content":"<b>A & B</b>"}],"summary":null}`))
	require.NoError(t, err)
	s.SetSummary("<ok> & done")

	out, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"content":"<b>A & B</b>"`)
	assert.Contains(t, string(out), `"<ok> & done"`)
}

func TestSessionFileEnsureSummaryField(t *testing.T) {
	s, err := ParseSessionFile([]byte(`{"messages":[]}`))
	require.NoError(t, err)
	s.EnsureSummaryField()
	assert.Equal(t, "null", string(s.Field(SessionKeySummary)))
	assert.Nil(t, s.Summary())

	s.SetSummary("kept")
	s.EnsureSummaryField()
	require.NotNil(t, s.Summary())
	assert.Equal(t, "kept", *s.Summary())
}

func TestSummaryRequestQuestionShapes(t *testing.T) {
	for body, title := range map[string]string{
		`{"file":"f","question":"intro"}`:           "",
		`{"file":"f","question":42}`:                "",
		`{"file":"f","question":null}`:              "",
		`{"file":"f"}`:                              "",
		`{"file":"f","question":{"title":"Intro"}}`: "Intro",
	} {
		var req SummaryRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		tpl := req.Template()
		if title == "" {
			assert.Nil(t, tpl, body)
			continue
		}
		require.NotNil(t, tpl, body)
		assert.Equal(t, title, tpl.Title)
	}

	var quick SummarizeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages":[],"question":"intro"}`), &quick))
}
