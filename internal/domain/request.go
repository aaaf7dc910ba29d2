package domain

import "encoding/json"

// FlexString accepts a JSON string, number or boolean and keeps its text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = FlexString(scalarString(data))
	return nil
}

// ChatRequest is the body of POST /chat and the first frame of /chat/ws.
type ChatRequest struct {
	Messages   []Message  `json:"messages"`
	Question   FlexString `json:"question,omitempty"`
	QuestionID FlexString `json:"questionId,omitempty"`
}

// TemplateID returns the requested template id; "question" wins over "questionId".
func (r *ChatRequest) TemplateID() string {
	if r.Question != "" {
		return string(r.Question)
	}
	return string(r.QuestionID)
}

// SummaryRequest is the body of POST /save-summary.
type SummaryRequest struct {
	File     string          `json:"file"`
	Messages []Message       `json:"messages"`
	Question json.RawMessage `json:"question,omitempty"`
}

// Template returns the question as a template, or nil when it is absent or
// not an object.
func (r *SummaryRequest) Template() *Template {
	return questionTemplate(r.Question)
}

// SummarizeRequest is the body of POST /summarize. Question is accepted but
// not used.
type SummarizeRequest struct {
	Messages []Message       `json:"messages"`
	Question json.RawMessage `json:"question,omitempty"`
}

func questionTemplate(raw json.RawMessage) *Template {
	if isNull(raw) {
		return nil
	}
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	return &t
}

// SaveResponse is returned by the save endpoints.
type SaveResponse struct {
	OK   bool   `json:"ok"`
	File string `json:"file,omitempty"`
}

// ErrorResponse is the JSON error body of the save endpoints. Message
// repeats Error for clients that read the older key.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SummarizeResponse is returned by POST /summarize.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}
