package service

import (
	"encoding/json"
	"fmt"
	"strings"
)

// textExtractor pulls the generated text out of one result shape.
type textExtractor func(v any) (string, bool)

// textExtractors are tried in order; the first match wins.
var textExtractors = []textExtractor{
	func(v any) (string, bool) {
		s, ok := v.(string)
		return s, ok
	},
	objectString("content"),
	objectString("text"),
	func(v any) (string, bool) {
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 {
			return "", false
		}
		return objectString("content")(arr[0])
	},
}

func objectString(key string) textExtractor {
	return func(v any) (string, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return "", false
		}
		s, ok := obj[key].(string)
		return s, ok
	}
}

// ExtractText returns the trimmed text of a model result. Shapes no
// extractor recognizes are rendered as JSON; nil yields "".
func ExtractText(v any) string {
	if v == nil {
		return ""
	}
	for _, extract := range textExtractors {
		if s, ok := extract(v); ok {
			return strings.TrimSpace(s)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return strings.TrimSpace(string(b))
}
