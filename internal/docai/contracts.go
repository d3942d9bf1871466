// Package docai talks to the document-AI service and flattens its answers into extracted fields.
package docai

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractedField is one recognized key/value with the model's confidence in 0..1.
type ExtractedField struct {
	Name       string  `json:"name"`
	Raw        any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// RawString renders the raw value as text. Numbers keep their shortest decimal form.
func (f ExtractedField) RawString() string {
	switch v := f.Raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	b, err := json.Marshal(f.Raw)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}

// Result is a normalized document-AI answer.
type Result struct {
	Fields              []ExtractedField `json:"fields"`
	CompletenessPercent float64          `json:"overallCompletenessPercent"`
	ProcessingTimeMs    int64            `json:"processingTimeMs"`
}

// Document is the file sent for processing.
type Document struct {
	Filename string
	Content  []byte
}

// Processor extracts fields from a scanned policy.
type Processor interface {
	Process(ctx context.Context, doc Document) (Result, error)
}
