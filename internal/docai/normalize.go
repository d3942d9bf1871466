package docai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/policy-intake/internal/utils"
)

// DefaultConfidence is assigned to fields the service reports without a confidence.
const DefaultConfidence = 0.75

var envelopeSchema = utils.NewSchema("docai-envelope.json", func() map[string]any {
	field := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"confidence": map[string]any{"type": []string{"number", "null"}, "minimum": 0, "maximum": 100},
		},
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"fields"},
		"properties": map[string]any{
			"fields": map[string]any{
				"oneOf": []any{
					map[string]any{"type": "array", "items": field},
					map[string]any{"type": "object"},
				},
			},
			"overallCompletenessPercent": map[string]any{"type": []string{"number", "null"}},
			"processingTimeMs":           map[string]any{"type": []string{"number", "null"}},
		},
	}
})

type envelope struct {
	Fields              json.RawMessage `json:"fields"`
	CompletenessPercent *float64        `json:"overallCompletenessPercent"`
	ProcessingTimeMs    *float64        `json:"processingTimeMs"`
}

type arrayField struct {
	Name       string          `json:"name"`
	FieldName  string          `json:"fieldName"`
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	Confidence *float64        `json:"confidence"`
}

// Normalize flattens any accepted payload shape into a uniform Result. Fields may arrive as an
// array of {name, value, confidence} or as an object keyed by field name whose values are
// scalars or {value, confidence}; object order is preserved. Confidences above 1 are read as
// percentages.
func Normalize(raw []byte, defaultConfidence float64) (Result, error) {
	if err := envelopeSchema.ValidateJSON(raw); err != nil {
		return Result{}, fmt.Errorf("docai envelope: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{}, fmt.Errorf("docai envelope: %w", err)
	}

	var (
		fields []ExtractedField
		err    error
	)
	switch firstByte(env.Fields) {
	case '[':
		fields, err = normalizeArray(env.Fields, defaultConfidence)
	case '{':
		fields, err = normalizeObject(env.Fields, defaultConfidence)
	default:
		err = fmt.Errorf("fields must be an array or an object")
	}
	if err != nil {
		return Result{}, fmt.Errorf("docai fields: %w", err)
	}

	res := Result{Fields: fields}
	if env.CompletenessPercent != nil {
		res.CompletenessPercent = *env.CompletenessPercent
	}
	if env.ProcessingTimeMs != nil {
		res.ProcessingTimeMs = int64(*env.ProcessingTimeMs)
	}
	return res, nil
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func normalizeArray(raw json.RawMessage, def float64) ([]ExtractedField, error) {
	var items []arrayField
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]ExtractedField, 0, len(items))
	for _, it := range items {
		name := firstNonEmpty(it.Name, it.FieldName, it.Key)
		if name == "" {
			continue
		}
		out = append(out, ExtractedField{
			Name:       name,
			Raw:        scalar(it.Value),
			Confidence: confidence(it.Confidence, def),
		})
	}
	return out, nil
}

func normalizeObject(raw json.RawMessage, def float64) ([]ExtractedField, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []ExtractedField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		f := ExtractedField{Name: name, Confidence: def}
		if firstByte(value) == '{' {
			var nested struct {
				Value      json.RawMessage `json:"value"`
				Content    json.RawMessage `json:"content"`
				Confidence *float64        `json:"confidence"`
			}
			if err := json.Unmarshal(value, &nested); err != nil {
				return nil, err
			}
			v := nested.Value
			if len(v) == 0 {
				v = nested.Content
			}
			f.Raw = scalar(v)
			f.Confidence = confidence(nested.Confidence, def)
		} else {
			f.Raw = scalar(value)
		}
		out = append(out, f)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// scalar decodes a JSON value into a string, a float64 or nil. Anything else keeps its JSON text.
func scalar(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case 't', 'f':
		return string(raw)
	case '{', '[':
		return string(raw)
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return f
	}
	return string(raw)
}

func confidence(c *float64, def float64) float64 {
	if c == nil {
		return def
	}
	v := *c
	if v > 1 {
		v /= 100
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
