package reconcile

import (
	"math"

	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

// Source tells where a field value came from.
type Source string

const (
	SourceManual     Source = "manual"
	SourceAI         Source = "azure"
	SourceCalculated Source = "calculated"
)

// Tier buckets a confidence score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierFailed Tier = "failed"
)

// TierFor classifies a 0..100 confidence: high ≥90, medium ≥70, low ≥50.
func TierFor(confidence int) Tier {
	switch {
	case confidence >= 90:
		return TierHigh
	case confidence >= 70:
		return TierMedium
	case confidence >= 50:
		return TierLow
	}
	return TierFailed
}

// Percent converts a 0..1 model confidence to a clamped 0..100 score.
func Percent(c float64) int {
	p := int(math.Round(c * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// MappedField is the reconciled state of one schema field.
type MappedField struct {
	Extracted      string       `json:"extractedValue"`
	Value          policy.Value `json:"mappedValue"`
	Confidence     int          `json:"confidence"`
	Tier           Tier         `json:"confidenceTier"`
	RequiresReview bool         `json:"requiresReview"`
	Valid          bool         `json:"valid"`
	Source         Source       `json:"source"`
	SourceName     string       `json:"sourceName,omitempty"`
}

// Fields holds one MappedField per schema field.
type Fields map[policy.Field]MappedField

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ApplyTo writes every field value into d.
func (f Fields) ApplyTo(d policy.Draft) policy.Draft {
	values := make(map[policy.Field]policy.Value, len(f))
	for name, mf := range f {
		values[name] = mf.Value
	}
	return d.WithAll(values)
}
