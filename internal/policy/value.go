package policy

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// Kind tags the shape of a Value.
type Kind string

const (
	KindText      Kind = "text"
	KindNumber    Kind = "number"
	KindMasterRef Kind = "masterRef"
)

// MasterRef points at a master-data entry by its backend ID.
type MasterRef struct {
	Category constants.MasterCategory `json:"category"`
	ID       string                   `json:"id"`
	Name     string                   `json:"name,omitempty"`
}

// Value is the typed value of a schema field. Only the member matching Kind is meaningful.
type Value struct {
	Kind   Kind            `json:"kind"`
	Text   string          `json:"text,omitempty"`
	Number decimal.Decimal `json:"number"`
	Ref    MasterRef       `json:"ref"`
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s, Number: decimal.Zero}
}

func Number(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Number: d}
}

func Ref(r MasterRef) Value {
	return Value{Kind: KindMasterRef, Ref: r, Number: decimal.Zero}
}

// Empty returns the zero value for a schema field.
func Empty(spec FieldSpec) Value {
	switch spec.Kind {
	case KindNumber:
		return Number(decimal.Zero)
	case KindMasterRef:
		return Ref(MasterRef{Category: spec.Category})
	default:
		return Text("")
	}
}

// IsEmpty reports whether the value carries no information. Zero counts as empty for numbers.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindNumber:
		return v.Number.IsZero()
	case KindMasterRef:
		return v.Ref.ID == ""
	default:
		return v.Text == ""
	}
}

// Equal compares two values by kind and meaningful member.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number.Equal(o.Number)
	case KindMasterRef:
		return v.Ref == o.Ref
	default:
		return v.Text == o.Text
	}
}

// String renders the value for display and for observation text.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Number.String()
	case KindMasterRef:
		if v.Ref.Name != "" {
			return v.Ref.Name
		}
		return v.Ref.ID
	default:
		return v.Text
	}
}
