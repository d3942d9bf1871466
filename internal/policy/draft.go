package policy

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// Context carries the wizard selections that are part of the submitted record.
type Context struct {
	ClientID  string                  `json:"clientId"`
	CompanyID string                  `json:"companyId"`
	SectionID string                  `json:"sectionId"`
	Operation constants.OperationType `json:"operationType"`
}

// Draft is the canonical aggregate of all field values plus context. Every schema field is
// always present; Draft values are never mutated in place.
type Draft struct {
	Context Context
	values  map[Field]Value
}

// NewDraft returns a draft with every schema field set to its empty value.
func NewDraft(ctx Context) Draft {
	values := make(map[Field]Value, len(schema))
	for _, s := range schema {
		values[s.Name] = Empty(s)
	}
	return Draft{Context: ctx, values: values}
}

// Get returns the value of f. Asking for a field outside the schema is a programming error.
func (d Draft) Get(f Field) Value {
	v, ok := d.values[f]
	if !ok {
		panic(fmt.Sprintf("policy: field %q is not part of the schema", f))
	}
	return v
}

// With returns a copy of d with f set to v.
func (d Draft) With(f Field, v Value) Draft {
	if _, ok := byName[f]; !ok {
		panic(fmt.Sprintf("policy: field %q is not part of the schema", f))
	}
	out := d.Clone()
	out.values[f] = v
	return out
}

// WithAll returns a copy of d with every field in values set.
func (d Draft) WithAll(values map[Field]Value) Draft {
	out := d.Clone()
	for f, v := range values {
		if _, ok := byName[f]; !ok {
			panic(fmt.Sprintf("policy: field %q is not part of the schema", f))
		}
		out.values[f] = v
	}
	return out
}

// WithContext returns a copy of d with a new context.
func (d Draft) WithContext(ctx Context) Draft {
	out := d.Clone()
	out.Context = ctx
	return out
}

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	values := make(map[Field]Value, len(d.values))
	for k, v := range d.values {
		values[k] = v
	}
	if len(values) == 0 {
		return NewDraft(d.Context)
	}
	return Draft{Context: d.Context, values: values}
}

// Values returns a copy of the field values.
func (d Draft) Values() map[Field]Value {
	out := make(map[Field]Value, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

type draftJSON struct {
	Context Context         `json:"context"`
	Values  map[Field]Value `json:"values"`
}

func (d Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(draftJSON{Context: d.Context, Values: d.values})
}

// UnmarshalJSON restores a draft and back-fills fields missing from older snapshots.
func (d *Draft) UnmarshalJSON(b []byte) error {
	var raw draftJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := NewDraft(raw.Context)
	for k, v := range raw.Values {
		if _, ok := byName[k]; ok {
			out.values[k] = v
		}
	}
	*d = out
	return nil
}
