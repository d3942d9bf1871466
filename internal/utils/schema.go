package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema, built lazily from a generic map on first use.
type Schema struct {
	name     string
	build    func() map[string]any
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewSchema defers compilation of the map returned by build.
func NewSchema(name string, build func() map[string]any) *Schema {
	return &Schema{name: name, build: build}
}

func (s *Schema) compile() {
	b, err := json.Marshal(s.build())
	if err != nil {
		s.err = fmt.Errorf("marshal schema: %w", err)
		return
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(s.name, bytes.NewReader(b)); err != nil {
		s.err = fmt.Errorf("add schema: %w", err)
		return
	}
	s.compiled, s.err = compiler.Compile(s.name)
	if s.err != nil {
		s.err = fmt.Errorf("compile schema: %w", s.err)
	}
}

// ValidateJSON checks raw JSON against the schema.
func (s *Schema) ValidateJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return s.Validate(v)
}

// Validate checks an already decoded document (maps, slices, float64, string, bool, nil).
func (s *Schema) Validate(v any) error {
	s.once.Do(s.compile)
	if s.err != nil {
		return s.err
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema %s: %w", s.name, err)
	}
	return nil
}
