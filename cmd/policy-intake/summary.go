package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/policy-intake/internal/bootstrap"
	"github.com/joseph-ayodele/policy-intake/internal/export"
	"github.com/joseph-ayodele/policy-intake/internal/pipeline"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/validation"
)

type fieldLine struct {
	Field      string `yaml:"field" json:"field"`
	Value      string `yaml:"value" json:"value"`
	Extracted  string `yaml:"extracted,omitempty" json:"extracted,omitempty"`
	Confidence int    `yaml:"confidence" json:"confidence"`
	Tier       string `yaml:"tier" json:"tier"`
	Source     string `yaml:"source" json:"source"`
	Review     bool   `yaml:"review,omitempty" json:"review,omitempty"`
}

// summary is the printable outcome of reconciling one AI result file.
type summary struct {
	File         string      `yaml:"file" json:"file"`
	PolicyNumber string      `yaml:"policy_number,omitempty" json:"policy_number,omitempty"`
	Completeness float64     `yaml:"completeness" json:"completeness"`
	Fields       []fieldLine `yaml:"fields,omitempty" json:"fields,omitempty"`
	Unmapped     []string    `yaml:"unmapped,omitempty" json:"unmapped,omitempty"`
	Errors       []string    `yaml:"errors,omitempty" json:"errors,omitempty"`
	Warnings     []string    `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Failure      string      `yaml:"failure,omitempty" json:"failure,omitempty"`
}

func reconcileFile(core *bootstrap.Core, proc *pipeline.Processor, path string, defaultConfidence float64) summary {
	raw, err := os.ReadFile(path)
	if err != nil {
		return summary{File: path, Failure: err.Error()}
	}
	out, err := proc.ProcessRaw(raw, defaultConfidence)
	if err != nil {
		return summary{File: path, Failure: err.Error()}
	}

	res := out.Result
	rep := core.Engine.Validate(res.Draft).WithWarnings(core.Engine.ReviewWarnings(res.Mapped, res.Unmapped)...)
	s := summary{
		File:         path,
		PolicyNumber: res.Draft.Get(policy.NumeroPoliza).Text,
		Completeness: out.CompletenessPercent,
		Errors:       issueLines(rep.Errors),
		Warnings:     issueLines(rep.Warnings),
	}
	for _, name := range policy.Fields() {
		mf := res.Mapped[name]
		if mf.Value.IsEmpty() {
			continue
		}
		s.Fields = append(s.Fields, fieldLine{
			Field:      string(name),
			Value:      mf.Value.String(),
			Extracted:  mf.Extracted,
			Confidence: mf.Confidence,
			Tier:       string(mf.Tier),
			Source:     string(mf.Source),
			Review:     mf.RequiresReview,
		})
	}
	for _, u := range res.Unmapped {
		s.Unmapped = append(s.Unmapped, u.Name)
	}
	return s
}

func issueLines(issues []validation.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, fmt.Sprintf("%s: %s", is.Field, is.Message))
	}
	return out
}

func (s summary) row() export.BatchRow {
	mapped := 0
	for _, f := range s.Fields {
		if f.Source != string(reconcile.SourceCalculated) {
			mapped++
		}
	}
	return export.BatchRow{
		File:         s.File,
		PolicyNumber: s.PolicyNumber,
		Completeness: s.Completeness,
		Mapped:       mapped,
		Unmapped:     len(s.Unmapped),
		Errors:       s.Errors,
		Warnings:     s.Warnings,
		Failure:      s.Failure,
	}
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", format)
}
