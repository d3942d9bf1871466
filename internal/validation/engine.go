// Package validation runs the required, format and cross-field rules over a policy draft.
package validation

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
)

// Engine evaluates the rule table. It holds no mutable state, so one Engine can serve every
// session.
type Engine struct {
	cfg    Config
	rules  []rule
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = DefaultConfig().Now
	}
	if cfg.MaxSpanYears <= 0 {
		cfg.MaxSpanYears = DefaultConfig().MaxSpanYears
	}
	return &Engine{cfg: cfg, rules: ruleTable, logger: logger}
}

// Config returns the thresholds the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Validate returns the errors and warnings of d in rule-table order. Each field reports at most
// one error, the first failing rule; warnings on a field that already has an error are dropped.
func (e *Engine) Validate(d policy.Draft) Report {
	var rep Report
	failed := make(map[policy.Field]bool)
	var warnings []Issue

	for _, r := range e.rules {
		if r.severity == SeverityError && failed[r.field] {
			continue
		}
		msg, bad := r.check(d, e.cfg)
		if !bad {
			continue
		}
		is := Issue{Field: r.field, Message: msg, Severity: r.severity, Rule: r.name}
		if r.severity == SeverityError {
			failed[r.field] = true
			rep.Errors = append(rep.Errors, is)
			continue
		}
		warnings = append(warnings, is)
	}

	for _, w := range warnings {
		if !failed[w.Field] {
			rep.Warnings = append(rep.Warnings, w)
		}
	}

	e.logger.Debug("validation.run", "errors", len(rep.Errors), "warnings", len(rep.Warnings))
	return rep
}

// ReviewWarnings reports AI-sourced fields flagged for review and inputs no rule mapped.
// Fields are visited in schema order.
func (e *Engine) ReviewWarnings(fields reconcile.Fields, unmapped []docai.ExtractedField) []Issue {
	var out []Issue
	for _, name := range policy.Fields() {
		mf, ok := fields[name]
		if !ok || mf.Source != reconcile.SourceAI || !mf.RequiresReview {
			continue
		}
		msg := fmt.Sprintf("AI value %q has %s confidence (%d%%), please review", mf.Extracted, mf.Tier, mf.Confidence)
		if !mf.Valid {
			msg = fmt.Sprintf("AI value %q could not be interpreted, please review", mf.Extracted)
		}
		out = append(out, Issue{Field: name, Message: msg, Severity: SeverityWarning, Rule: RuleReview})
	}
	for _, u := range unmapped {
		out = append(out, Issue{
			Field:    policy.Field(u.Name),
			Message:  fmt.Sprintf("extracted field %q with value %q was not mapped", u.Name, u.RawString()),
			Severity: SeverityWarning,
			Rule:     RuleUnmapped,
		})
	}
	return out
}
