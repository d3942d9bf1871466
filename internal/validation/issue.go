package validation

import "github.com/joseph-ayodele/policy-intake/internal/policy"

// Severity separates blocking errors from warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding attributed to a single field. Field may also be the vigencia pseudo-field
// or, for unmapped inputs, the raw extracted name.
type Issue struct {
	Field    policy.Field `json:"field"`
	Message  string       `json:"message"`
	Severity Severity     `json:"severity"`
	Rule     string       `json:"rule"`
}

// Report is the outcome of one validation pass.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether nothing blocks submission.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// FirstError returns the first blocking issue in rule-table order.
func (r Report) FirstError() (Issue, bool) {
	if len(r.Errors) == 0 {
		return Issue{}, false
	}
	return r.Errors[0], true
}

// ErrorsFor returns the errors attributed to f.
func (r Report) ErrorsFor(f policy.Field) []Issue {
	var out []Issue
	for _, is := range r.Errors {
		if is.Field == f {
			out = append(out, is)
		}
	}
	return out
}

// WithWarnings returns a copy of r with extra warnings appended.
func (r Report) WithWarnings(extra ...Issue) Report {
	out := Report{
		Errors:   append([]Issue(nil), r.Errors...),
		Warnings: append([]Issue(nil), r.Warnings...),
	}
	out.Warnings = append(out.Warnings, extra...)
	return out
}
