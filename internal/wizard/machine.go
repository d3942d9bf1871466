// Package wizard is the step state machine that gates policy submission.
package wizard

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/validation"
)

// Transition reports the outcome of a transition. Denied transitions are not errors: OK is
// false, Reason says why and FailedStep names the step whose predicate failed.
type Transition struct {
	OK         bool       `json:"ok"`
	Reason     string     `json:"reason,omitempty"`
	FailedStep StepID     `json:"failedStep,omitempty"`
	Tab        policy.Tab `json:"tab,omitempty"`
	From       StepID     `json:"from"`
	To         StepID     `json:"to"`
}

// StepData carries the selection made on a step. Only the member for the step is read.
type StepData struct {
	Client    *Selection
	Company   *Selection
	Section   *Selection
	Operation constants.OperationType
	Upload    *UploadRef
}

// Machine evaluates transitions over State values. It keeps no per-session state.
type Machine struct {
	engine     *validation.Engine
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func NewMachine(engine *validation.Engine, reconciler *reconcile.Reconciler, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{engine: engine, reconciler: reconciler, logger: logger}
}

// Initial returns the state of a new session: first step, nothing completed, a complete empty
// draft.
func (m *Machine) Initial() State {
	res := m.reconciler.Reconcile(nil)
	s := State{
		Current:   firstStep,
		Completed: make(map[StepID]bool),
		Fields:    res.Mapped,
		Draft:     res.Draft,
	}
	s.Issues = m.report(s)
	return s
}

// Reset discards the session and returns the initial state.
func (m *Machine) Reset() State {
	return m.Initial()
}

// Report validates the state's draft and adds the review warnings of its fields.
func (m *Machine) Report(s State) validation.Report {
	return m.report(s)
}

func (m *Machine) report(s State) validation.Report {
	rep := m.engine.Validate(s.Draft)
	return rep.WithWarnings(m.engine.ReviewWarnings(s.Fields, s.Unmapped())...)
}

func (m *Machine) ok(s State, from StepID) (State, Transition) {
	m.logger.Debug("wizard.transition.ok", "from", from, "to", s.Current)
	return s, Transition{OK: true, From: from, To: s.Current}
}

func (m *Machine) deny(s State, failed StepID, reason string) (State, Transition) {
	m.logger.Info("wizard.transition.denied", "from", s.Current, "failed_step", failed, "reason", reason)
	return s, Transition{OK: false, Reason: reason, FailedStep: failed, From: s.Current, To: s.Current}
}

func (m *Machine) satisfied(s State, id StepID) (bool, string) {
	def, ok := stepTable[id]
	if !ok {
		return false, "unknown step"
	}
	if def.SkipWhen(s) {
		return true, ""
	}
	return def.Predicate(m, s)
}

func nextOf(s State, id StepID) StepID {
	for n := stepTable[id].Next; n != ""; n = stepTable[n].Next {
		if !skipped(n, s) {
			return n
		}
	}
	return ""
}

func prevOf(s State, id StepID) StepID {
	for p := stepTable[id].Prev; p != ""; p = stepTable[p].Prev {
		if !skipped(p, s) {
			return p
		}
	}
	return ""
}

// GoNext completes the current step and moves to the next applicable one. Leaving the form
// goes through the submission gate.
func (m *Machine) GoNext(s State) (State, Transition) {
	cur := s.Current
	next := nextOf(s, cur)
	switch {
	case cur == StepSuccess:
		return m.deny(s, cur, "the policy has already been submitted")
	case next == StepSuccess:
		return m.Submit(s)
	}
	if ok, reason := m.satisfied(s, cur); !ok {
		return m.deny(s, cur, reason)
	}
	out := s.Clone()
	out.Completed[cur] = true
	out.Current = next
	return m.ok(out, cur)
}

// GoBack moves to the previous applicable step. Completed flags are kept.
func (m *Machine) GoBack(s State) (State, Transition) {
	cur := s.Current
	if cur == StepSuccess {
		return m.deny(s, cur, "the policy has already been submitted; reset to start over")
	}
	prev := prevOf(s, cur)
	if prev == "" {
		return m.deny(s, cur, "already at the first step")
	}
	out := s.Clone()
	out.Current = prev
	return m.ok(out, cur)
}

// GoToStep jumps to target. Earlier steps are always reachable. Moving forward requires the
// current step to be satisfied and every applicable step strictly between to be completed.
func (m *Machine) GoToStep(s State, target StepID) (State, Transition) {
	cur := s.Current
	ti, ci := index(target), index(cur)
	switch {
	case ti < 0:
		return m.deny(s, target, fmt.Sprintf("unknown step %q", target))
	case target == cur:
		return m.ok(s, cur)
	case cur == StepSuccess:
		return m.deny(s, cur, "the policy has already been submitted; reset to start over")
	case skipped(target, s):
		return m.deny(s, target, fmt.Sprintf("step %s does not apply to operation %s", target, s.Selections.Operation))
	case target == StepSuccess:
		return m.Submit(s)
	case ti < ci:
		out := s.Clone()
		out.Current = target
		return m.ok(out, cur)
	}

	if ok, reason := m.satisfied(s, cur); !ok {
		return m.deny(s, cur, reason)
	}
	steps := Steps()
	for _, id := range steps[ci+1 : ti] {
		if !skipped(id, s) && !s.IsCompleted(id) {
			return m.deny(s, id, fmt.Sprintf("complete step %s first", id))
		}
	}
	out := s.Clone()
	out.Completed[cur] = true
	out.Current = target
	return m.ok(out, cur)
}

// CompleteStep records data for step id and checks its predicate. Completing the current step
// advances to the next applicable step, except that success is only reached by Submit. A denied
// completion leaves the state unchanged.
func (m *Machine) CompleteStep(s State, id StepID, data StepData) (State, Transition) {
	idx := index(id)
	switch {
	case idx < 0:
		return m.deny(s, id, fmt.Sprintf("unknown step %q", id))
	case id == StepSuccess:
		return m.deny(s, id, "success is reached by submitting the policy")
	case idx > index(s.Current):
		return m.deny(s, s.Current, fmt.Sprintf("step %s has not been reached", id))
	}

	out := apply(s.Clone(), id, data)
	if skipped(id, out) {
		return m.deny(s, id, fmt.Sprintf("step %s does not apply to operation %s", id, out.Selections.Operation))
	}
	if ok, reason := m.satisfied(out, id); !ok {
		return m.deny(s, id, reason)
	}
	out.Completed[id] = true
	if id == s.Current {
		if next := nextOf(out, id); next != StepSuccess && next != "" {
			out.Current = next
		}
	}
	// a new operation type may skip the step the operator is on
	if skipped(out.Current, out) {
		if next := nextOf(out, out.Current); next != StepSuccess && next != "" {
			out.Current = next
		}
	}
	out.Issues = m.report(out)
	return m.ok(out, s.Current)
}

// apply writes step data into s. Changing the company invalidates the section; a different file
// invalidates the processing result.
func apply(s State, id StepID, data StepData) State {
	switch id {
	case StepClient:
		if data.Client != nil {
			s.Selections.Client = *data.Client
		}
	case StepCompany:
		if data.Company != nil {
			if data.Company.ID != s.Selections.Company.ID && !s.Selections.Company.IsZero() {
				s.Selections.Section = Selection{}
				delete(s.Completed, StepSection)
			}
			s.Selections.Company = *data.Company
		}
	case StepSection:
		if data.Section != nil {
			s.Selections.Section = *data.Section
		}
	case StepOperation:
		if data.Operation != "" {
			s.Selections.Operation = data.Operation
		}
	case StepUpload:
		if data.Upload != nil {
			if s.Upload != nil && s.Upload.SHA256 != data.Upload.SHA256 {
				s.Extraction = nil
				delete(s.Completed, StepProcess)
			}
			u := *data.Upload
			s.Upload = &u
		}
	}
	s.Draft = s.Draft.WithContext(s.Selections.Context())
	return s
}

// ApplyExtraction lays a reconcile result over the state once processing succeeded. Manual
// overrides survive. Callers must not apply a result from a cancelled or failed call; the
// state then stays unprocessed.
func (m *Machine) ApplyExtraction(s State, res reconcile.Result, meta ExtractionMeta) (State, Transition) {
	switch {
	case skipped(StepProcess, s):
		return m.deny(s, StepProcess, fmt.Sprintf("operation %s is entered without a document", s.Selections.Operation))
	case s.Upload == nil:
		return m.deny(s, StepUpload, "upload the policy PDF")
	case index(s.Current) < index(StepProcess):
		return m.deny(s, s.Current, "step process has not been reached")
	case s.Current == StepSuccess:
		return m.deny(s, s.Current, "the policy has already been submitted")
	}

	out := s.Clone()
	out.Draft, out.Fields = reconcile.MergeInto(s.Fields, s.Draft, res)
	out.Draft = out.Draft.WithContext(out.Selections.Context())
	meta.Unmapped = append([]docai.ExtractedField(nil), res.Unmapped...)
	out.Extraction = &meta
	out.Completed[StepProcess] = true
	delete(out.Completed, StepForm)
	if out.Current == StepProcess {
		out.Current = StepForm
	}
	out.Issues = m.report(out)
	m.logger.Info("wizard.extraction.applied",
		"mapped", len(res.Mapped),
		"unmapped", len(res.Unmapped),
		"errors", len(out.Issues.Errors),
		"completeness", meta.CompletenessPercent)
	return m.ok(out, s.Current)
}

// EditField applies an operator override on the form step.
func (m *Machine) EditField(s State, f policy.Field, v policy.Value) (State, Transition) {
	if _, ok := policy.Lookup(f); !ok {
		return m.deny(s, StepForm, fmt.Sprintf("unknown field %q", f))
	}
	if s.Current != StepForm {
		return m.deny(s, s.Current, "fields are edited on the form step")
	}
	out := s.Clone()
	fields, mf := m.reconciler.Override(s.Fields, f, v)
	out.Fields = fields
	out.Draft = out.Draft.With(f, mf.Value)
	delete(out.Completed, StepForm)
	out.Issues = m.report(out)
	return m.ok(out, s.Current)
}

// ClearField drops an override so the next extraction may fill the field again.
func (m *Machine) ClearField(s State, f policy.Field) (State, Transition) {
	if _, ok := policy.Lookup(f); !ok {
		return m.deny(s, StepForm, fmt.Sprintf("unknown field %q", f))
	}
	if s.Current != StepForm {
		return m.deny(s, s.Current, "fields are edited on the form step")
	}
	out := s.Clone()
	fields, mf := m.reconciler.ClearOverride(s.Fields, f)
	out.Fields = fields
	out.Draft = out.Draft.With(f, mf.Value)
	delete(out.Completed, StepForm)
	out.Issues = m.report(out)
	return m.ok(out, s.Current)
}

// Submit is the final gate: every applicable step before the form completed and no validation
// errors. On denial FailedStep is the first blocking step; for form errors Tab routes to the
// tab of the first error.
func (m *Machine) Submit(s State) (State, Transition) {
	if s.Current == StepSuccess {
		return m.deny(s, StepSuccess, "the policy has already been submitted")
	}
	for _, id := range Steps() {
		if id == StepForm {
			break
		}
		if !skipped(id, s) && !s.IsCompleted(id) {
			return m.deny(s, id, fmt.Sprintf("complete step %s first", id))
		}
	}

	rep := m.engine.Validate(s.Draft)
	if first, ok := rep.FirstError(); ok {
		out, tr := m.deny(s, StepForm, fmt.Sprintf("%d blocking error(s); first: %s %s", len(rep.Errors), first.Field, first.Message))
		tr.Tab = policy.TabOf(first.Field)
		return out, tr
	}

	out := s.Clone()
	out.Completed[StepForm] = true
	out.Current = StepSuccess
	out.Issues = m.report(out)
	return m.ok(out, s.Current)
}
