package wizard

// StepID names a wizard step.
type StepID string

const (
	StepClient    StepID = "client"
	StepCompany   StepID = "company"
	StepSection   StepID = "section"
	StepOperation StepID = "operation"
	StepUpload    StepID = "upload"
	StepProcess   StepID = "process"
	StepForm      StepID = "form"
	StepSuccess   StepID = "success"
)

// StepDef is one row of the step table.
type StepDef struct {
	ID   StepID
	Next StepID
	Prev StepID
	// SkipWhen marks the step as not applicable for the state.
	SkipWhen func(State) bool
	// Predicate reports whether the step's data is complete and, if not, why.
	Predicate func(m *Machine, s State) (bool, string)
}

var firstStep = StepClient

func skipsDocument(s State) bool { return s.Selections.Operation.SkipsDocument() }

func never(State) bool { return false }

var stepTable = map[StepID]StepDef{
	StepClient: {
		ID: StepClient, Next: StepCompany, SkipWhen: never,
		Predicate: func(_ *Machine, s State) (bool, string) {
			return !s.Selections.Client.IsZero(), "select a client"
		},
	},
	StepCompany: {
		ID: StepCompany, Prev: StepClient, Next: StepSection, SkipWhen: never,
		Predicate: func(_ *Machine, s State) (bool, string) {
			return !s.Selections.Company.IsZero(), "select an insurance company"
		},
	},
	StepSection: {
		ID: StepSection, Prev: StepCompany, Next: StepOperation, SkipWhen: never,
		Predicate: func(_ *Machine, s State) (bool, string) {
			return !s.Selections.Section.IsZero(), "select a section"
		},
	},
	StepOperation: {
		ID: StepOperation, Prev: StepSection, Next: StepUpload, SkipWhen: never,
		Predicate: func(_ *Machine, s State) (bool, string) {
			return s.Selections.Operation != "", "select an operation type"
		},
	},
	StepUpload: {
		ID: StepUpload, Prev: StepOperation, Next: StepProcess, SkipWhen: skipsDocument,
		Predicate: func(_ *Machine, s State) (bool, string) {
			return s.Upload != nil, "upload the policy PDF"
		},
	},
	StepProcess: {
		ID: StepProcess, Prev: StepUpload, Next: StepForm, SkipWhen: skipsDocument,
		Predicate: func(_ *Machine, s State) (bool, string) {
			return s.Processed(), "process the document first"
		},
	},
	StepForm: {
		ID: StepForm, Prev: StepProcess, Next: StepSuccess, SkipWhen: never,
		Predicate: func(m *Machine, s State) (bool, string) {
			rep := m.engine.Validate(s.Draft)
			if rep.OK() {
				return true, ""
			}
			first, _ := rep.FirstError()
			return false, "fix " + string(first.Field) + ": " + first.Message
		},
	},
	StepSuccess: {
		ID: StepSuccess, Prev: StepForm, SkipWhen: never,
		Predicate: func(*Machine, State) (bool, string) { return true, "" },
	},
}

// Steps returns the step IDs in order.
func Steps() []StepID {
	var out []StepID
	for id := firstStep; id != ""; id = stepTable[id].Next {
		out = append(out, id)
	}
	return out
}

func index(id StepID) int {
	for i, s := range Steps() {
		if s == id {
			return i
		}
	}
	return -1
}

func skipped(id StepID, s State) bool {
	def, ok := stepTable[id]
	return ok && def.SkipWhen(s)
}
