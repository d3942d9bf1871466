package wizard

import (
	"time"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/validation"
)

// Selection is a directory entity picked by the operator.
type Selection struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func (s Selection) IsZero() bool { return s.ID == "" }

// Selections are the choices made on the first four steps.
type Selections struct {
	Client    Selection               `json:"client"`
	Company   Selection               `json:"company"`
	Section   Selection               `json:"section"`
	Operation constants.OperationType `json:"operation"`
}

// Context projects the selections onto the draft context.
func (s Selections) Context() policy.Context {
	return policy.Context{
		ClientID:  s.Client.ID,
		CompanyID: s.Company.ID,
		SectionID: s.Section.ID,
		Operation: s.Operation,
	}
}

// UploadRef identifies an uploaded policy file. The bytes live in the upload registry.
type UploadRef struct {
	DocumentID string    `json:"documentId"`
	Filename   string    `json:"filename"`
	SHA256     string    `json:"sha256"`
	Size       int64     `json:"size"`
	Pages      int       `json:"pages"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ExtractionMeta summarizes the applied document-AI result.
type ExtractionMeta struct {
	CompletenessPercent float64                `json:"completenessPercent"`
	ProcessingTimeMs    int64                  `json:"processingTimeMs"`
	ProcessedAt         time.Time              `json:"processedAt"`
	Unmapped            []docai.ExtractedField `json:"unmapped,omitempty"`
}

// State is one immutable snapshot of a wizard session. Transitions return new values.
type State struct {
	Current    StepID            `json:"currentStep"`
	Completed  map[StepID]bool   `json:"completedSteps"`
	Selections Selections        `json:"selections"`
	Upload     *UploadRef        `json:"upload,omitempty"`
	Extraction *ExtractionMeta   `json:"extraction,omitempty"`
	Fields     reconcile.Fields  `json:"fields"`
	Draft      policy.Draft      `json:"draft"`
	Issues     validation.Report `json:"issues"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Completed = make(map[StepID]bool, len(s.Completed))
	for k, v := range s.Completed {
		out.Completed[k] = v
	}
	if s.Upload != nil {
		u := *s.Upload
		out.Upload = &u
	}
	if s.Extraction != nil {
		e := *s.Extraction
		e.Unmapped = append([]docai.ExtractedField(nil), s.Extraction.Unmapped...)
		out.Extraction = &e
	}
	out.Fields = s.Fields.Clone()
	out.Draft = s.Draft.Clone()
	out.Issues = s.Issues.WithWarnings()
	return out
}

// IsCompleted reports whether id is in the completed set.
func (s State) IsCompleted(id StepID) bool { return s.Completed[id] }

// Processed reports whether an extraction has been applied.
func (s State) Processed() bool { return s.Extraction != nil }

// Unmapped returns the extracted fields no rule mapped in the applied extraction.
func (s State) Unmapped() []docai.ExtractedField {
	if s.Extraction == nil {
		return nil
	}
	return s.Extraction.Unmapped
}
