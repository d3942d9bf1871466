// Package server exposes the intake wizard over gRPC.
package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
	"github.com/joseph-ayodele/policy-intake/internal/ingest"
	"github.com/joseph-ayodele/policy-intake/internal/pipeline"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/submit"
	"github.com/joseph-ayodele/policy-intake/internal/velneo"
	"github.com/joseph-ayodele/policy-intake/internal/wizard"
)

// Directory looks up clients, companies and sections.
type Directory interface {
	SearchClients(ctx context.Context, query string, limit int) ([]velneo.DirectoryEntry, error)
	Companies(ctx context.Context) ([]velneo.DirectoryEntry, error)
	Sections(ctx context.Context, companyID string) ([]velneo.DirectoryEntry, error)
}

type Uploader interface {
	Ingest(ctx context.Context, sessionID uuid.UUID, filename string, content []byte) (ingest.IngestionResult, error)
}

type DocumentProcessor interface {
	Process(ctx context.Context, documentID uuid.UUID, filename string) (pipeline.Outcome, error)
}

type Submitter interface {
	Submit(ctx context.Context, sessionID uuid.UUID, d policy.Draft, prov submit.Provenance) (*entity.Submission, error)
}

type Exporter interface {
	ExportSubmissionsXLSX(ctx context.Context, from, to time.Time) ([]byte, error)
}

// Deps wires the wizard service. Exporter may be nil.
type Deps struct {
	Machine    *wizard.Machine
	Reconciler *reconcile.Reconciler
	Sessions   *Registry
	Directory  Directory
	Uploads    Uploader
	Processor  DocumentProcessor
	Submitter  Submitter
	Exporter   Exporter
}

// WizardService drives one wizard session per operator.
type WizardService struct {
	Deps
	logger *slog.Logger
}

func NewWizardService(d Deps, logger *slog.Logger) *WizardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WizardService{Deps: d, logger: logger}
}

type sessionView struct {
	SessionID  string                  `json:"sessionId"`
	State      wizard.State            `json:"state"`
	Transition *wizard.Transition      `json:"transition,omitempty"`
	Submission *entity.Submission      `json:"submission,omitempty"`
	Upload     *ingest.IngestionResult `json:"upload,omitempty"`
}

func (s *WizardService) view(id uuid.UUID, st wizard.State, tr *wizard.Transition) sessionView {
	return sessionView{SessionID: id.String(), State: st, Transition: tr}
}

// mutate applies fn to the session and renders the outcome.
func (s *WizardService) mutate(ctx context.Context, in *structpb.Struct, fn Mutation) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	st, tr, err := s.Sessions.Apply(common.WithSessionID(ctx, id.String()), id, fn)
	if err != nil {
		return nil, err
	}
	return toStruct(s.view(id, st, &tr))
}

func (s *WizardService) CreateSession(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, st, err := s.Sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(s.view(id, st, nil))
}

func (s *WizardService) GetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	st, err := s.Sessions.State(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStruct(s.view(id, st, nil))
}

func (s *WizardService) DeleteSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Delete(ctx, id); err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"sessionId": id.String(), "deleted": true})
}

func (s *WizardService) SearchClients(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	query := str(in, "query")
	v := common.NewValidator().Field("query", query, common.Required, common.MaxLength(100))
	if err := v.Error(); err != nil {
		return nil, err
	}
	items, err := s.Directory.SearchClients(ctx, query, intOr(in, "limit", 20))
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"items": items})
}

func (s *WizardService) ListCompanies(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := s.Directory.Companies(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"items": items})
}

func (s *WizardService) ListSections(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	companyID := str(in, "companyId")
	if err := common.NewValidator().Field("companyId", companyID, common.Required).Error(); err != nil {
		return nil, err
	}
	items, err := s.Directory.Sections(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"items": items})
}

// CompleteStep records a selection: {sessionId, step, id, displayName} for client, company and
// section, {sessionId, step: "operation", operation} for the operation type.
func (s *WizardService) CompleteStep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	step := wizard.StepID(str(in, "step"))
	var data wizard.StepData
	switch step {
	case wizard.StepClient, wizard.StepCompany, wizard.StepSection:
		sel := &wizard.Selection{ID: str(in, "id"), DisplayName: str(in, "displayName")}
		if err := common.NewValidator().Field("id", sel.ID, common.Required).Error(); err != nil {
			return nil, err
		}
		switch step {
		case wizard.StepClient:
			data.Client = sel
		case wizard.StepCompany:
			data.Company = sel
		default:
			data.Section = sel
		}
	case wizard.StepOperation:
		op, ok := constants.ParseOperation(str(in, "operation"))
		if !ok {
			return nil, fmt.Errorf("%w: unknown operation %q", common.ErrInvalidInput, str(in, "operation"))
		}
		data.Operation = op
	default:
		return nil, fmt.Errorf("%w: step %q takes no selection", common.ErrInvalidInput, step)
	}
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.CompleteStep(st, step, data)
		return next, tr, nil
	})
}

func (s *WizardService) GoNext(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.GoNext(st)
		return next, tr, nil
	})
}

func (s *WizardService) GoBack(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.GoBack(st)
		return next, tr, nil
	})
}

func (s *WizardService) GoToStep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	target := wizard.StepID(str(in, "step"))
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.GoToStep(st, target)
		return next, tr, nil
	})
}

func (s *WizardService) Reset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next := s.Machine.Reset()
		return next, wizard.Transition{OK: true, From: st.Current, To: next.Current}, nil
	})
}

// UploadDocument stores the base64 "content" of a PDF and completes the upload step with it.
func (s *WizardService) UploadDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	filename := str(in, "filename")
	if err := common.NewValidator().Field("filename", filename, common.Required, common.MaxLength(255)).Error(); err != nil {
		return nil, err
	}
	content, err := bytesField(in, "content")
	if err != nil {
		return nil, err
	}

	var res ingest.IngestionResult
	st, tr, err := s.Sessions.Apply(ctx, id, func(ctx context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		if st.Selections.Operation.SkipsDocument() {
			return st, wizard.Transition{
				Reason:     fmt.Sprintf("operation %s is entered without a document", st.Selections.Operation),
				FailedStep: wizard.StepUpload, From: st.Current, To: st.Current,
			}, nil
		}
		r, err := s.Uploads.Ingest(ctx, id, filename, content)
		if err != nil {
			return st, wizard.Transition{}, err
		}
		res = r
		next, tr := s.Machine.CompleteStep(st, wizard.StepUpload, wizard.StepData{Upload: &wizard.UploadRef{
			DocumentID: r.DocumentID.String(),
			Filename:   r.Filename,
			SHA256:     r.SHA256,
			Size:       r.Size,
			Pages:      r.Pages,
			UploadedAt: r.UploadedAt,
		}})
		return next, tr, nil
	})
	if err != nil {
		return nil, err
	}
	v := s.view(id, st, &tr)
	if tr.OK {
		v.Upload = &res
	}
	return toStruct(v)
}

// ProcessDocument sends the uploaded document to the AI service and applies the result. A failed
// or cancelled call leaves the session unprocessed.
func (s *WizardService) ProcessDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(ctx context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		if st.Upload == nil || st.Selections.Operation.SkipsDocument() {
			// the machine reports the reason
			next, tr := s.Machine.ApplyExtraction(st, reconcile.Result{}, wizard.ExtractionMeta{})
			return next, tr, nil
		}
		docID, err := uuid.Parse(st.Upload.DocumentID)
		if err != nil {
			return st, wizard.Transition{}, fmt.Errorf("upload reference: %w", err)
		}
		out, err := s.Processor.Process(ctx, docID, st.Upload.Filename)
		if err != nil {
			return st, wizard.Transition{}, err
		}
		next, tr := s.Machine.ApplyExtraction(st, out.Result, wizard.ExtractionMeta{
			CompletenessPercent: out.CompletenessPercent,
			ProcessingTimeMs:    out.ProcessingTimeMs,
			ProcessedAt:         out.ProcessedAt,
		})
		return next, tr, nil
	})
}

// EditField sets {field, value}; value is operator text converted the way extraction would.
func (s *WizardService) EditField(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := policy.Field(str(in, "field"))
	if _, ok := policy.Lookup(f); !ok {
		return nil, fmt.Errorf("%w: unknown field %q", common.ErrInvalidInput, f)
	}
	raw := str(in, "value")
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.EditField(st, f, s.Reconciler.ValueFor(f, raw))
		return next, tr, nil
	})
}

func (s *WizardService) ClearField(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := policy.Field(str(in, "field"))
	if _, ok := policy.Lookup(f); !ok {
		return nil, fmt.Errorf("%w: unknown field %q", common.ErrInvalidInput, f)
	}
	return s.mutate(ctx, in, func(_ context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.ClearField(st, f)
		return next, tr, nil
	})
}

// Submit runs the final gate and hands the draft to Velneo. The session reaches success only
// when the backend accepted the record.
func (s *WizardService) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	var sub *entity.Submission
	st, tr, err := s.Sessions.Apply(ctx, id, func(ctx context.Context, st wizard.State) (wizard.State, wizard.Transition, error) {
		next, tr := s.Machine.Submit(st)
		if !tr.OK {
			return next, tr, nil
		}
		prov := submit.Provenance{ProcessedWithAI: st.Processed()}
		if st.Upload != nil {
			prov.SourceFile = st.Upload.Filename
		}
		if st.Extraction != nil {
			prov.CompletenessPercent = st.Extraction.CompletenessPercent
		}
		r, err := s.Submitter.Submit(ctx, id, next.Draft, prov)
		if err != nil {
			return st, wizard.Transition{}, err
		}
		sub = r
		return next, tr, nil
	})
	if err != nil {
		return nil, err
	}
	v := s.view(id, st, &tr)
	v.Submission = sub
	return toStruct(v)
}

// ExportSubmissions returns {filename, content} with the XLSX bytes base64 encoded.
func (s *WizardService) ExportSubmissions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Exporter == nil {
		return nil, common.FailedPreconditionError("export is not configured")
	}
	from, err := dateField(in, "fromDate")
	if err != nil {
		return nil, err
	}
	to, err := dateField(in, "toDate")
	if err != nil {
		return nil, err
	}
	b, err := s.Exporter.ExportSubmissionsXLSX(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{
		"filename": "submissions.xlsx",
		"content":  base64.StdEncoding.EncodeToString(b),
	})
}
