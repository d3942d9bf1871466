// Package pipeline runs an uploaded policy through the document-AI service and the reconciler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
)

// ContentSource returns the stored bytes of an uploaded document.
type ContentSource interface {
	Content(ctx context.Context, documentID uuid.UUID) ([]byte, error)
}

// Outcome is a successful processing run, ready to be applied to a wizard state.
type Outcome struct {
	Result              reconcile.Result
	CompletenessPercent float64
	ProcessingTimeMs    int64
	ProcessedAt         time.Time
}

// Processor coordinates the AI call, the reconcile pass and the document status.
type Processor struct {
	ai         docai.Processor
	reconciler *reconcile.Reconciler
	docs       repository.DocumentRepository
	content    ContentSource
	now        func() time.Time
	logger     *slog.Logger
}

func NewProcessor(ai docai.Processor, reconciler *reconcile.Reconciler, docs repository.DocumentRepository, content ContentSource, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{ai: ai, reconciler: reconciler, docs: docs, content: content, now: time.Now, logger: logger}
}

// Process sends a document to the AI service and reconciles the answer. On error or
// cancellation no Outcome is returned, so callers have nothing to apply; the document status
// records FAILED or CANCELLED.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID, filename string) (Outcome, error) {
	start := time.Now()
	// status writes outlive the caller's ctx so a cancelled run is still recorded
	bg := context.WithoutCancel(ctx)
	p.setStatus(bg, documentID, constants.DocumentStatusRunning, "", 0)

	content, err := p.content.Content(ctx, documentID)
	if err != nil {
		p.setStatus(bg, documentID, constants.DocumentStatusFailed, err.Error(), 0)
		return Outcome{}, fmt.Errorf("load document %s: %w", documentID, err)
	}

	res, err := p.ai.Process(ctx, docai.Document{Filename: filename, Content: content})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		status := constants.DocumentStatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = constants.DocumentStatusCancelled
		}
		p.setStatus(bg, documentID, status, err.Error(), 0)
		p.logger.Warn("pipeline.process.aborted", "document_id", documentID, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Outcome{}, err
	}

	out := Outcome{
		Result:              p.reconciler.Reconcile(res.Fields),
		CompletenessPercent: res.CompletenessPercent,
		ProcessingTimeMs:    res.ProcessingTimeMs,
		ProcessedAt:         p.now().UTC(),
	}
	if out.ProcessingTimeMs == 0 {
		out.ProcessingTimeMs = time.Since(start).Milliseconds()
	}
	p.setStatus(bg, documentID, constants.DocumentStatusAIOK, "", res.CompletenessPercent)
	p.logger.Info("pipeline.process.ok",
		"document_id", documentID,
		"fields", len(res.Fields),
		"mapped", len(out.Result.Mapped),
		"unmapped", len(out.Result.Unmapped),
		"completeness", res.CompletenessPercent,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// ProcessRaw reconciles an already fetched AI payload. It backs offline batch runs.
func (p *Processor) ProcessRaw(raw []byte, defaultConfidence float64) (Outcome, error) {
	res, err := docai.Normalize(raw, defaultConfidence)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Result:              p.reconciler.Reconcile(res.Fields),
		CompletenessPercent: res.CompletenessPercent,
		ProcessingTimeMs:    res.ProcessingTimeMs,
		ProcessedAt:         p.now().UTC(),
	}, nil
}

func (p *Processor) setStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, msg string, completeness float64) {
	if p.docs == nil {
		return
	}
	if err := p.docs.SetStatus(ctx, id, status, msg, completeness); err != nil {
		p.logger.Warn("pipeline.status.failed", "document_id", id, "status", status, "error", err)
	}
}
