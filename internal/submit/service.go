package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
	"github.com/joseph-ayodele/policy-intake/internal/velneo"
)

// Sender hands a payload to the backend.
type Sender interface {
	SubmitPolicy(ctx context.Context, payload map[string]any) (velneo.SubmitResult, error)
}

// Service builds, sends and records submissions.
type Service struct {
	sender Sender
	repo   repository.SubmissionRepository
	logger *slog.Logger
}

func NewService(sender Sender, repo repository.SubmissionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sender: sender, repo: repo, logger: logger}
}

// Submit sends the draft of a session. Every attempt that reached the backend is recorded,
// rejected ones included. The returned error is the backend's; a failure to record is logged.
func (s *Service) Submit(ctx context.Context, sessionID uuid.UUID, d policy.Draft, prov Provenance) (*entity.Submission, error) {
	start := time.Now()
	payload, err := BuildPayload(d, prov)
	if err != nil {
		s.logger.Warn("submit.payload.invalid", "session_id", sessionID, "error", err)
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	rec := entity.Submission{
		SessionID:       sessionID,
		PolicyNumber:    d.Get(policy.NumeroPoliza).Text,
		ClientID:        d.Context.ClientID,
		CompanyID:       d.Context.CompanyID,
		Operation:       string(d.Context.Operation),
		ProcessedWithAI: prov.ProcessedWithAI,
		Payload:         raw,
	}

	res, sendErr := s.sender.SubmitPolicy(ctx, payload)
	if sendErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("submit policy: %w", sendErr)
		}
		rec.Status = constants.SubmissionStatusRejected
		rec.ErrorMessage = sendErr.Error()
	} else {
		rec.Status = constants.SubmissionStatusSent
		rec.VelneoID = res.ID
	}

	saved, err := s.repo.Create(context.WithoutCancel(ctx), rec)
	if err != nil {
		s.logger.Error("submit.record.failed", "session_id", sessionID, "error", err)
		saved = &rec
	}
	if sendErr != nil {
		s.logger.Warn("submit.rejected", "session_id", sessionID, "error", sendErr, "elapsed_ms", time.Since(start).Milliseconds())
		return saved, fmt.Errorf("submit policy: %w", sendErr)
	}
	s.logger.Info("submit.ok",
		"session_id", sessionID,
		"policy_number", rec.PolicyNumber,
		"velneo_id", res.ID,
		"processed_with_ai", prov.ProcessedWithAI,
		"elapsed_ms", time.Since(start).Milliseconds())
	return saved, nil
}
