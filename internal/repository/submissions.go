package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
)

const submissionsTable = "policy_submissions"

var submissionColumns = []string{
	"id", "session_id", "policy_number", "client_id", "company_id", "operation",
	"processed_with_ai", "status", "velneo_id", "error_message", "payload", "created_at",
}

type SubmissionRepository interface {
	Create(ctx context.Context, s entity.Submission) (*entity.Submission, error)
	// List returns submissions created in [from, to), newest first. Zero bounds are open.
	List(ctx context.Context, from, to time.Time, limit int) ([]entity.Submission, error)
}

type submissionRepo struct {
	drv    *entsql.Driver
	now    func() time.Time
	logger *slog.Logger
}

func NewSubmissionRepository(drv *entsql.Driver, logger *slog.Logger) SubmissionRepository {
	return &submissionRepo{drv: drv, now: time.Now, logger: logger}
}

func (r *submissionRepo) Create(ctx context.Context, s entity.Submission) (*entity.Submission, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	s.CreatedAt = s.CreatedAt.UTC()
	payload := s.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(submissionsTable).
		Columns(submissionColumns...).
		Values(s.ID.String(), s.SessionID.String(), s.PolicyNumber, s.ClientID, s.CompanyID, s.Operation,
			s.ProcessedWithAI, string(s.Status), s.VelneoID, s.ErrorMessage, string(payload), s.CreatedAt).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("submission.create.failed", "session_id", s.SessionID, "policy_number", s.PolicyNumber, "error", err)
		return nil, common.WrapError(err, "create submission")
	}
	r.logger.Info("submission.created", "submission_id", s.ID, "status", s.Status, "velneo_id", s.VelneoID)
	return &s, nil
}

func (r *submissionRepo) List(ctx context.Context, from, to time.Time, limit int) ([]entity.Submission, error) {
	b := entsql.Dialect(r.drv.Dialect())
	sel := b.Select(submissionColumns...).From(b.Table(submissionsTable))
	var preds []*entsql.Predicate
	if !from.IsZero() {
		preds = append(preds, entsql.GTE("created_at", from.UTC()))
	}
	if !to.IsZero() {
		preds = append(preds, entsql.LT("created_at", to.UTC()))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, common.WrapError(err, "list submissions")
	}
	defer rows.Close()

	var out []entity.Submission
	for rows.Next() {
		var (
			s           entity.Submission
			id, session string
			status      string
			payload     []byte
		)
		if err := rows.Scan(&id, &session, &s.PolicyNumber, &s.ClientID, &s.CompanyID, &s.Operation,
			&s.ProcessedWithAI, &status, &s.VelneoID, &s.ErrorMessage, &payload, &s.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan submission")
		}
		var err error
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("submission id %q: %w", id, err)
		}
		if s.SessionID, err = uuid.Parse(session); err != nil {
			return nil, fmt.Errorf("submission session id %q: %w", session, err)
		}
		s.Status = constants.SubmissionStatus(status)
		s.Payload = payload
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "list submissions")
	}
	return out, nil
}
