package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
)

const documentsTable = "policy_documents"

var documentColumns = []string{
	"id", "session_id", "filename", "sha256", "size", "pages", "status",
	"error_message", "completeness_percent", "uploaded_at", "processed_at",
}

type DocumentRepository interface {
	// UpsertByHash returns the document of the session with the same content hash, creating it
	// when absent. The bool reports whether it already existed.
	UpsertByHash(ctx context.Context, doc entity.Document) (*entity.Document, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetBySessionAndHash(ctx context.Context, sessionID uuid.UUID, sha string) (*entity.Document, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, message string, completeness float64) error
}

type documentRepo struct {
	drv    *entsql.Driver
	now    func() time.Time
	logger *slog.Logger
}

func NewDocumentRepository(drv *entsql.Driver, logger *slog.Logger) DocumentRepository {
	return &documentRepo{drv: drv, now: time.Now, logger: logger}
}

func (r *documentRepo) UpsertByHash(ctx context.Context, doc entity.Document) (*entity.Document, bool, error) {
	if existing, err := r.GetBySessionAndHash(ctx, doc.SessionID, doc.SHA256); err == nil {
		return existing, true, nil
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentStatusUploaded
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = r.now()
	}
	doc.UploadedAt = doc.UploadedAt.UTC()

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(doc.ID.String(), doc.SessionID.String(), doc.Filename, doc.SHA256, doc.Size, doc.Pages,
			string(doc.Status), doc.ErrorMessage, doc.CompletenessPercent, doc.UploadedAt, nil).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("document.create.failed", "session_id", doc.SessionID, "filename", doc.Filename, "error", err)
		return nil, false, common.WrapError(err, "create document")
	}
	r.logger.Info("document.created", "document_id", doc.ID, "session_id", doc.SessionID, "filename", doc.Filename, "pages", doc.Pages)
	return &doc, false, nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return r.one(ctx, entsql.EQ("id", id.String()))
}

func (r *documentRepo) GetBySessionAndHash(ctx context.Context, sessionID uuid.UUID, sha string) (*entity.Document, error) {
	return r.one(ctx, entsql.And(entsql.EQ("session_id", sessionID.String()), entsql.EQ("sha256", sha)))
}

func (r *documentRepo) one(ctx context.Context, where *entsql.Predicate) (*entity.Document, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select(documentColumns...).From(b.Table(documentsTable)).Where(where).Limit(1).Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, common.WrapError(err, "query document")
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, common.WrapError(err, "query document")
		}
		return nil, fmt.Errorf("document: %w", common.ErrNotFound)
	}

	var (
		d                 entity.Document
		id, session, stat string
		processed         sql.NullTime
	)
	if err := rows.Scan(&id, &session, &d.Filename, &d.SHA256, &d.Size, &d.Pages, &stat,
		&d.ErrorMessage, &d.CompletenessPercent, &d.UploadedAt, &processed); err != nil {
		return nil, common.WrapError(err, "scan document")
	}
	var err error
	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("document id %q: %w", id, err)
	}
	if d.SessionID, err = uuid.Parse(session); err != nil {
		return nil, fmt.Errorf("document session id %q: %w", session, err)
	}
	d.Status = constants.DocumentStatus(stat)
	if processed.Valid {
		t := processed.Time
		d.ProcessedAt = &t
	}
	return &d, nil
}

// SetStatus records a processing transition. Terminal statuses stamp processed_at.
func (r *documentRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, message string, completeness float64) error {
	u := entsql.Dialect(r.drv.Dialect()).
		Update(documentsTable).
		Set("status", string(status)).
		Set("error_message", message)
	switch status {
	case constants.DocumentStatusAIOK:
		u = u.Set("completeness_percent", completeness).Set("processed_at", r.now().UTC())
	case constants.DocumentStatusFailed, constants.DocumentStatusCancelled:
		u = u.Set("processed_at", r.now().UTC())
	}
	query, args := u.Where(entsql.EQ("id", id.String())).Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("document.status.failed", "document_id", id, "status", status, "error", err)
		return common.WrapError(err, "set document status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	r.logger.Info("document.status", "document_id", id, "status", status)
	return nil
}
