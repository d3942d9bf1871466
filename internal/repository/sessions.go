package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
)

const sessionsTable = "wizard_sessions"

type SessionRepository interface {
	Save(ctx context.Context, id uuid.UUID, currentStep string, snapshot []byte) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepo struct {
	drv    *entsql.Driver
	now    func() time.Time
	logger *slog.Logger
}

func NewSessionRepository(drv *entsql.Driver, logger *slog.Logger) SessionRepository {
	return &sessionRepo{drv: drv, now: time.Now, logger: logger}
}

// Save inserts or replaces the snapshot of a session.
func (r *sessionRepo) Save(ctx context.Context, id uuid.UUID, currentStep string, snapshot []byte) error {
	now := r.now().UTC()
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(sessionsTable).
		Columns("id", "current_step", "snapshot", "created_at", "updated_at").
		Values(id.String(), currentStep, string(snapshot), now, now).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("current_step")
				u.SetExcluded("snapshot")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("session.save.failed", "session_id", id, "error", err)
		return fmt.Errorf("save session %s: %w", id, err)
	}
	r.logger.Debug("session.saved", "session_id", id, "step", currentStep, "bytes", len(snapshot))
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select("id", "current_step", "snapshot", "created_at", "updated_at").
		From(b.Table(sessionsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get session %s: %w", id, err)
		}
		return nil, fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	var (
		s        entity.Session
		rawID    string
		snapshot []byte
	)
	if err := rows.Scan(&rawID, &s.CurrentStep, &snapshot, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan session %s: %w", id, err)
	}
	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("session id %q: %w", rawID, err)
	}
	s.ID = parsed
	s.Snapshot = snapshot
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Delete(sessionsTable).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// PurgeBefore removes sessions untouched since cutoff and returns how many went.
func (r *sessionRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Delete(sessionsTable).
		Where(entsql.LT("updated_at", cutoff.UTC())).
		Query()
	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, common.WrapError(err, "purge sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.WrapError(err, "purge sessions")
	}
	if n > 0 {
		r.logger.Info("session.purged", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
