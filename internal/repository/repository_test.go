package repository

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
)

func openTestDB(t *testing.T) *entsql.Driver {
	t.Helper()
	ctx := context.Background()
	drv, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	require.NoError(t, Migrate(ctx, drv, slog.Default()))
	// idempotent
	require.NoError(t, Migrate(ctx, drv, slog.Default()))
	return drv
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t), slog.Default()).(*sessionRepo)
	t0 := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return t0 }

	id := uuid.New()
	require.NoError(t, repo.Save(ctx, id, "client", []byte(`{"version":1}`)))

	repo.now = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, repo.Save(ctx, id, "form", []byte(`{"version":1,"x":2}`)))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "form", got.CurrentStep)
	assert.JSONEq(t, `{"version":1,"x":2}`, string(got.Snapshot))
	assert.True(t, got.CreatedAt.Equal(t0), "created_at kept on update")
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Hour)))

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	other := uuid.New()
	repo.now = func() time.Time { return t0.Add(48 * time.Hour) }
	require.NoError(t, repo.Save(ctx, other, "client", []byte(`{}`)))

	n, err := repo.PurgeBefore(ctx, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, other))
	_, err = repo.Get(ctx, other)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), slog.Default())
	session := uuid.New()

	doc, existed, err := repo.UpsertByHash(ctx, entity.Document{
		SessionID: session, Filename: "poliza.pdf", SHA256: "abc", Size: 1024, Pages: 2,
	})
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, constants.DocumentStatusUploaded, doc.Status)

	again, existed, err := repo.UpsertByHash(ctx, entity.Document{SessionID: session, Filename: "copia.pdf", SHA256: "abc"})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, doc.ID, again.ID)
	assert.Equal(t, "poliza.pdf", again.Filename)

	require.NoError(t, repo.SetStatus(ctx, doc.ID, constants.DocumentStatusAIOK, "", 87.5))
	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusAIOK, got.Status)
	assert.Equal(t, 87.5, got.CompletenessPercent)
	assert.Equal(t, int64(1024), got.Size)
	require.NotNil(t, got.ProcessedAt)

	err = repo.SetStatus(ctx, uuid.New(), constants.DocumentStatusFailed, "boom", 0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSubmissionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(openTestDB(t), slog.Default())
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, num := range []string{"A-1", "A-2", "A-3"} {
		_, err := repo.Create(ctx, entity.Submission{
			SessionID:       uuid.New(),
			PolicyNumber:    num,
			ClientID:        "c1",
			CompanyID:       "bse",
			Operation:       string(constants.OperationNew),
			ProcessedWithAI: i%2 == 0,
			Status:          constants.SubmissionStatusSent,
			VelneoID:        num,
			Payload:         []byte(`{"poliza_numero":"` + num + `"}`),
			CreatedAt:       t0.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A-3", all[0].PolicyNumber, "newest first")
	assert.True(t, all[2].ProcessedWithAI)
	assert.JSONEq(t, `{"poliza_numero":"A-1"}`, string(all[2].Payload))

	window, err := repo.List(ctx, t0.AddDate(0, 0, 1), t0.AddDate(0, 0, 2), 10)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "A-2", window[0].PolicyNumber)
}
