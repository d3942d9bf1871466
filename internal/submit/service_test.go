package submit

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
	"github.com/joseph-ayodele/policy-intake/internal/velneo"
)

type fakeSender struct {
	res   velneo.SubmitResult
	err   error
	calls int
	got   map[string]any
}

func (f *fakeSender) SubmitPolicy(_ context.Context, payload map[string]any) (velneo.SubmitResult, error) {
	f.calls++
	f.got = payload
	return f.res, f.err
}

func newTestService(t *testing.T, sender Sender) (*Service, repository.SubmissionRepository) {
	t.Helper()
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "submit.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	require.NoError(t, repository.Migrate(ctx, drv, slog.Default()))
	repo := repository.NewSubmissionRepository(drv, slog.Default())
	return NewService(sender, repo, nil), repo
}

func TestServiceSubmitRecordsSuccess(t *testing.T) {
	sender := &fakeSender{res: velneo.SubmitResult{ID: "V-77"}}
	svc, repo := newTestService(t, sender)

	rec, err := svc.Submit(context.Background(), uuid.New(), testDraft(), Provenance{ProcessedWithAI: true})
	require.NoError(t, err)
	assert.Equal(t, constants.SubmissionStatusSent, rec.Status)
	assert.Equal(t, "V-77", rec.VelneoID)
	assert.Equal(t, "AB-12345", sender.got["poliza_numero"])

	list, err := repo.List(context.Background(), time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "V-77", list[0].VelneoID)
}

func TestServiceSubmitRecordsRejection(t *testing.T) {
	sender := &fakeSender{err: errors.New("duplicate policy")}
	svc, repo := newTestService(t, sender)

	rec, err := svc.Submit(context.Background(), uuid.New(), testDraft(), Provenance{})
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, constants.SubmissionStatusRejected, rec.Status)

	list, err := repo.List(context.Background(), time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "duplicate policy", list[0].ErrorMessage)
}

func TestServiceSubmitInvalidPayloadNeverSends(t *testing.T) {
	sender := &fakeSender{}
	svc, _ := newTestService(t, sender)
	_, err := svc.Submit(context.Background(), uuid.New(), testDraft().WithContext(policy.Context{CompanyID: "bse", SectionID: "auto", Operation: constants.OperationNew}), Provenance{})
	require.Error(t, err)
	assert.Zero(t, sender.calls)
}
