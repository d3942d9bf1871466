package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
)

type stubSubmissions struct {
	subs     []entity.Submission
	from, to time.Time
}

func (s *stubSubmissions) Create(_ context.Context, sub entity.Submission) (*entity.Submission, error) {
	return &sub, nil
}

func (s *stubSubmissions) List(_ context.Context, from, to time.Time, _ int) ([]entity.Submission, error) {
	s.from, s.to = from, to
	return s.subs, nil
}

func readRows(t *testing.T, b []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExportSubmissionsXLSX(t *testing.T) {
	repo := &stubSubmissions{subs: []entity.Submission{
		{
			ID: uuid.New(), PolicyNumber: "AB-12345", ClientID: "7", CompanyID: "3", Operation: "NUEVO",
			ProcessedWithAI: true, Status: constants.SubmissionStatusSent, VelneoID: "991",
			CreatedAt: time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			ID: uuid.New(), PolicyNumber: "CD-555", Status: constants.SubmissionStatusRejected,
			ErrorMessage: "velneo: status 422", CreatedAt: time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewService(repo, nil)

	from := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)
	b, err := svc.ExportSubmissionsXLSX(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), repo.from)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), repo.to)

	rows := readRows(t, b, SubmissionsSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "Policy Number", rows[0][1])
	assert.Equal(t, []string{"2024-06-15 10:30:00", "AB-12345", "7", "3", "NUEVO", "yes", "SENT", "991"}, rows[1])
	assert.Equal(t, "REJECTED", rows[2][6])
	assert.Equal(t, "velneo: status 422", rows[2][8])
}

func TestBatchReportXLSX(t *testing.T) {
	b, err := BatchReportXLSX([]BatchRow{
		{File: "a.json", PolicyNumber: "AB-12345", Completeness: 80, Mapped: 30, Unmapped: 2, Warnings: []string{"prima: revisar"}},
		{File: "b.json", Failure: "docai envelope: missing fields"},
	})
	require.NoError(t, err)

	rows := readRows(t, b, BatchSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, "a.json", rows[1][0])
	assert.Equal(t, "80", rows[1][2])
	assert.Equal(t, "prima: revisar", rows[1][6])
	assert.Equal(t, "docai envelope: missing fields", rows[2][7])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "ñañ…", truncate("ñañañaña", 4))
}
