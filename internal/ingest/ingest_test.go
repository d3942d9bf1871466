package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
)

// minimalPDF builds a well-formed PDF with the given number of blank pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func newTestIngestor(t *testing.T, limits Limits) (*Ingestor, repository.DocumentRepository) {
	t.Helper()
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "ingest.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	require.NoError(t, repository.Migrate(ctx, drv, slog.Default()))
	docs := repository.NewDocumentRepository(drv, slog.Default())
	return NewIngestor(docs, NewMemoryStore(), limits, nil), docs
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(minimalPDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestIngestDeduplicatesPerSession(t *testing.T) {
	ctx := context.Background()
	ing, docs := newTestIngestor(t, Limits{})
	session := uuid.New()
	pdf := minimalPDF(2)

	first, err := ing.Ingest(ctx, session, "/tmp/uploads/Poliza BSE.pdf", pdf)
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)
	assert.Equal(t, "Poliza BSE.pdf", first.Filename)
	assert.Equal(t, 2, first.Pages)
	assert.Len(t, first.SHA256, 64)

	again, err := ing.Ingest(ctx, session, "copy.pdf", pdf)
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.Equal(t, first.DocumentID, again.DocumentID)

	other, err := ing.Ingest(ctx, uuid.New(), "poliza.pdf", pdf)
	require.NoError(t, err)
	assert.NotEqual(t, first.DocumentID, other.DocumentID)

	content, err := ing.Content(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, pdf, content)

	stored, err := docs.Get(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, first.SHA256, stored.SHA256)
}

func TestIngestRejects(t *testing.T) {
	ing, _ := newTestIngestor(t, Limits{MaxBytes: 4096, MaxPages: 2})
	big := append(minimalPDF(1), bytes.Repeat([]byte(" "), 5000)...)

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"not a pdf extension", "scan.png", minimalPDF(1)},
		{"empty", "poliza.pdf", nil},
		{"too large", "poliza.pdf", big},
		{"garbage", "poliza.pdf", []byte("%PDF-garbage")},
		{"too many pages", "poliza.pdf", minimalPDF(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ing.Ingest(context.Background(), uuid.New(), tt.filename, tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestBlobStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]BlobStore{
		"memory": NewMemoryStore(),
		"dir":    DirStore{Root: filepath.Join(t.TempDir(), "uploads")},
	} {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			_, err := store.Get(ctx, id)
			assert.ErrorIs(t, err, common.ErrNotFound)

			require.NoError(t, store.Put(ctx, id, []byte("%PDF")))
			b, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []byte("%PDF"), b)

			require.NoError(t, store.Delete(ctx, id))
			require.NoError(t, store.Delete(ctx, id))
			_, err = store.Get(ctx, id)
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestWalkFiles(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"b.json", "a.JSON", "notes.txt", ".hidden/c.json", "sub/d.json"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("{}"), 0o644))
	}

	paths, stats, err := WalkFiles(root, []string{".json"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.JSON"),
		filepath.Join(root, "b.json"),
		filepath.Join(root, "sub", "d.json"),
	}, paths)
	assert.Equal(t, uint32(3), stats.Matched)

	_, _, err = WalkFiles(" ", nil, false)
	assert.Error(t, err)
}

func TestWatcherEmitsExistingAndNewFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.json"), []byte("{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, Exts: []string{"json"}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "old.json"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial file not emitted")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.json"), []byte("{}"), 0o644))
	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "new.json"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("new file not emitted")
	}

	cancel()
	for range events {
	}
}
