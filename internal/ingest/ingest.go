// Package ingest accepts uploaded policy PDFs: it checks them, hashes them, registers them per
// session and keeps their bytes until processing.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/entity"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
)

// IngestionResult is the outcome of one upload.
type IngestionResult struct {
	DocumentID   uuid.UUID `json:"documentId"`
	Filename     string    `json:"filename"`
	SHA256       string    `json:"sha256"`
	Size         int64     `json:"size"`
	Pages        int       `json:"pages"`
	Deduplicated bool      `json:"deduplicated"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type Limits struct {
	MaxBytes int64
	MaxPages int
}

// Ingestor validates and registers uploads.
type Ingestor struct {
	docs   repository.DocumentRepository
	blobs  BlobStore
	limits Limits
	now    func() time.Time
	logger *slog.Logger
}

func NewIngestor(docs repository.DocumentRepository, blobs BlobStore, limits Limits, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = constants.MaxUploadMBDefault << 20
	}
	return &Ingestor{docs: docs, blobs: blobs, limits: limits, now: time.Now, logger: logger}
}

// Ingest registers content as the policy file of a session. Re-uploading identical bytes to the
// same session returns the existing document.
func (i *Ingestor) Ingest(ctx context.Context, sessionID uuid.UUID, filename string, content []byte) (IngestionResult, error) {
	start := time.Now()
	name := filepath.Base(filename)
	if !constants.AllowedExt(filepath.Ext(name)) {
		return IngestionResult{}, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("%q is not a PDF", name), common.ErrInvalidInput)
	}
	size := int64(len(content))
	switch {
	case size == 0:
		return IngestionResult{}, common.NewAppError("EMPTY_FILE", name, common.ErrInvalidInput)
	case size > i.limits.MaxBytes:
		return IngestionResult{}, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("%s is %d bytes; limit is %d", name, size, i.limits.MaxBytes), common.ErrInvalidInput)
	}

	pages, err := PageCount(content)
	if err != nil {
		i.logger.Warn("ingest.pdf.invalid", "session_id", sessionID, "file", name, "error", err)
		return IngestionResult{}, common.NewAppError("INVALID_PDF", name, errors.Join(common.ErrInvalidInput, err))
	}
	if i.limits.MaxPages > 0 && pages > i.limits.MaxPages {
		return IngestionResult{}, common.NewAppError("TOO_MANY_PAGES",
			fmt.Sprintf("%s has %d pages; limit is %d", name, pages, i.limits.MaxPages), common.ErrInvalidInput)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	doc, dedup, err := i.docs.UpsertByHash(ctx, entity.Document{
		SessionID:  sessionID,
		Filename:   name,
		SHA256:     hash,
		Size:       size,
		Pages:      pages,
		UploadedAt: i.now().UTC(),
	})
	if err != nil {
		return IngestionResult{}, err
	}
	if err := i.blobs.Put(ctx, doc.ID, content); err != nil {
		return IngestionResult{}, fmt.Errorf("store upload %s: %w", doc.ID, err)
	}

	i.logger.Info("ingest.ok",
		"session_id", sessionID,
		"document_id", doc.ID,
		"file", name,
		"pages", pages,
		"deduplicated", dedup,
		"elapsed_ms", time.Since(start).Milliseconds())
	return IngestionResult{
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		SHA256:       doc.SHA256,
		Size:         doc.Size,
		Pages:        doc.Pages,
		Deduplicated: dedup,
		UploadedAt:   doc.UploadedAt,
	}, nil
}

// Content returns the stored bytes of a document.
func (i *Ingestor) Content(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	return i.blobs.Get(ctx, documentID)
}

// PageCount parses content as a PDF and returns its number of pages.
func PageCount(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if n == 0 {
		return 0, errors.New("read pdf: document has no pages")
	}
	return n, nil
}
