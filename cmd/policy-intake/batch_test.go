package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/internal/bootstrap"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/pipeline"
)

func testCore(t *testing.T) (*bootstrap.Core, *pipeline.Processor) {
	t.Helper()
	cfg := &common.Config{Vocabulary: common.VocabularyConfig{
		File: filepath.Join("..", "..", "internal", "vocabulary", "testdata", "master.yaml"),
		Defaults: map[string]string{
			"fuel": "NAF", "category": "1", "destination": "1", "quality": "1",
			"department": "1", "currency": "1", "payment": "CONTADO",
		},
	}}
	loader, err := bootstrap.Loader(cfg, nil, nil, slog.Default())
	require.NoError(t, err)
	v, err := loader.Load(context.Background())
	require.NoError(t, err)
	core := bootstrap.NewCore(v, common.ValidationConfig{}, nil)
	return core, pipeline.NewProcessor(nil, core.Reconciler, nil, nil, nil)
}

func TestRunBatchKeepsFileOrder(t *testing.T) {
	core, proc := testCore(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "a.json")
	bad := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"fields": [
			{"name": "numero_poliza", "value": "AB-12345", "confidence": 0.95},
			{"name": "combustible", "value": "Disel", "confidence": 0.9},
			{"name": "color", "value": "rojo", "confidence": 0.9}
		],
		"overallCompletenessPercent": 55
	}`), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`not json`), 0o600))

	rows, err := runBatch(context.Background(), core, proc, []string{good, bad}, 2, 0.75)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, good, rows[0].File)
	assert.Equal(t, "AB-12345", rows[0].PolicyNumber)
	assert.Equal(t, 55.0, rows[0].Completeness)
	assert.Equal(t, 1, rows[0].Unmapped)
	assert.NotEmpty(t, rows[0].Errors)
	assert.Empty(t, rows[0].Failure)

	assert.Equal(t, bad, rows[1].File)
	assert.NotEmpty(t, rows[1].Failure)
}

func TestReconcileFileRendersYAML(t *testing.T) {
	core, proc := testCore(t)
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fields": {"numero_poliza": {"value": "AB-12345", "confidence": 92}}}`), 0o600))

	s := reconcileFile(core, proc, path, 0.75)
	require.Empty(t, s.Failure)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "yaml", s))
	assert.Contains(t, buf.String(), "policy_number: AB-12345")
	assert.Contains(t, buf.String(), "confidence: 92")

	assert.Error(t, render(&buf, "xml", s))
}
