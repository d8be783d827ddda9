package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/storage"
)

func TestSourceAssetFlattening(t *testing.T) {
	m := &Source{}
	err := m.applyFields(map[string]any{
		"title":           "doc",
		"asset_file_path": "/data/doc.pdf",
		"asset_url":       "s3://bucket/doc.pdf",
	})
	require.NoError(t, err)
	require.NotEmpty(t, m.Asset)

	rec := m.record()
	assert.Equal(t, "/data/doc.pdf", rec.String("asset_file_path"))
	assert.Equal(t, "s3://bucket/doc.pdf", rec.String("asset_url"))

	// Clearing one asset field keeps the other.
	require.NoError(t, m.applyFields(map[string]any{"asset_url": nil}))
	rec = m.record()
	assert.Equal(t, "/data/doc.pdf", rec.String("asset_file_path"))
	assert.Empty(t, rec.String("asset_url"))
}

func TestApplyFieldsRejectsUnknown(t *testing.T) {
	err := (&Notebook{}).applyFields(map[string]any{"colour": "red"})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestRefFieldCodec(t *testing.T) {
	src := uuid.New()
	m := &SourceEmbedding{}
	err := m.applyFields(map[string]any{
		"source_id":   "source:" + src.String(),
		"chunk_order": 3,
		"content":     "chunk",
		"embedding":   []float32{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, src, m.SourceId)

	rec := m.record()
	assert.Equal(t, "source:"+src.String(), rec.String("source_id"))
	assert.Equal(t, int64(3), rec.Int("chunk_order"))
	assert.Equal(t, []float32{1, 2, 3}, rec.Vector("embedding"))

	err = (&SourceEmbedding{}).applyFields(map[string]any{"source_id": "notebook:" + src.String()})
	assert.ErrorIs(t, err, storage.ErrValidation)

	err = (&SourceEmbedding{}).applyFields(map[string]any{"source_id": "source:not-a-uuid"})
	assert.ErrorIs(t, err, storage.ErrMalformedID)
}
