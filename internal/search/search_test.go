package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
)

type fakeSearchDriver struct {
	textHits   []storage.TextHit
	vectorHits []storage.VectorHit
}

func (f *fakeSearchDriver) SearchText(ctx context.Context, query string, scope storage.SearchScope, limit int) ([]storage.TextHit, error) {
	return f.textHits, nil
}

func (f *fakeSearchDriver) SearchVector(ctx context.Context, vector []float32, scope storage.SearchScope, limit int, minSimilarity float64) ([]storage.VectorHit, error) {
	return f.vectorHits, nil
}

func scopeAll() storage.SearchScope {
	return storage.SearchScope{Sources: true, Notes: true}
}

func TestTextDedupByParentKeepsMaxScore(t *testing.T) {
	sourceA := storage.IntID(storage.CollectionSource, 1)
	sourceB := storage.IntID(storage.CollectionSource, 2)
	driver := &fakeSearchDriver{textHits: []storage.TextHit{
		{ID: storage.IntID(storage.CollectionSourceEmbedding, 10), Parent: sourceA, Title: "paper", Snippet: "low", Score: 1.2},
		{ID: storage.IntID(storage.CollectionSourceEmbedding, 11), Parent: sourceA, Title: "paper", Snippet: "high", Score: 3.4},
		{ID: storage.IntID(storage.CollectionSourceInsight, 20), Parent: sourceB, Title: "summary", Snippet: "mid", Score: 2.0},
	}}
	svc := NewService(driver, logger.NewNopLogger())

	results, err := svc.Text(context.Background(), "query", scopeAll(), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, sourceA, results[0].Parent)
	assert.Equal(t, "high", results[0].Snippet)
	assert.Equal(t, 3.4, results[0].Score)
	assert.Equal(t, sourceB, results[1].Parent)
}

func TestTextRejectsEmptyQuery(t *testing.T) {
	svc := NewService(&fakeSearchDriver{}, logger.NewNopLogger())

	_, err := svc.Text(context.Background(), "   ", scopeAll(), 10)
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestVectorSortsAndTruncates(t *testing.T) {
	driver := &fakeSearchDriver{vectorHits: []storage.VectorHit{
		{ID: storage.IntID(storage.CollectionSourceEmbedding, 1), Parent: storage.IntID(storage.CollectionSource, 1), Similarity: 0.71},
		{ID: storage.IntID(storage.CollectionSourceEmbedding, 2), Parent: storage.IntID(storage.CollectionSource, 2), Similarity: 0.93},
		{ID: storage.IntID(storage.CollectionSourceEmbedding, 3), Parent: storage.IntID(storage.CollectionSource, 3), Similarity: 0.85},
	}}
	svc := NewService(driver, logger.NewNopLogger())

	results, err := svc.Vector(context.Background(), []float32{1, 0}, scopeAll(), 2, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.93, results[0].Score)
	assert.Equal(t, 0.85, results[1].Score)
}

func TestVectorRejectsEmptyVector(t *testing.T) {
	svc := NewService(&fakeSearchDriver{}, logger.NewNopLogger())

	_, err := svc.Vector(context.Background(), nil, scopeAll(), 5, 0.3)
	assert.ErrorIs(t, err, storage.ErrValidation)
}
