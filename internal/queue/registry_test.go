package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/storage"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	h, err := r.Lookup("content", "embed_note")
	require.NoError(t, err)
	result, err := h(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("content", "no_such_command")
	assert.ErrorIs(t, err, storage.ErrValidation)
}
