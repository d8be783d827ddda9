package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "asset.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	r := NewRouter(nil)

	ok, err := r.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := r.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	deleted, err := r.Delete(ctx, path)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = r.Delete(ctx, path)
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err = r.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemotePathWithoutStoreFails(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Read(context.Background(), "s3://bucket/key.pdf")
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("s3://bucket/key"))
	assert.True(t, isRemote("gs://bucket/key"))
	assert.False(t, isRemote("/var/data/file.pdf"))
	assert.False(t, isRemote("relative/file.pdf"))
	assert.False(t, isRemote("C:/windows/style"))
}
