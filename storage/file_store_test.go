package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "remote"))

	exists, err := store.Exists(ctx, "bucket", "job.h5")
	require.NoError(t, err)
	assert.False(t, exists)

	src := filepath.Join(dir, "src.h5")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o644))
	require.NoError(t, store.Upload(ctx, src, "bucket", "job.h5"))

	exists, err = store.Exists(ctx, "bucket", "job.h5")
	require.NoError(t, err)
	assert.True(t, exists)

	// Writes overwrite
	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o644))
	require.NoError(t, store.Upload(ctx, src, "bucket", "job.h5"))

	dst := filepath.Join(dir, "out", "job.h5")
	require.NoError(t, store.Download(ctx, "bucket", "job.h5", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestFileStore_DownloadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	err := store.Download(context.Background(), "bucket", "nope.h5", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Exists(context.Background(), "bucket", "../../etc/passwd")
	assert.Error(t, err)
	_, err = store.Exists(context.Background(), "/abs", "key")
	assert.Error(t, err)
}
