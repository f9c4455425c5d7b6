package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCreatesFileWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")

	require.NoError(t, Write(path, []byte("hello"), 0644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestWriteOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	require.NoError(t, Write(path, []byte("v1"), 0644))
	require.NoError(t, Write(path, []byte("v2"), 0644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no leftover temp files")
}

func TestWriteSyncedSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "objects", "ab", "cdef")

	require.NoError(t, WriteSynced(path, []byte("payload"), 0644, dir))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}

func TestSyncDirOnMissingDirFails(t *testing.T) {
	err := SyncDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
