package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.json")

	require.NoError(t, AtomicWriteFile(path, []byte("hello"), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAtomicWriter_TempFileIsHiddenSibling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")

	w, err := NewAtomicWriter(path, nil)
	require.NoError(t, err)
	defer func() { _ = w.Abort() }()

	assert.Equal(t, dir, filepath.Dir(w.TempPath()))
	assert.Equal(t, byte('.'), filepath.Base(w.TempPath())[0])
}

func TestAtomicWriter_FileNames(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"my..vault.json", "vault..json", "..hidden"} {
		path := filepath.Join(dir, name)
		require.NoError(t, AtomicWriteFile(path, []byte("ok"), nil), "name %q", name)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(raw))
	}

	_, err := NewAtomicWriter(dir+string(filepath.Separator)+"..", nil)
	assert.Error(t, err)
}

func TestAtomicWriter_PrepareFailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	w, err := NewAtomicWriter(path, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("replacement"))
	require.NoError(t, err)

	sentinel := errors.New("encrypt failed")
	var seen string
	err = w.CommitWith(func(tempPath string) error {
		seen = tempPath
		raw, readErr := os.ReadFile(tempPath)
		require.NoError(t, readErr)
		assert.Equal(t, "replacement", string(raw))
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(raw))

	_, err = os.Stat(seen)
	assert.True(t, os.IsNotExist(err), "temp file must be removed")
}

func TestAtomicWriter_CommitWithTransformsBeforeRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	w, err := NewAtomicWriter(path, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("plain"))
	require.NoError(t, err)

	err = w.CommitWith(func(tempPath string) error {
		return os.WriteFile(tempPath, []byte("sealed"), 0o600)
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sealed", string(raw))

	_, err = w.Write([]byte("late"))
	assert.Error(t, err, "writer is closed after commit")
}

func TestEnsureFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, EnsureFilePermissions(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
