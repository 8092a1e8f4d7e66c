package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBackupManager_SnapshotNamesAndContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	now := time.UnixMilli(1700000000123)
	bm := NewBackupManager(5, nil)
	bm.now = fixedClock(now)

	backupPath, err := bm.Snapshot(path)
	require.NoError(t, err)
	assert.Equal(t, path+".backup.1700000000123", backupPath)

	raw, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(raw))

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBackupManager_SnapshotNeverCollides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	bm := NewBackupManager(5, nil)
	bm.now = fixedClock(time.UnixMilli(1000))

	first, err := bm.Snapshot(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	second, err := bm.Snapshot(path)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	backups, err := bm.List(path)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, second, backups[0].Path)
	assert.Equal(t, int64(1001), backups[0].Millis)

	raw, err := os.ReadFile(backups[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(raw))
}

func TestBackupManager_SnapshotMissingFile(t *testing.T) {
	bm := NewBackupManager(5, nil)
	_, err := bm.Snapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBackupManager_ListIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")

	for _, name := range []string{
		"vault.json.backup.300",
		"vault.json.backup.100",
		"vault.json.backup.200",
		"vault.json.backup.notanumber",
		"other.json.backup.400",
		"vault.json",
		"vault.json.lock",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "vault.json.backup.999"), 0o700))

	backups, err := NewBackupManager(5, nil).List(path)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, int64(300), backups[0].Millis)
	assert.Equal(t, int64(200), backups[1].Millis)
	assert.Equal(t, int64(100), backups[2].Millis)
	assert.Equal(t, int64(1), backups[0].Size)
	assert.Equal(t, time.UnixMilli(300).UTC(), backups[0].Timestamp)
}

func TestBackupManager_ListMissingDirectory(t *testing.T) {
	backups, err := NewBackupManager(5, nil).List(filepath.Join(t.TempDir(), "nope", "vault.json"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackupManager_PruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")
	for i := 1; i <= 7; i++ {
		require.NoError(t, os.WriteFile(backupName(path, int64(i)), []byte("x"), 0o600))
	}

	bm := NewBackupManager(3, nil)
	removed := bm.Prune(path)
	assert.Len(t, removed, 4)

	backups, err := bm.List(path)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, []int64{7, 6, 5}, []int64{backups[0].Millis, backups[1].Millis, backups[2].Millis})

	assert.Empty(t, bm.Prune(path), "nothing to prune at the limit")
}

func TestNewBackupManager_DefaultRetention(t *testing.T) {
	assert.Equal(t, DefaultBackupRetention, NewBackupManager(0, nil).Retention())
	assert.Equal(t, DefaultBackupRetention, NewBackupManager(-3, nil).Retention())
	assert.Equal(t, 2, NewBackupManager(2, nil).Retention())
}

func TestIsBackupOf(t *testing.T) {
	path := filepath.Join("/data", "vault.json")

	assert.True(t, IsBackupOf(path, "/data/vault.json.backup.123"))
	assert.False(t, IsBackupOf(path, "/data/vault.json.backup.abc"))
	assert.False(t, IsBackupOf(path, "/other/vault.json.backup.123"))
	assert.False(t, IsBackupOf(path, "/data/other.json.backup.123"))
	assert.False(t, IsBackupOf(path, "/data/vault.json"))
}
