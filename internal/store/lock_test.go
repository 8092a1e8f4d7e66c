package store

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_LockUnlock(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.json")
	lock := NewFileLock(vaultPath, nil)

	require.NoError(t, lock.Lock(time.Second))
	assert.True(t, lock.IsLocked())

	raw, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	require.NoError(t, lock.Unlock())
	assert.False(t, lock.IsLocked())
	_, err = os.Stat(lock.Path())
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, lock.Unlock(), ErrLockNotHeld)
}

func TestFileLock_SecondHolderTimesOut(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.json")

	first := NewFileLock(vaultPath, nil)
	require.NoError(t, first.Lock(time.Second))
	defer func() { _ = first.Unlock() }()

	second := NewFileLock(vaultPath, nil)
	err := second.Lock(150 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
	assert.False(t, second.IsLocked())
}

func TestFileLock_ReclaimsStaleLock(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.json")
	lockPath := vaultPath + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("999999"), 0o600))

	old := time.Now().Add(-2 * staleLockAge)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	lock := NewFileLock(vaultPath, nil)
	require.NoError(t, lock.Lock(time.Second))
	require.NoError(t, lock.Unlock())
}
