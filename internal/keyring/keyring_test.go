package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestPassphraseLifecycle(t *testing.T) {
	gokeyring.MockInit()
	path := "/tmp/envvault/vault.json"

	assert.False(t, HasPassphrase(path))
	_, err := GetPassphrase(path)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SavePassphrase(path, "correct horse"))
	assert.True(t, HasPassphrase(path))

	got, err := GetPassphrase(path)
	require.NoError(t, err)
	assert.Equal(t, "correct horse", got)

	require.NoError(t, DeletePassphrase(path))
	assert.False(t, HasPassphrase(path))
	require.NoError(t, DeletePassphrase(path), "deleting twice is fine")
}

func TestVaultID(t *testing.T) {
	assert.Equal(t, VaultID("/a/b/vault.json"), VaultID("/a/b/../b/vault.json"))
	assert.NotEqual(t, VaultID("/a/vault.json"), VaultID("/b/vault.json"))
	assert.Len(t, VaultID("/a/vault.json"), 32)
}
