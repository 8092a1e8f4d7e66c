// Package keyring caches vault passphrases in the OS keyring, keyed by vault path.
package keyring

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const serviceName = "envvault"

// ErrNotFound is returned when no passphrase is stored for a vault
var ErrNotFound = keyring.ErrNotFound

// VaultID derives the keyring account name for the vault at path
func VaultID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(sum[:16])
}

// SavePassphrase stores a passphrase in the OS keyring
func SavePassphrase(vaultPath, passphrase string) error {
	return keyring.Set(serviceName, VaultID(vaultPath), passphrase)
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(vaultPath string) (string, error) {
	return keyring.Get(serviceName, VaultID(vaultPath))
}

// DeletePassphrase removes a stored passphrase. Deleting a missing entry is not an error.
func DeletePassphrase(vaultPath string) error {
	err := keyring.Delete(serviceName, VaultID(vaultPath))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored for the vault
func HasPassphrase(vaultPath string) bool {
	_, err := GetPassphrase(vaultPath)
	return err == nil
}
