// Package encryption is the boundary between plaintext vault documents and
// the encrypted bytes kept on disk.
//
// The store never encrypts anything itself. It hands a file path to a
// Gateway, which either delegates to an external recipient-key tool (age,
// sops) or to the in-process passphrase backend. Fake is a deterministic
// implementation with fault injection for tests.
package encryption

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vault-cli/envvault/internal/config"
)

var (
	// ErrEncryption is the category of every encryption or decryption failure
	ErrEncryption = errors.New("encryption error")
	// ErrToolUnavailable is returned when the external encryption tool cannot be found
	ErrToolUnavailable = errors.New("encryption tool unavailable")
	// ErrNotEncrypted is returned when decrypting a file that is not in encrypted form
	ErrNotEncrypted = errors.New("file is not encrypted")
	// ErrDecryptionFailed is returned for wrong keys or corrupted payloads
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Gateway encrypts and decrypts vault files in place
type Gateway interface {
	// Encrypt replaces the plaintext file at path with its encrypted form.
	// A file that is already encrypted is left as is.
	Encrypt(path string) error
	// Decrypt returns the plaintext of the encrypted file at path without modifying it.
	Decrypt(path string) ([]byte, error)
	// IsEncrypted inspects the file header to decide whether path is encrypted.
	IsEncrypted(path string) (bool, error)
}

// PassphraseSource supplies the passphrase for the passphrase backend on demand
type PassphraseSource func() (string, error)

// New builds the gateway selected by cfg
func New(cfg config.EncryptionConfig, source PassphraseSource) (Gateway, error) {
	switch cfg.Backend {
	case config.BackendAge:
		return &Age{
			Binary:       cfg.Age.Binary,
			Recipients:   cfg.Age.Recipients,
			IdentityFile: cfg.Age.IdentityFile,
			Armor:        cfg.Age.Armor,
		}, nil
	case config.BackendSops:
		return &Sops{
			Binary:        cfg.Sops.Binary,
			AgeRecipients: cfg.Sops.AgeRecipients,
			ExtraArgs:     cfg.Sops.ExtraArgs,
		}, nil
	case config.BackendPassphrase:
		if source == nil {
			return nil, fmt.Errorf("%w: passphrase backend needs a passphrase source", ErrEncryption)
		}
		return NewPassphrase(Argon2Params{
			Memory:      cfg.Passphrase.Memory,
			Iterations:  cfg.Passphrase.Iterations,
			Parallelism: cfg.Passphrase.Parallelism,
		}, source), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrEncryption, cfg.Backend)
	}
}

func failure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEncryption, fmt.Sprintf(format, args...))
}

// readHeader returns up to n leading bytes of path
func readHeader(path string, n int) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

// replaceFile writes data next to path and renames it over path
func replaceFile(path string, data []byte) error {
	tmp := path + ".enc.tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
