package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

var (
	ageBinaryHeader = []byte("age-encryption.org/v1")
	ageArmorHeader  = []byte("-----BEGIN AGE ENCRYPTED FILE-----")
)

// Age encrypts vault files with the age command line tool
type Age struct {
	Binary       string
	Recipients   []string
	IdentityFile string
	Armor        bool
	Runner       Runner
}

// Encrypt encrypts path to the configured recipients and renames the
// ciphertext over the plaintext
func (a *Age) Encrypt(path string) error {
	if len(a.Recipients) == 0 {
		return failure("age: no recipients configured")
	}

	encrypted, err := a.IsEncrypted(path)
	if err != nil {
		return failure("age: inspect %s: %v", path, err)
	}
	if encrypted {
		return nil
	}

	out := path + ".age.tmp"
	args := []string{"--encrypt"}
	if a.Armor {
		args = append(args, "--armor")
	}
	for _, r := range a.Recipients {
		args = append(args, "--recipient", r)
	}
	args = append(args, "--output", out, path)

	if _, err := runnerOrDefault(a.Runner).Run(a.binary(), args...); err != nil {
		_ = os.Remove(out)
		return asEncryptionError(err)
	}

	if err := os.Chmod(out, 0o600); err != nil {
		_ = os.Remove(out)
		return failure("age: chmod %s: %v", out, err)
	}
	if err := os.Rename(out, path); err != nil {
		_ = os.Remove(out)
		return failure("age: replace %s: %v", path, err)
	}
	return nil
}

// Decrypt runs age with the configured identity file and returns stdout
func (a *Age) Decrypt(path string) ([]byte, error) {
	if a.IdentityFile == "" {
		return nil, failure("age: no identity file configured")
	}

	plaintext, err := runnerOrDefault(a.Runner).Run(a.binary(), "--decrypt", "--identity", a.IdentityFile, path)
	if err != nil {
		return nil, asEncryptionError(err)
	}
	return plaintext, nil
}

// IsEncrypted reports whether path starts with an age header, binary or armored
func (a *Age) IsEncrypted(path string) (bool, error) {
	header, err := readHeader(path, len(ageArmorHeader))
	if err != nil {
		return false, err
	}
	return bytes.HasPrefix(header, ageBinaryHeader) || bytes.HasPrefix(header, ageArmorHeader), nil
}

func (a *Age) binary() string {
	if a.Binary == "" {
		return "age"
	}
	return a.Binary
}

func asEncryptionError(err error) error {
	if errors.Is(err, ErrEncryption) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEncryption, err)
}
