package encryption

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

var fakeHeader = []byte("FAKEENC1\n")

// Fake is a deterministic, reversible gateway for tests. Files are stored as
// a header followed by base64 text. Setting EncryptErr or DecryptErr makes the
// corresponding call fail without touching the file.
type Fake struct {
	EncryptErr error
	DecryptErr error

	Encrypts int
	Decrypts int
}

// NewFake returns a Fake with no injected faults
func NewFake() *Fake {
	return &Fake{}
}

// Encrypt encodes the file at path in place
func (f *Fake) Encrypt(path string) error {
	f.Encrypts++
	if f.EncryptErr != nil {
		return fmt.Errorf("%w: %w", ErrEncryption, f.EncryptErr)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return failure("fake: read %s: %v", path, err)
	}
	if bytes.HasPrefix(data, fakeHeader) {
		return nil
	}

	encoded := make([]byte, len(fakeHeader)+base64.StdEncoding.EncodedLen(len(data)))
	copy(encoded, fakeHeader)
	base64.StdEncoding.Encode(encoded[len(fakeHeader):], data)

	if err := replaceFile(path, encoded); err != nil {
		return failure("fake: write %s: %v", path, err)
	}
	return nil
}

// Decrypt decodes the file at path
func (f *Fake) Decrypt(path string) ([]byte, error) {
	f.Decrypts++
	if f.DecryptErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, f.DecryptErr)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, failure("fake: read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, fakeHeader) {
		return nil, fmt.Errorf("%w: %w: %s", ErrEncryption, ErrNotEncrypted, path)
	}

	plaintext, err := base64.StdEncoding.DecodeString(string(data[len(fakeHeader):]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, ErrDecryptionFailed)
	}
	return plaintext, nil
}

// IsEncrypted reports whether path carries the fake header
func (f *Fake) IsEncrypted(path string) (bool, error) {
	header, err := readHeader(path, len(fakeHeader))
	if err != nil {
		return false, err
	}
	return bytes.Equal(header, fakeHeader), nil
}
