package encryption

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize  = chacha20poly1305.KeySize
	SaltSize = 32

	// EnvelopeVersion is the current passphrase envelope format
	EnvelopeVersion = 1
)

// passphraseMagic prefixes every file written by the passphrase backend
var passphraseMagic = []byte("ENVVAULT")

// envelope layout after the magic:
// version(1) | memory(4) | iterations(4) | parallelism(1) | salt(32) | nonce(24) | ciphertext+tag
const envelopeHeaderSize = 1 + 4 + 4 + 1 + SaltSize + chacha20poly1305.NonceSizeX

// Ceilings for KDF parameters read from an envelope header, unless the
// configured parameters are higher
const (
	maxHeaderMemory     = 256 * 1024 // KiB
	maxHeaderIterations = 16
)

var (
	ErrInvalidEnvelope = errors.New("invalid envelope format")
	ErrInvalidVersion  = errors.New("unsupported envelope version")
)

// Argon2Params holds the key derivation parameters
type Argon2Params struct {
	Memory      uint32 `json:"memory"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
}

// ValidateArgon2Params validates Argon2id parameters
func ValidateArgon2Params(params Argon2Params) error {
	if params.Memory < 1024 {
		return errors.New("memory parameter too low (minimum 1024 KB)")
	}
	if params.Memory > 1024*1024 {
		return errors.New("memory parameter too high (maximum 1 GB)")
	}
	if params.Iterations < 1 {
		return errors.New("iterations parameter too low (minimum 1)")
	}
	if params.Iterations > 100 {
		return errors.New("iterations parameter too high (maximum 100)")
	}
	if params.Parallelism < 1 {
		return errors.New("parallelism parameter too low (minimum 1)")
	}
	return nil
}

// Passphrase encrypts vault files in process with Argon2id and
// XChaCha20-Poly1305. The passphrase is requested lazily from source.
type Passphrase struct {
	params Argon2Params
	source PassphraseSource
}

// NewPassphrase creates the passphrase backend
func NewPassphrase(params Argon2Params, source PassphraseSource) *Passphrase {
	return &Passphrase{params: params, source: source}
}

// Encrypt seals the plaintext at path and replaces it with the envelope
func (p *Passphrase) Encrypt(path string) error {
	if err := ValidateArgon2Params(p.params); err != nil {
		return failure("passphrase: %v", err)
	}

	plaintext, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return failure("passphrase: read %s: %v", path, err)
	}
	defer Zeroize(plaintext)

	if bytes.HasPrefix(plaintext, passphraseMagic) {
		return nil
	}

	passphrase, err := p.passphrase()
	if err != nil {
		return err
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return failure("passphrase: generate salt: %v", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return failure("passphrase: generate nonce: %v", err)
	}

	key := deriveKey(passphrase, salt, p.params)
	defer Zeroize(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return failure("passphrase: create cipher: %v", err)
	}

	header := encodeHeader(p.params, salt, nonce)
	sealed := aead.Seal(append([]byte(nil), header...), nonce, plaintext, header)

	if err := replaceFile(path, sealed); err != nil {
		return failure("passphrase: write %s: %v", path, err)
	}
	return nil
}

// Decrypt opens the envelope at path
func (p *Passphrase) Decrypt(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, failure("passphrase: read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, passphraseMagic) {
		return nil, fmt.Errorf("%w: %w: %s", ErrEncryption, ErrNotEncrypted, path)
	}

	params, salt, nonce, err := decodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	if err := p.checkHeaderCost(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	passphrase, err := p.passphrase()
	if err != nil {
		return nil, err
	}

	key := deriveKey(passphrase, salt, params)
	defer Zeroize(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, failure("passphrase: create cipher: %v", err)
	}

	headerLen := len(passphraseMagic) + envelopeHeaderSize
	plaintext, err := aead.Open(nil, nonce, data[headerLen:], data[:headerLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, ErrDecryptionFailed)
	}
	return plaintext, nil
}

// IsEncrypted reports whether path starts with the passphrase envelope magic
func (p *Passphrase) IsEncrypted(path string) (bool, error) {
	header, err := readHeader(path, len(passphraseMagic))
	if err != nil {
		return false, err
	}
	return bytes.Equal(header, passphraseMagic), nil
}

func (p *Passphrase) passphrase() (string, error) {
	if p.source == nil {
		return "", failure("passphrase: no passphrase source")
	}
	passphrase, err := p.source()
	if err != nil {
		return "", fmt.Errorf("%w: passphrase: %w", ErrEncryption, err)
	}
	if passphrase == "" {
		return "", failure("passphrase: empty passphrase")
	}
	return passphrase, nil
}

// checkHeaderCost bounds the key derivation work a file header can demand
func (p *Passphrase) checkHeaderCost(params Argon2Params) error {
	if params.Memory > max(p.params.Memory, maxHeaderMemory) {
		return fmt.Errorf("%w: memory cost %d KiB exceeds limit", ErrInvalidEnvelope, params.Memory)
	}
	if params.Iterations > max(p.params.Iterations, maxHeaderIterations) {
		return fmt.Errorf("%w: iteration count %d exceeds limit", ErrInvalidEnvelope, params.Iterations)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte, params Argon2Params) []byte {
	return argon2.IDKey([]byte(passphrase), salt, params.Iterations, params.Memory, params.Parallelism, KeySize)
}

func encodeHeader(params Argon2Params, salt, nonce []byte) []byte {
	buf := make([]byte, 0, len(passphraseMagic)+envelopeHeaderSize)
	buf = append(buf, passphraseMagic...)
	buf = append(buf, EnvelopeVersion)
	buf = binary.LittleEndian.AppendUint32(buf, params.Memory)
	buf = binary.LittleEndian.AppendUint32(buf, params.Iterations)
	buf = append(buf, params.Parallelism)
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	return buf
}

func decodeHeader(data []byte) (Argon2Params, []byte, []byte, error) {
	offset := len(passphraseMagic)
	if len(data) < offset+envelopeHeaderSize+chacha20poly1305.Overhead {
		return Argon2Params{}, nil, nil, ErrInvalidEnvelope
	}

	if data[offset] != EnvelopeVersion {
		return Argon2Params{}, nil, nil, ErrInvalidVersion
	}
	offset++

	params := Argon2Params{
		Memory:     binary.LittleEndian.Uint32(data[offset : offset+4]),
		Iterations: binary.LittleEndian.Uint32(data[offset+4 : offset+8]),
	}
	offset += 8
	params.Parallelism = data[offset]
	offset++

	if err := ValidateArgon2Params(params); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	salt := data[offset : offset+SaltSize]
	offset += SaltSize
	nonce := data[offset : offset+chacha20poly1305.NonceSizeX]

	return params, salt, nonce, nil
}

// Zeroize securely clears a byte slice
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
