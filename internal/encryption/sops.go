package encryption

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Sops encrypts vault files with the sops command line tool. The vault is
// handed to sops as JSON so the document shape survives encryption.
type Sops struct {
	Binary        string
	AgeRecipients []string
	ExtraArgs     []string
	Runner        Runner
}

// Encrypt runs sops --encrypt --in-place on path
func (s *Sops) Encrypt(path string) error {
	encrypted, err := s.IsEncrypted(path)
	if err != nil {
		return failure("sops: inspect %s: %v", path, err)
	}
	if encrypted {
		return nil
	}

	args := []string{"--encrypt", "--in-place", "--input-type", "json", "--output-type", "json"}
	if len(s.AgeRecipients) > 0 {
		args = append(args, "--age", strings.Join(s.AgeRecipients, ","))
	}
	args = append(args, s.ExtraArgs...)
	args = append(args, path)

	if _, err := runnerOrDefault(s.Runner).Run(s.binary(), args...); err != nil {
		return asEncryptionError(err)
	}
	return nil
}

// Decrypt runs sops --decrypt on path and returns stdout
func (s *Sops) Decrypt(path string) ([]byte, error) {
	plaintext, err := runnerOrDefault(s.Runner).Run(s.binary(),
		"--decrypt", "--input-type", "json", "--output-type", "json", path)
	if err != nil {
		return nil, asEncryptionError(err)
	}
	return plaintext, nil
}

// IsEncrypted reports whether path is a JSON document carrying sops metadata
func (s *Sops) IsEncrypted(path string) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, nil
	}
	raw, ok := doc["sops"]
	if !ok {
		return false, nil
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false, nil
	}
	_, hasMAC := meta["mac"]
	return hasMAC, nil
}

func (s *Sops) binary() string {
	if s.Binary == "" {
		return "sops"
	}
	return s.Binary
}
