package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/vault-cli/envvault/internal/domain"
)

// decodeVault strictly parses a vault document. It returns either a fully
// valid document or an error wrapping ErrVaultCorrupted.
func decodeVault(raw []byte) (*domain.VaultData, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var data domain.VaultData
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultCorrupted, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after vault document", ErrVaultCorrupted)
	}

	if err := validateVault(&data); err != nil {
		return nil, err
	}
	data.GlobalTags = normalizeTags(data.GlobalTags)
	return &data, nil
}

// validateVault checks the structural invariants of a vault document
func validateVault(d *domain.VaultData) error {
	if d == nil {
		return fmt.Errorf("%w: document is null", ErrVaultCorrupted)
	}
	if d.Version < 1 || d.Version > domain.CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrVaultCorrupted, d.Version)
	}
	if d.Metadata == nil {
		return fmt.Errorf("%w: metadata is missing", ErrVaultCorrupted)
	}
	if d.Projects == nil {
		return fmt.Errorf("%w: projects is missing", ErrVaultCorrupted)
	}

	names := make(map[string]struct{}, len(d.Projects))
	for i, p := range d.Projects {
		if p == nil {
			return fmt.Errorf("%w: project %d is null", ErrVaultCorrupted, i)
		}
		if err := validateProjectName(p.Name); err != nil {
			return fmt.Errorf("%w: project %d: %w", ErrVaultCorrupted, i, err)
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("%w: duplicate project %q", ErrVaultCorrupted, p.Name)
		}
		names[p.Name] = struct{}{}

		keys := make(map[string]struct{}, len(p.Secrets))
		for j, s := range p.Secrets {
			if s == nil {
				return fmt.Errorf("%w: project %q secret %d is null", ErrVaultCorrupted, p.Name, j)
			}
			if err := validateSecretKey(s.Key); err != nil {
				return fmt.Errorf("%w: project %q secret %d: %w", ErrVaultCorrupted, p.Name, j, err)
			}
			if _, dup := keys[s.Key]; dup {
				return fmt.Errorf("%w: duplicate secret %q in project %q", ErrVaultCorrupted, s.Key, p.Name)
			}
			keys[s.Key] = struct{}{}
		}
	}
	return nil
}

func validateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: project name must not be empty", ErrInvalidName)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: project name %q has surrounding whitespace", ErrInvalidName, name)
	}
	return nil
}

// validateSecretKey accepts keys that survive a round trip through the env format
func validateSecretKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: secret key must not be empty", ErrInvalidName)
	}
	if strings.HasPrefix(key, "#") {
		return fmt.Errorf("%w: secret key %q must not start with '#'", ErrInvalidName, key)
	}
	for _, r := range key {
		if r == '=' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: secret key %q contains %q", ErrInvalidName, key, r)
		}
	}
	return nil
}

// validateSecretValue rejects line breaks, which the env format cannot carry
func validateSecretValue(key, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value of %q contains a line break", ErrInvalidValue, key)
	}
	return nil
}

// normalizeTags trims, drops empties and removes duplicates, keeping order
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
