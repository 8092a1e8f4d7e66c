// Package config handles the configuration management for envvault.
// It provides functionality to load, save, validate and locate the
// application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Encryption backends
const (
	BackendAge        = "age"
	BackendSops       = "sops"
	BackendPassphrase = "passphrase"
)

// DefaultBackupRetention is the number of vault backups kept after a save
const DefaultBackupRetention = 5

// Environment overrides
const (
	EnvVaultPath  = "ENVVAULT_PATH"
	EnvPassphrase = "ENVVAULT_PASSPHRASE"
	EnvDebug      = "ENVVAULT_DEBUG"
)

// Config represents the envvault configuration
type Config struct {
	VaultPath       string           `yaml:"vault_path"`
	DefaultProject  string           `yaml:"default_project"`
	BackupRetention int              `yaml:"backup_retention"`
	AuditPath       string           `yaml:"audit_path,omitempty"`
	LogLevel        string           `yaml:"log_level"`
	ClipboardTTL    time.Duration    `yaml:"clipboard_ttl"`
	Encryption      EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig selects and configures the encryption backend
type EncryptionConfig struct {
	Backend    string           `yaml:"backend"`
	Age        AgeConfig        `yaml:"age"`
	Sops       SopsConfig       `yaml:"sops"`
	Passphrase PassphraseConfig `yaml:"passphrase"`
}

// AgeConfig configures the age command line tool
type AgeConfig struct {
	Binary       string   `yaml:"binary"`
	Recipients   []string `yaml:"recipients,omitempty"`
	IdentityFile string   `yaml:"identity_file"`
	Armor        bool     `yaml:"armor"`
}

// SopsConfig configures the sops command line tool
type SopsConfig struct {
	Binary        string   `yaml:"binary"`
	AgeRecipients []string `yaml:"age_recipients,omitempty"`
	ExtraArgs     []string `yaml:"extra_args,omitempty"`
}

// PassphraseConfig represents KDF parameters for the in-process backend
type PassphraseConfig struct {
	Memory      uint32 `yaml:"memory"`
	Iterations  uint32 `yaml:"iterations"`
	Parallelism uint8  `yaml:"parallelism"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		VaultPath:       filepath.Join(home, ".local", "share", "envvault", "vault.json"),
		DefaultProject:  "default",
		BackupRetention: DefaultBackupRetention,
		LogLevel:        "warn",
		ClipboardTTL:    30 * time.Second,
		Encryption: EncryptionConfig{
			Backend: BackendAge,
			Age: AgeConfig{
				Binary:       "age",
				IdentityFile: filepath.Join(home, ".config", "envvault", "identity.txt"),
			},
			Sops: SopsConfig{
				Binary: "sops",
			},
			Passphrase: PassphraseConfig{
				Memory:      65536, // 64 MB
				Iterations:  3,
				Parallelism: 4,
			},
		},
	}
}

// DefaultPath returns $HOME/.config/envvault/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "envvault", "config.yaml"), nil
}

// LoadConfig loads configuration from file or returns default.
// A missing file is created with the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		cfg.applyEnv()
		return cfg, nil
	}

	cleanPath := filepath.Clean(configPath)

	if _, err := os.Stat(cleanPath); os.IsNotExist(err) {
		if err := SaveConfig(cfg, cleanPath); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", cleanPath, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, configPath string) error {
	cleanPath := filepath.Clean(configPath)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for values the store cannot work with
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.VaultPath) == "" {
		errs = append(errs, errors.New("vault_path must not be empty"))
	}
	if c.BackupRetention < 1 {
		errs = append(errs, fmt.Errorf("backup_retention must be at least 1, got %d", c.BackupRetention))
	}

	switch c.Encryption.Backend {
	case BackendAge:
		if c.Encryption.Age.Binary == "" {
			errs = append(errs, errors.New("encryption.age.binary must not be empty"))
		}
	case BackendSops:
		if c.Encryption.Sops.Binary == "" {
			errs = append(errs, errors.New("encryption.sops.binary must not be empty"))
		}
	case BackendPassphrase:
		p := c.Encryption.Passphrase
		if p.Memory < 1024 || p.Iterations < 1 || p.Parallelism < 1 {
			errs = append(errs, errors.New("encryption.passphrase parameters too low (memory >= 1024, iterations >= 1, parallelism >= 1)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown encryption backend %q", c.Encryption.Backend))
	}

	return errors.Join(errs...)
}

// ResolvedAuditPath returns the audit journal path, defaulting next to the vault
func (c *Config) ResolvedAuditPath() string {
	if c.AuditPath != "" {
		return c.AuditPath
	}
	return c.VaultPath + ".audit.db"
}

func (c *Config) applyEnv() {
	if p := os.Getenv(EnvVaultPath); p != "" {
		c.VaultPath = p
	}
}
