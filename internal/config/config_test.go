package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	t.Setenv(EnvVaultPath, "")
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultBackupRetention, cfg.BackupRetention)
	assert.Equal(t, BackendAge, cfg.Encryption.Backend)

	info, err := os.Stat(configPath)
	require.NoError(t, err, "default config should be written")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	t.Setenv(EnvVaultPath, "")
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.VaultPath = "/tmp/custom/vault.json"
	cfg.BackupRetention = 9
	cfg.ClipboardTTL = 5 * time.Second
	cfg.Encryption.Backend = BackendSops
	cfg.Encryption.Sops.AgeRecipients = []string{"age1example"}
	require.NoError(t, SaveConfig(cfg, configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv(EnvVaultPath, "/override/vault.json")
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(DefaultConfig(), configPath))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/override/vault.json", cfg.VaultPath)
	assert.Equal(t, "/override/vault.json.audit.db", cfg.ResolvedAuditPath())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("vault_path: [unterminated"), 0o600))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty vault path", mutate: func(c *Config) { c.VaultPath = " " }, wantErr: true},
		{name: "zero retention", mutate: func(c *Config) { c.BackupRetention = 0 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Encryption.Backend = "rot13" }, wantErr: true},
		{name: "passphrase backend", mutate: func(c *Config) { c.Encryption.Backend = BackendPassphrase }, wantErr: false},
		{
			name: "weak passphrase params",
			mutate: func(c *Config) {
				c.Encryption.Backend = BackendPassphrase
				c.Encryption.Passphrase.Memory = 8
			},
			wantErr: true,
		},
		{name: "age without binary", mutate: func(c *Config) { c.Encryption.Age.Binary = "" }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolvedAuditPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VaultPath = "/data/vault.json"
	assert.Equal(t, "/data/vault.json.audit.db", cfg.ResolvedAuditPath())

	cfg.AuditPath = "/var/log/envvault.db"
	assert.Equal(t, "/var/log/envvault.db", cfg.ResolvedAuditPath())
}
